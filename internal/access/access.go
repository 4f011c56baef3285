// Package access decides who may use the bot's gated surfaces.
//
// Two tiers: owners (configured out-of-band, may grant/list admins) and
// admins (owners plus anyone granted, may broadcast). The Telegram sender id
// is the trust anchor; there is no session or token concept.
package access

import (
	"context"

	"relaybot/internal/storage"
	"relaybot/pkg/logx"
)

type Policy struct {
	store storage.Store
	log   logx.Logger
}

func NewPolicy(store storage.Store, log logx.Logger) *Policy {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Policy{store: store, log: log}
}

// CanBroadcast reports whether userID may trigger a broadcast (any admin,
// owner or granted). Store errors fail closed.
func (p *Policy) CanBroadcast(ctx context.Context, userID int64) bool {
	ok, err := p.store.IsAdmin(ctx, userID)
	if err != nil {
		p.log.Warn("admin check failed; denying", logx.Int64("user_id", userID), logx.Err(err))
		return false
	}
	return ok
}

// CanManage reports whether userID may grant or list admins (owners only).
// Store errors fail closed.
func (p *Policy) CanManage(ctx context.Context, userID int64) bool {
	ok, err := p.store.IsOwner(ctx, userID)
	if err != nil {
		p.log.Warn("owner check failed; denying", logx.Int64("user_id", userID), logx.Err(err))
		return false
	}
	return ok
}
