package storage

import (
	"context"
	"time"
)

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// Chat is a group conversation the bot has observed at least one message in.
type Chat struct {
	ID    int64
	Title string
	Kind  string // "group" or "supergroup"
}

// Stats is a point-in-time summary used by the maintenance job.
type Stats struct {
	Chats  int
	Admins int
	Owners int
}

// Store is the persistence API used by the router and handlers.
//
// Grant semantics are monotonic: upserting an existing admin ORs the owner
// flag, so granting never revokes owner status. RevokeAdmin refuses owner
// rows; clearing is_owner takes a manual database edit (lockout safeguard).
type Store interface {
	UpsertChat(ctx context.Context, c Chat) error
	ChatIDs(ctx context.Context) ([]int64, error)

	GrantAdmin(ctx context.Context, userID int64, owner bool) error
	RevokeAdmin(ctx context.Context, userID int64) error
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	IsOwner(ctx context.Context, userID int64) (bool, error)
	HasAnyOwner(ctx context.Context) (bool, error)
	AdminIDs(ctx context.Context) ([]int64, error)

	Stats(ctx context.Context) (Stats, error)
	Maintain(ctx context.Context) error
	Close() error
}
