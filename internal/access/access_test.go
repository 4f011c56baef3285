package access

import (
	"context"
	"errors"
	"testing"

	"relaybot/internal/storage"
	"relaybot/pkg/logx"
)

// brokenStore fails every predicate to exercise the fail-closed path.
type brokenStore struct {
	storage.Store
}

var errDown = errors.New("db down")

func (brokenStore) IsAdmin(context.Context, int64) (bool, error) { return true, errDown }
func (brokenStore) IsOwner(context.Context, int64) (bool, error) { return true, errDown }

type fixedStore struct {
	storage.Store
	admins map[int64]bool
	owners map[int64]bool
}

func (s fixedStore) IsAdmin(_ context.Context, id int64) (bool, error) { return s.admins[id], nil }
func (s fixedStore) IsOwner(_ context.Context, id int64) (bool, error) { return s.owners[id], nil }

func TestPolicyTiers(t *testing.T) {
	t.Parallel()
	st := fixedStore{
		admins: map[int64]bool{111: true, 222: true},
		owners: map[int64]bool{111: true},
	}
	p := NewPolicy(st, logx.Nop())
	ctx := context.Background()

	tests := []struct {
		name      string
		userID    int64
		broadcast bool
		manage    bool
	}{
		{name: "owner", userID: 111, broadcast: true, manage: true},
		{name: "granted admin", userID: 222, broadcast: true, manage: false},
		{name: "stranger", userID: 333, broadcast: false, manage: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := p.CanBroadcast(ctx, tt.userID); got != tt.broadcast {
				t.Fatalf("CanBroadcast = %v, want %v", got, tt.broadcast)
			}
			if got := p.CanManage(ctx, tt.userID); got != tt.manage {
				t.Fatalf("CanManage = %v, want %v", got, tt.manage)
			}
		})
	}
}

func TestPolicyFailsClosed(t *testing.T) {
	t.Parallel()
	p := NewPolicy(brokenStore{}, logx.Nop())
	ctx := context.Background()

	if p.CanBroadcast(ctx, 111) {
		t.Fatal("CanBroadcast must deny on store error")
	}
	if p.CanManage(ctx, 111) {
		t.Fatal("CanManage must deny on store error")
	}
}
