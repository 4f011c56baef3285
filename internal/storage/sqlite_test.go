package storage

import (
	"context"
	"path/filepath"
	"testing"

	"relaybot/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestUpsertChatIdempotent(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := st.UpsertChat(ctx, Chat{ID: -100123, Title: "ops", Kind: "supergroup"}); err != nil {
			t.Fatalf("UpsertChat: %v", err)
		}
	}
	if err := st.UpsertChat(ctx, Chat{ID: -200456, Kind: "group"}); err != nil {
		t.Fatalf("UpsertChat: %v", err)
	}

	ids, err := st.ChatIDs(ctx)
	if err != nil {
		t.Fatalf("ChatIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 chat ids, got %v", ids)
	}
	seen := map[int64]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate chat id %d", id)
		}
		seen[id] = true
	}
}

func TestGrantAdminOwnerFlagMonotonic(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		grants []bool // is_owner per grant, in order
	}{
		{name: "owner then plain", grants: []bool{true, false}},
		{name: "plain then owner", grants: []bool{false, true}},
		{name: "owner twice", grants: []bool{true, true}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := openTestStore(t)
			ctx := context.Background()

			for _, owner := range tt.grants {
				if err := st.GrantAdmin(ctx, 111, owner); err != nil {
					t.Fatalf("GrantAdmin: %v", err)
				}
			}
			owner, err := st.IsOwner(ctx, 111)
			if err != nil {
				t.Fatalf("IsOwner: %v", err)
			}
			if !owner {
				t.Fatal("is_owner must stay true after any owner grant")
			}
		})
	}
}

func TestRevokeAdminSparesOwners(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.GrantAdmin(ctx, 111, true); err != nil {
		t.Fatalf("GrantAdmin: %v", err)
	}
	if err := st.GrantAdmin(ctx, 222, false); err != nil {
		t.Fatalf("GrantAdmin: %v", err)
	}

	if err := st.RevokeAdmin(ctx, 111); err != nil {
		t.Fatalf("RevokeAdmin(owner): %v", err)
	}
	if err := st.RevokeAdmin(ctx, 222); err != nil {
		t.Fatalf("RevokeAdmin(admin): %v", err)
	}

	if owner, _ := st.IsOwner(ctx, 111); !owner {
		t.Fatal("owner row must survive RevokeAdmin")
	}
	if admin, _ := st.IsAdmin(ctx, 222); admin {
		t.Fatal("non-owner admin should be revocable")
	}
}

func TestAdminIDsOrder(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	for _, g := range []struct {
		id    int64
		owner bool
	}{{500, false}, {42, true}, {300, false}, {999, true}} {
		if err := st.GrantAdmin(ctx, g.id, g.owner); err != nil {
			t.Fatalf("GrantAdmin: %v", err)
		}
	}

	ids, err := st.AdminIDs(ctx)
	if err != nil {
		t.Fatalf("AdminIDs: %v", err)
	}
	want := []int64{42, 999, 300, 500} // owners first, then ascending
	if len(ids) != len(want) {
		t.Fatalf("AdminIDs = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("AdminIDs = %v, want %v", ids, want)
		}
	}
}

func TestBootstrapTwice(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.db")
	ctx := context.Background()

	// Two restarts: open, seed owner 111, close, repeat.
	for i := 0; i < 2; i++ {
		st, err := Open(Config{Path: path}, logx.Nop())
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		if err := st.GrantAdmin(ctx, 111, true); err != nil {
			t.Fatalf("GrantAdmin #%d: %v", i+1, err)
		}
		if err := st.Close(); err != nil {
			t.Fatalf("Close #%d: %v", i+1, err)
		}
	}

	st, err := Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ids, err := st.AdminIDs(ctx)
	if err != nil {
		t.Fatalf("AdminIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != 111 {
		t.Fatalf("AdminIDs = %v, want [111]", ids)
	}
	if owner, _ := st.IsOwner(ctx, 111); !owner {
		t.Fatal("seeded owner must keep is_owner=true")
	}
	if any, _ := st.HasAnyOwner(ctx); !any {
		t.Fatal("HasAnyOwner must be true after bootstrap")
	}
}

func TestPredicatesOnEmptyStore(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	if admin, err := st.IsAdmin(ctx, 1); err != nil || admin {
		t.Fatalf("IsAdmin = (%v, %v), want (false, nil)", admin, err)
	}
	if owner, err := st.IsOwner(ctx, 1); err != nil || owner {
		t.Fatalf("IsOwner = (%v, %v), want (false, nil)", owner, err)
	}
	if any, err := st.HasAnyOwner(ctx); err != nil || any {
		t.Fatalf("HasAnyOwner = (%v, %v), want (false, nil)", any, err)
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Chats != 0 || stats.Admins != 0 || stats.Owners != 0 {
		t.Fatalf("Stats = %+v, want zeros", stats)
	}
}
