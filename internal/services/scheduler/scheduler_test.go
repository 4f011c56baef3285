package scheduler

import (
	"context"
	"testing"

	"relaybot/pkg/logx"
)

func TestAddRejectsBadSpec(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, logx.Nop())

	if err := s.Add("bad", "not-a-spec", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
	if err := s.Add("stats", "@hourly", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Add(@hourly): %v", err)
	}
	if err := s.Add("maintain", "30 3 * * *", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Add(5-field): %v", err)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, logx.Nop())
	if err := s.Add("noop", "@daily", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	s.Start(ctx) // second start is a no-op
	s.Stop(ctx)
	s.Stop(ctx) // second stop is a no-op
}
