package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"

	"relaybot/internal/kit"
	"relaybot/pkg/logx"
)

// fakeAdapter records sends and fails for configured chat ids.
type fakeAdapter struct {
	mu   sync.Mutex
	sent []int64
	fail map[int64]error
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                     { return nil }

func (f *fakeAdapter) SendText(_ context.Context, to kit.ChatTarget, _ string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[to.ChatID]; ok {
		return kit.MessageRef{}, err
	}
	f.sent = append(f.sent, to.ChatID)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func targets(ids ...int64) []kit.ChatTarget {
	out := make([]kit.ChatTarget, 0, len(ids))
	for _, id := range ids {
		out = append(out, kit.ChatTarget{ChatID: id})
	}
	return out
}

func TestRunToleratesPartialFailure(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{fail: map[int64]error{-20: errors.New("bot was kicked")}}
	svc := New(Config{RatePerSec: 1000}, ad, logx.Nop())

	rep := svc.Run(context.Background(), targets(-10, -20, -30), "Hello")

	if rep.Total != 3 || rep.Sent != 2 {
		t.Fatalf("Report = %+v, want Total=3 Sent=2", rep)
	}
	if len(rep.Failures) != 1 || rep.Failures[0].Target.ChatID != -20 {
		t.Fatalf("Failures = %+v, want one failure for chat -20", rep.Failures)
	}
	if len(ad.sent) != 2 {
		t.Fatalf("adapter saw %d sends, want 2", len(ad.sent))
	}
}

func TestRunEmptyTargets(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	svc := New(Config{}, ad, logx.Nop())

	rep := svc.Run(context.Background(), nil, "Hello")
	if rep.Total != 0 || rep.Sent != 0 || len(rep.Failures) != 0 {
		t.Fatalf("Report = %+v, want all zero", rep)
	}
}

func TestRunCanceledContextFailsRemaining(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	svc := New(Config{RatePerSec: 1000}, ad, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := svc.Run(ctx, targets(-10, -20), "Hello")
	if rep.Sent != 0 {
		t.Fatalf("Sent = %d, want 0 after cancellation", rep.Sent)
	}
	if len(rep.Failures) != 2 {
		t.Fatalf("Failures = %d, want 2 (all remaining targets)", len(rep.Failures))
	}
}
