package broadcast

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"relaybot/internal/kit"
	"relaybot/pkg/logx"
)

type Config struct {
	// RatePerSec caps outbound sends; Telegram allows roughly 30 msg/s
	// bot-wide, so the default stays well under that.
	RatePerSec int
}

const defaultRatePerSec = 20

// Result is the outcome for one recipient.
type Result struct {
	Target kit.ChatTarget
	Err    error
}

// Report summarizes one fan-out batch.
type Report struct {
	Total    int
	Sent     int
	Failures []Result
	Took     time.Duration
}

type Service struct {
	adapter kit.Adapter
	log     logx.Logger

	mu      sync.Mutex
	limiter *rate.Limiter
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{adapter: adapter, log: log}
	s.Apply(cfg)
	return s
}

// Apply updates the rate limit. Safe during hot reload.
func (s *Service) Apply(cfg Config) {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = defaultRatePerSec
	}
	s.mu.Lock()
	s.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	s.mu.Unlock()
}

// Run sends text verbatim to every target and reports per-recipient results.
// It never returns an error: delivery failures land in Report.Failures, and
// context cancellation marks the remaining targets failed.
func (s *Service) Run(ctx context.Context, targets []kit.ChatTarget, text string) Report {
	start := time.Now()
	rep := Report{Total: len(targets)}

	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()

	for i, t := range targets {
		if err := lim.Wait(ctx); err != nil {
			for _, rest := range targets[i:] {
				rep.Failures = append(rep.Failures, Result{Target: rest, Err: err})
			}
			break
		}
		if _, err := s.adapter.SendText(ctx, t, text, nil); err != nil {
			s.log.Warn("broadcast send failed",
				logx.Int64("chat_id", t.ChatID), logx.Err(err))
			rep.Failures = append(rep.Failures, Result{Target: t, Err: err})
			continue
		}
		rep.Sent++
	}

	rep.Took = time.Since(start)
	s.log.Info("broadcast finished",
		logx.Int("total", rep.Total),
		logx.Int("sent", rep.Sent),
		logx.Int("failed", len(rep.Failures)),
		logx.Duration("took", rep.Took))
	return rep
}
