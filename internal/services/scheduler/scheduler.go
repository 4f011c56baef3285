// Package scheduler runs the bot's periodic maintenance jobs on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"relaybot/pkg/logx"
)

type Config struct {
	Enabled        bool
	DefaultTimeout time.Duration // per-job cap; 0 disables
}

type jobDef struct {
	name    string
	spec    string
	timeout time.Duration
	run     func(ctx context.Context) error
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config

	parser cron.Parser
	c      *cron.Cron
	defs   []jobDef

	runCtx context.Context
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		log: log,
		// Descriptor allows "@hourly"/"@daily" alongside 5-field specs.
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Add registers a named job. Jobs registered before Start are scheduled when
// the service starts; registering after Start schedules immediately.
func (s *Service) Add(name, spec string, job func(ctx context.Context) error) error {
	if _, err := s.parser.Parse(spec); err != nil {
		return fmt.Errorf("schedule %q for job %s: %w", spec, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d := jobDef{name: name, spec: spec, timeout: s.cfg.DefaultTimeout, run: job}
	s.defs = append(s.defs, d)
	if s.c != nil {
		s.scheduleLocked(d)
	}
	return nil
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.runCtx = ctx
	s.c = cron.New(cron.WithParser(s.parser))
	for _, d := range s.defs {
		s.scheduleLocked(d)
	}
	s.c.Start()
	s.log.Info("scheduler started", logx.Int("jobs", len(s.defs)))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	done := c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

func (s *Service) scheduleLocked(d jobDef) {
	_, err := s.c.AddFunc(d.spec, func() { s.runJob(d) })
	if err != nil {
		s.log.Warn("failed to schedule job", logx.String("job", d.name), logx.Err(err))
	}
}

func (s *Service) runJob(d jobDef) {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked",
				logx.String("job", d.name),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())))
		}
	}()

	if err := d.run(ctx); err != nil {
		s.log.Warn("job failed", logx.String("job", d.name),
			logx.Duration("took", time.Since(start)), logx.Err(err))
		return
	}
	s.log.Debug("job ok", logx.String("job", d.name),
		logx.Duration("took", time.Since(start)))
}
