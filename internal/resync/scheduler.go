// Package resync periodically drops local snapshots so they are re-read from the remote store.
// Change events are delivered at most once; a missed event leaves a stale snapshot entry until
// the next resync.
package resync

import (
	"context"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"cache-mate/internal/common/errors"
	"cache-mate/internal/common/logging"
	"cache-mate/internal/localcache"
)

// Caches lists the caches to resync
type Caches interface {
	Each(fn func(*localcache.Cache))
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule checks a cron spec. Five or six fields and descriptors such as
// "@every 15m" are accepted; empty means disabled.
func ValidateSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return nil
	}
	if _, err := parser.Parse(schedule); err != nil {
		return errors.ConfigError("invalid resync schedule: " + err.Error()).WithContext("schedule", schedule)
	}
	return nil
}

// Scheduler runs resyncs on a cron schedule
type Scheduler struct {
	caches   Caches
	schedule string
	logger   logging.Logger
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
	runs    int
}

// New creates a scheduler. An empty schedule yields a disabled scheduler whose Start and Stop
// do nothing.
func New(caches Caches, schedule string, logger logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Component("resync")
	}
	s := &Scheduler{
		caches:   caches,
		schedule: strings.TrimSpace(schedule),
		logger:   logger,
	}
	if s.schedule == "" {
		return s, nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return nil, err
	}
	s.cron = cron.New(cron.WithParser(parser))
	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return nil, errors.ConfigError("failed to schedule resync: " + err.Error())
	}
	return s, nil
}

// Enabled reports whether a schedule is set
func (s *Scheduler) Enabled() bool {
	return s.cron != nil
}

// Start begins running on schedule
func (s *Scheduler) Start() {
	if s.cron == nil {
		s.logger.Info("Resync disabled")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("Resync scheduled", logging.String("schedule", s.schedule))
}

// Stop halts the schedule and waits for a run in progress, or until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Resync still running at shutdown")
	}
}

// RunOnce clears every cache's local snapshot now
func (s *Scheduler) RunOnce() {
	cleared := 0
	dropped := 0
	s.caches.Each(func(cache *localcache.Cache) {
		dropped += cache.SizeInMemory()
		cache.ClearLocalOnly()
		cleared++
	})

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	s.logger.Debug("Resynced local caches",
		logging.Int("caches", cleared),
		logging.Int("entries_dropped", dropped),
	)
}

// Runs returns how many resyncs have completed
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}
