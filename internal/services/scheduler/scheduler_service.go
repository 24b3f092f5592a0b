// Package scheduler re-runs the probe suite on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/interfaces"
)

// Status is a snapshot of the scheduler state
type Status struct {
	Running   bool
	Runs      int
	Skipped   int // ticks dropped because a run was still in progress
	LastRun   *time.Time
	LastError string
	NextRun   *time.Time
}

// Service runs one job on a cron schedule. Runs never overlap: a tick that
// fires while the previous run is still going is skipped.
type Service struct {
	cron   *cron.Cron
	logger arbor.ILogger

	mu           sync.Mutex // protects the fields below
	running      bool
	isProcessing bool
	entryID      cron.EntryID
	job          func(ctx context.Context) error
	ctx          context.Context
	cancel       context.CancelFunc
	runs         int
	skipped      int
	lastRun      *time.Time
	lastError    string
}

var _ interfaces.Scheduler = (*Service)(nil)

// NewService creates a new scheduler service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		cron:   cron.New(),
		logger: logger,
	}
}

// ValidateSchedule checks a cron expression, including descriptors such as
// "@every 10m" and "@hourly".
func ValidateSchedule(cronExpr string) error {
	if cronExpr == "" {
		return fmt.Errorf("schedule is empty")
	}
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}

// Start registers job under cronExpr and starts the cron loop.
// The context handed to job is cancelled by Stop.
func (s *Service) Start(cronExpr string, job func(ctx context.Context) error) error {
	if err := ValidateSchedule(cronExpr); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.job = job

	id, err := s.cron.AddFunc(cronExpr, s.runScheduledTask)
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = id

	s.cron.Start()
	s.running = true

	s.logger.Info().Str("cron_expr", cronExpr).Msg("Scheduler started")
	return nil
}

// Trigger runs the job now on the caller's goroutine, unless a run is
// already in progress. Returns false if the run was skipped.
func (s *Service) Trigger() bool {
	return s.execute()
}

// Stop halts the cron loop, cancels an in-flight run and waits for it
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.cron.Stop().Done()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// Status returns a snapshot of the scheduler state
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:   s.running,
		Runs:      s.runs,
		Skipped:   s.skipped,
		LastRun:   s.lastRun,
		LastError: s.lastError,
	}
	if s.running {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}

func (s *Service) runScheduledTask() {
	s.execute()
}

func (s *Service) execute() (ran bool) {
	s.mu.Lock()
	if s.isProcessing {
		s.skipped++
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous run still in progress, skipping scheduled run")
		return false
	}
	if s.job == nil {
		s.mu.Unlock()
		return false
	}
	s.isProcessing = true
	job := s.job
	ctx := s.ctx
	s.mu.Unlock()

	started := time.Now()
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in scheduled run")
		}

		finished := time.Now()
		s.mu.Lock()
		s.isProcessing = false
		s.runs++
		s.lastRun = &finished
		if err != nil {
			s.lastError = err.Error()
		} else {
			s.lastError = ""
		}
		s.mu.Unlock()
	}()

	s.logger.Info().Msg("Scheduled run started")

	ran = true
	err = job(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("duration", time.Since(started).Round(time.Millisecond).String()).Msg("Scheduled run failed")
	} else {
		s.logger.Info().Str("duration", time.Since(started).Round(time.Millisecond).String()).Msg("Scheduled run completed")
	}

	return ran
}
