// Package scheduler runs the recurring content jobs.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrJobNotFound is returned by RunJobNow for an unknown job name.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobRunning is returned by RunJobNow while the job is still running.
	ErrJobRunning = errors.New("job already running")

	// ErrStopped is returned by RunJobNow after Stop.
	ErrStopped = errors.New("scheduler stopped")
)

// Job represents a scheduled job.
type Job struct {
	Name     string
	Schedule Schedule
	Handler  func(ctx context.Context) error
	LastRun  time.Time
	NextRun  time.Time
	LastErr  error
	Runs     int

	running bool
}

// Schedule defines when a job should run.
type Schedule struct {
	// For fixed-interval jobs
	Interval time.Duration

	// For time-of-day jobs, in the scheduler's location
	Hour   int
	Minute int

	// Days for weekly jobs
	Days []time.Weekday

	// Type of schedule
	Type ScheduleType
}

// ScheduleType defines the type of schedule.
type ScheduleType string

const (
	ScheduleInterval ScheduleType = "interval"
	ScheduleDaily    ScheduleType = "daily"
	ScheduleWeekly   ScheduleType = "weekly"
)

// JobStatus is a point-in-time view of a job.
type JobStatus struct {
	Name      string       `json:"name"`
	Type      ScheduleType `json:"type"`
	LastRun   time.Time    `json:"last_run"`
	NextRun   time.Time    `json:"next_run"`
	Runs      int          `json:"runs"`
	Running   bool         `json:"running"`
	LastError string       `json:"last_error,omitempty"`
}

// ContentPipeline is the generation surface the jobs drive.
type ContentPipeline interface {
	GenerateDaily(ctx context.Context, now time.Time) (*models.ContentPiece, error)
	PrepareWeekend(ctx context.Context) ([]*models.ContentPiece, error)
	ReviewQueue(ctx context.Context) ([]models.ContentPiece, error)
}

// MarketRefresher reloads the market snapshot.
type MarketRefresher interface {
	Refresh(ctx context.Context) (models.MarketContext, error)
}

// Options tune the scheduler.
type Options struct {
	Location   *time.Location
	Tick       time.Duration
	JobTimeout time.Duration
}

// Scheduler manages scheduled jobs.
type Scheduler struct {
	pipeline ContentPipeline
	market   MarketRefresher

	jobs    []*Job
	jobsMux sync.RWMutex

	loc        *time.Location
	tick       time.Duration
	jobTimeout time.Duration
	now        func() time.Time

	// Lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool // guarded by jobsMux
}

// NewScheduler creates a scheduler with the default content jobs registered.
// market may be nil, in which case no refresh job is registered.
func NewScheduler(pipeline ContentPipeline, market MarketRefresher, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Minute
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 5 * time.Minute
	}

	s := &Scheduler{
		pipeline:   pipeline,
		market:     market,
		jobs:       make([]*Job, 0),
		loc:        opts.Location,
		tick:       opts.Tick,
		jobTimeout: opts.JobTimeout,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}

	s.registerDefaultJobs()

	return s
}

// registerDefaultJobs sets up the content schedule.
func (s *Scheduler) registerDefaultJobs() {
	// Review whatever is queued before the day's post
	s.AddJob(&Job{
		Name:     "content-review",
		Schedule: Schedule{Type: ScheduleDaily, Hour: 8, Minute: 30},
		Handler: func(ctx context.Context) error {
			_, err := s.pipeline.ReviewQueue(ctx)
			return err
		},
	})

	s.AddJob(&Job{
		Name:     "daily-content",
		Schedule: Schedule{Type: ScheduleDaily, Hour: 9, Minute: 0},
		Handler: func(ctx context.Context) error {
			_, err := s.pipeline.GenerateDaily(ctx, s.now().In(s.loc))
			return err
		},
	})

	s.AddJob(&Job{
		Name: "weekend-prep",
		Schedule: Schedule{
			Type:   ScheduleWeekly,
			Hour:   17,
			Minute: 0,
			Days:   []time.Weekday{time.Friday},
		},
		Handler: func(ctx context.Context) error {
			_, err := s.pipeline.PrepareWeekend(ctx)
			return err
		},
	})

	if s.market != nil {
		s.AddJob(&Job{
			Name:     "market-refresh",
			Schedule: Schedule{Type: ScheduleInterval, Interval: time.Hour},
			Handler: func(ctx context.Context) error {
				_, err := s.market.Refresh(ctx)
				return err
			},
		})
	}
}

// AddJob adds a job to the scheduler.
func (s *Scheduler) AddJob(job *Job) {
	s.jobsMux.Lock()
	defer s.jobsMux.Unlock()

	job.NextRun = NextRun(job.Schedule, s.now(), s.loc)
	s.jobs = append(s.jobs, job)

	log.Info().
		Str("job", job.Name).
		Time("next_run", job.NextRun).
		Msg("Job registered")
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	log.Info().Int("jobs", len(s.jobs)).Str("tz", s.loc.String()).Msg("Starting scheduler")

	s.wg.Add(1)
	go s.jobLoop()
}

// Stop stops the scheduler and waits for running jobs to return.
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler")

	s.jobsMux.Lock()
	s.stopped = true
	s.jobsMux.Unlock()

	s.cancel()
	s.wg.Wait()
}

// jobLoop checks and runs scheduled jobs.
func (s *Scheduler) jobLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.checkAndRunJobs()
		}
	}
}

// checkAndRunJobs runs any jobs that are due.
func (s *Scheduler) checkAndRunJobs() {
	now := s.now()

	s.jobsMux.Lock()
	defer s.jobsMux.Unlock()

	for _, job := range s.jobs {
		if !now.Before(job.NextRun) {
			if err := s.spawn(job); err != nil {
				log.Warn().Err(err).Str("job", job.Name).Msg("Skipping scheduled run")
			}
			job.NextRun = NextRun(job.Schedule, now, s.loc)

			log.Debug().
				Str("job", job.Name).
				Time("next_run", job.NextRun).
				Msg("Job scheduled for next run")
		}
	}
}

// spawn starts job in its own goroutine. The caller holds jobsMux.
func (s *Scheduler) spawn(job *Job) error {
	if s.stopped {
		return ErrStopped
	}
	if job.running {
		return ErrJobRunning
	}
	job.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJob(job)
	}()
	return nil
}

// runJob executes a job.
func (s *Scheduler) runJob(job *Job) {
	log.Info().Str("job", job.Name).Msg("Running job")

	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	start := s.now()
	err := job.Handler(ctx)

	s.jobsMux.Lock()
	job.LastRun = start
	job.LastErr = err
	job.Runs++
	job.running = false
	s.jobsMux.Unlock()

	if err != nil {
		log.Error().Err(err).Str("job", job.Name).Msg("Job failed")
	} else {
		log.Info().Str("job", job.Name).Msg("Job completed")
	}
}

// NextRun calculates the next run time for a schedule after now.
func NextRun(schedule Schedule, now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)

	switch schedule.Type {
	case ScheduleInterval:
		return now.Add(schedule.Interval)

	case ScheduleDaily:
		next := time.Date(now.Year(), now.Month(), now.Day(),
			schedule.Hour, schedule.Minute, 0, 0, loc)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next

	case ScheduleWeekly:
		next := time.Date(now.Year(), now.Month(), now.Day(),
			schedule.Hour, schedule.Minute, 0, 0, loc)

		// Find next matching day
		for i := 0; i < 8; i++ {
			for _, d := range schedule.Days {
				if d == next.Weekday() && next.After(now) {
					return next
				}
			}
			next = next.AddDate(0, 0, 1)
		}
		return next

	default:
		return now.Add(time.Hour)
	}
}

// RunJobNow runs a specific job immediately by name. A job never runs twice
// at once, and nothing runs after Stop.
func (s *Scheduler) RunJobNow(name string) error {
	s.jobsMux.Lock()
	defer s.jobsMux.Unlock()

	for _, job := range s.jobs {
		if job.Name == name {
			return s.spawn(job)
		}
	}

	return ErrJobNotFound
}

// JobStatus returns the status of all jobs.
func (s *Scheduler) JobStatus() []JobStatus {
	s.jobsMux.RLock()
	defer s.jobsMux.RUnlock()

	status := make([]JobStatus, len(s.jobs))
	for i, job := range s.jobs {
		status[i] = JobStatus{
			Name:    job.Name,
			Type:    job.Schedule.Type,
			LastRun: job.LastRun,
			NextRun: job.NextRun,
			Runs:    job.Runs,
			Running: job.running,
		}
		if job.LastErr != nil {
			status[i].LastError = job.LastErr.Error()
		}
	}
	return status
}
