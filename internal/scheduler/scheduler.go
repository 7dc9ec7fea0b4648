package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/bryan-kier/productivity/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	JobDaily  = "daily"
	JobWeekly = "weekly"
)

// Runner is the maintenance work the triggers fire.
type Runner interface {
	RunDaily(ctx context.Context) (service.Report, error)
	RunWeekly(ctx context.Context) (service.Report, error)
}

// Locker makes a firing exclusive across replicas. Acquire reports false
// when another replica already owns the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Options struct {
	Location   *time.Location
	DailySpec  string
	WeeklySpec string
	JobTimeout time.Duration
	// Lock is optional; without it every replica fires.
	Lock Locker
}

// Scheduler fires the daily and weekly maintenance runs on wall-clock
// triggers. A failed firing is not retried; the next firing is.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	log     *zap.Logger
	loc     *time.Location
	timeout time.Duration
	lock    Locker
	now     func() time.Time
}

func New(runner Runner, log *zap.Logger, opts Options) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := opts.JobTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		runner:  runner,
		log:     log.Named("scheduler"),
		loc:     loc,
		timeout: timeout,
		lock:    opts.Lock,
		now:     time.Now,
	}
	if _, err := s.cron.AddFunc(opts.DailySpec, func() { s.Fire(JobDaily) }); err != nil {
		return nil, fmt.Errorf("daily spec %q: %w", opts.DailySpec, err)
	}
	if _, err := s.cron.AddFunc(opts.WeeklySpec, func() { s.Fire(JobWeekly) }); err != nil {
		return nil, fmt.Errorf("weekly spec %q: %w", opts.WeeklySpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Info("trigger registered", zap.Time("next", e.Next))
	}
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Fire runs one job now, honouring the lock. It reports whether the job ran.
func (s *Scheduler) Fire(job string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if s.lock != nil {
		minute := s.now().In(s.loc).Truncate(time.Minute)
		key := "taskflow:scheduler:" + job + ":" + minute.Format("200601021504")
		ok, err := s.lock.Acquire(ctx, key, s.timeout+time.Minute)
		if err != nil {
			s.log.Error("lock failed, skipping firing", zap.String("job", job), zap.Error(err))
			return false
		}
		if !ok {
			s.log.Info("firing owned by another replica", zap.String("job", job))
			return false
		}
	}

	var (
		rep service.Report
		err error
	)
	switch job {
	case JobDaily:
		rep, err = s.runner.RunDaily(ctx)
	case JobWeekly:
		rep, err = s.runner.RunWeekly(ctx)
	default:
		s.log.Error("unknown job", zap.String("job", job))
		return false
	}
	if err != nil {
		s.log.Error("job failed", zap.String("job", job), zap.Error(err))
		return true
	}
	s.log.Info("job done", zap.String("job", job),
		zap.Int("owners", rep.Owners), zap.Int("failed", rep.Failed), zap.Int64("purged", rep.Purged))
	return true
}
