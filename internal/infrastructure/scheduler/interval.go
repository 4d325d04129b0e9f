package scheduler

import (
	"context"
	"sync"
	"time"

	"NewsRelay/internal/ports"
)

// Ticker is the subset of time.Ticker the scheduler needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }

func (t timeTicker) Stop() { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// IntervalScheduler fires a job at a fixed interval. Jobs run in their own
// goroutines, so a slow job never delays the next tick or Stop.
type IntervalScheduler struct {
	interval   time.Duration
	runOnStart bool
	newTicker  TickerFactory
	now        func() time.Time

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
	jobs sync.WaitGroup
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a stopped scheduler; interval <= 0 means 30 minutes.
func NewIntervalScheduler(interval time.Duration, runOnStart bool) *IntervalScheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &IntervalScheduler{
		interval:   interval,
		runOnStart: runOnStart,
		newTicker:  NewTimeTicker,
		now:        time.Now,
	}
}

// WithTickerFactory replaces the ticker source, mainly for tests.
func (s *IntervalScheduler) WithTickerFactory(f TickerFactory) *IntervalScheduler {
	s.newTicker = f
	return s
}

// Start begins ticking. Starting a running scheduler is a no-op.
// The loop also ends when ctx is done.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	ticker := s.newTicker(s.interval)
	if s.runOnStart {
		s.dispatch(job, s.now())
	}

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C():
				s.dispatch(job, t)
			case <-stop:
				return
			case <-ctx.Done():
				s.mu.Lock()
				if s.stop == stop {
					s.stop, s.done = nil, nil
				}
				s.mu.Unlock()
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker loop. In-flight jobs keep running; use Wait to join them.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return nil
	}
	close(s.stop)
	done := s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a ticker loop is active.
func (s *IntervalScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Wait blocks until every dispatched job has returned or ctx is done.
func (s *IntervalScheduler) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *IntervalScheduler) dispatch(job func(time.Time), at time.Time) {
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		job(at)
	}()
}
