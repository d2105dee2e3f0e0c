package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/home-temperature-agent/internal/monitor"
)

// Scheduler drives the monitor: a fixed-interval poll job plus a daily
// forecast check. Poll cycles run in singleton mode so a slow cycle
// never overlaps the next one.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	monitor    *monitor.Monitor
	interval   time.Duration
	forecastAt string
}

// New creates a Scheduler. forecastAt is a wall-clock "HH:MM" time for
// the daily look-ahead check.
func New(m *monitor.Monitor, interval time.Duration, forecastAt string) *Scheduler {
	s := gocron.NewScheduler(time.Local)
	return &Scheduler{
		scheduler:  s,
		monitor:    m,
		interval:   interval,
		forecastAt: forecastAt,
	}
}

// Start schedules the jobs and starts the underlying scheduler. The
// first poll cycle runs immediately so the service has data before the
// first interval elapses.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().StartImmediately().Do(func() {
		if err := s.monitor.RunPollCycle(context.Background()); err != nil {
			log.Printf("scheduler: poll cycle failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	_, err = s.scheduler.Every(1).Day().At(s.forecastAt).Do(func() {
		if err := s.monitor.RunForecastCycle(context.Background()); err != nil {
			log.Printf("scheduler: forecast cycle failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()

	// One forecast check at startup; the daily job only covers the
	// configured hour.
	go func() {
		if err := s.monitor.RunForecastCycle(context.Background()); err != nil {
			log.Printf("scheduler: startup forecast check failed: %v", err)
		}
	}()

	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
