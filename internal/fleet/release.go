package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/ecvirtual/fleetops/pkg/logger"
)

// ReleaseScheduler is the background sweep that returns aircraft to
// service once their maintenance end time has passed. Sweeps run from a
// single goroutine, so the next sweep never starts before the previous
// one completes.
type ReleaseScheduler struct {
	service  *Service
	interval time.Duration
	logger   *logger.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// NewReleaseScheduler creates a new release scheduler
func NewReleaseScheduler(service *Service, interval time.Duration, log *logger.Logger) *ReleaseScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReleaseScheduler{
		service:  service,
		interval: interval,
		logger:   log.Named("release-scheduler"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the background sweep loop
func (r *ReleaseScheduler) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}

	r.logger.Info("Starting release scheduler",
		logger.Duration("interval", r.interval))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run()
	}()

	r.started = true
}

// Stop gracefully shuts down the scheduler
func (r *ReleaseScheduler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return
	}

	r.logger.Info("Stopping release scheduler")
	r.cancel()
	r.wg.Wait()
	r.started = false
	r.logger.Info("Release scheduler stopped")
}

func (r *ReleaseScheduler) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.service.Sweep(r.ctx)
		}
	}
}

// Sweep finds every grounded aircraft whose timed maintenance has
// expired, clears its grounding fields and fans out the release. Each
// record is released with a single atomic update keyed by registration,
// so a concurrent flight-report write cannot be lost.
func (s *Service) Sweep(ctx context.Context) {
	due, err := s.store.DueForRelease(s.now())
	if err != nil {
		s.logger.Error("Release sweep query failed", logger.Error(err))
		return
	}

	for _, status := range due {
		if err := s.store.Release(status.Registration); err != nil {
			s.logger.Error("Failed to release aircraft",
				logger.String("registration", status.Registration),
				logger.Error(err))
			continue
		}

		s.logger.Info("Aircraft released from maintenance",
			logger.String("registration", status.Registration),
			logger.Float64("total_hours", status.TotalFlightHours))

		s.dispatch(ctx, Transition{
			Registration: status.Registration,
			Grounded:     false,
			TotalHours:   status.TotalFlightHours,
			FleetID:      status.FleetID,
			InternalID:   status.VamsysInternalID,
		})
	}
}
