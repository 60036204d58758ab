package scheduler

import (
	"context"
	"log"
	"time"

	"attendance-backend/config"
	"attendance-backend/internal/bus"
	"attendance-backend/internal/store"
)

// Service is the auto-checkout scheduler. Once per tick it checks whether
// the configured daily cutoff has arrived and, at most once per day,
// force-closes every open session. It is the only guardian against
// unbounded-duration sessions, so a failed tick is logged and the loop
// keeps going.
type Service struct {
	cfg   *config.SchedulerConfig
	store store.Store
	bus   bus.Broadcaster
	now   func() time.Time

	// lastSweep is the date (YYYY-MM-DD, local) of the last completed sweep.
	// In-memory only: after a restart the first in-window tick may re-run the
	// sweep, which is harmless because all sessions are already closed.
	lastSweep string
}

// NewService creates the scheduler.
func NewService(cfg *config.SchedulerConfig, s store.Store, b bus.Broadcaster) *Service {
	return &Service{cfg: cfg, store: s, bus: b, now: time.Now}
}

// Run starts the scheduler loop and blocks until the context is cancelled.
// An in-flight sweep completes before the loop exits.
func (s *Service) Run(ctx context.Context) {
	log.Println("Starting auto-checkout scheduler...")

	timer := time.NewTimer(s.cfg.Tick)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Auto-checkout scheduler shutting down.")
			return
		case <-timer.C:
			s.Tick(ctx)
			timer.Reset(s.cfg.Tick)
		}
	}
}

// Tick evaluates one scheduler tick. Exported so tests and the manual
// trigger path can drive it directly.
func (s *Service) Tick(ctx context.Context) {
	// A tick that has started must finish: shutdown is observed between
	// ticks, not by aborting a sweep transaction halfway through.
	ctx = context.WithoutCancel(ctx)

	enabled, err := s.store.AutoCheckoutEnabled(ctx)
	if err != nil {
		log.Printf("Error reading auto-checkout setting: %v", err)
		return
	}
	if !enabled {
		return
	}

	hour, minute, err := s.store.AutoCheckoutTime(ctx)
	if err != nil {
		log.Printf("Error reading auto-checkout time: %v", err)
		return
	}

	now := s.now()
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	today := now.Format("2006-01-02")

	// Fire when the tick lands within one poll window of the cutoff, at most
	// once per day.
	diff := now.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	if diff >= s.cfg.Tick || s.lastSweep == today {
		return
	}

	count, err := s.Sweep(ctx, now)
	if err != nil {
		log.Printf("Error during auto-checkout sweep: %v", err)
		return
	}
	s.lastSweep = today
	if count > 0 {
		log.Printf("Auto-checkout: %d members checked out at %02d:%02d", count, hour, minute)
	}
}

// Sweep force-closes all open sessions and broadcasts the affected count.
func (s *Service) Sweep(ctx context.Context, at time.Time) (int, error) {
	count, err := s.store.CloseAllOpen(ctx, at)
	if err != nil {
		return 0, err
	}
	evt := bus.NewEvent(bus.KindAutoCheckout, at)
	evt.Count = count
	s.bus.Publish(evt)
	return count, nil
}
