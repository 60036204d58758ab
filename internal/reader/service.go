package reader

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"attendance-backend/config"
	"attendance-backend/internal/attendance"
)

// Service polls a physical reader, debounces its output and feeds logical
// scan events to the attendance engine.
type Service struct {
	cfg      *config.ReaderConfig
	reader   Reader
	debounce *Debouncer
	engine   *attendance.Engine
	now      func() time.Time
}

// NewService creates the scan loop for one physical reader.
func NewService(cfg *config.ReaderConfig, r Reader, engine *attendance.Engine) *Service {
	return &Service{
		cfg:      cfg,
		reader:   r,
		debounce: NewDebouncer(cfg.Cooldown),
		engine:   engine,
		now:      time.Now,
	}
}

// Run starts the polling loop and blocks until the context is cancelled or
// the reader stream ends.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Reader is disabled. Not starting.")
		return
	}
	log.Println("Starting reader service...")

	timer := time.NewTimer(s.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reader service shutting down.")
			return
		case <-timer.C:
			if done := s.pollOnce(ctx); done {
				return
			}
			timer.Reset(s.cfg.PollInterval)
		}
	}
}

// pollOnce reads at most one card and processes it. Returns true when the
// reader stream has ended and the loop should stop.
func (s *Service) pollOnce(ctx context.Context) bool {
	uid, err := s.reader.Poll()
	if errors.Is(err, io.EOF) {
		log.Println("Reader stream closed.")
		return true
	}
	if err != nil {
		log.Printf("Error reading card: %v", err)
		return false
	}
	if uid == "" {
		return false
	}

	at := s.now()
	if !s.debounce.Observe(uid, at) {
		return false
	}

	result, err := s.engine.Scan(ctx, uid, at)
	if err != nil {
		log.Printf("Error processing scan of %s: %v", uid, err)
		return false
	}
	if result.Outcome == attendance.OutcomeUnknown {
		log.Printf("Card %s is not registered", uid)
	}
	return false
}
