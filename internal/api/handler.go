package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"attendance-backend/config"
	"attendance-backend/internal/attendance"
	"attendance-backend/internal/bus"
	"attendance-backend/internal/scheduler"
	"attendance-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	cfg       *config.Config
	store     store.Store
	engine    *attendance.Engine
	scheduler *scheduler.Service
	hub       *bus.Hub
	webpush   *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(cfg *config.Config, s store.Store, engine *attendance.Engine, sched *scheduler.Service, hub *bus.Hub, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     s,
		engine:    engine,
		scheduler: sched,
		hub:       hub,
		webpush:   webpushOptions,
	}
}
