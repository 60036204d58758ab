package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"attendance-backend/internal/bus"
	"attendance-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real implementation of Sender using the webpush
// library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans attendance events out to web push subscribers. Only
// auto-checkout sweeps and at-capacity check-ins are pushed; ordinary
// per-scan events stay on the live SSE stream.
type WorkerPool struct {
	size    int
	jobs    chan bus.Event
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan bus.Event, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines and a listener that forwards
// pushable events from the hub into the job queue.
func (wp *WorkerPool) Start(ctx context.Context, hub *bus.Hub) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}

	events, cancel := hub.Subscribe(wp.size * 4)
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				if evt.Kind == bus.KindAutoCheckout || evt.Kind == bus.KindCheckedIn {
					wp.Dispatch(evt)
				}
			}
		}
	}()
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case evt := <-wp.jobs:
			wp.sendForEvent(ctx, evt)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an event for push delivery, dropping it if the queue is
// full. Push delivery is best-effort.
func (wp *WorkerPool) Dispatch(evt bus.Event) {
	select {
	case wp.jobs <- evt:
	default:
		log.Printf("Notification queue full; dropping %s event", evt.Kind)
	}
}

// sendForEvent renders the event's push message and delivers it to every
// stored subscription.
func (wp *WorkerPool) sendForEvent(ctx context.Context, evt bus.Event) {
	message := wp.messageFor(ctx, evt)
	if message == "" {
		return
	}

	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		log.Printf("Error fetching subscriptions: %v", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for %s event", len(subscriptions), evt.Kind)
	for _, sub := range subscriptions {
		wp.send(ctx, sub, []byte(message))
	}
}

// messageFor renders the human-readable push payload for an event. An empty
// string means the event is not pushable. Check-ins only push when the space
// has just reached its occupancy cap.
func (wp *WorkerPool) messageFor(ctx context.Context, evt bus.Event) string {
	switch evt.Kind {
	case bus.KindAutoCheckout:
		return fmt.Sprintf("Auto-checkout closed %d open sessions at %s", evt.Count, evt.Timestamp.Format("15:04"))
	case bus.KindCheckedIn:
		open, max, ok := wp.occupancy(ctx)
		if !ok || max <= 0 || open < max {
			return ""
		}
		return fmt.Sprintf("%s checked in. Space is at capacity (%d/%d)", evt.MemberName, open, max)
	default:
		return ""
	}
}

// occupancy reads the current open-session count and the configured cap.
func (wp *WorkerPool) occupancy(ctx context.Context) (open, max int64, ok bool) {
	err := wp.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("check_out IS NULL").
		Count(&open).Error
	if err != nil {
		log.Printf("Error counting open sessions: %v", err)
		return 0, 0, false
	}

	var setting model.Setting
	if err := wp.db.WithContext(ctx).First(&setting, "key = ?", model.SettingMaxOccupancy).Error; err != nil {
		return 0, 0, false
	}
	limit, err := strconv.ParseInt(setting.Value, 10, 64)
	if err != nil {
		log.Printf("Invalid %s setting %q", model.SettingMaxOccupancy, setting.Value)
		return 0, 0, false
	}
	return open, limit, true
}

// send pushes a single notification, deleting the subscription when the
// push service reports it gone.
func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
