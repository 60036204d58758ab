package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"attendance-backend/config"
	"attendance-backend/internal/bus"
	"attendance-backend/internal/model"
	"attendance-backend/internal/store"
)

type recordingBus struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *recordingBus) Publish(evt bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingBus) Events() []bus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bus.Event(nil), r.events...)
}

func newTestScheduler(t *testing.T) (*Service, store.Store, *recordingBus) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Member{}, &model.Session{}, &model.Setting{}))

	s := store.NewGormStore(db)
	b := &recordingBus{}
	cfg := &config.SchedulerConfig{TickSeconds: 60, Tick: 60 * time.Second}
	return NewService(cfg, s, b), s, b
}

func configureCutoff(t *testing.T, s store.Store, enabled bool, cutoff string) {
	t.Helper()
	ctx := context.Background()
	value := "0"
	if enabled {
		value = "1"
	}
	require.NoError(t, s.PutSetting(ctx, model.SettingAutoCheckoutEnabled, value))
	require.NoError(t, s.PutSetting(ctx, model.SettingAutoCheckoutTime, cutoff))
}

func openSessions(t *testing.T, s store.Store, n int, at time.Time) {
	t.Helper()
	ctx := context.Background()
	day := at.Format("0102")
	for i := 0; i < n; i++ {
		m := &model.Member{
			CardUID:   fmt.Sprintf("%s-%s-card-%d", t.Name(), day, i),
			Name:      fmt.Sprintf("Member %s-%d", day, i),
			StudentID: fmt.Sprintf("%s-%s-sid-%d", t.Name(), day, i),
			Email:     fmt.Sprintf("m%s-%d@example.org", day, i),
		}
		require.NoError(t, s.CreateMember(ctx, m))
		_, err := s.OpenSession(ctx, m.ID, at)
		require.NoError(t, err)
	}
}

func countOpen(t *testing.T, s store.Store) int {
	t.Helper()
	entries, err := s.CurrentlyOpen(context.Background())
	require.NoError(t, err)
	return len(entries)
}

func TestTickSweepsOncePerDay(t *testing.T) {
	svc, s, b := newTestScheduler(t)
	configureCutoff(t, s, true, "17:00")
	openSessions(t, s, 3, time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local))

	// Tick lands ten seconds past the cutoff.
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 17, 0, 10, 0, time.Local) }
	svc.Tick(context.Background())

	assert.Zero(t, countOpen(t, s))
	events := b.Events()
	require.Len(t, events, 1)
	assert.Equal(t, bus.KindAutoCheckout, events[0].Kind)
	assert.Equal(t, 3, events[0].Count)

	history, err := s.HistoryInRange(context.Background(),
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local),
		time.Date(2025, 3, 11, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)
	require.Len(t, history, 3)
	for _, sess := range history {
		assert.True(t, sess.AutoCheckout)
	}

	// A later tick inside the same window must not fire again.
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 17, 0, 40, 0, time.Local) }
	svc.Tick(context.Background())
	assert.Len(t, b.Events(), 1, "sweep must run at most once per day")
}

func TestTickOutsideWindowDoesNothing(t *testing.T) {
	svc, s, b := newTestScheduler(t)
	configureCutoff(t, s, true, "17:00")
	openSessions(t, s, 1, time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local))

	svc.now = func() time.Time { return time.Date(2025, 3, 10, 15, 30, 0, 0, time.Local) }
	svc.Tick(context.Background())

	assert.Equal(t, 1, countOpen(t, s))
	assert.Empty(t, b.Events())
}

func TestTickDisabled(t *testing.T) {
	svc, s, b := newTestScheduler(t)
	configureCutoff(t, s, false, "17:00")
	openSessions(t, s, 1, time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local))

	svc.now = func() time.Time { return time.Date(2025, 3, 10, 17, 0, 10, 0, time.Local) }
	svc.Tick(context.Background())

	assert.Equal(t, 1, countOpen(t, s))
	assert.Empty(t, b.Events())
}

func TestTickSurvivesBadCutoffSetting(t *testing.T) {
	svc, s, b := newTestScheduler(t)
	configureCutoff(t, s, true, "not-a-time")
	openSessions(t, s, 1, time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local))

	svc.now = func() time.Time { return time.Date(2025, 3, 10, 17, 0, 10, 0, time.Local) }
	svc.Tick(context.Background())

	// The tick is isolated; nothing closes and nothing panics.
	assert.Equal(t, 1, countOpen(t, s))
	assert.Empty(t, b.Events())
}

func TestTickFinishesSweepAfterShutdownSignal(t *testing.T) {
	svc, s, b := newTestScheduler(t)
	configureCutoff(t, s, true, "17:00")
	openSessions(t, s, 2, time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local))

	// Cancellation between ticks must not abort a sweep that is due.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.now = func() time.Time { return time.Date(2025, 3, 10, 17, 0, 10, 0, time.Local) }
	svc.Tick(ctx)

	assert.Zero(t, countOpen(t, s))
	events := b.Events()
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Count)
}

func TestSweepFiresAgainNextDay(t *testing.T) {
	svc, s, b := newTestScheduler(t)
	configureCutoff(t, s, true, "17:00")
	openSessions(t, s, 1, time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local))

	svc.now = func() time.Time { return time.Date(2025, 3, 10, 17, 0, 10, 0, time.Local) }
	svc.Tick(context.Background())
	require.Len(t, b.Events(), 1)

	openSessions(t, s, 1, time.Date(2025, 3, 11, 9, 0, 0, 0, time.Local))
	svc.now = func() time.Time { return time.Date(2025, 3, 11, 17, 0, 10, 0, time.Local) }
	svc.Tick(context.Background())

	events := b.Events()
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[1].Count)
}
