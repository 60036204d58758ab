package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToAllSubscribers(t *testing.T) {
	hub := NewHub()

	ch1, cancel1 := hub.Subscribe(4)
	defer cancel1()
	ch2, cancel2 := hub.Subscribe(4)
	defer cancel2()

	evt := NewEvent(KindCheckedIn, time.Now())
	evt.MemberID = 42
	hub.Publish(evt)

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			assert.Equal(t, evt.ID, got.ID)
			assert.Equal(t, KindCheckedIn, got.Kind)
			assert.Equal(t, int64(42), got.MemberID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Publish(NewEvent(KindCheckedIn, time.Now()))
	// The second publish must not block even though nobody is draining.
	done := make(chan struct{})
	go func() {
		hub.Publish(NewEvent(KindCheckedOut, time.Now()))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	got := <-ch
	assert.Equal(t, KindCheckedIn, got.Kind, "the first event stays, the overflow is dropped")
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(1)
	cancel()
	// Cancel is safe to call twice.
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after cancel must not panic or deliver.
	hub.Publish(NewEvent(KindAutoCheckout, time.Now()))
}

func TestNewEventAssignsID(t *testing.T) {
	a := NewEvent(KindCheckedIn, time.Now())
	b := NewEvent(KindCheckedIn, time.Now())
	require.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
