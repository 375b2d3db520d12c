package notify_test

import (
	"testing"
	"time"

	"github.com/codeshare/appcore/notify"
	"github.com/stretchr/testify/require"
)

func TestNotificationsStack(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()

	bus.Success("First", "one")
	bus.Error("Second", "two")
	bus.Success("Third", "three")

	visible := bus.Visible()
	require.Len(t, visible, 3)
	require.Equal(t, "First", visible[0].Title)
	require.Equal(t, notify.KindError, visible[1].Kind)
	require.Equal(t, "Third", visible[2].Title)
}

func TestNotificationsExpireAfterVisibleWindow(t *testing.T) {
	now := time.Now()
	bus := notify.NewBus(
		notify.WithVisibleDuration(3*time.Second),
		notify.WithNowTime(func() time.Time { return now }),
	)
	defer bus.Close()

	bus.Success("Old", "posted now")
	require.Len(t, bus.Visible(), 1)

	now = now.Add(2 * time.Second)
	bus.Error("Newer", "posted later")
	require.Len(t, bus.Visible(), 2)

	now = now.Add(2 * time.Second)
	visible := bus.Visible()
	require.Len(t, visible, 1)
	require.Equal(t, "Newer", visible[0].Title)

	now = now.Add(10 * time.Second)
	require.Empty(t, bus.Visible())
}

func TestPublishAfterCloseIsNoOp(t *testing.T) {
	bus := notify.NewBus()
	bus.Close()

	require.NotPanics(t, func() {
		bus.Success("Late", "published after teardown")
		bus.Error("Later", "still fine")
	})
	require.Empty(t, bus.Visible())
}

func TestCloseIsIdempotent(t *testing.T) {
	bus := notify.NewBus()
	bus.Close()
	require.NotPanics(t, bus.Close)
}

func TestSubscribeDeliversPublishedNotifications(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()

	updates, release := bus.Subscribe()
	defer release()

	bus.Success("Hello", "world")

	select {
	case n := <-updates:
		require.Equal(t, notify.KindSuccess, n.Kind)
		require.Equal(t, "Hello", n.Title)
		require.False(t, n.PostedAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no notification delivered")
	}
}

func TestSubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	bus := notify.NewBus()
	bus.Close()

	updates, release := bus.Subscribe()
	defer release()

	_, open := <-updates
	require.False(t, open)
}

func TestReleaseStopsDelivery(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()

	updates, release := bus.Subscribe()
	release()

	_, open := <-updates
	require.False(t, open)

	require.NotPanics(t, func() {
		bus.Success("After release", "no delivery")
	})
}
