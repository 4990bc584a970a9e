package hooks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic_EmitOrderAndUnhook(t *testing.T) {
	t.Parallel()

	topic := NewTopic[int]("numbers")
	var got []string
	unhookA := topic.Hook(func(_ context.Context, n int) error {
		got = append(got, "a")
		return nil
	})
	topic.Hook(func(_ context.Context, n int) error {
		got = append(got, "b")
		return nil
	})

	require.NoError(t, topic.Emit(context.Background(), 1))
	assert.Equal(t, []string{"a", "b"}, got)

	unhookA()
	unhookA()
	require.Equal(t, 1, topic.Len())
	got = nil
	require.NoError(t, topic.Emit(context.Background(), 2))
	assert.Equal(t, []string{"b"}, got)
}

func TestTopic_EmitStopsAtFirstError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	topic := NewTopic[string](EventDiscoveredInternalLinks)
	topic.Hook(func(context.Context, string) error { return boom })
	called := false
	topic.Hook(func(context.Context, string) error {
		called = true
		return nil
	})

	err := topic.Emit(context.Background(), "/")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), EventDiscoveredInternalLinks)
	assert.False(t, called)
}

func TestTopic_ConcurrentEmit(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var mu sync.Mutex
	seen := 0
	bus.DiscoveredInternalLinks.Hook(func(_ context.Context, p LinksDiscovered) error {
		mu.Lock()
		defer mu.Unlock()
		seen += len(p.Links)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.DiscoveredInternalLinks.Emit(context.Background(), LinksDiscovered{
				OriginPath: "/",
				Links:      []string{"/a", "/b"},
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, seen)
	assert.Equal(t, EventRouteQueued, bus.RouteQueued.Name())
}
