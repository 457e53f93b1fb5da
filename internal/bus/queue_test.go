package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueuePublishAndRun(t *testing.T) {
	q := NewQueue[int](4)
	require.NoError(t, q.TryPublish(1))
	require.NoError(t, q.TryPublish(2))
	q.Close()

	var got []int
	q.Run(context.Background(), func(v int) { got = append(got, v) })
	require.Equal(t, []int{1, 2}, got)
}

func TestQueueFull(t *testing.T) {
	q := NewQueue[string](1)
	require.NoError(t, q.TryPublish("a"))
	require.ErrorIs(t, q.TryPublish("b"), ErrQueueFull)
}

func TestQueueClosed(t *testing.T) {
	q := NewQueue[string](1)
	q.Close()
	q.Close()
	require.ErrorIs(t, q.TryPublish("a"), ErrQueueClosed)
}

func TestQueueRunStopsOnContext(t *testing.T) {
	q := NewQueue[int](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Run(ctx, func(int) { t.Fatal("handler must not run") })
}
