package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePutGetOrder(t *testing.T) {
	q := NewQueue[int]()
	q.Put(1)
	q.Put(2)
	q.Put(3)

	for want := 1; want <= 3; want++ {
		got, ok := q.Get(context.Background())
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestQueueCloseDrainsBufferedItemsFirst(t *testing.T) {
	q := NewQueue[string]()
	q.Put("a")
	q.Put("b")
	q.Close()

	got, ok := q.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, "a", got)

	got, ok = q.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, "b", got)

	_, ok = q.Get(context.Background())
	assert.False(t, ok)
}

func TestQueuePutAfterCloseDiscarded(t *testing.T) {
	q := NewQueue[int]()
	q.Close()
	q.Put(42)

	assert.Equal(t, 0, q.Len())
	_, ok := q.Get(context.Background())
	assert.False(t, ok)
}

func TestQueueBufferedItemsWinOverCancellation(t *testing.T) {
	q := NewQueue[int]()
	q.Put(7)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, ok := q.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, 7, got)
}

func TestQueueGetReturnsOnCancelWhenEmpty(t *testing.T) {
	q := NewQueue[int]()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Get(ctx)
		done <- ok
	}()

	cancel()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Get did not return after cancellation")
	}
}

func TestQueueGetBlocksUntilPut(t *testing.T) {
	q := NewQueue[int]()

	done := make(chan int, 1)
	go func() {
		got, _ := q.Get(context.Background())
		done <- got
	}()

	time.Sleep(10 * time.Millisecond)
	q.Put(99)

	select {
	case got := <-done:
		assert.Equal(t, 99, got)
	case <-time.After(time.Second):
		t.Fatal("Get did not wake up on Put")
	}
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	q := NewQueue[int]()
	q.Close()
	q.Close()
	assert.True(t, q.Closed())
}
