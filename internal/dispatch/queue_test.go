package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	var q Queue
	assert.True(t, q.IsEmpty())
	assert.Equal(t, 0, q.Len())

	for i := 1; i <= 5; i++ {
		q.Enqueue(&Frame{Seq: uint64(i)})
	}
	assert.Equal(t, 5, q.Len())
	assert.False(t, q.IsEmpty())

	for i := 1; i <= 5; i++ {
		f := q.Dequeue()
		require.NotNil(t, f)
		assert.Equal(t, uint64(i), f.Seq)
		assert.Equal(t, 5-i, q.Len())
	}

	assert.True(t, q.IsEmpty())
	assert.Nil(t, q.head)
	assert.Nil(t, q.tail)
}

func TestQueue_InterleavedKeepsHeadAndTailConsistent(t *testing.T) {
	var q Queue

	q.Enqueue(&Frame{Seq: 1})
	assert.Equal(t, uint64(1), q.Dequeue().Seq)
	assert.Nil(t, q.tail, "tail must be nil once the queue is empty")

	q.Enqueue(&Frame{Seq: 2})
	q.Enqueue(&Frame{Seq: 3})
	assert.Equal(t, uint64(2), q.Dequeue().Seq)
	q.Enqueue(&Frame{Seq: 4})
	assert.Equal(t, uint64(3), q.Dequeue().Seq)
	assert.Equal(t, uint64(4), q.Dequeue().Seq)
	assert.True(t, q.IsEmpty())
}

func TestQueue_DequeueEmptyPanics(t *testing.T) {
	var q Queue
	assert.Panics(t, func() { q.Dequeue() })
}

func TestQueue_Release(t *testing.T) {
	var q Queue
	frames := []*Frame{{Seq: 1, Data: []byte{1}}, {Seq: 2, Data: []byte{2}}}
	for _, f := range frames {
		q.Enqueue(f)
	}

	assert.Equal(t, 2, q.Release())
	assert.True(t, q.IsEmpty())
	assert.Equal(t, 0, q.Len())
	for _, f := range frames {
		assert.Nil(t, f.Data)
	}
	assert.Equal(t, 0, q.Release())
}
