package dispatch

import (
	"time"

	"github.com/google/gopacket"
)

// Frame is one captured frame in memory owned by the pipeline. Exactly one
// component holds a Frame at a time: the Queue, then the worker that
// dequeued it.
type Frame struct {
	Seq  uint64
	Info gopacket.CaptureInfo
	Data []byte
}

func (f *Frame) Timestamp() time.Time { return f.Info.Timestamp }

type node struct {
	frame *Frame
	next  *node
}

// Queue is a singly linked FIFO of frames. It is not safe for concurrent
// use; Pool guards it with its own mutex.
type Queue struct {
	head *node
	tail *node
	size int
}

func (q *Queue) IsEmpty() bool { return q.head == nil }

func (q *Queue) Len() int { return q.size }

// Enqueue appends f at the tail in O(1).
func (q *Queue) Enqueue(f *Frame) {
	n := &node{frame: f}
	if q.head == nil {
		q.head = n
	} else {
		q.tail.next = n
	}
	q.tail = n
	q.size++
}

// Dequeue removes and returns the head. Callers check IsEmpty first; an
// empty dequeue is a bug and panics.
func (q *Queue) Dequeue() *Frame {
	if q.head == nil {
		panic("dispatch: dequeue from empty queue")
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.size--

	f := n.frame
	n.frame, n.next = nil, nil
	return f
}

// Release drops every remaining frame and returns how many were discarded.
// Only valid once no worker can touch the queue any more.
func (q *Queue) Release() int {
	n := 0
	for !q.IsEmpty() {
		f := q.Dequeue()
		f.Data = nil
		n++
	}
	return n
}
