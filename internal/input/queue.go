package input

import (
	"fmt"
	"sync"
	"sync/atomic"

	"controlling_poolspa/internal/equipment"
)

// RemoteKind is the kind of a remotely injected event.
type RemoteKind uint8

const (
	RemoteButton RemoteKind = iota + 1
	RemoteTempUp
	RemoteTempDown
	RemoteStop
)

func (k RemoteKind) String() string {
	switch k {
	case RemoteButton:
		return "button"
	case RemoteTempUp:
		return "temp_up"
	case RemoteTempDown:
		return "temp_down"
	case RemoteStop:
		return "stop"
	default:
		return fmt.Sprintf("remote_%d", uint8(k))
	}
}

// RemoteEvent is a button or temperature command from the network side.
type RemoteEvent struct {
	Kind   RemoteKind
	Button equipment.Button
	Source string
}

// DefaultQueueSize bounds the remote queue.
const DefaultQueueSize = 16

// Queue is a bounded ring between one producer (the presentation side) and
// one consumer (the control loop). A full queue overwrites its oldest entry.
type Queue struct {
	mu   sync.Mutex
	buf  []RemoteEvent
	head int
	n    int

	dropped atomic.Uint64
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{buf: make([]RemoteEvent, size)}
}

// Push enqueues ev and reports whether an older event was dropped to make room.
func (q *Queue) Push(ev RemoteEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := false
	if q.n == len(q.buf) {
		q.head = (q.head + 1) % len(q.buf)
		q.n--
		dropped = true
		q.dropped.Add(1)
	}
	q.buf[(q.head+q.n)%len(q.buf)] = ev
	q.n++
	return dropped
}

// Drain moves up to len(dst) events into dst and returns how many it moved.
// It never waits: if the producer holds the lock the call returns 0 and the
// events are picked up on a later tick.
func (q *Queue) Drain(dst []RemoteEvent) int {
	if !q.mu.TryLock() {
		return 0
	}
	defer q.mu.Unlock()

	moved := 0
	for moved < len(dst) && q.n > 0 {
		dst[moved] = q.buf[q.head]
		q.head = (q.head + 1) % len(q.buf)
		q.n--
		moved++
	}
	return moved
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Dropped returns how many events were overwritten since start.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
