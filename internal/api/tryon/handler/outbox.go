package tryonHandler

import (
	"TryOnGolang/internal/api/tryon"
	"sync"
)

// outbox queues messages for the socket writer without ever blocking the
// sender, which may be a session goroutine holding the controller lock.
// When full, render snapshots are dropped first; any other message evicts
// the oldest queued one.
type outbox struct {
	mu       sync.Mutex
	messages chan tryon.ServerMessage
	closed   bool
	dropped  uint64
}

func newOutbox(size int) *outbox {
	return &outbox{messages: make(chan tryon.ServerMessage, size)}
}

func (o *outbox) send(msg tryon.ServerMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	select {
	case o.messages <- msg:
		return
	default:
	}

	if msg.Type == tryon.MessageRender {
		o.dropped++
		return
	}

	select {
	case <-o.messages:
		o.dropped++
	default:
	}
	select {
	case o.messages <- msg:
	default:
		o.dropped++
	}
}

func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.messages)
	}
}
