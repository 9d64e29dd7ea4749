package engine

import (
	"sync"

	"aide/model"
)

// Listener receives engine updates for presentation. All calls arrive from
// one goroutine, so implementations never see interleaved renders.
//
// Streaming message updates are coalesced: intermediate deltas may be
// dropped under backpressure, but the final state of every message is always
// delivered.
type Listener interface {
	MessageUpdated(msg model.Message)
	OperationUpdated(status model.OperationStatus)
	StateChanged(state ExchangeState)
	ConversationCleared()
}

// publisher serializes listener notifications through a single goroutine.
// Ordered updates (statuses, state changes, finalized messages) go through a
// queue; the in-flight streaming message is kept as a latest-wins snapshot.
type publisher struct {
	listener Listener

	mu        sync.Mutex
	queue     []func(Listener)
	latestMsg *model.Message
	closed    bool

	wake chan struct{}
	done chan struct{}
}

func newPublisher(listener Listener) *publisher {
	p := &publisher{
		listener: listener,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *publisher) loop() {
	for range p.wake {
		p.drain()
	}
	p.drain()
	close(p.done)
}

func (p *publisher) drain() {
	for {
		p.mu.Lock()
		var fn func(Listener)
		switch {
		case len(p.queue) > 0:
			fn = p.queue[0]
			p.queue = p.queue[1:]
		case p.latestMsg != nil:
			msg := *p.latestMsg
			p.latestMsg = nil
			fn = func(l Listener) { l.MessageUpdated(msg) }
		}
		p.mu.Unlock()

		if fn == nil {
			return
		}
		if p.listener != nil {
			fn(p.listener)
		}
	}
}

func (p *publisher) notify() {
	if p.closed {
		return
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// messageUpdated publishes a message snapshot. Final snapshots are queued
// (guaranteed delivery); streaming snapshots coalesce.
func (p *publisher) messageUpdated(msg model.Message) {
	p.mu.Lock()
	if msg.Complete {
		// A coalesced snapshot of the same message must not outlive the
		// final one: drain prefers the queue, so a stale incomplete
		// snapshot left behind would be delivered after it.
		if p.latestMsg != nil && p.latestMsg.ID == msg.ID {
			p.latestMsg = nil
		}
		p.queue = append(p.queue, func(l Listener) { l.MessageUpdated(msg) })
	} else {
		p.latestMsg = &msg
	}
	p.notify()
	p.mu.Unlock()
}

func (p *publisher) operationUpdated(status model.OperationStatus) {
	p.mu.Lock()
	p.queue = append(p.queue, func(l Listener) { l.OperationUpdated(status) })
	p.notify()
	p.mu.Unlock()
}

func (p *publisher) stateChanged(state ExchangeState) {
	p.mu.Lock()
	p.queue = append(p.queue, func(l Listener) { l.StateChanged(state) })
	p.notify()
	p.mu.Unlock()
}

func (p *publisher) conversationCleared() {
	p.mu.Lock()
	p.latestMsg = nil
	p.queue = append(p.queue, func(l Listener) { l.ConversationCleared() })
	p.notify()
	p.mu.Unlock()
}

// close flushes pending updates and stops the delivery goroutine.
func (p *publisher) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.wake)
	<-p.done
}
