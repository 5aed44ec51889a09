// Package eventbus fans laboratory events out to live subscribers and keeps
// a bounded change log that observers can poll by sequence cursor.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"labswarm/pkg/constants"
	"labswarm/pkg/logger"
)

const (
	// AllEvents subscribes to every event type
	AllEvents = "*"

	defaultBufferSize  = 256
	defaultHistorySize = 1000
	defaultPollLimit   = 100
)

// Event change log entry
type Event struct {
	Seq       uint64              `json:"seq"`
	Type      constants.EventType `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	Data      interface{}         `json:"data"`
}

// Handler receives events on the subscriber's own goroutine
type Handler func(Event)

type subscriber struct {
	id        uint64
	eventType constants.EventType
	ch        chan Event
	handler   Handler
	dropped   atomic.Uint64
	closeOnce sync.Once
	done      chan struct{}
}

func (s *subscriber) matches(t constants.EventType) bool {
	return s.eventType == "" || s.eventType == AllEvents || s.eventType == t
}

func (s *subscriber) run() {
	defer close(s.done)
	for event := range s.ch {
		s.deliver(event)
	}
}

func (s *subscriber) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(context.Background(), "event subscriber %d panicked on %s: %v", s.id, event.Type, r)
		}
	}()
	s.handler(event)
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// Bus in-process publish/subscribe broadcaster
type Bus struct {
	mu          sync.Mutex
	seq         uint64
	history     []Event
	historySize int
	bufferSize  int
	subscribers map[uint64]*subscriber
	nextSubID   uint64
	closed      bool
	dropped     atomic.Uint64
	now         func() time.Time
}

// New creates a bus. Non-positive sizes fall back to defaults.
func New(bufferSize, historySize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Bus{
		history:     make([]Event, 0, historySize),
		historySize: historySize,
		bufferSize:  bufferSize,
		subscribers: make(map[uint64]*subscriber),
		now:         time.Now,
	}
}

// Publish records the event and hands it to every matching subscriber.
// It never blocks: a subscriber whose buffer is full misses the event.
func (b *Bus) Publish(eventType constants.EventType, data interface{}) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	event := Event{
		Seq:       b.seq,
		Type:      eventType,
		Timestamp: b.now(),
		Data:      data,
	}

	if len(b.history) == b.historySize {
		copy(b.history, b.history[1:])
		b.history = b.history[:len(b.history)-1]
	}
	b.history = append(b.history, event)

	if b.closed {
		return event
	}
	for _, sub := range b.subscribers {
		if !sub.matches(eventType) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			sub.dropped.Add(1)
			b.dropped.Add(1)
			logger.WarnCtx(context.Background(), "event subscriber %d buffer full, dropped %s seq=%d", sub.id, eventType, event.Seq)
		}
	}
	return event
}

// Subscribe registers handler for eventType ("" or "*" for all types).
// The returned function unsubscribes and waits for in-flight delivery to finish;
// it must not be called from inside handler.
func (b *Bus) Subscribe(eventType constants.EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSubID++
	sub := &subscriber{
		id:        b.nextSubID,
		eventType: eventType,
		ch:        make(chan Event, b.bufferSize),
		handler:   handler,
		done:      make(chan struct{}),
	}
	if b.closed {
		close(sub.ch)
		close(sub.done)
		return func() {}
	}
	b.subscribers[sub.id] = sub
	go sub.run()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, sub.id)
		b.mu.Unlock()
		sub.close()
		<-sub.done
	}
}

// Since returns up to limit events with seq greater than cursor, oldest first,
// and the cursor to pass on the next call.
func (b *Bus) Since(cursor uint64, limit int) ([]Event, uint64) {
	if limit <= 0 {
		limit = defaultPollLimit
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, 0, limit)
	for _, event := range b.history {
		if event.Seq <= cursor {
			continue
		}
		out = append(out, event)
		if len(out) == limit {
			break
		}
	}
	if len(out) == 0 {
		return out, cursor
	}
	return out, out[len(out)-1].Seq
}

// LastSeq sequence number of the newest event, 0 if none
func (b *Bus) LastSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// Dropped total events dropped across all subscribers
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// SubscriberCount number of live subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Close detaches every subscriber after its buffered events were delivered
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*subscriber, 0, len(b.subscribers))
	for id, sub := range b.subscribers {
		subs = append(subs, sub)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
		<-sub.done
	}
}
