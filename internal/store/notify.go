package store

import (
	"sync"
	"time"
)

// Level classifies a notification
type Level string

// Notification levels
const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification is a transient, user-visible message about a store operation.
type Notification struct {
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier receives store notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

// Broadcaster fans notifications out to subscribers. Slow subscribers drop messages
// rather than stall the store.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Notification
	nextID int
	buffer int
}

// NewBroadcaster creates a Broadcaster whose subscriber channels hold buffer messages.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{subs: make(map[int]chan Notification), buffer: buffer}
}

// Subscribe returns a channel of notifications and a function that ends the subscription.
func (b *Broadcaster) Subscribe() (<-chan Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Notification, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Notify implements Notifier.
func (b *Broadcaster) Notify(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Close ends every subscription.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
