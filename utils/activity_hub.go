package utils

import (
	"sync"

	"leadflow/models"
)

// ActivityHub fans committed activity entries out to live subscribers.
// Slow subscribers drop entries instead of blocking the publisher.
type ActivityHub struct {
	mu      sync.RWMutex
	nextID  int
	subs    map[int]chan models.ActivityLog
	bufSize int
}

func NewActivityHub(bufSize int) *ActivityHub {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &ActivityHub{
		subs:    make(map[int]chan models.ActivityLog),
		bufSize: bufSize,
	}
}

// Subscribe returns a channel of new entries and a function that cancels the subscription
func (h *ActivityHub) Subscribe() (<-chan models.ActivityLog, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan models.ActivityLog, h.bufSize)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *ActivityHub) Publish(entry models.ActivityLog) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- entry:
		default:
		}
	}
}

// Subscribers reports the number of live subscriptions
func (h *ActivityHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
