package events

import (
	"sync"

	"gridlease-backend/internal/logger"
)

const defaultBufferSize = 64

type subscriber struct {
	ch chan Event
}

// Hub is an in-process publish/subscribe fan-out. Publishing never blocks:
// a subscriber that has fallen behind by a full buffer misses events, which
// is acceptable under at-least-once delivery with idempotent consumers.
type Hub struct {
	mu         sync.RWMutex
	byIntent   map[string][]*subscriber
	byWallet   map[string][]*subscriber
	bufferSize int
}

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		byIntent:   make(map[string][]*subscriber),
		byWallet:   make(map[string][]*subscriber),
		bufferSize: bufferSize,
	}
}

// Publish fans the event out to intent and wallet subscribers.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if event.IntentID != "" {
		for _, sub := range h.byIntent[event.IntentID] {
			sub.send(event)
		}
	}
	if event.RequesterWallet != "" {
		for _, sub := range h.byWallet[event.RequesterWallet] {
			sub.send(event)
		}
	}

	logger.Debug("Event published",
		"kind", event.Kind,
		"intent_id", event.IntentID,
		"requester", event.RequesterWallet,
		"message", event.Message)
}

func (s *subscriber) send(event Event) {
	select {
	case s.ch <- event:
	default:
		// Subscriber buffer full, drop.
	}
}

// SubscribeIntent registers an observer for one intent. The returned cancel
// function must be called to release the subscription.
func (h *Hub) SubscribeIntent(intentID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, h.bufferSize)}

	h.mu.Lock()
	h.byIntent[intentID] = append(h.byIntent[intentID], sub)
	h.mu.Unlock()

	return sub.ch, func() {
		h.mu.Lock()
		h.byIntent[intentID] = remove(h.byIntent[intentID], sub)
		if len(h.byIntent[intentID]) == 0 {
			delete(h.byIntent, intentID)
		}
		h.mu.Unlock()
	}
}

// SubscribeWallet registers an observer for all of a requester's intents.
func (h *Hub) SubscribeWallet(wallet string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, h.bufferSize)}

	h.mu.Lock()
	h.byWallet[wallet] = append(h.byWallet[wallet], sub)
	h.mu.Unlock()

	return sub.ch, func() {
		h.mu.Lock()
		h.byWallet[wallet] = remove(h.byWallet[wallet], sub)
		if len(h.byWallet[wallet]) == 0 {
			delete(h.byWallet, wallet)
		}
		h.mu.Unlock()
	}
}

func remove(subs []*subscriber, target *subscriber) []*subscriber {
	out := subs[:0]
	for _, s := range subs {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
