package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Hub operations after Close.
var ErrClosed = errors.New("events: hub closed")

const hubBuffer = 64

// Hub is an in-process Publisher and Subscriber. Publishing never blocks:
// a subscriber whose buffer is full misses the message.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]*hubSub
	nextID int
	closed bool
}

type hubSub struct {
	pattern string
	ch      chan []byte
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*hubSub)}
}

func (h *Hub) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for _, sub := range h.subs {
		if !Match(sub.pattern, topic) {
			continue
		}
		select {
		case sub.ch <- data:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(topic string) (<-chan []byte, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, nil, ErrClosed
	}

	id := h.nextID
	h.nextID++
	sub := &hubSub{pattern: topic, ch: make(chan []byte, hubBuffer)}
	h.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.ch)
			}
		})
	}
	return sub.ch, cancel, nil
}

// Close closes every subscriber channel.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
	return nil
}
