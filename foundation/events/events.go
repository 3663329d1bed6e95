// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Since a message will be dropped if the websocket receiver is not ready to
// receive, this buffer gives the receiver time to catch up.
const messageBuffer = 100

type subscriber struct {
	prefix string
	ch     chan string
}

// Events maintains the set of subscribers so goroutines can register and
// receive events.
type Events struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]subscriber
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		subs: make(map[uuid.UUID]subscriber),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Subscribe.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.subs {
		delete(evt.subs, id)
		close(sub.ch)
	}
}

// Subscribe registers a new subscriber and returns its id with the channel
// used to receive events. Only events starting with the prefix are received,
// an empty prefix receives everything.
func (evt *Events) Subscribe(prefix string) (uuid.UUID, <-chan string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub := subscriber{
		prefix: prefix,
		ch:     make(chan string, messageBuffer),
	}

	id := uuid.New()
	evt.subs[id] = sub

	return id, sub.ch
}

// Unsubscribe closes and removes the channel that was provided by
// the call to Subscribe.
func (evt *Events) Unsubscribe(id uuid.UUID) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("subscriber %q does not exist", id)
	}

	delete(evt.subs, id)
	close(sub.ch)

	return nil
}

// Count returns the number of subscribers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.subs)
}

// Send signals a message to every matching subscriber. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, sub := range evt.subs {
		if !strings.HasPrefix(s, sub.prefix) {
			continue
		}

		select {
		case sub.ch <- s:
		default:
		}
	}
}
