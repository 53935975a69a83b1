// Package notification provides the notification manager for broadcasting events.
package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// DefaultSendTimeout bounds a single send to one subscriber.
const DefaultSendTimeout = 500 * time.Millisecond

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// ErrUnknownType is returned when a subscriber asks for a type that is never broadcast.
var ErrUnknownType = errors.New("unknown notification type")

// subscription represents a subscriber's subscription.
// An empty types set receives every broadcast.
type subscription struct {
	id     string
	stream Stream
	types  map[Type]struct{}
}

func (s *subscription) wants(t Type) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
}

// NewManager creates a new notification manager.
func NewManager(sendTimeout time.Duration) *Manager {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   sendTimeout,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
// When types are given, only broadcasts of those types reach the stream.
func (m *Manager) Subscribe(stream Stream, types ...Type) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &subscription{
		id:     uuid.New().String(),
		stream: stream,
	}
	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}
	m.subscriptions[sub.id] = sub
	zlog.Debug().Msgf("subscriber added: id=%s types=%v total=%d", sub.id, types, len(m.subscriptions))
	return sub.id
}

// ParseTypes parses a comma separated list of notification types.
// An empty list yields nil, which subscribes to everything.
func ParseTypes(list string) ([]Type, error) {
	var types []Type
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		t := Type(name)
		if !t.Valid() {
			return nil, errors.Wrapf(ErrUnknownType, "%q", name)
		}
		types = append(types, t)
	}
	return types, nil
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Broadcast stamps the notification with the next sequence number and sends it
// in parallel to every subscriber interested in its type. Subscribers whose
// send fails are dropped; slow subscribers are skipped after the send timeout.
// Sequence numbers are global, so a filtered subscriber sees gaps.
func (m *Manager) Broadcast(n *Notification) {
	n.SequenceNo = m.NextSequenceNo()

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		if sub.wants(n.Type) {
			subs = append(subs, sub)
		}
	}
	m.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(n)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("dropping subscriber after send failure: id=%s error=%v", s.id, err)
					m.Unsubscribe(s.id)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("subscriber send timed out: id=%s type=%s seq=%d", s.id, n.Type, n.SequenceNo)
			}
		}(sub)
	}
	wg.Wait()
}

// Send sends a notification to a specific subscriber without consuming a
// sequence number. Type filters do not apply.
func (m *Manager) Send(subscriptionID string, n *Notification) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return sub.stream.Send(n)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
