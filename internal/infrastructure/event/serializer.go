package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/flipflop/backend/internal/domain/shared"
)

// ErrUnknownEventType is returned for outbox payloads no decoder is registered for
var ErrUnknownEventType = errors.New("unknown event type")

// EventSerializer encodes domain events for the outbox and rebuilds them from
// stored payloads
type EventSerializer struct {
	mu       sync.RWMutex
	decoders map[string]func() shared.DomainEvent
}

// NewEventSerializer creates an empty serializer; see RegisterAllEvents
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{decoders: make(map[string]func() shared.DomainEvent)}
}

// Register makes eventType decodable. newEvent must return a fresh pointer.
func (s *EventSerializer) Register(eventType string, newEvent func() shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decoders[eventType] = newEvent
}

// register binds eventType to the event struct T
func register[T any, P interface {
	*T
	shared.DomainEvent
}](s *EventSerializer, eventType string) {
	s.Register(eventType, func() shared.DomainEvent { return P(new(T)) })
}

// Serialize encodes an event as JSON
func (s *EventSerializer) Serialize(ev shared.DomainEvent) ([]byte, error) {
	if ev == nil {
		return nil, errors.New("cannot serialize nil event")
	}
	return json.Marshal(ev)
}

// Deserialize rebuilds an event. The decoded event must report the type it
// was stored under.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	newEvent, ok := s.decoders[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	ev := newEvent()
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	if ev.EventType() != eventType {
		return nil, fmt.Errorf("decode %s: payload carries type %q", eventType, ev.EventType())
	}
	return ev, nil
}

// RegisteredTypes lists the decodable event types in sorted order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.decoders))
	for t := range s.decoders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
