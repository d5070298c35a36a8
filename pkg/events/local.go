package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/praveengys/connectify-sub000/pkg/logger"
)

// LocalEventBus delivers messages in-process and synchronously. It backs the
// memory store mode and tests; production wiring uses NATSEventBus.
type LocalEventBus struct {
	mu     sync.RWMutex
	subs   map[string][]*localSub
	queues map[string]int // round-robin cursor per subject+queue
	closed bool
}

type localSub struct {
	bus     *LocalEventBus
	subject string
	queue   string
	handler func(msg *Message)
}

func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{
		subs:   make(map[string][]*localSub),
		queues: make(map[string]int),
	}
}

func (b *LocalEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("event bus closed")
	}
	targets := b.targetsLocked(subject)
	b.mu.Unlock()

	logger.DebugContext(ctx, "Publishing local event", "subject", subject, "subscribers", len(targets))

	msg := &Message{
		Subject:   subject,
		Data:      payload,
		Timestamp: time.Now(),
		ID:        uuid.NewString(),
	}
	for _, s := range targets {
		s.handler(msg)
	}
	return nil
}

// targetsLocked returns every plain subscriber plus one member per queue group.
func (b *LocalEventBus) targetsLocked(subject string) []*localSub {
	var (
		targets []*localSub
		groups  = make(map[string][]*localSub)
		order   []string
	)
	for _, s := range b.subs[subject] {
		if s.queue == "" {
			targets = append(targets, s)
			continue
		}
		if _, seen := groups[s.queue]; !seen {
			order = append(order, s.queue)
		}
		groups[s.queue] = append(groups[s.queue], s)
	}
	for _, q := range order {
		members := groups[q]
		key := subject + "|" + q
		idx := b.queues[key] % len(members)
		b.queues[key] = idx + 1
		targets = append(targets, members[idx])
	}
	return targets
}

func (b *LocalEventBus) Subscribe(subject string, handler func(msg *Message)) (Subscription, error) {
	return b.add(subject, "", handler)
}

func (b *LocalEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) (Subscription, error) {
	return b.add(subject, queue, handler)
}

func (b *LocalEventBus) add(subject, queue string, handler func(msg *Message)) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("event bus closed")
	}
	s := &localSub{bus: b, subject: subject, queue: queue, handler: handler}
	b.subs[subject] = append(b.subs[subject], s)
	return s, nil
}

func (s *localSub) Unsubscribe() error {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[s.subject]
	for i, cur := range list {
		if cur == s {
			b.subs[s.subject] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[s.subject]) == 0 {
		delete(b.subs, s.subject)
	}
	return nil
}

func (b *LocalEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string][]*localSub)
	return nil
}
