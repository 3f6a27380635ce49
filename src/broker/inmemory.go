package broker

import (
	"context"
	"sync"
	"time"

	"worklink/src/logger"
)

const subscriberBuffer = 100

type subscription struct {
	ch       chan Message
	done     chan struct{}
	stopOnce sync.Once
}

// stop releases publishers blocked on this subscriber. The channel itself is
// closed later under the write lock.
func (s *subscription) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *subscription) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// group holds the members of one consumer group on one topic.
type group struct {
	members []*subscription
	next    int
}

// InMemoryBroker is an in-process Broker used by local mode and tests.
// Messages are not persisted; subscribers only see messages published after
// they subscribe.
type InMemoryBroker struct {
	mu      sync.RWMutex
	topics  map[string]map[string]*group
	offsets map[string]int64
	closed  bool
	logger  logger.Logger
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		topics:  make(map[string]map[string]*group),
		offsets: make(map[string]int64),
		logger:  logger.NewSilentLogger(),
	}
}

// SetLogger routes debug output to log.
func (b *InMemoryBroker) SetLogger(log logger.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = log
}

// Publish delivers value to one member of every group subscribed to topic.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	offset := b.offsets[topic]
	b.offsets[topic] = offset + 1

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    offset,
		Timestamp: time.Now().UnixMilli(),
	}

	var targets []*subscription
	for _, g := range b.topics[topic] {
		if len(g.members) == 0 {
			continue
		}
		targets = append(targets, g.members[g.next%len(g.members)])
		g.next++
	}
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range targets {
		if sub.stopped() {
			continue
		}
		select {
		case sub.ch <- msg:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.logger.Debug("[InMemoryBroker] Published to topic '%s' (offset %d, %d group(s))", topic, offset, len(targets))
	return nil
}

// Subscribe registers a consumer for topic within groupID.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	groups, ok := b.topics[topic]
	if !ok {
		groups = make(map[string]*group)
		b.topics[topic] = groups
	}
	g, ok := groups[groupID]
	if !ok {
		g = &group{}
		groups[groupID] = g
	}

	sub := &subscription{
		ch:   make(chan Message, subscriberBuffer),
		done: make(chan struct{}),
	}
	g.members = append(g.members, sub)

	go func() {
		<-ctx.Done()
		b.unsubscribe(topic, groupID, sub)
	}()

	return sub.ch, nil
}

func (b *InMemoryBroker) unsubscribe(topic, groupID string, sub *subscription) {
	sub.stop()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if g, ok := b.topics[topic][groupID]; ok {
		for i, member := range g.members {
			if member == sub {
				g.members = append(g.members[:i], g.members[i+1:]...)
				close(sub.ch)
				break
			}
		}
	}
}

// Close closes every subscriber channel. Later calls are no-ops.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var subs []*subscription
	for _, groups := range b.topics {
		for _, g := range groups {
			subs = append(subs, g.members...)
			g.members = nil
		}
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range subs {
		close(sub.ch)
	}
	return nil
}
