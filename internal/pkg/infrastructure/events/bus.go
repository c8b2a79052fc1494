// Package events provides the in-process bus that connects ingestion,
// rules, actuation and notifications. Delivery is per-topic ordered and
// never blocks publishers for more than a short grace period; slow
// subscribers lose their oldest queued messages instead.
package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

// Message is the unit of exchange on the bus. It matches the shape the
// AMQP bridge expects, so events can be forwarded verbatim.
type Message interface {
	ContentType() string
	TopicName() string
	Body() []byte
}

// publishGrace is how long a publisher waits on a full subscriber
// queue before evicting that subscriber's oldest message.
const publishGrace = 50 * time.Millisecond

var knownTopics = map[string]struct{}{
	types.TopicTelemetryUpdated:    {},
	types.TopicDeviceStateChanged:  {},
	types.TopicRuleTriggered:       {},
	types.TopicNotificationCreated: {},
	types.TopicNotificationUpdated: {},
}

type subscriber struct {
	name    string
	queue   chan Message
	dropped atomic.Int64
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscriber
	closed bool
}

func NewBus() *Bus {
	return &Bus{
		subs: map[string][]*subscriber{},
	}
}

// Subscribe registers a named consumer for a topic and returns its
// queue together with an unsubscribe func. The queue is closed on
// unsubscribe or when the bus shuts down.
func (b *Bus) Subscribe(topic, name string, queueSize int) (<-chan Message, func(), error) {
	if _, ok := knownTopics[topic]; !ok {
		return nil, nil, fmt.Errorf("unknown topic %s", topic)
	}

	if queueSize <= 0 {
		queueSize = 64
	}

	sub := &subscriber{
		name:  name,
		queue: make(chan Message, queueSize),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, fmt.Errorf("bus is closed")
	}

	b.subs[topic] = append(b.subs[topic], sub)

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subs[topic]
		for i, s := range subs {
			if s == sub {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				close(sub.queue)
				return
			}
		}
	}

	return sub.queue, unsubscribe, nil
}

// Publish delivers msg to every subscriber of its topic, in
// subscription order. Holding the lock for the duration keeps
// per-topic delivery order intact across concurrent publishers.
func (b *Bus) Publish(ctx context.Context, msg Message) error {
	topic := msg.TopicName()
	if _, ok := knownTopics[topic]; !ok {
		return fmt.Errorf("unknown topic %s", topic)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("bus is closed")
	}

	log := logging.GetFromContext(ctx)

	for _, sub := range b.subs[topic] {
		select {
		case sub.queue <- msg:
			continue
		default:
		}

		timer := time.NewTimer(publishGrace)
		select {
		case sub.queue <- msg:
			timer.Stop()
			continue
		case <-timer.C:
		}

		// evict the oldest queued message to make room
		select {
		case <-sub.queue:
		default:
		}

		select {
		case sub.queue <- msg:
		default:
		}

		dropped := sub.dropped.Add(1)
		log.Warn("subscriber queue full, dropped oldest message",
			"topic", topic, "subscriber", sub.name, "dropped_total", dropped)
	}

	return nil
}

// Dropped returns the total number of messages a subscriber has lost.
func (b *Bus) Dropped(topic, name string) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs[topic] {
		if sub.name == name {
			return sub.dropped.Load()
		}
	}

	return 0
}

// Close shuts the bus down. All subscriber queues are closed after any
// in-flight Publish has finished, so consumers drain what was already
// delivered and then observe channel close.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for topic, subs := range b.subs {
		for _, sub := range subs {
			close(sub.queue)
		}
		delete(b.subs, topic)
	}
}
