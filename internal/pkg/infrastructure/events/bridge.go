package events

import (
	"context"
	"sync"

	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

// Bridge republishes bus events onto an AMQP exchange so that external
// services can integrate without touching the greenhouse internals.
// It is optional; the core pipeline works without a broker.
type Bridge struct {
	bus       *Bus
	messenger messaging.MsgContext

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewBridge(bus *Bus, messenger messaging.MsgContext) *Bridge {
	return &Bridge{
		bus:       bus,
		messenger: messenger,
	}
}

func (b *Bridge) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)

	topics := []string{
		types.TopicTelemetryUpdated,
		types.TopicDeviceStateChanged,
		types.TopicRuleTriggered,
		types.TopicNotificationCreated,
	}

	for _, topic := range topics {
		queue, unsubscribe, err := b.bus.Subscribe(topic, "amqp-bridge", 256)
		if err != nil {
			return err
		}

		b.wg.Add(1)
		go b.forward(ctx, queue, unsubscribe)
	}

	return nil
}

func (b *Bridge) forward(ctx context.Context, queue <-chan Message, unsubscribe func()) {
	defer b.wg.Done()
	defer unsubscribe()

	log := logging.GetFromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-queue:
			if !ok {
				return
			}

			err := b.messenger.PublishOnTopic(ctx, msg)
			if err != nil {
				log.Error("failed to republish event", "topic", msg.TopicName(), "err", err.Error())
			}
		}
	}
}

func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}
