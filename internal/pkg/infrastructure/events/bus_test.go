package events

import (
	"context"
	"testing"

	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"github.com/matryer/is"
)

func TestPublishDeliversInOrder(t *testing.T) {
	is := is.New(t)
	bus := NewBus()
	defer bus.Close()

	queue, unsubscribe, err := bus.Subscribe(types.TopicTelemetryUpdated, "test", 16)
	is.NoErr(err)
	defer unsubscribe()

	for _, id := range []string{"s-1", "s-2", "s-3"} {
		err := bus.Publish(context.Background(), &types.TelemetryUpdated{SensorID: id})
		is.NoErr(err)
	}

	for _, want := range []string{"s-1", "s-2", "s-3"} {
		msg := <-queue
		is.Equal(msg.(*types.TelemetryUpdated).SensorID, want)
	}
}

func TestPublishRejectsUnknownTopic(t *testing.T) {
	is := is.New(t)
	bus := NewBus()
	defer bus.Close()

	err := bus.Publish(context.Background(), badMessage{})
	is.True(err != nil)

	_, _, err = bus.Subscribe("no.such.topic", "test", 16)
	is.True(err != nil)
}

func TestSlowSubscriberLosesOldest(t *testing.T) {
	is := is.New(t)
	bus := NewBus()
	defer bus.Close()

	queue, unsubscribe, err := bus.Subscribe(types.TopicTelemetryUpdated, "slow", 2)
	is.NoErr(err)
	defer unsubscribe()

	for _, id := range []string{"s-1", "s-2", "s-3"} {
		err := bus.Publish(context.Background(), &types.TelemetryUpdated{SensorID: id})
		is.NoErr(err)
	}

	// oldest message was evicted to make room for the newest
	is.Equal(bus.Dropped(types.TopicTelemetryUpdated, "slow"), int64(1))
	is.Equal((<-queue).(*types.TelemetryUpdated).SensorID, "s-2")
	is.Equal((<-queue).(*types.TelemetryUpdated).SensorID, "s-3")
}

func TestCloseShutsSubscriberQueues(t *testing.T) {
	is := is.New(t)
	bus := NewBus()

	queue, _, err := bus.Subscribe(types.TopicRuleTriggered, "test", 4)
	is.NoErr(err)

	err = bus.Publish(context.Background(), &types.RuleTriggered{RuleID: "r-1"})
	is.NoErr(err)

	bus.Close()

	msg, ok := <-queue
	is.True(ok)
	is.Equal(msg.(*types.RuleTriggered).RuleID, "r-1")

	_, ok = <-queue
	is.True(!ok)

	err = bus.Publish(context.Background(), &types.RuleTriggered{RuleID: "r-2"})
	is.True(err != nil)
}

type badMessage struct{}

func (badMessage) ContentType() string { return "application/json" }
func (badMessage) TopicName() string   { return "no.such.topic" }
func (badMessage) Body() []byte        { return nil }
