package actuator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/devices"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/normalizer"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/events"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"github.com/matryer/is"
)

type fakeDeviceStore struct {
	mu       sync.Mutex
	statuses []types.DeviceStatus
	events   []types.DeviceEvent
}

func (f *fakeDeviceStore) SetDeviceStatus(ctx context.Context, deviceID string, status types.DeviceStatus, authoritative bool, observedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeDeviceStore) AddDeviceEvent(ctx context.Context, event types.DeviceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeDeviceStore) recorded() []types.DeviceEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.DeviceEvent{}, f.events...)
}

func pump() types.Device {
	return types.Device{
		ID:               "d-1",
		HardwareID:       "bomba",
		Kind:             types.DeviceKindWaterPump,
		MQTTCommandTopic: "Invernadero/Bomba/sw",
		MQTTStatusTopic:  "Invernadero/Bomba/status",
		Status:           types.DeviceOff,
		Active:           true,
		Configuration:    types.DeviceConfiguration{LegacyCommandField: "bombaSw"},
	}
}

func testActuator(device types.Device, store *fakeDeviceStore, publisher *PublisherMock) (*Actuator, *events.Bus) {
	registry := &devices.ManagementMock{
		GetDeviceFunc: func(ctx context.Context, deviceID string) (types.Device, error) {
			if deviceID == device.ID {
				return device, nil
			}
			return types.Device{}, devices.ErrNotFound
		},
	}
	bus := events.NewBus()
	return New(registry, store, publisher, bus, nil), bus
}

func awaitPublish(t *testing.T, publisher *PublisherMock) map[string]any {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if calls := publisher.PublishCalls(); len(calls) > 0 {
			var payload map[string]any
			err := json.Unmarshal(calls[0].Payload, &payload)
			if err != nil {
				t.Fatal(err)
			}
			return payload
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no command was published")
	return nil
}

func TestTurnOnPublishesCommandWithLegacyAlias(t *testing.T) {
	is := is.New(t)
	store := &fakeDeviceStore{}
	publisher := &PublisherMock{PublishFunc: func(ctx context.Context, topic string, payload []byte) error { return nil }}

	a, bus := testActuator(pump(), store, publisher)
	defer bus.Close()
	defer a.Stop()

	err := a.Execute(context.Background(), Request{DeviceID: "d-1", Verb: VerbTurnOn, Source: "manual"})
	is.NoErr(err)

	payload := awaitPublish(t, publisher)
	is.Equal(publisher.PublishCalls()[0].Topic, "Invernadero/Bomba/sw")
	is.Equal(payload["estado"], true)
	is.Equal(payload["bombaSw"], true)
	is.True(payload["requestId"] != "")

	deadline := time.Now().Add(time.Second)
	for len(store.recorded()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	recorded := store.recorded()
	is.Equal(len(recorded), 1)
	is.Equal(recorded[0].PreviousValue, types.DeviceOff)
	is.Equal(recorded[0].NewValue, types.DeviceOn)
	is.True(!recorded[0].Authoritative)
}

func TestAckTimeoutIsConfigurable(t *testing.T) {
	is := is.New(t)

	a := New(nil, nil, nil, nil, nil, WithAckTimeout(3*time.Second))
	is.Equal(a.ackTimeout, 3*time.Second)

	a = New(nil, nil, nil, nil, nil, WithAckTimeout(0))
	is.Equal(a.ackTimeout, defaultAckTimeout)
}

func TestToggleTreatsOfflineAsOff(t *testing.T) {
	is := is.New(t)

	target, err := targetStatus(VerbToggle, types.DeviceOffline)
	is.NoErr(err)
	is.Equal(target, types.DeviceOn)

	target, err = targetStatus(VerbToggle, types.DeviceOn)
	is.NoErr(err)
	is.Equal(target, types.DeviceOff)

	_, err = targetStatus(Verb("FROB"), types.DeviceOn)
	is.Equal(err, ErrUnknownVerb)
}

func TestStatusReplySettlesPendingCommand(t *testing.T) {
	is := is.New(t)
	store := &fakeDeviceStore{}
	publisher := &PublisherMock{PublishFunc: func(ctx context.Context, topic string, payload []byte) error { return nil }}

	device := pump()
	a, bus := testActuator(device, store, publisher)
	defer bus.Close()
	defer a.Stop()

	err := a.Execute(context.Background(), Request{DeviceID: "d-1", Verb: VerbTurnOn})
	is.NoErr(err)

	payload := awaitPublish(t, publisher)
	requestID := payload["requestId"].(string)

	reply, _ := json.Marshal(map[string]any{"estado": "ON", "requestId": requestID})
	a.HandleStatusReply(context.Background(), device, reply, time.Now().UTC())

	recorded := store.recorded()
	is.Equal(len(recorded), 2)
	is.True(recorded[1].Authoritative)
	is.Equal(recorded[1].NewValue, types.DeviceOn)

	// the pending list is empty, the ack timer will not fire
	_, outstanding := a.takePending("d-1", "")
	is.True(!outstanding)
}

func TestUnconfirmedCommandFlipsDeviceToError(t *testing.T) {
	is := is.New(t)
	store := &fakeDeviceStore{}
	publisher := &PublisherMock{PublishFunc: func(ctx context.Context, topic string, payload []byte) error { return nil }}

	a, bus := testActuator(pump(), store, publisher)
	defer bus.Close()
	defer a.Stop()
	a.ackTimeout = 20 * time.Millisecond

	err := a.Execute(context.Background(), Request{DeviceID: "d-1", Verb: VerbTurnOn})
	is.NoErr(err)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		recorded := store.recorded()
		if len(recorded) == 2 {
			is.Equal(recorded[1].NewValue, types.DeviceError)
			is.Equal(recorded[1].PreviousValue, types.DeviceOn)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("device never flipped to error")
}

func TestUnsolicitedStatusReplyMapsBooleanToObservedState(t *testing.T) {
	is := is.New(t)
	store := &fakeDeviceStore{}
	publisher := &PublisherMock{PublishFunc: func(ctx context.Context, topic string, payload []byte) error { return nil }}

	device := pump()
	device.Status = types.DeviceOn
	a, bus := testActuator(device, store, publisher)
	defer bus.Close()
	defer a.Stop()

	reply, _ := json.Marshal(map[string]any{"estado": false})
	a.HandleStatusReply(context.Background(), device, reply, time.Now().UTC())

	recorded := store.recorded()
	is.Equal(len(recorded), 1)
	is.Equal(recorded[0].NewValue, types.DeviceOff)
	is.True(recorded[0].Authoritative)
}

func TestInboundCommandMovesStateWithoutRepublishing(t *testing.T) {
	is := is.New(t)
	store := &fakeDeviceStore{}
	publisher := &PublisherMock{PublishFunc: func(ctx context.Context, topic string, payload []byte) error { return nil }}

	device := pump()
	a, bus := testActuator(device, store, publisher)
	defer bus.Close()
	defer a.Stop()

	a.HandleInboundCommand(context.Background(), device, commandFixture(true))

	is.Equal(len(publisher.PublishCalls()), 0)
	recorded := store.recorded()
	is.Equal(len(recorded), 1)
	is.Equal(recorded[0].NewValue, types.DeviceOn)
	is.True(!recorded[0].Authoritative)
}

func commandFixture(on bool) normalizer.Command {
	return normalizer.Command{DesiredState: on, RequestedAt: time.Now().UTC()}
}
