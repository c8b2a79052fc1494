package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/devices"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/discovery"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/normalizer"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/events"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/mqtt"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/storage"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"github.com/matryer/is"
)

type fakeStore struct {
	mu       sync.Mutex
	readings []types.Reading
	failures int
	liveness int
}

func (f *fakeStore) AddReading(ctx context.Context, kind types.SensorKind, reading types.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return storage.ErrStoreUnreachable
	}
	f.readings = append(f.readings, reading)
	return nil
}

func (f *fakeStore) SetSensorLiveness(ctx context.Context, sensorID string, online bool, lastSeen time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liveness++
	return nil
}

func (f *fakeStore) stored() []types.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Reading{}, f.readings...)
}

type fakeCommands struct {
	mu       sync.Mutex
	commands []normalizer.Command
	statuses [][]byte
}

func (f *fakeCommands) HandleInboundCommand(ctx context.Context, device types.Device, cmd normalizer.Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
}

func (f *fakeCommands) HandleStatusReply(ctx context.Context, device types.Device, payload []byte, receivedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, payload)
}

func testSensor() types.Sensor {
	min := 10.0
	return types.Sensor{
		ID:         "s-1",
		HardwareID: "temhum1",
		Kind:       types.SensorKindTemHum,
		MQTTTopic:  "Invernadero/Temhum1/data",
		Active:     true,
		Configuration: types.SensorConfiguration{
			Thresholds: map[string]types.Threshold{"temperatura": {Min: &min}},
		},
	}
}

func testRegistry(sensor types.Sensor) *devices.ManagementMock {
	return &devices.ManagementMock{
		GetSensorByTopicFunc: func(ctx context.Context, topic string) (types.Sensor, error) {
			if topic == sensor.MQTTTopic {
				return sensor, nil
			}
			return types.Sensor{}, devices.ErrNotFound
		},
		GetDeviceByStatusTopicFunc: func(ctx context.Context, topic string) (types.Device, error) {
			if topic == "Invernadero/Bomba/status" {
				return types.Device{ID: "d-1", HardwareID: "bomba"}, nil
			}
			return types.Device{}, devices.ErrNotFound
		},
		GetDeviceByCommandTopicFunc: func(ctx context.Context, topic string) (types.Device, error) {
			if topic == "Invernadero/Bomba/sw" {
				return types.Device{ID: "d-1", HardwareID: "bomba"}, nil
			}
			return types.Device{}, devices.ErrNotFound
		},
	}
}

func newTestIngest(store *fakeStore, commands *fakeCommands, creator discovery.EntityCreator) (*Ingest, *events.Bus) {
	bus := events.NewBus()
	disc := discovery.New(creator, discovery.DefaultConfig())
	return New(testRegistry(testSensor()), store, bus, disc, commands, nil), bus
}

func TestReadingIsStoredAndPublished(t *testing.T) {
	is := is.New(t)
	store := &fakeStore{}
	ing, bus := newTestIngest(store, &fakeCommands{}, &discovery.EntityCreatorMock{})
	defer bus.Close()

	telemetry, unsubscribe, err := bus.Subscribe(types.TopicTelemetryUpdated, "test", 4)
	is.NoErr(err)
	defer unsubscribe()

	now := time.Now().UTC()
	ing.handle(context.Background(), mqtt.InboundMessage{
		Topic:      "Invernadero/Temhum1/data",
		Payload:    []byte(`{"temperatura":21.5,"humedad":60}`),
		ReceivedAt: now,
	})

	readings := store.stored()
	is.Equal(len(readings), 1)
	is.Equal(readings[0].SensorID, "s-1")
	is.Equal(readings[0].Quality, types.QualityOK)

	select {
	case msg := <-telemetry:
		evt := msg.(*types.TelemetryUpdated)
		is.Equal(evt.SensorID, "s-1")
		is.Equal(evt.Fields["temperatura"], 21.5)
	case <-time.After(time.Second):
		t.Fatal("no telemetry event published")
	}
}

func TestThresholdBreachDegradesQuality(t *testing.T) {
	is := is.New(t)
	store := &fakeStore{}
	ing, bus := newTestIngest(store, &fakeCommands{}, &discovery.EntityCreatorMock{})
	defer bus.Close()

	ing.handle(context.Background(), mqtt.InboundMessage{
		Topic:      "Invernadero/Temhum1/data",
		Payload:    []byte(`{"temperatura":5.0,"humedad":60}`),
		ReceivedAt: time.Now().UTC(),
	})

	readings := store.stored()
	is.Equal(len(readings), 1)
	is.Equal(readings[0].Quality, types.QualityWarning)
}

func TestStoreFailureIsRetriedOnce(t *testing.T) {
	is := is.New(t)
	store := &fakeStore{failures: 1}
	ing, bus := newTestIngest(store, &fakeCommands{}, &discovery.EntityCreatorMock{})
	defer bus.Close()

	ing.handle(context.Background(), mqtt.InboundMessage{
		Topic:      "Invernadero/Temhum1/data",
		Payload:    []byte(`{"temperatura":21.0,"humedad":55}`),
		ReceivedAt: time.Now().UTC(),
	})

	is.Equal(len(store.stored()), 1)

	// two consecutive failures exhaust the single retry
	store = &fakeStore{failures: 2}
	ing, bus = newTestIngest(store, &fakeCommands{}, &discovery.EntityCreatorMock{})
	defer bus.Close()

	ing.handle(context.Background(), mqtt.InboundMessage{
		Topic:      "Invernadero/Temhum1/data",
		Payload:    []byte(`{"temperatura":21.0,"humedad":55}`),
		ReceivedAt: time.Now().UTC(),
	})

	is.Equal(len(store.stored()), 0)
}

func TestStatusRepliesAndCommandsReachTheSink(t *testing.T) {
	is := is.New(t)
	commands := &fakeCommands{}
	ing, bus := newTestIngest(&fakeStore{}, commands, &discovery.EntityCreatorMock{})
	defer bus.Close()

	now := time.Now().UTC()
	ing.handle(context.Background(), mqtt.InboundMessage{
		Topic:      "Invernadero/Bomba/status",
		Payload:    []byte(`{"estado":"ON"}`),
		ReceivedAt: now,
	})
	ing.handle(context.Background(), mqtt.InboundMessage{
		Topic:      "Invernadero/Bomba/sw",
		Payload:    []byte(`{"bombaSw":true}`),
		ReceivedAt: now,
	})

	is.Equal(len(commands.statuses), 1)
	is.Equal(len(commands.commands), 1)
	is.Equal(commands.commands[0].DesiredState, true)
}

func TestUnknownTopicsFeedDiscovery(t *testing.T) {
	is := is.New(t)
	creator := &discovery.EntityCreatorMock{}
	ing, bus := newTestIngest(&fakeStore{}, &fakeCommands{}, creator)
	defer bus.Close()

	ing.handle(context.Background(), mqtt.InboundMessage{
		Topic:      "Invernadero/Misterio/data",
		Payload:    []byte(`{"valor":1}`),
		ReceivedAt: time.Now().UTC(),
	})

	topics := ing.discovery.UnknownTopics()
	is.Equal(len(topics), 1)
	is.Equal(topics[0].Topic, "Invernadero/Misterio/data")
}

func TestRollingStatsOverTheLastHour(t *testing.T) {
	is := is.New(t)
	store := &fakeStore{}
	ing, bus := newTestIngest(store, &fakeCommands{}, &discovery.EntityCreatorMock{})
	defer bus.Close()

	now := time.Now().UTC()
	// a stale sample falls out of the one hour window
	ing.trackLiveness(context.Background(), "s-1", now.Add(-2*time.Hour), map[string]any{"temperatura": 99.0})
	ing.trackLiveness(context.Background(), "s-1", now.Add(-30*time.Minute), map[string]any{"temperatura": 20.0})
	ing.trackLiveness(context.Background(), "s-1", now, map[string]any{"temperatura": 24.0})

	stats := ing.RollingStats("s-1")
	is.Equal(stats["temperatura"].Min, 20.0)
	is.Equal(stats["temperatura"].Max, 24.0)
	is.Equal(stats["temperatura"].Avg, 22.0)
	is.Equal(stats["temperatura"].Count, 2)

	lastSeen, online := ing.LastSeen("s-1")
	is.True(online)
	is.Equal(lastSeen, now)

	ing.MarkOffline("s-1")
	_, online = ing.LastSeen("s-1")
	is.True(!online)
}
