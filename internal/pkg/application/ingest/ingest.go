// Package ingest drains the MQTT inbound channel, resolves every frame
// to a sensor or device, normalizes it and moves it through storage
// and onto the event bus.
package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/devices"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/discovery"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/normalizer"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/events"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/mqtt"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers  = 4
	storeRetryDelay = 200 * time.Millisecond
	statsWindow     = time.Hour
)

// ReadingStore is the slice of storage ingest writes through.
type ReadingStore interface {
	AddReading(ctx context.Context, kind types.SensorKind, reading types.Reading) error
	SetSensorLiveness(ctx context.Context, sensorID string, online bool, lastSeen time.Time) error
}

// CommandSink receives the frames that resolve to devices instead of
// sensors. The actuator implements it.
type CommandSink interface {
	HandleInboundCommand(ctx context.Context, device types.Device, cmd normalizer.Command)
	HandleStatusReply(ctx context.Context, device types.Device, payload []byte, receivedAt time.Time)
}

type sensorSample struct {
	at     time.Time
	fields map[string]float64
}

type sensorState struct {
	mu       sync.Mutex
	lastSeen time.Time
	online   bool
	samples  []sensorSample
}

type Ingest struct {
	workers   int
	registry  devices.Management
	store     ReadingStore
	bus       *events.Bus
	discovery *discovery.Discovery
	commands  CommandSink
	inbound   <-chan mqtt.InboundMessage

	mu    sync.RWMutex
	state map[string]*sensorState

	group  *errgroup.Group
	cancel context.CancelFunc
}

func New(registry devices.Management, store ReadingStore, bus *events.Bus, disc *discovery.Discovery, commands CommandSink, inbound <-chan mqtt.InboundMessage) *Ingest {
	return &Ingest{
		workers:   defaultWorkers,
		registry:  registry,
		store:     store,
		bus:       bus,
		discovery: disc,
		commands:  commands,
		inbound:   inbound,
		state:     map[string]*sensorState{},
	}
}

func (i *Ingest) Start(ctx context.Context) {
	ctx, i.cancel = context.WithCancel(ctx)
	i.group, ctx = errgroup.WithContext(ctx)

	for w := 0; w < i.workers; w++ {
		i.group.Go(func() error {
			i.worker(ctx)
			return nil
		})
	}
}

func (i *Ingest) Stop() {
	if i.cancel != nil {
		i.cancel()
	}
	if i.group != nil {
		i.group.Wait()
	}
}

func (i *Ingest) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-i.inbound:
			if !ok {
				return
			}
			i.handle(ctx, msg)
		}
	}
}

func (i *Ingest) handle(ctx context.Context, msg mqtt.InboundMessage) {
	log := logging.GetFromContext(ctx)

	sensor, err := i.registry.GetSensorByTopic(ctx, msg.Topic)
	if err == nil {
		if sensor.Active {
			i.handleReading(ctx, sensor, msg)
		}
		return
	}
	if !errors.Is(err, devices.ErrNotFound) {
		log.Error("could not resolve topic", "topic", msg.Topic, "err", err.Error())
		return
	}

	if device, err := i.registry.GetDeviceByStatusTopic(ctx, msg.Topic); err == nil {
		i.commands.HandleStatusReply(ctx, device, msg.Payload, msg.ReceivedAt)
		return
	}

	if device, err := i.registry.GetDeviceByCommandTopic(ctx, msg.Topic); err == nil {
		cmd, err := normalizer.DeviceCommand(msg.Payload, msg.ReceivedAt)
		if err != nil {
			log.Warn("dropping invalid device command", "topic", msg.Topic, "err", err.Error())
			return
		}
		i.commands.HandleInboundCommand(ctx, device, cmd)
		return
	}

	i.discovery.Observe(ctx, msg.Topic, msg.Payload, msg.ReceivedAt)
}

func (i *Ingest) handleReading(ctx context.Context, sensor types.Sensor, msg mqtt.InboundMessage) {
	log := logging.GetFromContext(ctx)

	normalized, err := normalizer.Sensor(sensor.Kind, msg.Payload, msg.ReceivedAt)
	if err != nil {
		log.Warn("dropping invalid payload", "topic", msg.Topic, "sensor_id", sensor.ID, "err", err.Error())
		return
	}

	quality := normalized.Quality
	if breachesThresholds(sensor.Configuration.Thresholds, normalized.Fields) {
		quality = types.QualityWarning
	}

	reading := types.Reading{
		ID:         uuid.NewString(),
		SensorID:   sensor.ID,
		ReceivedAt: normalized.Timestamp,
		Quality:    quality,
		Normalized: normalized.Fields,
		Raw:        msg.Payload,
	}

	err = i.store.AddReading(ctx, sensor.Kind, reading)
	if err != nil {
		// one retry; a reading lost after that is accepted
		time.Sleep(storeRetryDelay)
		err = i.store.AddReading(ctx, sensor.Kind, reading)
		if err != nil {
			log.Error("reading lost, store unavailable", "sensor_id", sensor.ID, "err", err.Error())
			return
		}
	}

	i.trackLiveness(ctx, sensor.ID, msg.ReceivedAt, normalized.Fields)

	err = i.bus.Publish(ctx, &types.TelemetryUpdated{
		SensorID:   sensor.ID,
		HardwareID: sensor.HardwareID,
		Kind:       sensor.Kind,
		Fields:     normalized.Fields,
		Quality:    quality,
		ReceivedAt: reading.ReceivedAt,
	})
	if err != nil {
		log.Error("could not publish telemetry event", "err", err.Error())
	}
}

func breachesThresholds(thresholds map[string]types.Threshold, fields map[string]any) bool {
	for field, t := range thresholds {
		value, ok := fields[field]
		if !ok {
			continue
		}
		number, ok := value.(float64)
		if !ok {
			continue
		}
		if t.Min != nil && number < *t.Min {
			return true
		}
		if t.Max != nil && number > *t.Max {
			return true
		}
	}

	return false
}

func (i *Ingest) trackLiveness(ctx context.Context, sensorID string, at time.Time, fields map[string]any) {
	state := i.sensorState(sensorID)

	state.mu.Lock()
	wasOffline := !state.online
	state.online = true
	state.lastSeen = at

	numeric := map[string]float64{}
	for field, value := range fields {
		if n, ok := value.(float64); ok {
			numeric[field] = n
		}
	}
	state.samples = append(state.samples, sensorSample{at: at, fields: numeric})
	pruneBefore(state, at.Add(-statsWindow))
	state.mu.Unlock()

	if wasOffline {
		err := i.store.SetSensorLiveness(ctx, sensorID, true, at)
		if err != nil {
			logging.GetFromContext(ctx).Error("could not persist sensor liveness", "sensor_id", sensorID, "err", err.Error())
		}
	}
}

func (i *Ingest) sensorState(sensorID string) *sensorState {
	i.mu.RLock()
	state, ok := i.state[sensorID]
	i.mu.RUnlock()
	if ok {
		return state
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if state, ok = i.state[sensorID]; ok {
		return state
	}
	state = &sensorState{}
	i.state[sensorID] = state
	return state
}

func pruneBefore(state *sensorState, cutoff time.Time) {
	keep := 0
	for keep < len(state.samples) && state.samples[keep].at.Before(cutoff) {
		keep++
	}
	if keep > 0 {
		state.samples = state.samples[keep:]
	}
}

// RollingStats returns min/max/avg per numeric field over the last
// hour of readings held in memory.
func (i *Ingest) RollingStats(sensorID string) map[string]types.FieldStats {
	i.mu.RLock()
	state, ok := i.state[sensorID]
	i.mu.RUnlock()
	if !ok {
		return nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	stats := map[string]types.FieldStats{}

	for _, sample := range state.samples {
		for field, value := range sample.fields {
			fs, seen := stats[field]
			if !seen {
				fs = types.FieldStats{Min: value, Max: value}
			}
			if value < fs.Min {
				fs.Min = value
			}
			if value > fs.Max {
				fs.Max = value
			}
			fs.Avg += value
			fs.Count++
			stats[field] = fs
		}
	}

	for field, fs := range stats {
		fs.Avg /= float64(fs.Count)
		stats[field] = fs
	}

	return stats
}

// LastSeen reports the in-memory liveness of a sensor.
func (i *Ingest) LastSeen(sensorID string) (time.Time, bool) {
	i.mu.RLock()
	state, ok := i.state[sensorID]
	i.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return state.lastSeen, state.online
}

// MarkOffline flips the in-memory flag; the liveness sweeper calls it
// when a sensor goes quiet.
func (i *Ingest) MarkOffline(sensorID string) {
	i.mu.RLock()
	state, ok := i.state[sensorID]
	i.mu.RUnlock()
	if !ok {
		return
	}

	state.mu.Lock()
	state.online = false
	state.mu.Unlock()
}
