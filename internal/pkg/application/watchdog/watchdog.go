// Package watchdog sweeps the sensor registry and flips sensors that
// have gone quiet to offline.
package watchdog

import (
	"context"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/storage"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

const (
	sweepInterval      = 30 * time.Second
	minimumOfflineWait = 5 * time.Minute

	// no sensor is flipped offline this close after startup, the
	// ingest cache has not seen a full reporting cycle yet
	startupGrace = time.Minute
)

type Watchdog interface {
	Start(ctx context.Context)
	Stop()
}

// SensorRegistry is the slice of the device registry the sweeper reads.
type SensorRegistry interface {
	QuerySensors(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Sensor], error)
}

// LivenessStore persists the offline flag.
type LivenessStore interface {
	SetSensorLiveness(ctx context.Context, sensorID string, online bool, lastSeen time.Time) error
}

// LivenessCache is the in-memory view the ingestion pipeline keeps.
type LivenessCache interface {
	LastSeen(sensorID string) (time.Time, bool)
	MarkOffline(sensorID string)
}

type watchdog struct {
	registry    SensorRegistry
	store       LivenessStore
	cache       LivenessCache
	minimumWait time.Duration
	startedAt   time.Time
	done        chan struct{}
}

type Option func(*watchdog)

// WithOfflineAfter overrides the floor under the per-sensor offline
// wait.
func WithOfflineAfter(wait time.Duration) Option {
	return func(w *watchdog) {
		if wait > 0 {
			w.minimumWait = wait
		}
	}
}

func New(registry SensorRegistry, store LivenessStore, cache LivenessCache, opts ...Option) Watchdog {
	w := &watchdog{
		registry:    registry,
		store:       store,
		cache:       cache,
		minimumWait: minimumOfflineWait,
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

func (w *watchdog) Start(ctx context.Context) {
	w.startedAt = time.Now().UTC()
	go w.run(ctx)
}

func (w *watchdog) Stop() {
	close(w.done)
}

func (w *watchdog) run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *watchdog) sweep(ctx context.Context) {
	log := logging.GetFromContext(ctx)

	sensors, err := w.registry.QuerySensors(ctx, storage.WithActive(true), storage.WithLimit(1000))
	if err != nil {
		log.Error("liveness sweep could not list sensors", "err", err.Error())
		return
	}

	now := time.Now().UTC()
	if !w.startedAt.IsZero() && now.Sub(w.startedAt) < startupGrace {
		return
	}

	for _, sensor := range sensors.Data {
		lastSeen, online := w.cache.LastSeen(sensor.ID)
		if !online {
			// cold cache: fall back to what the store knows
			lastSeen, online = sensor.LastSeen, sensor.Online
		}
		if !online {
			continue
		}

		if now.Sub(lastSeen) < w.offlineAfter(sensor.Configuration.SamplingInterval) {
			continue
		}

		w.cache.MarkOffline(sensor.ID)
		err = w.store.SetSensorLiveness(ctx, sensor.ID, false, lastSeen)
		if err != nil {
			log.Error("could not mark sensor offline", "sensor_id", sensor.ID, "err", err.Error())
			continue
		}

		log.Info("sensor went offline", "sensor_id", sensor.ID, "last_seen", lastSeen.Format(time.RFC3339))
	}
}

// offlineAfter is five sampling intervals, but never less than the
// configured floor so slow senders are not flapped offline.
func (w *watchdog) offlineAfter(samplingIntervalSeconds int) time.Duration {
	wait := time.Duration(samplingIntervalSeconds) * 5 * time.Second
	if wait < w.minimumWait {
		wait = w.minimumWait
	}
	return wait
}
