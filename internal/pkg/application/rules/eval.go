package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

// snapshot caches the entities one evaluation pass touches, so a rule
// sees a consistent view and nothing is fetched twice. The values the
// decision was based on end up in data, the audit trail carries them.
type snapshot struct {
	now      time.Time
	readings map[string]types.Reading
	devices  map[string]types.Device
	data     map[string]any
}

func (e *Engine) newSnapshot(now time.Time) *snapshot {
	return &snapshot{
		now:      now,
		readings: map[string]types.Reading{},
		devices:  map[string]types.Device{},
		data:     map[string]any{},
	}
}

func (snap *snapshot) reading(ctx context.Context, e *Engine, sensorID string) (types.Reading, error) {
	if reading, ok := snap.readings[sensorID]; ok {
		return reading, nil
	}

	sensor, err := e.entities.GetSensor(ctx, sensorID)
	if err != nil {
		return types.Reading{}, err
	}

	reading, err := e.readings.GetLatestReading(ctx, sensor.Kind, sensorID)
	if err != nil {
		return types.Reading{}, err
	}

	snap.readings[sensorID] = reading
	return reading, nil
}

func (snap *snapshot) device(ctx context.Context, e *Engine, deviceID string) (types.Device, error) {
	if device, ok := snap.devices[deviceID]; ok {
		return device, nil
	}

	device, err := e.entities.GetDevice(ctx, deviceID)
	if err != nil {
		return types.Device{}, err
	}

	snap.devices[deviceID] = device
	return device, nil
}

// evaluate walks the condition tree. Anything that cannot be resolved
// (missing sensor, missing field, stale reading) makes its leaf false
// rather than failing the pass.
func (e *Engine) evaluate(ctx context.Context, cond types.Condition, snap *snapshot) bool {
	log := logging.GetFromContext(ctx)

	switch cond.Kind {
	case types.ConditionAnd:
		for _, child := range cond.Conditions {
			if !e.evaluate(ctx, child, snap) {
				return false
			}
		}
		return true

	case types.ConditionOr:
		for _, child := range cond.Conditions {
			if e.evaluate(ctx, child, snap) {
				return true
			}
		}
		return false

	case types.ConditionNot:
		if len(cond.Conditions) == 0 {
			log.Warn("not condition without operand")
			return false
		}
		return !e.evaluate(ctx, cond.Conditions[0], snap)

	case types.ConditionSensor:
		return e.evaluateSensor(ctx, cond, snap)

	case types.ConditionTime:
		return inTimeWindow(cond.Start, cond.End, snap.now.In(e.location))

	case types.ConditionDevice:
		return e.evaluateDevice(ctx, cond, snap)
	}

	log.Warn("unknown condition kind", "kind", string(cond.Kind))
	return false
}

func (e *Engine) evaluateSensor(ctx context.Context, cond types.Condition, snap *snapshot) bool {
	log := logging.GetFromContext(ctx)

	reading, err := snap.reading(ctx, e, cond.SensorID)
	if err != nil {
		log.Warn("sensor condition could not be resolved", "sensor_id", cond.SensorID, "err", err.Error())
		return false
	}

	if cond.MaxAgeSeconds > 0 {
		if snap.now.Sub(reading.ReceivedAt) > time.Duration(cond.MaxAgeSeconds)*time.Second {
			log.Warn("sensor reading is stale", "sensor_id", cond.SensorID, "received_at", reading.ReceivedAt.Format(time.RFC3339))
			return false
		}
	}

	raw, ok := reading.Normalized[cond.Field]
	if !ok {
		log.Warn("sensor reading lacks field", "sensor_id", cond.SensorID, "field", cond.Field)
		return false
	}
	value, ok := raw.(float64)
	if !ok {
		return false
	}

	snap.data[fmt.Sprintf("%s.%s", cond.SensorID, cond.Field)] = value

	return compare(value, cond.Operator, cond.Value)
}

func (e *Engine) evaluateDevice(ctx context.Context, cond types.Condition, snap *snapshot) bool {
	log := logging.GetFromContext(ctx)

	device, err := snap.device(ctx, e, cond.DeviceID)
	if err != nil {
		log.Warn("device condition could not be resolved", "device_id", cond.DeviceID, "err", err.Error())
		return false
	}

	// a device that was never confirmed only matches optimistic leaves
	if !cond.Optimistic && device.LastConfirmedAt.IsZero() {
		return false
	}

	snap.data[cond.DeviceID] = string(device.Status)

	return device.Status == cond.StateEquals
}

func compare(value float64, op types.Operator, against float64) bool {
	switch op {
	case types.OpLessThan:
		return value < against
	case types.OpLessOrEqual:
		return value <= against
	case types.OpEqual:
		return value == against
	case types.OpGreaterOrEqual:
		return value >= against
	case types.OpGreaterThan:
		return value > against
	case types.OpNotEqual:
		return value != against
	}
	return false
}

// inTimeWindow checks HH:MM bounds against the local clock. Windows
// where start is after end wrap past midnight.
func inTimeWindow(start, end string, now time.Time) bool {
	from, err := minutesOfDay(start)
	if err != nil {
		return false
	}
	to, err := minutesOfDay(end)
	if err != nil {
		return false
	}

	current := now.Hour()*60 + now.Minute()

	if from <= to {
		return current >= from && current < to
	}
	return current >= from || current < to
}

func minutesOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
