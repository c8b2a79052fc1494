package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"github.com/jackc/pgx/v5"
)

func (s *Storage) AddSensor(ctx context.Context, sensor types.Sensor) error {
	data, _ := json.Marshal(sensor)

	var m map[string]any
	json.Unmarshal(data, &m)

	delete(m, "id")
	delete(m, "hardwareId")
	delete(m, "kind")
	delete(m, "mqttTopic")
	delete(m, "active")
	delete(m, "online")
	delete(m, "lastSeen")
	delete(m, "statistics")
	delete(m, "createdAt")

	data, _ = json.Marshal(m)

	args := pgx.NamedArgs{
		"sensor_id":   sensor.ID,
		"hardware_id": sensor.HardwareID,
		"kind":        string(sensor.Kind),
		"topic":       sensor.MQTTTopic,
		"active":      sensor.Active,
		"data":        string(data),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sensors (sensor_id, hardware_id, kind, topic, active, data)
		VALUES (@sensor_id, @hardware_id, @kind, @topic, @active, @data)
	`, args)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}

	return nil
}

func (s *Storage) UpdateSensor(ctx context.Context, sensor types.Sensor) error {
	data, _ := json.Marshal(sensor)

	var m map[string]any
	json.Unmarshal(data, &m)

	delete(m, "id")
	delete(m, "hardwareId")
	delete(m, "kind")
	delete(m, "mqttTopic")
	delete(m, "active")
	delete(m, "online")
	delete(m, "lastSeen")
	delete(m, "statistics")
	delete(m, "createdAt")

	data, _ = json.Marshal(m)

	args := pgx.NamedArgs{
		"sensor_id": sensor.ID,
		"kind":      string(sensor.Kind),
		"topic":     sensor.MQTTTopic,
		"active":    sensor.Active,
		"data":      string(data),
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE sensors
		SET kind = @kind, topic = @topic, active = @active, data = @data, modified_on = CURRENT_TIMESTAMP
		WHERE sensor_id = @sensor_id AND deleted = FALSE
	`, args)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

// DeleteSensor soft-deletes; the row survives for referential history
// but stops matching queries and topic resolution.
func (s *Storage) DeleteSensor(ctx context.Context, sensorID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sensors
		SET deleted = TRUE, deleted_on = CURRENT_TIMESTAMP, active = FALSE
		WHERE sensor_id = $1 AND deleted = FALSE
	`, sensorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

func (s *Storage) SetSensorLiveness(ctx context.Context, sensorID string, online bool, lastSeen time.Time) error {
	args := pgx.NamedArgs{
		"sensor_id": sensorID,
		"online":    online,
	}

	set := "online = @online"
	if !lastSeen.IsZero() {
		set += ", last_seen = @last_seen"
		args["last_seen"] = lastSeen.UTC()
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE sensors SET %s WHERE sensor_id = @sensor_id AND deleted = FALSE
	`, set), args)

	return err
}

func (s *Storage) GetSensor(ctx context.Context, conditions ...ConditionFunc) (types.Sensor, error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	deleted := "AND deleted = FALSE"
	if condition.IncludeDeleted {
		deleted = ""
	}

	query := fmt.Sprintf(`
		SELECT sensor_id, hardware_id, kind, topic, active, online, last_seen, data, created_on, deleted
		FROM sensors
		WHERE %s %s
	`, condition.Where(""), deleted)

	var sensor types.Sensor
	var lastSeen *time.Time
	var data json.RawMessage
	var rowDeleted bool
	var kind string

	err := s.pool.QueryRow(ctx, query, args).Scan(
		&sensor.ID, &sensor.HardwareID, &kind, &sensor.MQTTTopic,
		&sensor.Active, &sensor.Online, &lastSeen, &data, &sensor.CreatedAt, &rowDeleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Sensor{}, ErrNoRows
		}
		return types.Sensor{}, err
	}

	if rowDeleted {
		return types.Sensor{}, ErrDeleted
	}

	err = json.Unmarshal(data, &sensor)
	if err != nil {
		return types.Sensor{}, err
	}

	sensor.Kind = types.SensorKind(kind)
	if lastSeen != nil {
		sensor.LastSeen = *lastSeen
	}

	return sensor, nil
}

func (s *Storage) QuerySensors(ctx context.Context, conditions ...ConditionFunc) (types.Collection[types.Sensor], error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	offsetLimit, offset, limit := condition.OffsetLimit(100)
	args["_offset"] = offset
	args["_limit"] = limit

	query := fmt.Sprintf(`
		SELECT sensor_id, hardware_id, kind, topic, active, online, last_seen, data, created_on, count(*) OVER () AS total
		FROM sensors
		WHERE %s AND deleted = FALSE
		%s%s
	`, condition.Where(""), condition.OrderBy("created_on"), offsetLimit)

	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return types.Collection[types.Sensor]{}, err
	}
	defer rows.Close()

	sensors := make([]types.Sensor, 0)
	var total uint64

	for rows.Next() {
		var sensor types.Sensor
		var lastSeen *time.Time
		var data json.RawMessage
		var kind string

		err := rows.Scan(&sensor.ID, &sensor.HardwareID, &kind, &sensor.MQTTTopic,
			&sensor.Active, &sensor.Online, &lastSeen, &data, &sensor.CreatedAt, &total)
		if err != nil {
			return types.Collection[types.Sensor]{}, err
		}

		err = json.Unmarshal(data, &sensor)
		if err != nil {
			return types.Collection[types.Sensor]{}, err
		}

		sensor.Kind = types.SensorKind(kind)
		if lastSeen != nil {
			sensor.LastSeen = *lastSeen
		}

		sensors = append(sensors, sensor)
	}

	return types.Collection[types.Sensor]{
		Data:       sensors,
		Count:      uint64(len(sensors)),
		Offset:     uint64(offset),
		Limit:      uint64(limit),
		TotalCount: total,
	}, nil
}
