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

func deviceDataColumn(device types.Device) string {
	data, _ := json.Marshal(device)

	var m map[string]any
	json.Unmarshal(data, &m)

	delete(m, "id")
	delete(m, "hardwareId")
	delete(m, "kind")
	delete(m, "mqttCommandTopic")
	delete(m, "mqttStatusTopic")
	delete(m, "status")
	delete(m, "notificationsEnabled")
	delete(m, "ownerId")
	delete(m, "active")
	delete(m, "lastSeen")
	delete(m, "lastConfirmedAt")
	delete(m, "createdAt")

	data, _ = json.Marshal(m)
	return string(data)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Storage) AddDevice(ctx context.Context, device types.Device) error {
	args := pgx.NamedArgs{
		"device_id":     device.ID,
		"hardware_id":   device.HardwareID,
		"kind":          string(device.Kind),
		"command_topic": device.MQTTCommandTopic,
		"status_topic":  nullable(device.MQTTStatusTopic),
		"status":        string(device.Status),
		"notifications": device.NotificationsEnabled,
		"owner_id":      nullable(device.OwnerID),
		"active":        device.Active,
		"data":          deviceDataColumn(device),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO devices (device_id, hardware_id, kind, command_topic, status_topic, status, notifications, owner_id, active, data)
		VALUES (@device_id, @hardware_id, @kind, @command_topic, @status_topic, @status, @notifications, @owner_id, @active, @data)
	`, args)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}

	return nil
}

func (s *Storage) UpdateDevice(ctx context.Context, device types.Device) error {
	args := pgx.NamedArgs{
		"device_id":     device.ID,
		"kind":          string(device.Kind),
		"command_topic": device.MQTTCommandTopic,
		"status_topic":  nullable(device.MQTTStatusTopic),
		"notifications": device.NotificationsEnabled,
		"owner_id":      nullable(device.OwnerID),
		"active":        device.Active,
		"data":          deviceDataColumn(device),
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE devices
		SET kind = @kind, command_topic = @command_topic, status_topic = @status_topic,
		    notifications = @notifications, owner_id = @owner_id, active = @active,
		    data = @data, modified_on = CURRENT_TIMESTAMP
		WHERE device_id = @device_id AND deleted = FALSE
	`, args)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

func (s *Storage) DeleteDevice(ctx context.Context, deviceID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE devices
		SET deleted = TRUE, deleted_on = CURRENT_TIMESTAMP, active = FALSE
		WHERE device_id = $1 AND deleted = FALSE
	`, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

// SetDeviceStatus persists a status transition. Authoritative
// transitions also stamp last_confirmed and last_seen.
func (s *Storage) SetDeviceStatus(ctx context.Context, deviceID string, status types.DeviceStatus, authoritative bool, observedAt time.Time) error {
	args := pgx.NamedArgs{
		"device_id":   deviceID,
		"status":      string(status),
		"observed_at": observedAt.UTC(),
	}

	set := "status = @status, modified_on = CURRENT_TIMESTAMP"
	if authoritative {
		set += ", last_confirmed = @observed_at, last_seen = @observed_at"
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE devices SET %s WHERE device_id = @device_id AND deleted = FALSE
	`, set), args)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

func (s *Storage) GetDevice(ctx context.Context, conditions ...ConditionFunc) (types.Device, error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	query := fmt.Sprintf(`
		SELECT device_id, hardware_id, kind, command_topic, status_topic, status, notifications, owner_id, active, last_seen, last_confirmed, data, created_on
		FROM devices
		WHERE %s AND deleted = FALSE
	`, condition.Where(""))

	device, err := scanDevice(s.pool.QueryRow(ctx, query, args))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Device{}, ErrNoRows
		}
		return types.Device{}, err
	}

	return device, nil
}

func (s *Storage) QueryDevices(ctx context.Context, conditions ...ConditionFunc) (types.Collection[types.Device], error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	offsetLimit, offset, limit := condition.OffsetLimit(100)
	args["_offset"] = offset
	args["_limit"] = limit

	query := fmt.Sprintf(`
		SELECT device_id, hardware_id, kind, command_topic, status_topic, status, notifications, owner_id, active, last_seen, last_confirmed, data, created_on, count(*) OVER () AS total
		FROM devices
		WHERE %s AND deleted = FALSE
		%s%s
	`, condition.Where(""), condition.OrderBy("created_on"), offsetLimit)

	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return types.Collection[types.Device]{}, err
	}
	defer rows.Close()

	devices := make([]types.Device, 0)
	var total uint64

	for rows.Next() {
		device, err := scanDeviceRow(rows, &total)
		if err != nil {
			return types.Collection[types.Device]{}, err
		}
		devices = append(devices, device)
	}

	return types.Collection[types.Device]{
		Data:       devices,
		Count:      uint64(len(devices)),
		Offset:     uint64(offset),
		Limit:      uint64(limit),
		TotalCount: total,
	}, nil
}

func scanDevice(row pgx.Row) (types.Device, error) {
	var device types.Device
	var kind, status string
	var statusTopic, ownerID *string
	var lastSeen, lastConfirmed *time.Time
	var data json.RawMessage

	err := row.Scan(&device.ID, &device.HardwareID, &kind, &device.MQTTCommandTopic,
		&statusTopic, &status, &device.NotificationsEnabled, &ownerID, &device.Active,
		&lastSeen, &lastConfirmed, &data, &device.CreatedAt)
	if err != nil {
		return types.Device{}, err
	}

	err = json.Unmarshal(data, &device)
	if err != nil {
		return types.Device{}, err
	}

	device.Kind = types.DeviceKind(kind)
	device.Status = types.DeviceStatus(status)
	if statusTopic != nil {
		device.MQTTStatusTopic = *statusTopic
	}
	if ownerID != nil {
		device.OwnerID = *ownerID
	}
	if lastSeen != nil {
		device.LastSeen = *lastSeen
	}
	if lastConfirmed != nil {
		device.LastConfirmedAt = *lastConfirmed
	}

	return device, nil
}

func scanDeviceRow(rows pgx.Rows, total *uint64) (types.Device, error) {
	var device types.Device
	var kind, status string
	var statusTopic, ownerID *string
	var lastSeen, lastConfirmed *time.Time
	var data json.RawMessage

	err := rows.Scan(&device.ID, &device.HardwareID, &kind, &device.MQTTCommandTopic,
		&statusTopic, &status, &device.NotificationsEnabled, &ownerID, &device.Active,
		&lastSeen, &lastConfirmed, &data, &device.CreatedAt, total)
	if err != nil {
		return types.Device{}, err
	}

	err = json.Unmarshal(data, &device)
	if err != nil {
		return types.Device{}, err
	}

	device.Kind = types.DeviceKind(kind)
	device.Status = types.DeviceStatus(status)
	if statusTopic != nil {
		device.MQTTStatusTopic = *statusTopic
	}
	if ownerID != nil {
		device.OwnerID = *ownerID
	}
	if lastSeen != nil {
		device.LastSeen = *lastSeen
	}
	if lastConfirmed != nil {
		device.LastConfirmedAt = *lastConfirmed
	}

	return device, nil
}

func (s *Storage) AddDeviceEvent(ctx context.Context, event types.DeviceEvent) error {
	args := pgx.NamedArgs{
		"event_id":       event.ID,
		"device_id":      event.DeviceID,
		"request_id":     nullable(event.RequestID),
		"rule_id":        nullable(event.RuleID),
		"previous_value": string(event.PreviousValue),
		"new_value":      string(event.NewValue),
		"authoritative":  event.Authoritative,
		"observed_at":    event.ObservedAt.UTC(),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO device_events (event_id, device_id, request_id, rule_id, previous_value, new_value, authoritative, observed_at)
		VALUES (@event_id, @device_id, @request_id, @rule_id, @previous_value, @new_value, @authoritative, @observed_at)
	`, args)

	return err
}

func (s *Storage) QueryDeviceEvents(ctx context.Context, conditions ...ConditionFunc) (types.Collection[types.DeviceEvent], error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	offsetLimit, offset, limit := condition.OffsetLimit(100)
	args["_offset"] = offset
	args["_limit"] = limit

	query := fmt.Sprintf(`
		SELECT event_id, device_id, request_id, rule_id, previous_value, new_value, authoritative, observed_at, count(*) OVER () AS total
		FROM device_events
		WHERE %s
		%s%s
	`, condition.Where("observed_at"), condition.OrderBy("observed_at"), offsetLimit)

	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return types.Collection[types.DeviceEvent]{}, err
	}
	defer rows.Close()

	events := make([]types.DeviceEvent, 0)
	var total uint64

	for rows.Next() {
		var event types.DeviceEvent
		var requestID, ruleID *string
		var previous, next string

		err := rows.Scan(&event.ID, &event.DeviceID, &requestID, &ruleID, &previous, &next, &event.Authoritative, &event.ObservedAt, &total)
		if err != nil {
			return types.Collection[types.DeviceEvent]{}, err
		}

		event.PreviousValue = types.DeviceStatus(previous)
		event.NewValue = types.DeviceStatus(next)
		if requestID != nil {
			event.RequestID = *requestID
		}
		if ruleID != nil {
			event.RuleID = *ruleID
		}

		events = append(events, event)
	}

	return types.Collection[types.DeviceEvent]{
		Data:       events,
		Count:      uint64(len(events)),
		Offset:     uint64(offset),
		Limit:      uint64(limit),
		TotalCount: total,
	}, nil
}
