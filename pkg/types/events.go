package types

import (
	"encoding/json"
	"time"
)

// Bus topic names form a closed set. Every event below maps to
// exactly one of them via TopicName.
const (
	TopicTelemetryUpdated    = "telemetry.updated"
	TopicDeviceStateChanged  = "device.state.changed"
	TopicRuleTriggered       = "rule.triggered"
	TopicNotificationCreated = "notification.created"
	TopicNotificationUpdated = "notification.updated"
)

type TelemetryUpdated struct {
	SensorID   string         `json:"sensorId"`
	HardwareID string         `json:"hardwareId"`
	Kind       SensorKind     `json:"kind"`
	Fields     map[string]any `json:"fields"`
	Quality    Quality        `json:"quality"`
	ReceivedAt time.Time      `json:"receivedAt"`
}

func (t *TelemetryUpdated) ContentType() string {
	return "application/json"
}
func (t *TelemetryUpdated) TopicName() string {
	return TopicTelemetryUpdated
}
func (t *TelemetryUpdated) Body() []byte {
	b, _ := json.Marshal(t)
	return b
}

type DeviceStateChanged struct {
	DeviceID       string       `json:"deviceId"`
	HardwareID     string       `json:"hardwareId"`
	Kind           DeviceKind   `json:"kind"`
	PreviousStatus DeviceStatus `json:"previousStatus"`
	Status         DeviceStatus `json:"status"`
	Authoritative  bool         `json:"authoritative"`
	RequestID      string       `json:"requestId,omitzero"`
	ObservedAt     time.Time    `json:"observedAt"`
}

func (d *DeviceStateChanged) ContentType() string {
	return "application/json"
}
func (d *DeviceStateChanged) TopicName() string {
	return TopicDeviceStateChanged
}
func (d *DeviceStateChanged) Body() []byte {
	b, _ := json.Marshal(d)
	return b
}

type RuleTriggered struct {
	RuleID      string    `json:"ruleId"`
	ExecutionID string    `json:"executionId"`
	Success     bool      `json:"success"`
	TriggeredAt time.Time `json:"triggeredAt"`
}

func (r *RuleTriggered) ContentType() string {
	return "application/json"
}
func (r *RuleTriggered) TopicName() string {
	return TopicRuleTriggered
}
func (r *RuleTriggered) Body() []byte {
	b, _ := json.Marshal(r)
	return b
}

type NotificationCreated struct {
	Notification Notification `json:"notification"`
	Timestamp    time.Time    `json:"timestamp"`
}

func (n *NotificationCreated) ContentType() string {
	return "application/json"
}
func (n *NotificationCreated) TopicName() string {
	return TopicNotificationCreated
}
func (n *NotificationCreated) Body() []byte {
	b, _ := json.Marshal(n)
	return b
}

type NotificationUpdated struct {
	ID             string         `json:"id"`
	DeliveryStatus DeliveryStatus `json:"deliveryStatus"`
	IsRead         bool           `json:"isRead"`
	Timestamp      time.Time      `json:"timestamp"`
}

func (n *NotificationUpdated) ContentType() string {
	return "application/json"
}
func (n *NotificationUpdated) TopicName() string {
	return TopicNotificationUpdated
}
func (n *NotificationUpdated) Body() []byte {
	b, _ := json.Marshal(n)
	return b
}
