package types

import (
	"encoding/json"
	"time"
)

type SensorKind string

const (
	SensorKindTemHum       SensorKind = "TEMHUM"
	SensorKindWaterQuality SensorKind = "WATER_QUALITY"
	SensorKindLight        SensorKind = "LIGHT"
	SensorKindTempPressure SensorKind = "TEMP_PRESSURE"
	SensorKindSoilMoisture SensorKind = "SOIL_MOISTURE"
	SensorKindCO2          SensorKind = "CO2"
	SensorKindMotion       SensorKind = "MOTION"
	SensorKindPower        SensorKind = "POWER"
	SensorKindCustom       SensorKind = "CUSTOM"
)

var SensorKinds = []SensorKind{
	SensorKindTemHum, SensorKindWaterQuality, SensorKindLight,
	SensorKindTempPressure, SensorKindSoilMoisture, SensorKindCO2,
	SensorKindMotion, SensorKindPower, SensorKindCustom,
}

type DeviceKind string

const (
	DeviceKindWaterPump      DeviceKind = "WATER_PUMP"
	DeviceKindVentilator     DeviceKind = "VENTILATOR"
	DeviceKindHeater         DeviceKind = "HEATER"
	DeviceKindWaterHeater    DeviceKind = "WATER_HEATER"
	DeviceKindLights         DeviceKind = "LIGHTS"
	DeviceKindValve          DeviceKind = "VALVE"
	DeviceKindRelay          DeviceKind = "RELAY"
	DeviceKindMotor          DeviceKind = "MOTOR"
	DeviceKindSensorActuator DeviceKind = "SENSOR_ACTUATOR"
)

type DeviceStatus string

const (
	DeviceOn          DeviceStatus = "ON"
	DeviceOff         DeviceStatus = "OFF"
	DeviceOffline     DeviceStatus = "OFFLINE"
	DeviceError       DeviceStatus = "ERROR"
	DeviceMaintenance DeviceStatus = "MAINTENANCE"
)

type Quality string

const (
	QualityOK      Quality = "ok"
	QualityWarning Quality = "warning"
)

// Threshold bounds a numeric canonical field. Values outside the
// bounds are kept but flagged with Quality warning.
type Threshold struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

type SensorConfiguration struct {
	PayloadFields    []string             `json:"payloadFields,omitempty"`
	Thresholds       map[string]Threshold `json:"thresholds,omitempty"`
	SamplingInterval int                  `json:"samplingInterval,omitzero"`

	AutoDiscovered bool   `json:"auto_discovered,omitzero"`
	DetectedKind   string `json:"detectedKind,omitzero"`
	CanonicalKind  string `json:"canonicalKind,omitzero"`
	DiscoveredFrom string `json:"discoveredFrom,omitzero"`
}

// FieldStats is a min/max/avg window over one numeric canonical field.
type FieldStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

type Sensor struct {
	ID            string                `json:"id"`
	HardwareID    string                `json:"hardwareId"`
	Name          string                `json:"name"`
	Kind          SensorKind            `json:"kind"`
	MQTTTopic     string                `json:"mqttTopic"`
	Location      string                `json:"location,omitzero"`
	Configuration SensorConfiguration   `json:"configuration"`
	Active        bool                  `json:"active"`
	Online        bool                  `json:"online"`
	LastSeen      time.Time             `json:"lastSeen,omitzero"`
	Statistics    map[string]FieldStats `json:"statistics,omitempty"`
	CreatedAt     time.Time             `json:"createdAt,omitzero"`
}

// Reading is an append-only telemetry sample. Normalized holds the
// canonical fields for the sensor's kind, Raw the payload as received.
type Reading struct {
	ID         string          `json:"id"`
	SensorID   string          `json:"sensorId"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Quality    Quality         `json:"quality"`
	Normalized map[string]any  `json:"normalized"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

type DeviceConfiguration struct {
	AutoDiscovered bool   `json:"auto_discovered,omitzero"`
	DetectedKind   string `json:"detectedKind,omitzero"`
	CanonicalKind  string `json:"canonicalKind,omitzero"`
	DiscoveredFrom string `json:"discoveredFrom,omitzero"`

	// LegacyCommandField carries the device specific boolean switch
	// field (bombaSw, ventiladorSw, ...) for devices created from a
	// legacy topic. Outbound commands include it as an alias.
	LegacyCommandField string `json:"legacyCommandField,omitzero"`
}

type Device struct {
	ID                   string              `json:"id"`
	HardwareID           string              `json:"hardwareId"`
	Name                 string              `json:"name"`
	Kind                 DeviceKind          `json:"kind"`
	MQTTCommandTopic     string              `json:"mqttCommandTopic"`
	MQTTStatusTopic      string              `json:"mqttStatusTopic,omitzero"`
	Status               DeviceStatus        `json:"status"`
	LastConfirmedAt      time.Time           `json:"lastConfirmedAt,omitzero"`
	NotificationsEnabled bool                `json:"notificationsEnabled"`
	Configuration        DeviceConfiguration `json:"configuration"`
	OwnerID              string              `json:"ownerId,omitzero"`
	Active               bool                `json:"active"`
	LastSeen             time.Time           `json:"lastSeen,omitzero"`
	CreatedAt            time.Time           `json:"createdAt,omitzero"`
}

// DeviceEvent is one row of the per-device actuation audit trail.
type DeviceEvent struct {
	ID            string       `json:"id"`
	DeviceID      string       `json:"deviceId"`
	RequestID     string       `json:"requestId,omitzero"`
	RuleID        string       `json:"ruleId,omitzero"`
	PreviousValue DeviceStatus `json:"previousValue"`
	NewValue      DeviceStatus `json:"newValue"`
	Authoritative bool         `json:"authoritative"`
	ObservedAt    time.Time    `json:"observedAt"`
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Channel string

const (
	ChannelWebhook  Channel = "WEBHOOK"
	ChannelEmail    Channel = "EMAIL"
	ChannelTelegram Channel = "TELEGRAM"
	ChannelPush     Channel = "PUSH"
)

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

type Notification struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Body            string         `json:"body"`
	Kind            string         `json:"kind,omitzero"`
	Severity        Severity       `json:"severity"`
	Channel         Channel        `json:"channel"`
	RecipientUserID string         `json:"recipientUserId,omitzero"`
	Source          string         `json:"source,omitzero"`
	DeliveryStatus  DeliveryStatus `json:"deliveryStatus"`
	IsRead          bool           `json:"isRead"`
	CreatedAt       time.Time      `json:"createdAt,omitzero"`
	ReadAt          time.Time      `json:"readAt,omitzero"`
	DeliveredAt     time.Time      `json:"deliveredAt,omitzero"`
	TemplateID      string         `json:"templateId,omitzero"`
}

type TemplateVariable struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

type NotificationTemplate struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Kind              string             `json:"kind,omitzero"`
	TitleTemplate     string             `json:"titleTemplate"`
	BodyTemplate      string             `json:"bodyTemplate"`
	SupportedChannels []Channel          `json:"supportedChannels,omitempty"`
	Variables         []TemplateVariable `json:"variables,omitempty"`
}

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEditor   Role = "editor"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
}

type TopicStatus string

const (
	TopicAnalyzing   TopicStatus = "analyzing"
	TopicAutoCreated TopicStatus = "auto_created"
	TopicRejected    TopicStatus = "rejected"
)

// UnknownTopic is the in-memory discovery record for a topic that
// matches neither a sensor nor a device.
type UnknownTopic struct {
	Topic        string            `json:"topic"`
	FirstSeen    time.Time         `json:"firstSeen"`
	Samples      []json.RawMessage `json:"samples,omitempty"`
	MessageCount int               `json:"messageCount"`
	LastSample   json.RawMessage   `json:"lastSample,omitempty"`
	SensorScore  int               `json:"sensorScore"`
	DeviceScore  int               `json:"deviceScore"`
	Status       TopicStatus       `json:"status"`
}

type Collection[T any] struct {
	Data       []T
	Count      uint64
	Offset     uint64
	Limit      uint64
	TotalCount uint64
}
