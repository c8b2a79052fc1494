package types

import "time"

type ConditionKind string

const (
	ConditionAnd    ConditionKind = "and"
	ConditionOr     ConditionKind = "or"
	ConditionNot    ConditionKind = "not"
	ConditionSensor ConditionKind = "sensor"
	ConditionTime   ConditionKind = "time"
	ConditionDevice ConditionKind = "device"
)

type Operator string

const (
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpEqual          Operator = "="
	OpGreaterOrEqual Operator = ">="
	OpGreaterThan    Operator = ">"
	OpNotEqual       Operator = "!="
)

// Condition is one node of a rule's condition tree, persisted as
// tagged JSON. Kind selects which of the field groups applies:
// and/or/not use Conditions, sensor uses SensorID..MaxAgeSeconds,
// time uses Start/End, device uses DeviceID/StateEquals.
type Condition struct {
	Kind ConditionKind `json:"type"`

	Conditions []Condition `json:"conditions,omitempty"`

	SensorID      string   `json:"sensorId,omitzero"`
	Field         string   `json:"field,omitzero"`
	Operator      Operator `json:"operator,omitzero"`
	Value         float64  `json:"value,omitzero"`
	MaxAgeSeconds int      `json:"maxAgeSeconds,omitzero"`

	// Start and End are HH:MM in the configured timezone. Wrap-around
	// windows (start > end) are allowed.
	Start string `json:"start,omitzero"`
	End   string `json:"end,omitzero"`

	DeviceID    string       `json:"deviceId,omitzero"`
	StateEquals DeviceStatus `json:"stateEquals,omitzero"`
	// Optimistic lets a device leaf read the optimistic status instead
	// of the broker-confirmed one.
	Optimistic bool `json:"optimistic,omitzero"`
}

type ActionKind string

const (
	ActionDeviceControl ActionKind = "device_control"
	ActionNotification  ActionKind = "notification"
	ActionRuleDisable   ActionKind = "rule_disable"
	ActionWebhook       ActionKind = "webhook"
)

type ControlVerb string

const (
	VerbTurnOn  ControlVerb = "TURN_ON"
	VerbTurnOff ControlVerb = "TURN_OFF"
	VerbToggle  ControlVerb = "TOGGLE"
	VerbSet     ControlVerb = "SET"
)

// Action is one tagged variant of a rule's ordered action list.
type Action struct {
	Kind ActionKind `json:"type"`

	DeviceID        string      `json:"deviceId,omitzero"`
	Verb            ControlVerb `json:"verb,omitzero"`
	Value           *float64    `json:"value,omitempty"`
	DurationSeconds int         `json:"durationSeconds,omitzero"`

	TemplateID string            `json:"templateId,omitzero"`
	Title      string            `json:"title,omitzero"`
	Body       string            `json:"bodyTemplate,omitzero"`
	Severity   Severity          `json:"severity,omitzero"`
	Channels   []Channel         `json:"channels,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`

	URL             string `json:"url,omitzero"`
	PayloadTemplate string `json:"payloadTemplate,omitzero"`
}

type Rule struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description,omitzero"`
	Enabled              bool      `json:"enabled"`
	Priority             int       `json:"priority"`
	CooldownSeconds      int       `json:"cooldownSeconds"`
	MaxExecutionsPerHour int       `json:"maxExecutionsPerHour,omitzero"`
	Conditions           Condition `json:"conditions"`
	Actions              []Action  `json:"actions"`
	LastTriggeredAt      time.Time `json:"lastTriggeredAt,omitzero"`
	TriggerCount         uint64    `json:"triggerCount"`
	CreatedBy            string    `json:"createdBy,omitzero"`
	CreatedAt            time.Time `json:"createdAt,omitzero"`
}

// ActionOutcome records the result of a single executed action.
type ActionOutcome struct {
	Kind      ActionKind `json:"type"`
	Target    string     `json:"target,omitzero"`
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitzero"`
	ElapsedMs int64      `json:"elapsedMs"`
}

// RuleExecution is one row of the append-only rule audit trail.
type RuleExecution struct {
	ID              string          `json:"id"`
	RuleID          string          `json:"ruleId"`
	TriggeredAt     time.Time       `json:"triggeredAt"`
	Success         bool            `json:"success"`
	ElapsedMs       int64           `json:"elapsedMs"`
	TriggerData     map[string]any  `json:"triggerData,omitempty"`
	ActionsExecuted []ActionOutcome `json:"actionsExecuted,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitzero"`
}
