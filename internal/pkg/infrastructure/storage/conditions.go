package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

type ConditionFunc func(*Condition) *Condition

// Condition collects the filters a query supports. Each entity query
// only reads the fields that make sense for its table; the generated
// WHERE fragments use the canonical column names shared by all tables.
type Condition struct {
	SensorID       string
	DeviceID       string
	HardwareID     string
	Topic          string
	UserID         string
	Username       string
	RuleID         string
	NotificationID string
	TemplateID     string
	RecipientID    string

	Active         *bool
	Online         *bool
	Enabled        *bool
	IsRead         *bool
	Kind           string
	Status         string
	Severity       string
	Channel        string
	DeliveryStatus string

	From time.Time
	To   time.Time

	IncludeDeleted bool

	sortBy   string
	sortDesc bool

	offset *int
	limit  *int
}

func (c Condition) NamedArgs() pgx.NamedArgs {
	args := pgx.NamedArgs{}

	if c.SensorID != "" {
		args["sensor_id"] = c.SensorID
	}
	if c.DeviceID != "" {
		args["device_id"] = c.DeviceID
	}
	if c.HardwareID != "" {
		args["hardware_id"] = c.HardwareID
	}
	if c.Topic != "" {
		args["topic"] = c.Topic
	}
	if c.UserID != "" {
		args["user_id"] = c.UserID
	}
	if c.Username != "" {
		args["username"] = strings.ToLower(c.Username)
	}
	if c.RuleID != "" {
		args["rule_id"] = c.RuleID
	}
	if c.NotificationID != "" {
		args["notification_id"] = c.NotificationID
	}
	if c.TemplateID != "" {
		args["template_id"] = c.TemplateID
	}
	if c.RecipientID != "" {
		args["recipient_id"] = c.RecipientID
	}
	if c.Active != nil {
		args["active"] = *c.Active
	}
	if c.Online != nil {
		args["online"] = *c.Online
	}
	if c.Enabled != nil {
		args["enabled"] = *c.Enabled
	}
	if c.IsRead != nil {
		args["is_read"] = *c.IsRead
	}
	if c.Kind != "" {
		args["kind"] = c.Kind
	}
	if c.Status != "" {
		args["status"] = c.Status
	}
	if c.Severity != "" {
		args["severity"] = c.Severity
	}
	if c.Channel != "" {
		args["channel"] = c.Channel
	}
	if c.DeliveryStatus != "" {
		args["delivery_status"] = c.DeliveryStatus
	}
	if !c.From.IsZero() {
		args["from"] = c.From.UTC()
	}
	if !c.To.IsZero() {
		args["to"] = c.To.UTC()
	}
	if c.offset != nil {
		args["offset"] = *c.offset
	}
	if c.limit != nil {
		args["limit"] = *c.limit
	}

	return args
}

// Where assembles the shared filter fragments. timeColumn names the
// column From/To compare against (empty disables the range).
func (c Condition) Where(timeColumn string) string {
	where := []string{}

	if c.SensorID != "" {
		where = append(where, "sensor_id = @sensor_id")
	}
	if c.DeviceID != "" {
		where = append(where, "device_id = @device_id")
	}
	if c.HardwareID != "" {
		where = append(where, "hardware_id = @hardware_id")
	}
	if c.Topic != "" {
		where = append(where, "topic = @topic")
	}
	if c.UserID != "" {
		where = append(where, "user_id = @user_id")
	}
	if c.Username != "" {
		where = append(where, "LOWER(username) = @username")
	}
	if c.RuleID != "" {
		where = append(where, "rule_id = @rule_id")
	}
	if c.NotificationID != "" {
		where = append(where, "notification_id = @notification_id")
	}
	if c.TemplateID != "" {
		where = append(where, "template_id = @template_id")
	}
	if c.RecipientID != "" {
		where = append(where, "recipient_id = @recipient_id")
	}
	if c.Active != nil {
		where = append(where, "active = @active")
	}
	if c.Online != nil {
		where = append(where, "online = @online")
	}
	if c.Enabled != nil {
		where = append(where, "enabled = @enabled")
	}
	if c.IsRead != nil {
		where = append(where, "is_read = @is_read")
	}
	if c.Kind != "" {
		where = append(where, "kind = @kind")
	}
	if c.Status != "" {
		where = append(where, "status = @status")
	}
	if c.Severity != "" {
		where = append(where, "severity = @severity")
	}
	if c.Channel != "" {
		where = append(where, "channel = @channel")
	}
	if c.DeliveryStatus != "" {
		where = append(where, "delivery_status = @delivery_status")
	}
	if timeColumn != "" {
		if !c.From.IsZero() {
			where = append(where, fmt.Sprintf("%s >= @from", timeColumn))
		}
		if !c.To.IsZero() {
			where = append(where, fmt.Sprintf("%s < @to", timeColumn))
		}
	}

	if len(where) == 0 {
		return "TRUE"
	}

	return strings.Join(where, " AND ")
}

func (c Condition) OrderBy(def string) string {
	if c.sortBy == "" {
		if def == "" {
			return ""
		}
		// defaults may carry their own direction(s)
		if strings.Contains(def, " ") {
			return fmt.Sprintf("ORDER BY %s ", def)
		}

		order := "ASC"
		if c.sortDesc {
			order = "DESC"
		}
		return fmt.Sprintf("ORDER BY %s %s ", def, order)
	}

	order := "ASC"
	if c.sortDesc {
		order = "DESC"
	}

	return fmt.Sprintf("ORDER BY %s %s ", c.sortBy, order)
}

func (c Condition) OffsetLimit(defaultLimit int) (string, int, int) {
	offset := 0
	limit := defaultLimit

	if c.offset != nil {
		offset = *c.offset
	}
	if c.limit != nil {
		limit = *c.limit
	}

	return "OFFSET @_offset LIMIT @_limit", offset, limit
}

func WithSensorID(id string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.SensorID = id
		return c
	}
}

func WithDeviceID(id string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.DeviceID = id
		return c
	}
}

func WithHardwareID(id string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.HardwareID = id
		return c
	}
}

func WithTopic(topic string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Topic = topic
		return c
	}
}

func WithUserID(id string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.UserID = id
		return c
	}
}

func WithUsername(username string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Username = username
		return c
	}
}

func WithRuleID(id string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.RuleID = id
		return c
	}
}

func WithNotificationID(id string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.NotificationID = id
		return c
	}
}

func WithTemplateID(id string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.TemplateID = id
		return c
	}
}

func WithRecipientID(id string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.RecipientID = id
		return c
	}
}

func WithActive(active bool) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Active = &active
		return c
	}
}

func WithOnline(online bool) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Online = &online
		return c
	}
}

func WithEnabled(enabled bool) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Enabled = &enabled
		return c
	}
}

func WithIsRead(isRead bool) ConditionFunc {
	return func(c *Condition) *Condition {
		c.IsRead = &isRead
		return c
	}
}

func WithKind(kind string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Kind = kind
		return c
	}
}

func WithStatus(status string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Status = status
		return c
	}
}

func WithSeverity(severity string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Severity = severity
		return c
	}
}

func WithChannel(channel string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Channel = channel
		return c
	}
}

func WithDeliveryStatus(status string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.DeliveryStatus = status
		return c
	}
}

func WithFrom(t time.Time) ConditionFunc {
	return func(c *Condition) *Condition {
		c.From = t
		return c
	}
}

func WithTo(t time.Time) ConditionFunc {
	return func(c *Condition) *Condition {
		c.To = t
		return c
	}
}

func WithDeleted() ConditionFunc {
	return func(c *Condition) *Condition {
		c.IncludeDeleted = true
		return c
	}
}

func WithSortBy(sortBy string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.sortBy = sortBy
		return c
	}
}

func WithSortDesc(desc bool) ConditionFunc {
	return func(c *Condition) *Condition {
		c.sortDesc = desc
		return c
	}
}

func WithOffset(offset int) ConditionFunc {
	return func(c *Condition) *Condition {
		c.offset = &offset
		return c
	}
}

func WithLimit(limit int) ConditionFunc {
	return func(c *Condition) *Condition {
		c.limit = &limit
		return c
	}
}

func newCondition(conditions ...ConditionFunc) *Condition {
	c := &Condition{}
	for _, f := range conditions {
		f(c)
	}
	return c
}
