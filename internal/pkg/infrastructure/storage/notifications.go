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

func (s *Storage) AddNotification(ctx context.Context, n types.Notification) error {
	data, _ := json.Marshal(n)

	var m map[string]any
	json.Unmarshal(data, &m)

	delete(m, "id")
	delete(m, "recipientUserId")
	delete(m, "severity")
	delete(m, "channel")
	delete(m, "deliveryStatus")
	delete(m, "isRead")
	delete(m, "readAt")
	delete(m, "deliveredAt")
	delete(m, "templateId")
	delete(m, "createdAt")

	data, _ = json.Marshal(m)

	var recipient *string
	if n.RecipientUserID != "" {
		recipient = &n.RecipientUserID
	}

	args := pgx.NamedArgs{
		"notification_id": n.ID,
		"recipient_id":    recipient,
		"severity":        string(n.Severity),
		"channel":         string(n.Channel),
		"delivery_status": string(n.DeliveryStatus),
		"is_read":         n.IsRead,
		"template_id":     nullable(n.TemplateID),
		"data":            string(data),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (notification_id, recipient_id, severity, channel, delivery_status, is_read, template_id, data)
		VALUES (@notification_id, @recipient_id, @severity, @channel, @delivery_status, @is_read, @template_id, @data)
	`, args)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}

	return nil
}

func (s *Storage) GetNotification(ctx context.Context, conditions ...ConditionFunc) (types.Notification, error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	query := fmt.Sprintf(`
		SELECT notification_id, recipient_id, severity, channel, delivery_status, is_read, read_on, delivered_on, template_id, data, created_on
		FROM notifications
		WHERE %s
	`, condition.Where(""))

	n, err := scanNotification(s.pool.QueryRow(ctx, query, args))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Notification{}, ErrNoRows
		}
		return types.Notification{}, err
	}

	return n, nil
}

func (s *Storage) QueryNotifications(ctx context.Context, conditions ...ConditionFunc) (types.Collection[types.Notification], error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	offsetLimit, offset, limit := condition.OffsetLimit(100)
	args["_offset"] = offset
	args["_limit"] = limit

	query := fmt.Sprintf(`
		SELECT notification_id, recipient_id, severity, channel, delivery_status, is_read, read_on, delivered_on, template_id, data, created_on, count(*) OVER () AS total
		FROM notifications
		WHERE %s
		%s%s
	`, condition.Where("created_on"), condition.OrderBy("created_on DESC"), offsetLimit)

	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return types.Collection[types.Notification]{}, err
	}
	defer rows.Close()

	notifications := make([]types.Notification, 0)
	var total uint64

	for rows.Next() {
		var n types.Notification
		var recipientID, templateID *string
		var readOn, deliveredOn *time.Time
		var severity, channel, deliveryStatus string
		var data json.RawMessage

		err := rows.Scan(&n.ID, &recipientID, &severity, &channel, &deliveryStatus, &n.IsRead, &readOn, &deliveredOn, &templateID, &data, &n.CreatedAt, &total)
		if err != nil {
			return types.Collection[types.Notification]{}, err
		}

		err = json.Unmarshal(data, &n)
		if err != nil {
			return types.Collection[types.Notification]{}, err
		}

		n.Severity = types.Severity(severity)
		n.Channel = types.Channel(channel)
		n.DeliveryStatus = types.DeliveryStatus(deliveryStatus)
		if recipientID != nil {
			n.RecipientUserID = *recipientID
		}
		if templateID != nil {
			n.TemplateID = *templateID
		}
		if readOn != nil {
			n.ReadAt = *readOn
		}
		if deliveredOn != nil {
			n.DeliveredAt = *deliveredOn
		}

		notifications = append(notifications, n)
	}

	return types.Collection[types.Notification]{
		Data:       notifications,
		Count:      uint64(len(notifications)),
		Offset:     uint64(offset),
		Limit:      uint64(limit),
		TotalCount: total,
	}, nil
}

func scanNotification(row pgx.Row) (types.Notification, error) {
	var n types.Notification
	var recipientID, templateID *string
	var readOn, deliveredOn *time.Time
	var severity, channel, deliveryStatus string
	var data json.RawMessage

	err := row.Scan(&n.ID, &recipientID, &severity, &channel, &deliveryStatus, &n.IsRead, &readOn, &deliveredOn, &templateID, &data, &n.CreatedAt)
	if err != nil {
		return types.Notification{}, err
	}

	err = json.Unmarshal(data, &n)
	if err != nil {
		return types.Notification{}, err
	}

	n.Severity = types.Severity(severity)
	n.Channel = types.Channel(channel)
	n.DeliveryStatus = types.DeliveryStatus(deliveryStatus)
	if recipientID != nil {
		n.RecipientUserID = *recipientID
	}
	if templateID != nil {
		n.TemplateID = *templateID
	}
	if readOn != nil {
		n.ReadAt = *readOn
	}
	if deliveredOn != nil {
		n.DeliveredAt = *deliveredOn
	}

	return n, nil
}

func (s *Storage) SetNotificationDeliveryStatus(ctx context.Context, notificationID string, status types.DeliveryStatus) error {
	set := "delivery_status = $2"
	if status == types.DeliveryDelivered {
		set += ", delivered_on = CURRENT_TIMESTAMP"
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE notifications SET %s WHERE notification_id = $1
	`, set), notificationID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

// MarkNotificationRead reports whether the call actually flipped the
// flag, so callers can make repeated marks idempotent without a
// read-modify-write round trip.
func (s *Storage) MarkNotificationRead(ctx context.Context, notificationID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_on = CURRENT_TIMESTAMP
		WHERE notification_id = $1 AND is_read = FALSE
	`, notificationID)
	if err != nil {
		return false, err
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		err = s.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM notifications WHERE notification_id = $1)
		`, notificationID).Scan(&exists)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, ErrNoRows
		}
		return false, nil
	}

	return true, nil
}

func (s *Storage) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_on = CURRENT_TIMESTAMP
		WHERE (recipient_id = $1 OR recipient_id IS NULL) AND is_read = FALSE
	`, recipientID)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (s *Storage) CountUnreadNotifications(ctx context.Context, recipientID string) (int, error) {
	var count int

	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE (recipient_id = $1 OR recipient_id IS NULL) AND is_read = FALSE
	`, recipientID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (s *Storage) AddNotificationTemplate(ctx context.Context, t types.NotificationTemplate) error {
	data, _ := json.Marshal(t)

	var m map[string]any
	json.Unmarshal(data, &m)

	delete(m, "id")
	delete(m, "name")

	data, _ = json.Marshal(m)

	args := pgx.NamedArgs{
		"template_id": t.ID,
		"name":        t.Name,
		"data":        string(data),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_templates (template_id, name, data)
		VALUES (@template_id, @name, @data)
	`, args)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}

	return nil
}

func (s *Storage) UpdateNotificationTemplate(ctx context.Context, t types.NotificationTemplate) error {
	data, _ := json.Marshal(t)

	var m map[string]any
	json.Unmarshal(data, &m)

	delete(m, "id")
	delete(m, "name")

	data, _ = json.Marshal(m)

	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_templates
		SET name = $2, data = $3, modified_on = CURRENT_TIMESTAMP
		WHERE template_id = $1 AND deleted = FALSE
	`, t.ID, t.Name, string(data))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

func (s *Storage) DeleteNotificationTemplate(ctx context.Context, templateID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_templates
		SET deleted = TRUE, deleted_on = CURRENT_TIMESTAMP
		WHERE template_id = $1 AND deleted = FALSE
	`, templateID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

func (s *Storage) GetNotificationTemplate(ctx context.Context, conditions ...ConditionFunc) (types.NotificationTemplate, error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	query := fmt.Sprintf(`
		SELECT template_id, name, data
		FROM notification_templates
		WHERE %s AND deleted = FALSE
	`, condition.Where(""))

	var t types.NotificationTemplate
	var data json.RawMessage

	err := s.pool.QueryRow(ctx, query, args).Scan(&t.ID, &t.Name, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.NotificationTemplate{}, ErrNoRows
		}
		return types.NotificationTemplate{}, err
	}

	err = json.Unmarshal(data, &t)
	if err != nil {
		return types.NotificationTemplate{}, err
	}

	return t, nil
}

func (s *Storage) QueryNotificationTemplates(ctx context.Context, conditions ...ConditionFunc) (types.Collection[types.NotificationTemplate], error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	offsetLimit, offset, limit := condition.OffsetLimit(100)
	args["_offset"] = offset
	args["_limit"] = limit

	query := fmt.Sprintf(`
		SELECT template_id, name, data, count(*) OVER () AS total
		FROM notification_templates
		WHERE %s AND deleted = FALSE
		%s%s
	`, condition.Where(""), condition.OrderBy("name"), offsetLimit)

	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return types.Collection[types.NotificationTemplate]{}, err
	}
	defer rows.Close()

	templates := make([]types.NotificationTemplate, 0)
	var total uint64

	for rows.Next() {
		var t types.NotificationTemplate
		var data json.RawMessage

		err := rows.Scan(&t.ID, &t.Name, &data, &total)
		if err != nil {
			return types.Collection[types.NotificationTemplate]{}, err
		}

		err = json.Unmarshal(data, &t)
		if err != nil {
			return types.Collection[types.NotificationTemplate]{}, err
		}

		templates = append(templates, t)
	}

	return types.Collection[types.NotificationTemplate]{
		Data:       templates,
		Count:      uint64(len(templates)),
		Offset:     uint64(offset),
		Limit:      uint64(limit),
		TotalCount: total,
	}, nil
}
