// Package notifications renders and delivers alerts. Webhook is the
// primary transport; the other channels post to the same endpoint
// with a canal discriminator so a downstream dispatcher can fan them
// out. Delivery runs on one worker per channel.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/rules"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/events"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/storage"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

const (
	webhookTimeout = 10 * time.Second
	queueSize      = 64

	// pending notifications older than this are picked up again, they
	// were left behind by a store outage or a crash mid-delivery
	pendingSweepInterval = time.Minute
	pendingMinAge        = 30 * time.Second
)

var ErrNotFound = fmt.Errorf("not found")

var retryDelays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

var placeholder = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

type Config struct {
	WebhookURL    string
	WebhookSecret string
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		WebhookURL:    env.GetVariableOrDefault(ctx, "NOTIFIER_WEBHOOK_URL", ""),
		WebhookSecret: env.GetVariableOrDefault(ctx, "NOTIFIER_WEBHOOK_SECRET", ""),
	}
}

// Store is the persistence slice the service depends on.
type Store interface {
	AddNotification(ctx context.Context, n types.Notification) error
	SetNotificationDeliveryStatus(ctx context.Context, notificationID string, status types.DeliveryStatus) error
	MarkNotificationRead(ctx context.Context, notificationID string) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error)
	CountUnreadNotifications(ctx context.Context, recipientID string) (int, error)
	GetNotification(ctx context.Context, conditions ...storage.ConditionFunc) (types.Notification, error)
	QueryNotifications(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Notification], error)

	AddNotificationTemplate(ctx context.Context, t types.NotificationTemplate) error
	UpdateNotificationTemplate(ctx context.Context, t types.NotificationTemplate) error
	DeleteNotificationTemplate(ctx context.Context, templateID string) error
	GetNotificationTemplate(ctx context.Context, conditions ...storage.ConditionFunc) (types.NotificationTemplate, error)
	QueryNotificationTemplates(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.NotificationTemplate], error)
}

type Service struct {
	store  Store
	bus    *events.Bus
	config Config
	client *http.Client
	delays []time.Duration

	mu     sync.Mutex
	queues map[types.Channel]chan types.Notification
	closed bool
	wg     sync.WaitGroup
	done   chan struct{}

	runCtx context.Context
}

func New(store Store, bus *events.Bus, config Config) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		config: config,
		client: &http.Client{Timeout: webhookTimeout},
		delays: retryDelays,
		queues: map[types.Channel]chan types.Notification{},
		done:   make(chan struct{}),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.runCtx = ctx

	s.wg.Add(1)
	go s.sweepPending(ctx)
}

func (s *Service) sweepPending(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(pendingSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.requeuePending(ctx)
	}
}

// requeuePending puts notifications that never left the pending state
// back on their delivery queue.
func (s *Service) requeuePending(ctx context.Context) {
	stuck, err := s.store.QueryNotifications(ctx,
		storage.WithDeliveryStatus(string(types.DeliveryPending)),
		storage.WithTo(time.Now().UTC().Add(-pendingMinAge)),
		storage.WithLimit(100),
	)
	if err != nil {
		logging.GetFromContext(ctx).Error("pending notification sweep failed", "err", err.Error())
		return
	}

	for _, n := range stuck.Data {
		if q := s.queue(ctx, n.Channel); q != nil {
			q <- n
		}
	}
}

func (s *Service) Stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
		for _, q := range s.queues {
			close(q)
		}
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) queue(ctx context.Context, channel types.Channel) chan<- types.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	q, ok := s.queues[channel]
	if !ok {
		q = make(chan types.Notification, queueSize)
		s.queues[channel] = q
		s.wg.Add(1)
		go s.deliveryWorker(ctx, q)
	}
	return q
}

// Create persists and queues one notification per requested channel.
func (s *Service) Create(ctx context.Context, n types.Notification, channels []types.Channel) ([]types.Notification, error) {
	if len(channels) == 0 {
		channels = []types.Channel{types.ChannelWebhook}
	}

	created := make([]types.Notification, 0, len(channels))
	now := time.Now().UTC()

	for _, channel := range channels {
		notification := n
		notification.ID = uuid.NewString()
		notification.Channel = channel
		notification.DeliveryStatus = types.DeliveryPending
		notification.CreatedAt = now

		err := s.store.AddNotification(ctx, notification)
		if err != nil {
			return created, err
		}

		err = s.bus.Publish(ctx, &types.NotificationCreated{Notification: notification, Timestamp: now})
		if err != nil {
			logging.GetFromContext(ctx).Error("could not publish notification event", "err", err.Error())
		}

		if q := s.queue(s.deliveryContext(ctx), channel); q != nil {
			q <- notification
		}

		created = append(created, notification)
	}

	return created, nil
}

// deliveryContext prefers the long-lived context the service was
// started with, so deliveries survive the request that created them.
func (s *Service) deliveryContext(ctx context.Context) context.Context {
	if s.runCtx != nil {
		return s.runCtx
	}
	return ctx
}

func (s *Service) deliveryWorker(ctx context.Context, queue <-chan types.Notification) {
	defer s.wg.Done()

	for notification := range queue {
		s.deliver(ctx, notification)
	}
}

// deliver posts the notification to the webhook. The row stays
// pending until the endpoint accepts it, then moves to sent; delivered
// is reserved for the consumer's explicit acknowledgement.
func (s *Service) deliver(ctx context.Context, notification types.Notification) {
	log := logging.GetFromContext(ctx)

	var err error
	for attempt := 0; ; attempt++ {
		err = s.post(ctx, notification)
		if err == nil {
			s.setDeliveryStatus(ctx, notification.ID, types.DeliverySent)
			return
		}
		if attempt >= len(s.delays) {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.delays[attempt]):
		}
	}

	log.Error("notification delivery failed", "notification_id", notification.ID, "channel", string(notification.Channel), "err", err.Error())
	s.setDeliveryStatus(ctx, notification.ID, types.DeliveryFailed)
}

func (s *Service) setDeliveryStatus(ctx context.Context, notificationID string, status types.DeliveryStatus) {
	log := logging.GetFromContext(ctx)

	err := s.store.SetNotificationDeliveryStatus(ctx, notificationID, status)
	if err != nil {
		log.Error("could not update delivery status", "notification_id", notificationID, "err", err.Error())
		return
	}

	err = s.bus.Publish(ctx, &types.NotificationUpdated{
		ID:             notificationID,
		DeliveryStatus: status,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		log.Error("could not publish notification update", "err", err.Error())
	}
}

type webhookPayload struct {
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Severity  types.Severity    `json:"severity"`
	Kind      string            `json:"kind,omitzero"`
	Source    string            `json:"source,omitzero"`
	Variables map[string]string `json:"variables,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	Canal     string            `json:"canal,omitzero"`
}

func (s *Service) post(ctx context.Context, notification types.Notification) error {
	if s.config.WebhookURL == "" {
		return fmt.Errorf("no webhook endpoint configured")
	}

	payload := webhookPayload{
		Title:     notification.Title,
		Message:   notification.Body,
		Severity:  notification.Severity,
		Kind:      notification.Kind,
		Source:    notification.Source,
		CreatedAt: notification.CreatedAt,
	}
	if notification.Channel != types.ChannelWebhook {
		payload.Canal = string(notification.Channel)
	}

	b, _ := json.Marshal(payload)

	return s.postRaw(ctx, s.config.WebhookURL, b)
}

// PostWebhook renders the payload template with the given variables
// and sends the result to an arbitrary endpoint.
func (s *Service) PostWebhook(ctx context.Context, url string, payloadTemplate string, variables map[string]string) error {
	return s.postRaw(ctx, url, []byte(Render(payloadTemplate, variables)))
}

// postRaw sends a payload as-is, signing it with the shared secret
// when one is configured.
func (s *Service) postRaw(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.WebhookSecret != "" {
		req.Header.Set("X-Webhook-Secret", s.config.WebhookSecret)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint responded with %d", resp.StatusCode)
	}

	return nil
}

// Notify renders and dispatches a notification request coming from
// the rules engine.
func (s *Service) Notify(ctx context.Context, req rules.NotificationRequest) error {
	title := req.Title
	body := req.Body
	channels := req.Channels

	if req.TemplateID != "" {
		template, err := s.GetTemplate(ctx, req.TemplateID)
		if err != nil {
			return err
		}
		title = template.TitleTemplate
		body = template.BodyTemplate
		if len(channels) == 0 {
			channels = template.SupportedChannels
		}
	}

	severity := req.Severity
	if severity == "" {
		severity = types.SeverityMedium
	}

	_, err := s.Create(ctx, types.Notification{
		Title:      Render(title, req.Variables),
		Body:       Render(body, req.Variables),
		Kind:       req.Kind,
		Severity:   severity,
		Source:     req.Source,
		TemplateID: req.TemplateID,
	}, channels)

	return err
}

// NotifyDeviceState is the actuator's post-transition hook.
func (s *Service) NotifyDeviceState(ctx context.Context, device types.Device, previous, next types.DeviceStatus, authoritative bool) {
	severity := types.SeverityLow
	if next == types.DeviceError {
		severity = types.SeverityHigh
	}

	_, err := s.Create(ctx, types.Notification{
		Title:    fmt.Sprintf("%s is now %s", device.Name, next),
		Body:     fmt.Sprintf("device %s changed from %s to %s", device.Name, previous, next),
		Kind:     "device_state",
		Severity: severity,
		Source:   "device:" + device.ID,
	}, nil)
	if err != nil {
		logging.GetFromContext(ctx).Error("could not create device state notification", "device_id", device.ID, "err", err.Error())
	}
}

// Render substitutes {{name}} placeholders. Unknown names render
// empty; {{timestamp}} is always the current instant.
func Render(template string, variables map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		if name == "timestamp" {
			return time.Now().UTC().Format(time.RFC3339)
		}
		return variables[name]
	})
}

func (s *Service) Get(ctx context.Context, notificationID string) (types.Notification, error) {
	n, err := s.store.GetNotification(ctx, storage.WithNotificationID(notificationID))
	if errors.Is(err, storage.ErrNoRows) {
		return types.Notification{}, ErrNotFound
	}
	return n, err
}

func (s *Service) Query(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Notification], error) {
	return s.store.QueryNotifications(ctx, conditions...)
}

// Acknowledge records the downstream consumer's receipt of a sent
// notification, moving it to delivered.
func (s *Service) Acknowledge(ctx context.Context, notificationID string) error {
	_, err := s.store.GetNotification(ctx, storage.WithNotificationID(notificationID))
	if errors.Is(err, storage.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	s.setDeliveryStatus(ctx, notificationID, types.DeliveryDelivered)
	return nil
}

// MarkRead is idempotent; the bool reports whether this call did the
// marking.
func (s *Service) MarkRead(ctx context.Context, notificationID string) (bool, error) {
	marked, err := s.store.MarkNotificationRead(ctx, notificationID)
	if errors.Is(err, storage.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}

	if marked {
		err = s.bus.Publish(ctx, &types.NotificationUpdated{
			ID:        notificationID,
			IsRead:    true,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			logging.GetFromContext(ctx).Error("could not publish notification update", "err", err.Error())
		}
	}

	return marked, nil
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, recipientID)
}

func (s *Service) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return s.store.CountUnreadNotifications(ctx, recipientID)
}

func (s *Service) CreateTemplate(ctx context.Context, t types.NotificationTemplate) (types.NotificationTemplate, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err := s.store.AddNotificationTemplate(ctx, t)
	return t, err
}

func (s *Service) UpdateTemplate(ctx context.Context, t types.NotificationTemplate) error {
	err := s.store.UpdateNotificationTemplate(ctx, t)
	if errors.Is(err, storage.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Service) DeleteTemplate(ctx context.Context, templateID string) error {
	err := s.store.DeleteNotificationTemplate(ctx, templateID)
	if errors.Is(err, storage.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Service) GetTemplate(ctx context.Context, templateID string) (types.NotificationTemplate, error) {
	t, err := s.store.GetNotificationTemplate(ctx, storage.WithTemplateID(templateID))
	if errors.Is(err, storage.ErrNoRows) {
		return types.NotificationTemplate{}, ErrNotFound
	}
	return t, err
}

func (s *Service) QueryTemplates(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.NotificationTemplate], error) {
	return s.store.QueryNotificationTemplates(ctx, conditions...)
}
