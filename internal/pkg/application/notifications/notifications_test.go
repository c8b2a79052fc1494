package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/rules"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/events"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/storage"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"github.com/matryer/is"
)

type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications map[string]types.Notification
	statuses      map[string][]types.DeliveryStatus
	templates     map[string]types.NotificationTemplate
	read          []string
	pending       []types.Notification
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{
		notifications: map[string]types.Notification{},
		statuses:      map[string][]types.DeliveryStatus{},
		templates:     map[string]types.NotificationTemplate{},
	}
}

func (f *fakeNotificationStore) AddNotification(ctx context.Context, n types.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications[n.ID] = n
	return nil
}

func (f *fakeNotificationStore) SetNotificationDeliveryStatus(ctx context.Context, id string, status types.DeliveryStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = append(f.statuses[id], status)
	return nil
}

func (f *fakeNotificationStore) MarkNotificationRead(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.notifications[id]; !ok {
		return false, storage.ErrNoRows
	}
	for _, seen := range f.read {
		if seen == id {
			return false, nil
		}
	}
	f.read = append(f.read, id)
	return true, nil
}

func (f *fakeNotificationStore) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	return 0, nil
}

func (f *fakeNotificationStore) CountUnreadNotifications(ctx context.Context, recipientID string) (int, error) {
	return 0, nil
}

func (f *fakeNotificationStore) GetNotification(ctx context.Context, conditions ...storage.ConditionFunc) (types.Notification, error) {
	c := &storage.Condition{}
	for _, apply := range conditions {
		c = apply(c)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.notifications[c.NotificationID]; ok {
		return n, nil
	}
	return types.Notification{}, storage.ErrNoRows
}

func (f *fakeNotificationStore) QueryNotifications(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Notification], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pending := append([]types.Notification{}, f.pending...)
	return types.Collection[types.Notification]{
		Data:       pending,
		Count:      uint64(len(pending)),
		TotalCount: uint64(len(pending)),
	}, nil
}

func (f *fakeNotificationStore) AddNotificationTemplate(ctx context.Context, t types.NotificationTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templates[t.ID] = t
	return nil
}

func (f *fakeNotificationStore) UpdateNotificationTemplate(ctx context.Context, t types.NotificationTemplate) error {
	return nil
}

func (f *fakeNotificationStore) DeleteNotificationTemplate(ctx context.Context, templateID string) error {
	return nil
}

func (f *fakeNotificationStore) GetNotificationTemplate(ctx context.Context, conditions ...storage.ConditionFunc) (types.NotificationTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.templates {
		return t, nil
	}
	return types.NotificationTemplate{}, storage.ErrNoRows
}

func (f *fakeNotificationStore) QueryNotificationTemplates(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.NotificationTemplate], error) {
	return types.Collection[types.NotificationTemplate]{}, nil
}

func (f *fakeNotificationStore) statusTrail(id string) []types.DeliveryStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.DeliveryStatus{}, f.statuses[id]...)
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	is := is.New(t)

	out := Render("{{sensor}} reads {{value}} ({{missing}})", map[string]string{
		"sensor": "temhum1",
		"value":  "35.2",
	})
	is.Equal(out, "temhum1 reads 35.2 ()")

	out = Render("{{s-1.temperatura}} degrees", map[string]string{"s-1.temperatura": "35.5"})
	is.Equal(out, "35.5 degrees")

	stamped := Render("at {{timestamp}}", nil)
	is.True(stamped != "at ")
	is.True(stamped != "at {{timestamp}}")
}

func TestCreateDeliversOverWebhook(t *testing.T) {
	is := is.New(t)

	var mu sync.Mutex
	var received []webhookPayload
	var secrets []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		received = append(received, p)
		secrets = append(secrets, r.Header.Get("X-Webhook-Secret"))
		mu.Unlock()
	}))
	defer server.Close()

	store := newFakeNotificationStore()
	bus := events.NewBus()
	defer bus.Close()

	svc := New(store, bus, Config{WebhookURL: server.URL, WebhookSecret: "hortelano"})
	svc.Start(context.Background())
	defer svc.Stop()

	created, err := svc.Create(context.Background(), types.Notification{
		Title:    "water is acidic",
		Body:     "ph dropped below 5.5",
		Severity: types.SeverityHigh,
	}, []types.Channel{types.ChannelWebhook, types.ChannelEmail})
	is.NoErr(err)
	is.Equal(len(created), 2)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := len(received) == 2
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	is.Equal(len(received), 2)
	is.Equal(secrets[0], "hortelano")

	canals := map[string]bool{}
	for _, p := range received {
		is.Equal(p.Title, "water is acidic")
		canals[p.Canal] = true
	}
	// the email copy carries the canal discriminator, the webhook one does not
	is.True(canals[""])
	is.True(canals["EMAIL"])

	trail := store.statusTrail(created[0].ID)
	is.Equal(trail[len(trail)-1], types.DeliverySent)
}

func TestDeliveryRetriesThenFails(t *testing.T) {
	is := is.New(t)

	var attempts int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	store := newFakeNotificationStore()
	bus := events.NewBus()
	defer bus.Close()

	svc := New(store, bus, Config{WebhookURL: server.URL})
	svc.delays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	svc.Start(context.Background())
	defer svc.Stop()

	created, err := svc.Create(context.Background(), types.Notification{Title: "x"}, nil)
	is.NoErr(err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		trail := store.statusTrail(created[0].ID)
		if len(trail) > 0 && trail[len(trail)-1] == types.DeliveryFailed {
			mu.Lock()
			defer mu.Unlock()
			is.Equal(attempts, 4) // first try plus three retries
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("delivery never failed over")
}

func TestNotifyRendersTemplate(t *testing.T) {
	is := is.New(t)

	var mu sync.Mutex
	var received []webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
	}))
	defer server.Close()

	store := newFakeNotificationStore()
	store.templates["t-1"] = types.NotificationTemplate{
		ID:            "t-1",
		TitleTemplate: "{{device}} alert",
		BodyTemplate:  "{{device}} reported {{state}}",
	}

	bus := events.NewBus()
	defer bus.Close()

	svc := New(store, bus, Config{WebhookURL: server.URL})
	svc.Start(context.Background())
	defer svc.Stop()

	err := svc.Notify(context.Background(), rules.NotificationRequest{
		TemplateID: "t-1",
		Variables:  map[string]string{"device": "bomba", "state": "ERROR"},
		Severity:   types.SeverityCritical,
	})
	is.NoErr(err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		if len(received) == 1 {
			is.Equal(received[0].Title, "bomba alert")
			is.Equal(received[0].Message, "bomba reported ERROR")
			is.Equal(received[0].Severity, types.SeverityCritical)
			mu.Unlock()
			return
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("template notification never arrived")
}

func TestSweepRedeliversStuckPendingNotifications(t *testing.T) {
	is := is.New(t)

	var mu sync.Mutex
	var received []webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
	}))
	defer server.Close()

	store := newFakeNotificationStore()
	store.pending = []types.Notification{{
		ID:             "n-stuck",
		Title:          "pump never heard back",
		Channel:        types.ChannelWebhook,
		DeliveryStatus: types.DeliveryPending,
		CreatedAt:      time.Now().UTC().Add(-time.Minute),
	}}

	bus := events.NewBus()
	defer bus.Close()

	svc := New(store, bus, Config{WebhookURL: server.URL})
	svc.requeuePending(context.Background())
	defer svc.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		trail := store.statusTrail("n-stuck")
		if len(trail) > 0 && trail[len(trail)-1] == types.DeliverySent {
			mu.Lock()
			defer mu.Unlock()
			is.Equal(len(received), 1)
			is.Equal(received[0].Title, "pump never heard back")
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("stuck notification was never redelivered")
}

func TestAcknowledgeMovesSentToDelivered(t *testing.T) {
	is := is.New(t)

	store := newFakeNotificationStore()
	store.notifications["n-1"] = types.Notification{ID: "n-1", DeliveryStatus: types.DeliverySent}

	bus := events.NewBus()
	defer bus.Close()

	svc := New(store, bus, Config{})

	err := svc.Acknowledge(context.Background(), "n-1")
	is.NoErr(err)

	trail := store.statusTrail("n-1")
	is.Equal(trail[len(trail)-1], types.DeliveryDelivered)

	err = svc.Acknowledge(context.Background(), "missing")
	is.Equal(err, ErrNotFound)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	is := is.New(t)

	store := newFakeNotificationStore()
	store.notifications["n-1"] = types.Notification{ID: "n-1"}

	bus := events.NewBus()
	defer bus.Close()

	svc := New(store, bus, Config{})

	marked, err := svc.MarkRead(context.Background(), "n-1")
	is.NoErr(err)
	is.True(marked)

	marked, err = svc.MarkRead(context.Background(), "n-1")
	is.NoErr(err)
	is.True(!marked)

	_, err = svc.MarkRead(context.Background(), "missing")
	is.Equal(err, ErrNotFound)
}
