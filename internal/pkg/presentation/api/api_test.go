package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/matryer/is"

	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/actuator"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/devices"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/discovery"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/users"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/events"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/storage"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeTelemetryCache struct {
	stats map[string]types.FieldStats
}

func (f *fakeTelemetryCache) RollingStats(sensorID string) map[string]types.FieldStats {
	return f.stats
}

func TestQuerySensorsDecoratesRollingStats(t *testing.T) {
	is := is.New(t)

	registry := &devices.ManagementMock{
		QuerySensorsFunc: func(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Sensor], error) {
			return types.Collection[types.Sensor]{
				Data:       []types.Sensor{{ID: "s-1", Name: "dht22-inv1"}},
				Count:      1,
				TotalCount: 1,
			}, nil
		},
	}
	cache := &fakeTelemetryCache{stats: map[string]types.FieldStats{
		"temperatura": {Count: 12, Min: 18.5, Max: 31.0},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v0/sensors", nil)
	res := httptest.NewRecorder()

	querySensorsHandler(discardLogger, registry, cache).ServeHTTP(res, req)

	is.Equal(res.Code, http.StatusOK)

	var response struct {
		Data []types.Sensor `json:"data"`
	}
	is.NoErr(json.Unmarshal(res.Body.Bytes(), &response))
	is.Equal(len(response.Data), 1)
	is.Equal(response.Data[0].Statistics["temperatura"].Count, 12)
}

func TestGetSensorRespondsWith404WhenMissing(t *testing.T) {
	is := is.New(t)

	registry := &devices.ManagementMock{
		GetSensorFunc: func(ctx context.Context, sensorID string) (types.Sensor, error) {
			return types.Sensor{}, devices.ErrNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v0/sensors/nope", nil)
	res := httptest.NewRecorder()

	getSensorHandler(discardLogger, registry, nil).ServeHTTP(res, req)

	is.Equal(res.Code, http.StatusNotFound)
}

func TestCreateSensorRespondsWith409OnDuplicate(t *testing.T) {
	is := is.New(t)

	registry := &devices.ManagementMock{
		CreateSensorFunc: func(ctx context.Context, sensor types.Sensor) error {
			return devices.ErrAlreadyExists
		},
	}

	body := strings.NewReader(`{"id":"s-1","name":"dht22-inv1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v0/sensors", body)
	res := httptest.NewRecorder()

	createSensorHandler(discardLogger, registry).ServeHTTP(res, req)

	is.Equal(res.Code, http.StatusConflict)
}

func TestLoginHandler(t *testing.T) {
	is := is.New(t)

	svc := &users.ManagementMock{
		LoginFunc: func(ctx context.Context, username, password string) (types.User, users.TokenPair, error) {
			if password != "hunter22" {
				return types.User{}, users.TokenPair{}, users.ErrInvalidCredentials
			}
			return types.User{ID: "u-1", Username: username},
				users.TokenPair{AccessToken: "aaa", RefreshToken: "rrr", ExpiresIn: 900},
				nil
		},
	}

	res := httptest.NewRecorder()
	loginHandler(discardLogger, svc).ServeHTTP(res, httptest.NewRequest(
		http.MethodPost, "/api/v0/auth/login", strings.NewReader(`{"username":"maria","password":"hunter22"}`),
	))

	is.Equal(res.Code, http.StatusOK)
	is.True(strings.Contains(res.Body.String(), `"accessToken":"aaa"`))

	res = httptest.NewRecorder()
	loginHandler(discardLogger, svc).ServeHTTP(res, httptest.NewRequest(
		http.MethodPost, "/api/v0/auth/login", strings.NewReader(`{"username":"maria","password":"wrong"}`),
	))

	is.Equal(res.Code, http.StatusUnauthorized)
}

func TestControlDeviceHandler(t *testing.T) {
	is := is.New(t)

	device := types.Device{
		ID:               "d-1",
		Kind:             types.DeviceKindWaterPump,
		MQTTCommandTopic: "Invernadero/Bomba/sw",
		Status:           types.DeviceOff,
		Active:           true,
	}
	registry := &devices.ManagementMock{
		GetDeviceFunc: func(ctx context.Context, deviceID string) (types.Device, error) {
			if deviceID == device.ID {
				return device, nil
			}
			return types.Device{}, devices.ErrNotFound
		},
	}
	publisher := &actuator.PublisherMock{
		PublishFunc: func(ctx context.Context, topic string, payload []byte) error { return nil },
	}
	store := &controlTestStore{}
	act := actuator.New(registry, store, publisher, events.NewBus(), nil)
	defer act.Stop()

	control := func(deviceID, body string) *httptest.ResponseRecorder {
		router := chi.NewRouter()
		router.Post("/api/v0/devices/{deviceID}/control", controlDeviceHandler(discardLogger, act))

		req := httptest.NewRequest(http.MethodPost, "/api/v0/devices/"+deviceID+"/control", strings.NewReader(body))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		return res
	}

	is.Equal(control("d-1", `{"verb":"TURN_ON"}`).Code, http.StatusAccepted)
	is.Equal(control("d-1", `{"verb":"FLY"}`).Code, http.StatusBadRequest)
	is.Equal(control("nope", `{"verb":"TURN_ON"}`).Code, http.StatusNotFound)
}

type controlTestStore struct{}

func (s *controlTestStore) SetDeviceStatus(ctx context.Context, deviceID string, status types.DeviceStatus, authoritative bool, observedAt time.Time) error {
	return nil
}

func (s *controlTestStore) AddDeviceEvent(ctx context.Context, event types.DeviceEvent) error {
	return nil
}

func TestApproveTopicHandlerRespondsWith404ForUnknownTopic(t *testing.T) {
	is := is.New(t)

	disc := discovery.New(nil, discovery.DefaultConfig())

	body := strings.NewReader(`{"topic":"Invernadero/Misterio","as":"sensor"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v0/topics/approve", body)
	res := httptest.NewRecorder()

	approveTopicHandler(discardLogger, disc).ServeHTTP(res, req)

	is.Equal(res.Code, http.StatusNotFound)
}

func TestHealthHandlerDegradesWhenStoreIsDown(t *testing.T) {
	is := is.New(t)

	health := Health{
		CheckStore:    func(ctx context.Context) error { return context.DeadlineExceeded },
		MQTTConnected: func() bool { return true },
		BusOK:         func() bool { return true },
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	res := httptest.NewRecorder()

	healthHandler(health).ServeHTTP(res, req)

	is.Equal(res.Code, http.StatusServiceUnavailable)

	var response healthResponse
	is.NoErr(json.Unmarshal(res.Body.Bytes(), &response))
	is.Equal(response.Status, "degraded")
	is.Equal(response.Services["store"], "unavailable")
	is.Equal(response.Services["mqtt"], "ok")
}

func TestCollectionResponsePaginationLinks(t *testing.T) {
	is := is.New(t)

	collection := types.Collection[types.Reading]{
		Data:       make([]types.Reading, 10),
		Count:      10,
		Offset:     20,
		Limit:      10,
		TotalCount: 35,
	}

	response := newCollectionResponse("/api/v0/sensors/s-1/readings", url.Values{}, collection)

	is.Equal(*response.Meta, meta{TotalRecords: 35, Offset: &collection.Offset, Limit: &collection.Limit, Count: 10})
	is.True(strings.Contains(*response.Links.Prev, "offset=10"))
	is.True(strings.Contains(*response.Links.Next, "offset=30"))
	is.True(strings.Contains(*response.Links.Last, "offset=30"))
}
