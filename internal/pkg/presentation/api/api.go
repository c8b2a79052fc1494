package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/riandyrn/otelchi"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/actuator"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/devices"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/discovery"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/notifications"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/rules"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/users"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/storage"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/presentation/api/auth"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

var tracer = otel.Tracer("iot-greenhouse-mgmt/api")

// ReadingStore serves the per-sensor history endpoints.
type ReadingStore interface {
	QueryReadings(ctx context.Context, kind types.SensorKind, conditions ...storage.ConditionFunc) (types.Collection[types.Reading], error)
}

// TelemetryCache decorates sensor responses with the in-memory
// rolling statistics the ingestion pipeline keeps.
type TelemetryCache interface {
	RollingStats(sensorID string) map[string]types.FieldStats
}

// Health aggregates the per-dependency probes the health endpoint
// reports on.
type Health struct {
	CheckStore       func(ctx context.Context) error
	MQTTConnected    func() bool
	BusOK            func() bool
	LastEvaluationAt func() time.Time
}

type Services struct {
	Devices       devices.Management
	Users         users.Management
	Rules         *rules.Engine
	Notifications *notifications.Service
	Actuator      *actuator.Actuator
	Discovery     *discovery.Discovery
	Readings      ReadingStore
	Telemetry     TelemetryCache
	Health        Health
}

func RegisterHandlers(ctx context.Context, router *chi.Mux, policies io.Reader, svcs Services) (*chi.Mux, error) {
	log := logging.GetFromContext(ctx)

	authenticator, err := auth.NewAuthenticator(ctx, svcs.Users.Auth(), policies)
	if err != nil {
		return nil, fmt.Errorf("failed to create api authenticator: %w", err)
	}

	router.Use(cors.AllowAll().Handler)
	router.Use(otelchi.Middleware("iot-greenhouse-mgmt", otelchi.WithChiRoutes(router)))

	router.Get("/health", healthHandler(svcs.Health))

	router.Route("/api/v0", func(r chi.Router) {
		r.Post("/auth/login", loginHandler(log, svcs.Users))
		r.Post("/auth/refresh", refreshHandler(log, svcs.Users))
		r.Post("/auth/register", selfRegisterHandler(log, svcs.Users))

		r.Group(func(r chi.Router) {
			viewer := authenticator.RequireRole(types.RoleViewer)
			operator := authenticator.RequireRole(types.RoleOperator)
			editor := authenticator.RequireRole(types.RoleEditor)
			admin := authenticator.RequireRole(types.RoleAdmin)

			r.Route("/sensors", func(r chi.Router) {
				r.With(viewer).Get("/", querySensorsHandler(log, svcs.Devices, svcs.Telemetry))
				r.With(editor).Post("/", createSensorHandler(log, svcs.Devices))
				r.With(viewer).Get("/{sensorID}", getSensorHandler(log, svcs.Devices, svcs.Telemetry))
				r.With(editor).Put("/{sensorID}", updateSensorHandler(log, svcs.Devices))
				r.With(admin).Delete("/{sensorID}", deleteSensorHandler(log, svcs.Devices))
				r.With(viewer).Get("/{sensorID}/readings", queryReadingsHandler(log, svcs.Devices, svcs.Readings))
				r.With(viewer).Get("/{sensorID}/stats", sensorStatsHandler(log, svcs.Devices))
			})

			r.Route("/devices", func(r chi.Router) {
				r.With(viewer).Get("/", queryDevicesHandler(log, svcs.Devices))
				r.With(editor).Post("/", createDeviceHandler(log, svcs.Devices))
				r.With(viewer).Get("/{deviceID}", getDeviceHandler(log, svcs.Devices))
				r.With(editor).Put("/{deviceID}", updateDeviceHandler(log, svcs.Devices))
				r.With(admin).Delete("/{deviceID}", deleteDeviceHandler(log, svcs.Devices))
				r.With(operator).Post("/{deviceID}/control", controlDeviceHandler(log, svcs.Actuator))
				r.With(viewer).Get("/{deviceID}/events", queryDeviceEventsHandler(log, svcs.Devices))
			})

			r.Route("/rules", func(r chi.Router) {
				r.With(viewer).Get("/", queryRulesHandler(log, svcs.Rules))
				r.With(editor).Post("/", createRuleHandler(log, svcs.Rules))
				r.With(viewer).Get("/{ruleID}", getRuleHandler(log, svcs.Rules))
				r.With(editor).Put("/{ruleID}", updateRuleHandler(log, svcs.Rules))
				r.With(admin).Delete("/{ruleID}", deleteRuleHandler(log, svcs.Rules))
				r.With(editor).Post("/{ruleID}/enable", setRuleEnabledHandler(log, svcs.Rules, true))
				r.With(editor).Post("/{ruleID}/disable", setRuleEnabledHandler(log, svcs.Rules, false))
				r.With(operator).Post("/{ruleID}/trigger", triggerRuleHandler(log, svcs.Rules))
				r.With(viewer).Get("/{ruleID}/executions", queryExecutionsHandler(log, svcs.Rules))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.With(viewer).Get("/", queryNotificationsHandler(log, svcs.Notifications))
				r.With(viewer).Get("/unread-count", unreadCountHandler(log, svcs.Notifications))
				r.With(operator).Post("/read-all", markAllReadHandler(log, svcs.Notifications))
				r.With(operator).Post("/{notificationID}/read", markReadHandler(log, svcs.Notifications))
				r.With(operator).Post("/{notificationID}/ack", acknowledgeHandler(log, svcs.Notifications))

				r.Route("/templates", func(r chi.Router) {
					r.With(viewer).Get("/", queryTemplatesHandler(log, svcs.Notifications))
					r.With(editor).Post("/", createTemplateHandler(log, svcs.Notifications))
					r.With(viewer).Get("/{templateID}", getTemplateHandler(log, svcs.Notifications))
					r.With(editor).Put("/{templateID}", updateTemplateHandler(log, svcs.Notifications))
					r.With(admin).Delete("/{templateID}", deleteTemplateHandler(log, svcs.Notifications))
				})
			})

			r.Route("/topics", func(r chi.Router) {
				r.With(viewer).Get("/", unknownTopicsHandler(log, svcs.Discovery))
				r.With(editor).Post("/approve", approveTopicHandler(log, svcs.Discovery))
				r.With(editor).Post("/reject", rejectTopicHandler(log, svcs.Discovery))
			})

			r.Route("/users", func(r chi.Router) {
				r.With(admin).Get("/", queryUsersHandler(log, svcs.Users))
				r.With(admin).Post("/", registerUserHandler(log, svcs.Users))
				r.With(admin).Get("/{userID}", getUserHandler(log, svcs.Users))
				r.With(admin).Put("/{userID}", updateUserHandler(log, svcs.Users))
				r.With(admin).Delete("/{userID}", deleteUserHandler(log, svcs.Users))
			})
		})
	})

	return router, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func decodeJSON(r *http.Request, into any) error {
	defer r.Body.Close()
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, into)
}

// queryConditions translates the shared query parameters (pagination,
// time range, flags) into storage conditions.
func queryConditions(r *http.Request) []storage.ConditionFunc {
	conditions := []storage.ConditionFunc{}
	q := r.URL.Query()

	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		conditions = append(conditions, storage.WithOffset(offset))
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		conditions = append(conditions, storage.WithLimit(limit))
	}
	if from, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		conditions = append(conditions, storage.WithFrom(from))
	}
	if to, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		conditions = append(conditions, storage.WithTo(to))
	}
	if active := q.Get("active"); active != "" {
		conditions = append(conditions, storage.WithActive(active == "true"))
	}
	if kind := q.Get("kind"); kind != "" {
		conditions = append(conditions, storage.WithKind(kind))
	}
	if severity := q.Get("severity"); severity != "" {
		conditions = append(conditions, storage.WithSeverity(severity))
	}
	if channel := q.Get("channel"); channel != "" {
		conditions = append(conditions, storage.WithChannel(channel))
	}
	if unread := q.Get("unread"); unread != "" {
		conditions = append(conditions, storage.WithIsRead(unread != "true"))
	}

	return conditions
}

func healthHandler(health Health) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := map[string]string{}
		status := "ok"

		degrade := func(name string, ok bool) {
			if ok {
				services[name] = "ok"
				return
			}
			services[name] = "unavailable"
			status = "degraded"
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		degrade("store", health.CheckStore == nil || health.CheckStore(ctx) == nil)
		degrade("mqtt", health.MQTTConnected == nil || health.MQTTConnected())
		degrade("bus", health.BusOK == nil || health.BusOK())

		response := healthResponse{Status: status, Services: services}
		if health.LastEvaluationAt != nil {
			if at := health.LastEvaluationAt(); !at.IsZero() {
				response.LastEvaluationAt = at.Format(time.RFC3339)
				services["rules"] = "ok"
			} else {
				services["rules"] = "pending"
			}
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, response)
	}
}

func loginHandler(log *slog.Logger, svc users.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "login")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var req loginRequest
		err = decodeJSON(r, &req)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		user, pair, err := svc.Login(ctx, req.Username, req.Password)
		if errors.Is(err, users.ErrInvalidCredentials) {
			requestLogger.Info("login rejected", "username", req.Username)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err != nil {
			requestLogger.Error("login failed", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newApiResponse(map[string]any{
			"user":   user,
			"tokens": pair,
		}))
	}
}

// selfRegisterHandler creates viewer accounts only; privileged roles
// are assigned by an admin through the users endpoints.
func selfRegisterHandler(log *slog.Logger, svc users.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "register")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var req registerRequest
		err = decodeJSON(r, &req)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		user, err := svc.Register(ctx, req.Username, req.Password, types.RoleViewer)
		if errors.Is(err, users.ErrAlreadyExists) {
			w.WriteHeader(http.StatusConflict)
			return
		}
		if err != nil {
			requestLogger.Error("unable to register user", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, newApiResponse(user))
	}
}

func refreshHandler(log *slog.Logger, svc users.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		err := decodeJSON(r, &req)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		pair, err := svc.Refresh(r.Context(), req.RefreshToken)
		if errors.Is(err, users.ErrInvalidToken) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err != nil {
			log.Error("token refresh failed", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newApiResponse(pair))
	}
}

func querySensorsHandler(log *slog.Logger, svc devices.Management, cache TelemetryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sensors, err := svc.QuerySensors(r.Context(), queryConditions(r)...)
		if err != nil {
			log.Error("unable to query sensors", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		if cache != nil {
			for i := range sensors.Data {
				sensors.Data[i].Statistics = cache.RollingStats(sensors.Data[i].ID)
			}
		}

		writeJSON(w, http.StatusOK, newCollectionResponse(r.URL.Path, r.URL.Query(), sensors))
	}
}

func createSensorHandler(log *slog.Logger, svc devices.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "create-sensor")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var sensor types.Sensor
		err = decodeJSON(r, &sensor)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		err = svc.CreateSensor(ctx, sensor)
		if errors.Is(err, devices.ErrAlreadyExists) {
			w.WriteHeader(http.StatusConflict)
			return
		}
		if err != nil {
			requestLogger.Error("unable to create sensor", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

func getSensorHandler(log *slog.Logger, svc devices.Management, cache TelemetryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sensor, err := svc.GetSensor(r.Context(), chi.URLParam(r, "sensorID"))
		if errors.Is(err, devices.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to fetch sensor", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		if cache != nil {
			sensor.Statistics = cache.RollingStats(sensor.ID)
		}

		writeJSON(w, http.StatusOK, newApiResponse(sensor))
	}
}

func updateSensorHandler(log *slog.Logger, svc devices.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "update-sensor")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var sensor types.Sensor
		err = decodeJSON(r, &sensor)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sensor.ID = chi.URLParam(r, "sensorID")

		err = svc.UpdateSensor(ctx, sensor)
		if errors.Is(err, devices.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			requestLogger.Error("unable to update sensor", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteSensorHandler(log *slog.Logger, svc devices.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "delete-sensor")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		err = svc.DeleteSensor(ctx, chi.URLParam(r, "sensorID"))
		if errors.Is(err, devices.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			requestLogger.Error("unable to delete sensor", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func queryReadingsHandler(log *slog.Logger, svc devices.Management, readings ReadingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sensorID := chi.URLParam(r, "sensorID")

		sensor, err := svc.GetSensor(r.Context(), sensorID)
		if errors.Is(err, devices.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to fetch sensor", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		conditions := append(queryConditions(r), storage.WithSensorID(sensorID))
		history, err := readings.QueryReadings(r.Context(), sensor.Kind, conditions...)
		if err != nil {
			log.Error("unable to query readings", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newCollectionResponse(r.URL.Path, r.URL.Query(), history))
	}
}

func sensorStatsHandler(log *slog.Logger, svc devices.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		to := time.Now().UTC()
		from := to.Add(-24 * time.Hour)
		if t, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
			from = t
		}
		if t, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
			to = t
		}

		stats, err := svc.SensorStatistics(r.Context(), chi.URLParam(r, "sensorID"), from, to)
		if errors.Is(err, devices.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to compute sensor statistics", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newApiResponse(map[string]any{
			"from":   from.Format(time.RFC3339),
			"to":     to.Format(time.RFC3339),
			"fields": stats,
		}))
	}
}

func queryDevicesHandler(log *slog.Logger, svc devices.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.QueryDevices(r.Context(), queryConditions(r)...)
		if err != nil {
			log.Error("unable to query devices", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newCollectionResponse(r.URL.Path, r.URL.Query(), result))
	}
}

func createDeviceHandler(log *slog.Logger, svc devices.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "create-device")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var device types.Device
		err = decodeJSON(r, &device)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		err = svc.CreateDevice(ctx, device)
		if errors.Is(err, devices.ErrAlreadyExists) {
			w.WriteHeader(http.StatusConflict)
			return
		}
		if err != nil {
			requestLogger.Error("unable to create device", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

func getDeviceHandler(log *slog.Logger, svc devices.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device, err := svc.GetDevice(r.Context(), chi.URLParam(r, "deviceID"))
		if errors.Is(err, devices.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to fetch device", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newApiResponse(device))
	}
}

func updateDeviceHandler(log *slog.Logger, svc devices.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "update-device")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var device types.Device
		err = decodeJSON(r, &device)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		device.ID = chi.URLParam(r, "deviceID")

		err = svc.UpdateDevice(ctx, device)
		if errors.Is(err, devices.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			requestLogger.Error("unable to update device", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteDeviceHandler(log *slog.Logger, svc devices.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "delete-device")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		err = svc.DeleteDevice(ctx, chi.URLParam(r, "deviceID"))
		if errors.Is(err, devices.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			requestLogger.Error("unable to delete device", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func controlDeviceHandler(log *slog.Logger, act *actuator.Actuator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "control-device")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var req controlRequest
		err = decodeJSON(r, &req)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		source := "api"
		if principal, ok := auth.GetPrincipalFromContext(ctx); ok {
			source = "user:" + principal.Username
		}

		err = act.Execute(ctx, actuator.Request{
			DeviceID:        chi.URLParam(r, "deviceID"),
			Verb:            actuator.Verb(req.Verb),
			Value:           req.Value,
			DurationSeconds: req.DurationSeconds,
			Source:          source,
		})
		if errors.Is(err, actuator.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if errors.Is(err, actuator.ErrUnknownVerb) || errors.Is(err, actuator.ErrNotActive) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err != nil {
			requestLogger.Error("unable to control device", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func queryDeviceEventsHandler(log *slog.Logger, svc devices.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conditions := append(queryConditions(r), storage.WithDeviceID(chi.URLParam(r, "deviceID")))

		result, err := svc.QueryDeviceEvents(r.Context(), conditions...)
		if err != nil {
			log.Error("unable to query device events", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newCollectionResponse(r.URL.Path, r.URL.Query(), result))
	}
}

func queryRulesHandler(log *slog.Logger, engine *rules.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := engine.QueryRules(r.Context(), queryConditions(r)...)
		if err != nil {
			log.Error("unable to query rules", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newCollectionResponse(r.URL.Path, r.URL.Query(), result))
	}
}

func createRuleHandler(log *slog.Logger, engine *rules.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "create-rule")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var rule types.Rule
		err = decodeJSON(r, &rule)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if principal, ok := auth.GetPrincipalFromContext(ctx); ok {
			rule.CreatedBy = principal.UserID
		}

		created, err := engine.CreateRule(ctx, rule)
		if err != nil {
			requestLogger.Error("unable to create rule", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, newApiResponse(created))
	}
}

func getRuleHandler(log *slog.Logger, engine *rules.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rule, err := engine.GetRule(r.Context(), chi.URLParam(r, "ruleID"))
		if errors.Is(err, rules.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to fetch rule", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newApiResponse(rule))
	}
}

func updateRuleHandler(log *slog.Logger, engine *rules.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "update-rule")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var rule types.Rule
		err = decodeJSON(r, &rule)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rule.ID = chi.URLParam(r, "ruleID")

		err = engine.UpdateRule(ctx, rule)
		if errors.Is(err, rules.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			requestLogger.Error("unable to update rule", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteRuleHandler(log *slog.Logger, engine *rules.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := engine.DeleteRule(r.Context(), chi.URLParam(r, "ruleID"))
		if errors.Is(err, rules.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to delete rule", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func setRuleEnabledHandler(log *slog.Logger, engine *rules.Engine, enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := engine.SetEnabled(r.Context(), chi.URLParam(r, "ruleID"), enabled)
		if errors.Is(err, rules.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to toggle rule", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func triggerRuleHandler(log *slog.Logger, engine *rules.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "trigger-rule")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		err = engine.Trigger(ctx, chi.URLParam(r, "ruleID"))
		if errors.Is(err, rules.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if errors.Is(err, rules.ErrCoolingDown) {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if errors.Is(err, rules.ErrDisabled) {
			w.WriteHeader(http.StatusConflict)
			return
		}
		if err != nil {
			requestLogger.Error("unable to trigger rule", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func queryExecutionsHandler(log *slog.Logger, engine *rules.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conditions := append(queryConditions(r), storage.WithRuleID(chi.URLParam(r, "ruleID")))

		result, err := engine.QueryExecutions(r.Context(), conditions...)
		if err != nil {
			log.Error("unable to query rule executions", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newCollectionResponse(r.URL.Path, r.URL.Query(), result))
	}
}

func queryNotificationsHandler(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Query(r.Context(), queryConditions(r)...)
		if err != nil {
			log.Error("unable to query notifications", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newCollectionResponse(r.URL.Path, r.URL.Query(), result))
	}
}

func unreadCountHandler(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipient := ""
		if principal, ok := auth.GetPrincipalFromContext(r.Context()); ok {
			recipient = principal.UserID
		}

		count, err := svc.CountUnread(r.Context(), recipient)
		if err != nil {
			log.Error("unable to count unread notifications", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newApiResponse(map[string]int{"unread": count}))
	}
}

func markReadHandler(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marked, err := svc.MarkRead(r.Context(), chi.URLParam(r, "notificationID"))
		if errors.Is(err, notifications.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to mark notification read", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newApiResponse(map[string]bool{"marked": marked}))
	}
}

func acknowledgeHandler(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.Acknowledge(r.Context(), chi.URLParam(r, "notificationID"))
		if errors.Is(err, notifications.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to acknowledge notification", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func markAllReadHandler(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipient := ""
		if principal, ok := auth.GetPrincipalFromContext(r.Context()); ok {
			recipient = principal.UserID
		}

		count, err := svc.MarkAllRead(r.Context(), recipient)
		if err != nil {
			log.Error("unable to mark notifications read", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newApiResponse(map[string]int64{"marked": count}))
	}
}

func queryTemplatesHandler(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.QueryTemplates(r.Context(), queryConditions(r)...)
		if err != nil {
			log.Error("unable to query templates", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newCollectionResponse(r.URL.Path, r.URL.Query(), result))
	}
}

func createTemplateHandler(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var template types.NotificationTemplate
		err := decodeJSON(r, &template)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		created, err := svc.CreateTemplate(r.Context(), template)
		if err != nil {
			log.Error("unable to create template", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, newApiResponse(created))
	}
}

func getTemplateHandler(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		template, err := svc.GetTemplate(r.Context(), chi.URLParam(r, "templateID"))
		if errors.Is(err, notifications.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to fetch template", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newApiResponse(template))
	}
}

func updateTemplateHandler(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var template types.NotificationTemplate
		err := decodeJSON(r, &template)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		template.ID = chi.URLParam(r, "templateID")

		err = svc.UpdateTemplate(r.Context(), template)
		if errors.Is(err, notifications.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to update template", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteTemplateHandler(log *slog.Logger, svc *notifications.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.DeleteTemplate(r.Context(), chi.URLParam(r, "templateID"))
		if errors.Is(err, notifications.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to delete template", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func unknownTopicsHandler(_ *slog.Logger, disc *discovery.Discovery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newApiResponse(disc.UnknownTopics()))
	}
}

func approveTopicHandler(log *slog.Logger, disc *discovery.Discovery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "approve-topic")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var req topicDecisionRequest
		err = decodeJSON(r, &req)
		if err != nil || req.Topic == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		err = disc.Approve(ctx, req.Topic, req.As != "device")
		if errors.Is(err, discovery.ErrUnknownTopic) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if errors.Is(err, discovery.ErrNotActionable) {
			w.WriteHeader(http.StatusConflict)
			return
		}
		if err != nil {
			requestLogger.Error("unable to approve topic", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func rejectTopicHandler(log *slog.Logger, disc *discovery.Discovery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req topicDecisionRequest
		err := decodeJSON(r, &req)
		if err != nil || req.Topic == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		err = disc.Reject(r.Context(), req.Topic)
		if errors.Is(err, discovery.ErrUnknownTopic) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to reject topic", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func queryUsersHandler(log *slog.Logger, svc users.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.QueryUsers(r.Context(), queryConditions(r)...)
		if err != nil {
			log.Error("unable to query users", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newCollectionResponse(r.URL.Path, r.URL.Query(), result))
	}
}

func registerUserHandler(log *slog.Logger, svc users.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		ctx, span := tracer.Start(r.Context(), "register-user")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		var req registerRequest
		err = decodeJSON(r, &req)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		user, err := svc.Register(ctx, req.Username, req.Password, req.Role)
		if errors.Is(err, users.ErrAlreadyExists) {
			w.WriteHeader(http.StatusConflict)
			return
		}
		if err != nil {
			requestLogger.Error("unable to register user", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, newApiResponse(user))
	}
}

func getUserHandler(log *slog.Logger, svc users.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.GetUser(r.Context(), chi.URLParam(r, "userID"))
		if errors.Is(err, users.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to fetch user", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, newApiResponse(user))
	}
}

func updateUserHandler(log *slog.Logger, svc users.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var user types.User
		err := decodeJSON(r, &user)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		user.ID = chi.URLParam(r, "userID")

		err = svc.UpdateUser(r.Context(), user)
		if errors.Is(err, users.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to update user", "err", err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteUserHandler(log *slog.Logger, svc users.Management) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.DeleteUser(r.Context(), chi.URLParam(r, "userID"))
		if errors.Is(err, users.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("unable to delete user", "err", err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
