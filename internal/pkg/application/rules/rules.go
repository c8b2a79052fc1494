// Package rules evaluates the automation rules against the latest
// telemetry and device state, and executes their actions. Rules run
// on a fixed period and on demand whenever telemetry or device state
// moves.
package rules

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/actuator"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/events"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/storage"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"go.opentelemetry.io/otel"
)

const (
	evaluationPeriod  = 30 * time.Second
	selfTriggerIgnore = 500 * time.Millisecond
	rateWindow        = time.Hour
)

var tracer = otel.Tracer("iot-greenhouse-mgmt/rules")

var ErrNotFound = fmt.Errorf("rule not found")
var ErrCoolingDown = fmt.Errorf("rule is cooling down")
var ErrDisabled = fmt.Errorf("rule is disabled")

// RuleStore is the persistence slice the engine depends on.
type RuleStore interface {
	AddRule(ctx context.Context, rule types.Rule) error
	UpdateRule(ctx context.Context, rule types.Rule) error
	DeleteRule(ctx context.Context, ruleID string) error
	SetRuleEnabled(ctx context.Context, ruleID string, enabled bool) error
	RecordRuleTriggered(ctx context.Context, ruleID string, triggeredAt time.Time) error
	GetRule(ctx context.Context, conditions ...storage.ConditionFunc) (types.Rule, error)
	QueryRules(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Rule], error)
	AddRuleExecution(ctx context.Context, execution types.RuleExecution) error
	QueryRuleExecutions(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.RuleExecution], error)
	CountRuleExecutionsSince(ctx context.Context, ruleID string, since time.Time) (int, error)
}

// EntityReader resolves the sensors and devices condition leaves refer to.
type EntityReader interface {
	GetSensor(ctx context.Context, sensorID string) (types.Sensor, error)
	GetDevice(ctx context.Context, deviceID string) (types.Device, error)
}

// ReadingSource serves the latest stored reading per sensor.
type ReadingSource interface {
	GetLatestReading(ctx context.Context, kind types.SensorKind, sensorID string) (types.Reading, error)
}

// DeviceController runs device_control actions. The actuator
// implements it.
type DeviceController interface {
	Execute(ctx context.Context, req actuator.Request) error
}

// NotificationRequest is what a notification action asks the notifier
// to deliver.
type NotificationRequest struct {
	TemplateID string
	Title      string
	Body       string
	Severity   types.Severity
	Channels   []types.Channel
	Variables  map[string]string
	Source     string
	Kind       string
}

// Notifier delivers notification and webhook actions. Webhook payload
// templates are rendered with the given variables before posting.
type Notifier interface {
	Notify(ctx context.Context, req NotificationRequest) error
	PostWebhook(ctx context.Context, url string, payloadTemplate string, variables map[string]string) error
}

type ruleRuntime struct {
	mu           sync.Mutex
	lastFinished time.Time
}

type Engine struct {
	store      RuleStore
	entities   EntityReader
	readings   ReadingSource
	controller DeviceController
	notifier   Notifier
	bus        *events.Bus
	location   *time.Location
	period     time.Duration

	mu       sync.Mutex
	runtimes map[string]*ruleRuntime
	lastEval time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

type Option func(*Engine)

// WithEvaluationPeriod overrides the fixed tick period.
func WithEvaluationPeriod(period time.Duration) Option {
	return func(e *Engine) {
		if period > 0 {
			e.period = period
		}
	}
}

// WithLocation sets the timezone time-window conditions are checked in.
func WithLocation(location *time.Location) Option {
	return func(e *Engine) {
		if location != nil {
			e.location = location
		}
	}
}

func New(store RuleStore, entities EntityReader, readings ReadingSource, controller DeviceController, notifier Notifier, bus *events.Bus, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		entities:   entities,
		readings:   readings,
		controller: controller,
		notifier:   notifier,
		bus:        bus,
		location:   time.Local,
		period:     evaluationPeriod,
		runtimes:   map[string]*ruleRuntime{},
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Start runs the evaluation loop until the context is cancelled or
// Stop is called. Telemetry and device state events request an
// immediate pass on top of the fixed period.
func (e *Engine) Start(ctx context.Context) error {
	log := logging.GetFromContext(ctx)

	telemetry, unsubTelemetry, err := e.bus.Subscribe(types.TopicTelemetryUpdated, "rules-engine", 64)
	if err != nil {
		return err
	}
	deviceState, unsubDevices, err := e.bus.Subscribe(types.TopicDeviceStateChanged, "rules-engine", 64)
	if err != nil {
		unsubTelemetry()
		return err
	}

	demand := make(chan bool, 1)
	request := func(fromDeviceState bool) {
		select {
		case demand <- fromDeviceState:
		default:
		}
	}

	e.wg.Add(2)

	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.done:
				return
			case _, ok := <-telemetry:
				if !ok {
					return
				}
				request(false)
			case _, ok := <-deviceState:
				if !ok {
					return
				}
				request(true)
			}
		}
	}()

	go func() {
		defer e.wg.Done()
		defer unsubTelemetry()
		defer unsubDevices()

		ticker := time.NewTicker(e.period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-e.done:
				return
			case <-ticker.C:
				e.evaluateAll(ctx, false)
			case fromDeviceState := <-demand:
				e.evaluateAll(ctx, fromDeviceState)
			}
		}
	}()

	log.Info("rules engine started", "period", e.period.String())

	return nil
}

func (e *Engine) Stop() {
	close(e.done)
	e.wg.Wait()
}

// LastEvaluationAt reports when the last full pass finished.
func (e *Engine) LastEvaluationAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastEval
}

// evaluateAll runs one pass over the enabled rules in priority order.
// Passes requested by a device state change skip rules that just
// fired, so a rule does not retrigger on its own actions.
func (e *Engine) evaluateAll(ctx context.Context, ignoreRecent bool) {
	log := logging.GetFromContext(ctx)

	rules, err := e.store.QueryRules(ctx, storage.WithEnabled(true), storage.WithLimit(1000))
	if err != nil {
		log.Error("could not list rules", "err", err.Error())
		return
	}

	for _, rule := range rules.Data {
		e.runRule(ctx, rule, false, ignoreRecent)
	}

	e.mu.Lock()
	e.lastEval = time.Now().UTC()
	e.mu.Unlock()
}

func (e *Engine) runtime(ruleID string) *ruleRuntime {
	e.mu.Lock()
	defer e.mu.Unlock()
	rt, ok := e.runtimes[ruleID]
	if !ok {
		rt = &ruleRuntime{}
		e.runtimes[ruleID] = rt
	}
	return rt
}

func (e *Engine) runRule(ctx context.Context, rule types.Rule, manual, ignoreRecent bool) {
	log := logging.GetFromContext(ctx)

	rt := e.runtime(rule.ID)
	if !rt.mu.TryLock() {
		// already running, a rule never executes concurrently
		return
	}
	defer rt.mu.Unlock()

	now := time.Now().UTC()

	if ignoreRecent && now.Sub(rt.lastFinished) < selfTriggerIgnore {
		return
	}

	if rule.CooldownSeconds > 0 && !rule.LastTriggeredAt.IsZero() {
		if now.Sub(rule.LastTriggeredAt) < time.Duration(rule.CooldownSeconds)*time.Second {
			return
		}
	}

	if !manual && rule.MaxExecutionsPerHour > 0 {
		count, err := e.store.CountRuleExecutionsSince(ctx, rule.ID, now.Add(-rateWindow))
		if err != nil {
			log.Error("could not count rule executions", "rule_id", rule.ID, "err", err.Error())
			return
		}
		if count >= rule.MaxExecutionsPerHour {
			return
		}
	}

	snap := e.newSnapshot(now)

	if !manual && !e.evaluate(ctx, rule.Conditions, snap) {
		return
	}

	e.execute(ctx, rule, snap, now)
	rt.lastFinished = time.Now().UTC()
}

// execute runs the actions in order. A failing action does not stop
// the ones after it, but marks the execution failed.
func (e *Engine) execute(ctx context.Context, rule types.Rule, snap *snapshot, triggeredAt time.Time) {
	ctx, span := tracer.Start(ctx, "execute-rule")
	defer span.End()

	log := logging.GetFromContext(ctx)

	outcomes := make([]types.ActionOutcome, 0, len(rule.Actions))
	success := true
	firstError := ""

	for _, action := range rule.Actions {
		started := time.Now()
		err := e.runAction(ctx, rule, action, snap)
		outcome := types.ActionOutcome{
			Kind:      action.Kind,
			Target:    actionTarget(action),
			Success:   err == nil,
			ElapsedMs: time.Since(started).Milliseconds(),
		}
		if err != nil {
			outcome.Error = err.Error()
			success = false
			if firstError == "" {
				firstError = err.Error()
			}
			log.Error("rule action failed", "rule_id", rule.ID, "action", string(action.Kind), "err", err.Error())
		}
		outcomes = append(outcomes, outcome)
	}

	execution := types.RuleExecution{
		ID:              uuid.NewString(),
		RuleID:          rule.ID,
		TriggeredAt:     triggeredAt,
		Success:         success,
		ElapsedMs:       time.Since(triggeredAt).Milliseconds(),
		TriggerData:     snap.data,
		ActionsExecuted: outcomes,
		ErrorMessage:    firstError,
	}

	err := e.store.AddRuleExecution(ctx, execution)
	if err != nil {
		log.Error("could not record rule execution", "rule_id", rule.ID, "err", err.Error())
	}

	err = e.store.RecordRuleTriggered(ctx, rule.ID, triggeredAt)
	if err != nil {
		log.Error("could not record rule trigger", "rule_id", rule.ID, "err", err.Error())
	}

	err = e.bus.Publish(ctx, &types.RuleTriggered{
		RuleID:      rule.ID,
		ExecutionID: execution.ID,
		Success:     success,
		TriggeredAt: triggeredAt,
	})
	if err != nil {
		log.Error("could not publish rule event", "err", err.Error())
	}
}

func (e *Engine) runAction(ctx context.Context, rule types.Rule, action types.Action, snap *snapshot) error {
	switch action.Kind {
	case types.ActionDeviceControl:
		return e.controller.Execute(ctx, actuator.Request{
			DeviceID:        action.DeviceID,
			Verb:            actuator.Verb(action.Verb),
			Value:           action.Value,
			DurationSeconds: action.DurationSeconds,
			RuleID:          rule.ID,
			Source:          "rule:" + rule.Name,
		})
	case types.ActionNotification:
		return e.notifier.Notify(ctx, NotificationRequest{
			TemplateID: action.TemplateID,
			Title:      action.Title,
			Body:       action.Body,
			Severity:   action.Severity,
			Channels:   action.Channels,
			Variables:  interpolationVariables(rule, action, snap),
			Source:     "rule:" + rule.Name,
			Kind:       "rule_triggered",
		})
	case types.ActionRuleDisable:
		return e.store.SetRuleEnabled(ctx, rule.ID, false)
	case types.ActionWebhook:
		return e.notifier.PostWebhook(ctx, action.URL, action.PayloadTemplate, interpolationVariables(rule, action, snap))
	}
	return fmt.Errorf("unknown action kind %s", action.Kind)
}

// interpolationVariables folds the values the rule's conditions read
// into the action's own variables, so templates can reference the
// sensor readings and device states that fired the rule. The action's
// variables win on collision.
func interpolationVariables(rule types.Rule, action types.Action, snap *snapshot) map[string]string {
	vars := make(map[string]string, len(snap.data)+len(action.Variables)+1)
	vars["rule"] = rule.Name

	for name, value := range snap.data {
		switch v := value.(type) {
		case float64:
			vars[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case string:
			vars[name] = v
		default:
			vars[name] = fmt.Sprintf("%v", v)
		}
	}

	for name, value := range action.Variables {
		vars[name] = value
	}

	return vars
}

func actionTarget(action types.Action) string {
	switch action.Kind {
	case types.ActionDeviceControl:
		return action.DeviceID
	case types.ActionNotification:
		return action.TemplateID
	case types.ActionWebhook:
		return action.URL
	}
	return ""
}

// Trigger fires a rule by hand. The condition tree and the hourly
// rate limit are bypassed, the cooldown is not.
func (e *Engine) Trigger(ctx context.Context, ruleID string) error {
	rule, err := e.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if !rule.Enabled {
		return ErrDisabled
	}

	if rule.CooldownSeconds > 0 && !rule.LastTriggeredAt.IsZero() {
		if time.Since(rule.LastTriggeredAt) < time.Duration(rule.CooldownSeconds)*time.Second {
			return ErrCoolingDown
		}
	}

	e.runRule(ctx, rule, true, false)

	return nil
}

func (e *Engine) CreateRule(ctx context.Context, rule types.Rule) (types.Rule, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	err := e.store.AddRule(ctx, rule)
	return rule, err
}

func (e *Engine) UpdateRule(ctx context.Context, rule types.Rule) error {
	err := e.store.UpdateRule(ctx, rule)
	if errors.Is(err, storage.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (e *Engine) DeleteRule(ctx context.Context, ruleID string) error {
	err := e.store.DeleteRule(ctx, ruleID)
	if errors.Is(err, storage.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (e *Engine) GetRule(ctx context.Context, ruleID string) (types.Rule, error) {
	rule, err := e.store.GetRule(ctx, storage.WithRuleID(ruleID))
	if errors.Is(err, storage.ErrNoRows) {
		return types.Rule{}, ErrNotFound
	}
	return rule, err
}

func (e *Engine) QueryRules(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Rule], error) {
	return e.store.QueryRules(ctx, conditions...)
}

func (e *Engine) QueryExecutions(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.RuleExecution], error) {
	return e.store.QueryRuleExecutions(ctx, conditions...)
}

func (e *Engine) SetEnabled(ctx context.Context, ruleID string, enabled bool) error {
	err := e.store.SetRuleEnabled(ctx, ruleID, enabled)
	if errors.Is(err, storage.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
