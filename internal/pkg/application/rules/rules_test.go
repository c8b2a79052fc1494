package rules

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/actuator"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/events"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/storage"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"github.com/matryer/is"
)

type fakeRuleStore struct {
	mu         sync.Mutex
	rules      map[string]types.Rule
	executions []types.RuleExecution
	triggered  []string
	hourly     int
}

func newFakeRuleStore(rules ...types.Rule) *fakeRuleStore {
	s := &fakeRuleStore{rules: map[string]types.Rule{}}
	for _, r := range rules {
		s.rules[r.ID] = r
	}
	return s
}

func (f *fakeRuleStore) AddRule(ctx context.Context, rule types.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[rule.ID] = rule
	return nil
}

func (f *fakeRuleStore) UpdateRule(ctx context.Context, rule types.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rules[rule.ID]; !ok {
		return storage.ErrNoRows
	}
	f.rules[rule.ID] = rule
	return nil
}

func (f *fakeRuleStore) DeleteRule(ctx context.Context, ruleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rules[ruleID]; !ok {
		return storage.ErrNoRows
	}
	delete(f.rules, ruleID)
	return nil
}

func (f *fakeRuleStore) SetRuleEnabled(ctx context.Context, ruleID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule, ok := f.rules[ruleID]
	if !ok {
		return storage.ErrNoRows
	}
	rule.Enabled = enabled
	f.rules[ruleID] = rule
	return nil
}

func (f *fakeRuleStore) RecordRuleTriggered(ctx context.Context, ruleID string, triggeredAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggered = append(f.triggered, ruleID)
	rule := f.rules[ruleID]
	rule.LastTriggeredAt = triggeredAt
	rule.TriggerCount++
	f.rules[ruleID] = rule
	return nil
}

func (f *fakeRuleStore) GetRule(ctx context.Context, conditions ...storage.ConditionFunc) (types.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rule := range f.rules {
		return rule, nil
	}
	return types.Rule{}, storage.ErrNoRows
}

func (f *fakeRuleStore) QueryRules(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Rule], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var data []types.Rule
	for _, rule := range f.rules {
		if rule.Enabled {
			data = append(data, rule)
		}
	}
	return types.Collection[types.Rule]{Data: data, Count: uint64(len(data))}, nil
}

func (f *fakeRuleStore) AddRuleExecution(ctx context.Context, execution types.RuleExecution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executions = append(f.executions, execution)
	return nil
}

func (f *fakeRuleStore) QueryRuleExecutions(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.RuleExecution], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.Collection[types.RuleExecution]{Data: f.executions, Count: uint64(len(f.executions))}, nil
}

func (f *fakeRuleStore) CountRuleExecutionsSince(ctx context.Context, ruleID string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hourly, nil
}

func (f *fakeRuleStore) recorded() []types.RuleExecution {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.RuleExecution{}, f.executions...)
}

type fakeEntities struct {
	sensors map[string]types.Sensor
	devices map[string]types.Device
}

func (f *fakeEntities) GetSensor(ctx context.Context, sensorID string) (types.Sensor, error) {
	if s, ok := f.sensors[sensorID]; ok {
		return s, nil
	}
	return types.Sensor{}, fmt.Errorf("no such sensor")
}

func (f *fakeEntities) GetDevice(ctx context.Context, deviceID string) (types.Device, error) {
	if d, ok := f.devices[deviceID]; ok {
		return d, nil
	}
	return types.Device{}, fmt.Errorf("no such device")
}

type fakeReadings struct {
	readings map[string]types.Reading
}

func (f *fakeReadings) GetLatestReading(ctx context.Context, kind types.SensorKind, sensorID string) (types.Reading, error) {
	if r, ok := f.readings[sensorID]; ok {
		return r, nil
	}
	return types.Reading{}, storage.ErrNoRows
}

type fakeController struct {
	mu       sync.Mutex
	requests []actuator.Request
	err      error
}

func (f *fakeController) Execute(ctx context.Context, req actuator.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.err
}

type postedWebhook struct {
	url       string
	template  string
	variables map[string]string
}

type fakeNotifier struct {
	mu       sync.Mutex
	requests []NotificationRequest
	webhooks []postedWebhook
}

func (f *fakeNotifier) Notify(ctx context.Context, req NotificationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakeNotifier) PostWebhook(ctx context.Context, url string, payloadTemplate string, variables map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhooks = append(f.webhooks, postedWebhook{url: url, template: payloadTemplate, variables: variables})
	return nil
}

func testEngine(store *fakeRuleStore, entities *fakeEntities, readings *fakeReadings, controller *fakeController, notifier *fakeNotifier) (*Engine, *events.Bus) {
	bus := events.NewBus()
	e := New(store, entities, readings, controller, notifier, bus)
	e.location = time.UTC
	return e, bus
}

func hotGreenhouseRule() types.Rule {
	return types.Rule{
		ID:      "r-1",
		Name:    "ventilate when hot",
		Enabled: true,
		Conditions: types.Condition{
			Kind: types.ConditionAnd,
			Conditions: []types.Condition{
				{Kind: types.ConditionSensor, SensorID: "s-1", Field: "temperatura", Operator: types.OpGreaterThan, Value: 30},
			},
		},
		Actions: []types.Action{
			{Kind: types.ActionDeviceControl, DeviceID: "d-1", Verb: types.VerbTurnOn},
		},
	}
}

func freshReading(fields map[string]any) types.Reading {
	return types.Reading{ReceivedAt: time.Now().UTC(), Normalized: fields}
}

func TestRuleTriggersAndRunsActions(t *testing.T) {
	is := is.New(t)
	store := newFakeRuleStore(hotGreenhouseRule())
	controller := &fakeController{}
	e, bus := testEngine(store,
		&fakeEntities{sensors: map[string]types.Sensor{"s-1": {ID: "s-1", Kind: types.SensorKindTemHum}}},
		&fakeReadings{readings: map[string]types.Reading{"s-1": freshReading(map[string]any{"temperatura": 35.0})}},
		controller, &fakeNotifier{})
	defer bus.Close()

	e.evaluateAll(context.Background(), false)

	is.Equal(len(controller.requests), 1)
	is.Equal(controller.requests[0].DeviceID, "d-1")
	is.Equal(controller.requests[0].Verb, actuator.VerbTurnOn)
	is.Equal(controller.requests[0].RuleID, "r-1")

	executions := store.recorded()
	is.Equal(len(executions), 1)
	is.True(executions[0].Success)
	is.Equal(executions[0].TriggerData["s-1.temperatura"], 35.0)
	is.Equal(store.triggered, []string{"r-1"})
}

func TestRuleDoesNotTriggerBelowThreshold(t *testing.T) {
	is := is.New(t)
	store := newFakeRuleStore(hotGreenhouseRule())
	controller := &fakeController{}
	e, bus := testEngine(store,
		&fakeEntities{sensors: map[string]types.Sensor{"s-1": {ID: "s-1", Kind: types.SensorKindTemHum}}},
		&fakeReadings{readings: map[string]types.Reading{"s-1": freshReading(map[string]any{"temperatura": 22.0})}},
		controller, &fakeNotifier{})
	defer bus.Close()

	e.evaluateAll(context.Background(), false)

	is.Equal(len(controller.requests), 0)
	is.Equal(len(store.recorded()), 0)
}

func TestStaleReadingMakesSensorLeafFalse(t *testing.T) {
	is := is.New(t)
	rule := hotGreenhouseRule()
	rule.Conditions.Conditions[0].MaxAgeSeconds = 60

	store := newFakeRuleStore(rule)
	controller := &fakeController{}
	stale := types.Reading{ReceivedAt: time.Now().UTC().Add(-time.Hour), Normalized: map[string]any{"temperatura": 40.0}}
	e, bus := testEngine(store,
		&fakeEntities{sensors: map[string]types.Sensor{"s-1": {ID: "s-1", Kind: types.SensorKindTemHum}}},
		&fakeReadings{readings: map[string]types.Reading{"s-1": stale}},
		controller, &fakeNotifier{})
	defer bus.Close()

	e.evaluateAll(context.Background(), false)

	is.Equal(len(controller.requests), 0)
}

func TestFailingActionDoesNotStopTheRest(t *testing.T) {
	is := is.New(t)
	rule := hotGreenhouseRule()
	rule.Actions = append(rule.Actions, types.Action{
		Kind: types.ActionNotification, Title: "hot", Body: "too hot", Severity: types.SeverityHigh,
	})

	store := newFakeRuleStore(rule)
	controller := &fakeController{err: fmt.Errorf("device unreachable")}
	notifier := &fakeNotifier{}
	e, bus := testEngine(store,
		&fakeEntities{sensors: map[string]types.Sensor{"s-1": {ID: "s-1", Kind: types.SensorKindTemHum}}},
		&fakeReadings{readings: map[string]types.Reading{"s-1": freshReading(map[string]any{"temperatura": 35.0})}},
		controller, notifier)
	defer bus.Close()

	e.evaluateAll(context.Background(), false)

	is.Equal(len(notifier.requests), 1)

	executions := store.recorded()
	is.Equal(len(executions), 1)
	is.True(!executions[0].Success)
	is.Equal(executions[0].ErrorMessage, "device unreachable")
	is.Equal(len(executions[0].ActionsExecuted), 2)
	is.True(!executions[0].ActionsExecuted[0].Success)
	is.True(executions[0].ActionsExecuted[1].Success)
}

func TestActionsReceiveTheTriggeringValues(t *testing.T) {
	is := is.New(t)
	rule := hotGreenhouseRule()
	rule.Actions = []types.Action{
		{Kind: types.ActionNotification, Title: "hot", Body: "{{s-1.temperatura}} degrees", Variables: map[string]string{"zone": "norte"}},
		{Kind: types.ActionWebhook, URL: "http://hook", PayloadTemplate: `{"temp":{{s-1.temperatura}}}`},
	}

	store := newFakeRuleStore(rule)
	notifier := &fakeNotifier{}
	e, bus := testEngine(store,
		&fakeEntities{sensors: map[string]types.Sensor{"s-1": {ID: "s-1", Kind: types.SensorKindTemHum}}},
		&fakeReadings{readings: map[string]types.Reading{"s-1": freshReading(map[string]any{"temperatura": 35.5})}},
		&fakeController{}, notifier)
	defer bus.Close()

	e.evaluateAll(context.Background(), false)

	is.Equal(len(notifier.requests), 1)
	is.Equal(notifier.requests[0].Variables["s-1.temperatura"], "35.5")
	is.Equal(notifier.requests[0].Variables["zone"], "norte")
	is.Equal(notifier.requests[0].Variables["rule"], "ventilate when hot")

	is.Equal(len(notifier.webhooks), 1)
	is.Equal(notifier.webhooks[0].url, "http://hook")
	is.Equal(notifier.webhooks[0].variables["s-1.temperatura"], "35.5")
}

func TestCooldownSuppressesRetrigger(t *testing.T) {
	is := is.New(t)
	rule := hotGreenhouseRule()
	rule.CooldownSeconds = 300
	rule.LastTriggeredAt = time.Now().UTC().Add(-time.Minute)

	store := newFakeRuleStore(rule)
	controller := &fakeController{}
	e, bus := testEngine(store,
		&fakeEntities{sensors: map[string]types.Sensor{"s-1": {ID: "s-1", Kind: types.SensorKindTemHum}}},
		&fakeReadings{readings: map[string]types.Reading{"s-1": freshReading(map[string]any{"temperatura": 35.0})}},
		controller, &fakeNotifier{})
	defer bus.Close()

	e.evaluateAll(context.Background(), false)
	is.Equal(len(controller.requests), 0)

	err := e.Trigger(context.Background(), "r-1")
	is.Equal(err, ErrCoolingDown)
}

func TestHourlyRateLimit(t *testing.T) {
	is := is.New(t)
	rule := hotGreenhouseRule()
	rule.MaxExecutionsPerHour = 4

	store := newFakeRuleStore(rule)
	store.hourly = 4
	controller := &fakeController{}
	e, bus := testEngine(store,
		&fakeEntities{sensors: map[string]types.Sensor{"s-1": {ID: "s-1", Kind: types.SensorKindTemHum}}},
		&fakeReadings{readings: map[string]types.Reading{"s-1": freshReading(map[string]any{"temperatura": 35.0})}},
		controller, &fakeNotifier{})
	defer bus.Close()

	e.evaluateAll(context.Background(), false)
	is.Equal(len(controller.requests), 0)

	// manual triggering ignores the hourly budget
	err := e.Trigger(context.Background(), "r-1")
	is.NoErr(err)
	is.Equal(len(controller.requests), 1)
}

func TestManualTriggerBypassesConditions(t *testing.T) {
	is := is.New(t)
	store := newFakeRuleStore(hotGreenhouseRule())
	controller := &fakeController{}
	e, bus := testEngine(store,
		&fakeEntities{sensors: map[string]types.Sensor{"s-1": {ID: "s-1", Kind: types.SensorKindTemHum}}},
		&fakeReadings{readings: map[string]types.Reading{"s-1": freshReading(map[string]any{"temperatura": 10.0})}},
		controller, &fakeNotifier{})
	defer bus.Close()

	err := e.Trigger(context.Background(), "r-1")
	is.NoErr(err)
	is.Equal(len(controller.requests), 1)
}

func TestEmptyGroupsAndNegation(t *testing.T) {
	is := is.New(t)
	e, bus := testEngine(newFakeRuleStore(), &fakeEntities{}, &fakeReadings{}, &fakeController{}, &fakeNotifier{})
	defer bus.Close()

	ctx := context.Background()
	snap := e.newSnapshot(time.Now().UTC())

	is.True(e.evaluate(ctx, types.Condition{Kind: types.ConditionAnd}, snap))
	is.True(!e.evaluate(ctx, types.Condition{Kind: types.ConditionOr}, snap))
	is.True(!e.evaluate(ctx, types.Condition{Kind: types.ConditionNot}, snap))
	is.True(!e.evaluate(ctx, types.Condition{
		Kind:       types.ConditionNot,
		Conditions: []types.Condition{{Kind: types.ConditionAnd}},
	}, snap))
}

func TestOptionsOverrideSchedulingDefaults(t *testing.T) {
	is := is.New(t)
	bus := events.NewBus()
	defer bus.Close()

	e := New(newFakeRuleStore(), &fakeEntities{}, &fakeReadings{}, &fakeController{}, &fakeNotifier{}, bus,
		WithEvaluationPeriod(10*time.Second), WithLocation(time.UTC))
	is.Equal(e.period, 10*time.Second)
	is.Equal(e.location, time.UTC)

	// zero values leave the defaults alone
	e = New(newFakeRuleStore(), &fakeEntities{}, &fakeReadings{}, &fakeController{}, &fakeNotifier{}, bus,
		WithEvaluationPeriod(0), WithLocation(nil))
	is.Equal(e.period, evaluationPeriod)
	is.Equal(e.location, time.Local)
}

func TestTimeWindowsWrapMidnight(t *testing.T) {
	is := is.New(t)

	at := func(hhmm string) time.Time {
		t, _ := time.Parse("15:04", hhmm)
		return t
	}

	is.True(inTimeWindow("08:00", "18:00", at("12:00")))
	is.True(!inTimeWindow("08:00", "18:00", at("19:00")))
	is.True(inTimeWindow("22:00", "06:00", at("23:30")))
	is.True(inTimeWindow("22:00", "06:00", at("03:00")))
	is.True(!inTimeWindow("22:00", "06:00", at("12:00")))
	is.True(!inTimeWindow("nope", "06:00", at("12:00")))
}

func TestDeviceLeafRequiresConfirmationUnlessOptimistic(t *testing.T) {
	is := is.New(t)
	e, bus := testEngine(newFakeRuleStore(), &fakeEntities{devices: map[string]types.Device{
		"confirmed":   {ID: "confirmed", Status: types.DeviceOn, LastConfirmedAt: time.Now().UTC()},
		"unconfirmed": {ID: "unconfirmed", Status: types.DeviceOn},
	}}, &fakeReadings{}, &fakeController{}, &fakeNotifier{})
	defer bus.Close()

	ctx := context.Background()
	snap := e.newSnapshot(time.Now().UTC())

	is.True(e.evaluate(ctx, types.Condition{Kind: types.ConditionDevice, DeviceID: "confirmed", StateEquals: types.DeviceOn}, snap))
	is.True(!e.evaluate(ctx, types.Condition{Kind: types.ConditionDevice, DeviceID: "unconfirmed", StateEquals: types.DeviceOn}, snap))
	is.True(e.evaluate(ctx, types.Condition{Kind: types.ConditionDevice, DeviceID: "unconfirmed", StateEquals: types.DeviceOn, Optimistic: true}, snap))
}
