// Package actuator turns verbs into MQTT commands and reconciles the
// optimistic device state with the status replies the hardware sends
// back. Commands for one device are serialized through a dedicated
// worker so they reach the wire in order.
package actuator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/devices"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/normalizer"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/events"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

const (
	defaultAckTimeout = 10 * time.Second
	workerQueueSize   = 16
)

var ErrNotFound = fmt.Errorf("device not found")
var ErrNotActive = fmt.Errorf("device is not active")
var ErrUnknownVerb = fmt.Errorf("unknown verb")

type Verb string

const (
	VerbTurnOn  Verb = "TURN_ON"
	VerbTurnOff Verb = "TURN_OFF"
	VerbToggle  Verb = "TOGGLE"
	VerbSet     Verb = "SET"
)

// Request is one actuation order. RuleID and Source are carried into
// the audit trail; Value only applies to SET.
type Request struct {
	DeviceID        string
	Verb            Verb
	Value           *float64
	DurationSeconds int
	RuleID          string
	Source          string
}

//go:generate moq -rm -out publisher_mock.go . Publisher

// Publisher puts a command payload on an MQTT topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// StateNotifier is told about state changes on devices that have
// notifications enabled.
type StateNotifier interface {
	NotifyDeviceState(ctx context.Context, device types.Device, previous, next types.DeviceStatus, authoritative bool)
}

// DeviceStore is the persistence slice the actuator writes through.
type DeviceStore interface {
	SetDeviceStatus(ctx context.Context, deviceID string, status types.DeviceStatus, authoritative bool, observedAt time.Time) error
	AddDeviceEvent(ctx context.Context, event types.DeviceEvent) error
}

type pendingCommand struct {
	requestID string
	target    types.DeviceStatus
	ruleID    string
	timer     *time.Timer
}

type deviceWorker struct {
	queue chan func()

	mu      sync.Mutex
	pending []*pendingCommand
}

type Actuator struct {
	registry   devices.Management
	store      DeviceStore
	publisher  Publisher
	bus        *events.Bus
	notifier   StateNotifier
	ackTimeout time.Duration

	mu      sync.Mutex
	workers map[string]*deviceWorker
	closed  bool
}

type Option func(*Actuator)

// WithAckTimeout overrides how long a command may stay unconfirmed.
func WithAckTimeout(timeout time.Duration) Option {
	return func(a *Actuator) {
		if timeout > 0 {
			a.ackTimeout = timeout
		}
	}
}

func New(registry devices.Management, store DeviceStore, publisher Publisher, bus *events.Bus, notifier StateNotifier, opts ...Option) *Actuator {
	a := &Actuator{
		registry:   registry,
		store:      store,
		publisher:  publisher,
		bus:        bus,
		notifier:   notifier,
		ackTimeout: defaultAckTimeout,
		workers:    map[string]*deviceWorker{},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Actuator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	for _, w := range a.workers {
		close(w.queue)
	}
}

// Execute resolves the verb against the device's last observed state
// and hands the command to the device's worker.
func (a *Actuator) Execute(ctx context.Context, req Request) error {
	device, err := a.registry.GetDevice(ctx, req.DeviceID)
	if errors.Is(err, devices.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !device.Active {
		return ErrNotActive
	}

	target, err := targetStatus(req.Verb, device.Status)
	if err != nil {
		return err
	}

	worker := a.worker(device.ID)
	if worker == nil {
		return fmt.Errorf("actuator is stopped")
	}

	worker.queue <- func() {
		a.send(ctx, device, target, req)
	}

	return nil
}

func targetStatus(verb Verb, observed types.DeviceStatus) (types.DeviceStatus, error) {
	switch verb {
	case VerbTurnOn, VerbSet:
		return types.DeviceOn, nil
	case VerbTurnOff:
		return types.DeviceOff, nil
	case VerbToggle:
		// a device we cannot see is assumed off
		if observed == types.DeviceOn {
			return types.DeviceOff, nil
		}
		return types.DeviceOn, nil
	}
	return "", ErrUnknownVerb
}

func statusFromBool(on bool) types.DeviceStatus {
	if on {
		return types.DeviceOn
	}
	return types.DeviceOff
}

func (a *Actuator) worker(deviceID string) *deviceWorker {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}

	w, ok := a.workers[deviceID]
	if !ok {
		w = &deviceWorker{queue: make(chan func(), workerQueueSize)}
		a.workers[deviceID] = w
		go func() {
			for task := range w.queue {
				task()
			}
		}()
	}
	return w
}

func (a *Actuator) send(ctx context.Context, device types.Device, target types.DeviceStatus, req Request) {
	log := logging.GetFromContext(ctx)

	requestID := uuid.NewString()
	requestedAt := time.Now().UTC()

	payload := map[string]any{
		"estado":      target == types.DeviceOn,
		"requestId":   requestID,
		"requestedAt": requestedAt.Format(time.RFC3339),
	}
	if req.DurationSeconds > 0 {
		payload["durationSeconds"] = req.DurationSeconds
	}
	if req.Verb == VerbSet && req.Value != nil {
		payload["value"] = *req.Value
	}
	if field := device.Configuration.LegacyCommandField; field != "" {
		payload[field] = target == types.DeviceOn
	}

	b, _ := json.Marshal(payload)
	err := a.publisher.Publish(ctx, device.MQTTCommandTopic, b)
	if err != nil {
		log.Error("could not publish command", "device_id", device.ID, "topic", device.MQTTCommandTopic, "err", err.Error())
	}

	a.transition(ctx, device, target, false, requestID, req.RuleID, requestedAt)
	a.registerPending(ctx, device, requestID, target, req.RuleID)

	if req.DurationSeconds > 0 {
		reverse := Request{DeviceID: req.DeviceID, RuleID: req.RuleID, Source: req.Source}
		if target == types.DeviceOn {
			reverse.Verb = VerbTurnOff
		} else {
			reverse.Verb = VerbTurnOn
		}
		time.AfterFunc(time.Duration(req.DurationSeconds)*time.Second, func() {
			err := a.Execute(ctx, reverse)
			if err != nil {
				log.Error("timed command reversal failed", "device_id", req.DeviceID, "err", err.Error())
			}
		})
	}
}

// registerPending arms the ack timer. A device that never confirms
// within the timeout is flipped to ERROR.
func (a *Actuator) registerPending(ctx context.Context, device types.Device, requestID string, target types.DeviceStatus, ruleID string) {
	worker := a.worker(device.ID)
	if worker == nil {
		return
	}

	pending := &pendingCommand{requestID: requestID, target: target, ruleID: ruleID}
	pending.timer = time.AfterFunc(a.ackTimeout, func() {
		if _, ok := a.takePending(device.ID, requestID); !ok {
			return
		}
		logging.GetFromContext(ctx).Warn("command was never confirmed", "device_id", device.ID, "request_id", requestID)
		device.Status = target
		a.transition(ctx, device, types.DeviceError, false, requestID, ruleID, time.Now().UTC())
	})

	worker.mu.Lock()
	worker.pending = append(worker.pending, pending)
	worker.mu.Unlock()
}

// takePending removes and returns the outstanding command, if the
// request is still pending. An empty requestID takes the oldest one.
func (a *Actuator) takePending(deviceID, requestID string) (*pendingCommand, bool) {
	a.mu.Lock()
	worker, ok := a.workers[deviceID]
	a.mu.Unlock()
	if !ok {
		return nil, false
	}

	worker.mu.Lock()
	defer worker.mu.Unlock()

	for i, p := range worker.pending {
		if requestID == "" || p.requestID == requestID {
			p.timer.Stop()
			worker.pending = append(worker.pending[:i], worker.pending[i+1:]...)
			return p, true
		}
	}

	return nil, false
}

// HandleStatusReply reconciles a frame from a device's status topic
// with the outstanding command, if any. Status replies are
// authoritative whether solicited or not.
func (a *Actuator) HandleStatusReply(ctx context.Context, device types.Device, payload []byte, receivedAt time.Time) {
	log := logging.GetFromContext(ctx)

	reply, err := normalizer.DeviceCommand(payload, receivedAt)
	if err != nil {
		log.Warn("dropping unreadable status reply", "device_id", device.ID, "err", err.Error())
		return
	}

	// keyed replies settle their own command, unkeyed ones the oldest
	ruleID := ""
	if pending, ok := a.takePending(device.ID, reply.RequestID); ok {
		ruleID = pending.ruleID
	}

	a.transition(ctx, device, statusFromBool(reply.DesiredState), true, reply.RequestID, ruleID, receivedAt)
}

// HandleInboundCommand records a command some other controller put on
// the device's command topic. The hardware will act on it, so the
// observed state moves optimistically without re-publishing.
func (a *Actuator) HandleInboundCommand(ctx context.Context, device types.Device, cmd normalizer.Command) {
	target := statusFromBool(cmd.DesiredState)
	a.transition(ctx, device, target, false, cmd.RequestID, "", cmd.RequestedAt)

	if device.MQTTStatusTopic != "" {
		a.registerPending(ctx, device, cmd.RequestID, target, "")
	}
}

func (a *Actuator) transition(ctx context.Context, device types.Device, next types.DeviceStatus, authoritative bool, requestID, ruleID string, observedAt time.Time) {
	log := logging.GetFromContext(ctx)
	previous := device.Status

	err := a.store.SetDeviceStatus(ctx, device.ID, next, authoritative, observedAt)
	if err != nil {
		log.Error("could not persist device status", "device_id", device.ID, "err", err.Error())
		return
	}

	err = a.store.AddDeviceEvent(ctx, types.DeviceEvent{
		ID:            uuid.NewString(),
		DeviceID:      device.ID,
		RequestID:     requestID,
		RuleID:        ruleID,
		PreviousValue: previous,
		NewValue:      next,
		Authoritative: authoritative,
		ObservedAt:    observedAt,
	})
	if err != nil {
		log.Error("could not record device event", "device_id", device.ID, "err", err.Error())
	}

	err = a.bus.Publish(ctx, &types.DeviceStateChanged{
		DeviceID:       device.ID,
		HardwareID:     device.HardwareID,
		Kind:           device.Kind,
		PreviousStatus: previous,
		Status:         next,
		Authoritative:  authoritative,
		RequestID:      requestID,
		ObservedAt:     observedAt,
	})
	if err != nil {
		log.Error("could not publish device state event", "err", err.Error())
	}

	if device.NotificationsEnabled && previous != next && a.notifier != nil {
		a.notifier.NotifyDeviceState(ctx, device, previous, next, authoritative)
	}
}
