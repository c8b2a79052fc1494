// Package discovery watches topics that resolve to no known entity,
// buffers a few payload samples and decides whether the publisher
// looks like a sensor, a device, or noise.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/normalizer"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

var (
	ErrUnknownTopic  = errors.New("topic is not under analysis")
	ErrNotActionable = errors.New("topic is not awaiting approval")
)

//go:generate moq -rm -out discovery_mock.go . EntityCreator

// EntityCreator is the subset of device management that discovery
// needs to materialize an approved or auto-created entity.
type EntityCreator interface {
	CreateSensor(ctx context.Context, sensor types.Sensor) error
	CreateDevice(ctx context.Context, device types.Device) error
}

type Config struct {
	MinSamples          int
	AnalysisWindow      time.Duration
	AutoCreateThreshold int
	ApprovalThreshold   int
}

func DefaultConfig() Config {
	return Config{
		MinSamples:          3,
		AnalysisWindow:      60 * time.Second,
		AutoCreateThreshold: 90,
		ApprovalThreshold:   70,
	}
}

type sample struct {
	payload    json.RawMessage
	receivedAt time.Time
}

type topicState struct {
	firstSeen    time.Time
	samples      []sample
	messageCount int
	sensorScore  int
	deviceScore  int
	status       types.TopicStatus
	decided      bool
}

type Discovery struct {
	cfg     Config
	creator EntityCreator

	mu     sync.Mutex
	topics map[string]*topicState
}

func New(creator EntityCreator, cfg Config) *Discovery {
	return &Discovery{
		cfg:     cfg,
		creator: creator,
		topics:  map[string]*topicState{},
	}
}

// Observe records a frame from an unresolved topic and, once enough
// samples have accumulated inside the analysis window, scores the
// topic and acts on the verdict.
func (d *Discovery) Observe(ctx context.Context, topic string, payload []byte, receivedAt time.Time) {
	d.mu.Lock()

	state, ok := d.topics[topic]
	if ok && receivedAt.Sub(state.firstSeen) > d.cfg.AnalysisWindow {
		// stale buffer; restart analysis from scratch
		ok = false
	}
	if !ok {
		state = &topicState{firstSeen: receivedAt, status: types.TopicAnalyzing}
		d.topics[topic] = state
	}

	state.messageCount++

	if state.decided {
		d.mu.Unlock()
		return
	}

	state.samples = append(state.samples, sample{payload: append(json.RawMessage{}, payload...), receivedAt: receivedAt})

	if len(state.samples) < d.cfg.MinSamples {
		d.mu.Unlock()
		return
	}

	state.sensorScore, state.deviceScore = score(topic, state.samples)
	state.decided = true

	best := max(state.sensorScore, state.deviceScore)

	switch {
	case best >= d.cfg.AutoCreateThreshold:
		state.status = types.TopicAutoCreated
	case best >= d.cfg.ApprovalThreshold:
		state.status = types.TopicAnalyzing
	default:
		state.status = types.TopicRejected
	}

	samples := state.samples
	sensorScore, deviceScore, status := state.sensorScore, state.deviceScore, state.status
	d.mu.Unlock()

	log := logging.GetFromContext(ctx)
	log.Info("scored unknown topic", "topic", topic,
		"sensor_score", sensorScore, "device_score", deviceScore, "status", string(status))

	if status != types.TopicAutoCreated {
		return
	}

	err := d.create(ctx, topic, samples, sensorScore >= deviceScore)
	if err != nil {
		log.Error("failed to auto-create entity", "topic", topic, "err", err.Error())
	}
}

// Approve materializes a topic that scored into the manual-approval
// band. asSensor selects which interpretation to create.
func (d *Discovery) Approve(ctx context.Context, topic string, asSensor bool) error {
	d.mu.Lock()
	state, ok := d.topics[topic]
	if !ok {
		d.mu.Unlock()
		return ErrUnknownTopic
	}
	if state.status != types.TopicAnalyzing || !state.decided {
		d.mu.Unlock()
		return ErrNotActionable
	}

	state.status = types.TopicAutoCreated
	samples := state.samples
	d.mu.Unlock()

	return d.create(ctx, topic, samples, asSensor)
}

func (d *Discovery) Reject(ctx context.Context, topic string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, ok := d.topics[topic]
	if !ok {
		return ErrUnknownTopic
	}

	state.status = types.TopicRejected
	state.decided = true

	return nil
}

// UnknownTopics lists the analysis state for inspection via the API.
func (d *Discovery) UnknownTopics() []types.UnknownTopic {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := make([]types.UnknownTopic, 0, len(d.topics))

	for topic, state := range d.topics {
		ut := types.UnknownTopic{
			Topic:        topic,
			FirstSeen:    state.firstSeen,
			MessageCount: state.messageCount,
			SensorScore:  state.sensorScore,
			DeviceScore:  state.deviceScore,
			Status:       state.status,
		}
		if n := len(state.samples); n > 0 {
			ut.LastSample = state.samples[n-1].payload
		}
		ut.Samples = lo.Map(state.samples, func(s sample, _ int) json.RawMessage {
			return s.payload
		})
		result = append(result, ut)
	}

	return result
}

func (d *Discovery) create(ctx context.Context, topic string, samples []sample, asSensor bool) error {
	hardwareID := hardwareIDFromTopic(topic)
	last := samples[len(samples)-1]

	var fields map[string]any
	json.Unmarshal(last.payload, &fields)

	if asSensor {
		detected := sensorKindFingerprint(fields)

		sensor := types.Sensor{
			ID:         uuid.NewString(),
			HardwareID: hardwareID,
			Name:       hardwareID,
			Kind:       detected,
			MQTTTopic:  topic,
			Active:     true,
			Configuration: types.SensorConfiguration{
				AutoDiscovered: true,
				DetectedKind:   strings.ToLower(string(detected)),
				CanonicalKind:  string(detected),
				DiscoveredFrom: topic,
				PayloadFields:  canonicalFieldList(detected, fields),
			},
		}

		return d.creator.CreateSensor(ctx, sensor)
	}

	detected, canonical := deviceKindFromTopic(topic, fields)

	device := types.Device{
		ID:               uuid.NewString(),
		HardwareID:       hardwareID,
		Name:             hardwareID,
		Kind:             canonical,
		MQTTCommandTopic: topic,
		MQTTStatusTopic:  statusTopicFor(topic),
		Status:           types.DeviceOff,
		Active:           true,
		Configuration: types.DeviceConfiguration{
			AutoDiscovered:     true,
			DetectedKind:       detected,
			CanonicalKind:      string(canonical),
			DiscoveredFrom:     topic,
			LegacyCommandField: legacyField(fields),
		},
	}

	return d.creator.CreateDevice(ctx, device)
}

var sensorVocabulary = map[string]struct{}{
	"temperatura": {}, "humedad": {}, "ph": {}, "ec": {}, "ppm": {},
	"presion": {}, "light": {}, "watts": {}, "voltage": {}, "current": {},
	"temp": {}, "humidity": {}, "lux": {}, "luz": {}, "tds": {}, "pressure": {},
}

var diagnosticFields = map[string]struct{}{
	"rssi": {}, "boot": {}, "mem": {}, "timestamp": {},
}

func score(topic string, samples []sample) (sensorScore, deviceScore int) {
	suffix := topicSuffix(topic)

	switch suffix {
	case "data", "reading":
		sensorScore += 20
	case "sw", "control", "command", "set":
		deviceScore += 25
	}
	if strings.Contains(topic, "/sensor/") {
		sensorScore += 20
	}

	var fields map[string]any
	json.Unmarshal(samples[len(samples)-1].payload, &fields)

	numeric, boolean := 0, 0
	vocabOverlap, controlShaped := false, false

	for name, value := range fields {
		lower := strings.ToLower(name)

		if _, ok := diagnosticFields[lower]; ok {
			sensorScore += 5
			continue
		}

		if _, ok := value.(float64); ok {
			numeric++
		}
		if normalizer.IsBoolShaped(value) {
			boolean++
		}
		if _, ok := sensorVocabulary[lower]; ok {
			vocabOverlap = true
		}
		if isControlField(lower) {
			controlShaped = true
		}
	}

	if numeric >= 2 {
		sensorScore += 25
	}
	if vocabOverlap {
		sensorScore += 25
	}
	if !controlShaped {
		sensorScore += 15
	}
	if sensorKindFingerprint(fields) != types.SensorKindCustom {
		sensorScore += 15
	}

	if boolean > 0 {
		deviceScore += 30
	}
	if controlShaped {
		deviceScore += 20
	}
	if !vocabOverlap {
		deviceScore += 15
	}
	if numeric == len(fields) && numeric > 0 {
		deviceScore -= 10
	}

	return sensorScore, deviceScore
}

func isControlField(lower string) bool {
	if strings.HasSuffix(lower, "sw") {
		return true
	}
	switch lower {
	case "estado", "state", "command", "action":
		return true
	}
	return false
}

func sensorKindFingerprint(fields map[string]any) types.SensorKind {
	has := func(names ...string) bool {
		for _, n := range names {
			found := false
			for f := range fields {
				if normalizer.CanonicalField(types.SensorKindCustom, f) == n ||
					strings.EqualFold(f, n) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}

	hasAny := func(names ...string) bool {
		for _, n := range names {
			for f := range fields {
				lower := strings.ToLower(f)
				if lower == n {
					return true
				}
			}
		}
		return false
	}

	switch {
	case hasAny("ph", "ec", "ppm", "tds"):
		return types.SensorKindWaterQuality
	case has("temperatura", "humedad") || (hasAny("temp", "temperatura", "temperature") && hasAny("hum", "humedad", "humidity")):
		return types.SensorKindTemHum
	case hasAny("presion", "pressure", "pres"):
		return types.SensorKindTempPressure
	case hasAny("light", "lux", "luz"):
		return types.SensorKindLight
	case hasAny("watts", "voltage", "current", "power"):
		return types.SensorKindPower
	default:
		return types.SensorKindCustom
	}
}

// deviceKindFromTopic infers the device kind from the hardware segment
// of the topic and, failing that, from the legacy control field name.
// More specific substrings are checked first.
func deviceKindFromTopic(topic string, fields map[string]any) (detected string, canonical types.DeviceKind) {
	segment := strings.ToLower(hardwareIDFromTopic(topic))
	if f := legacyField(fields); f != "" {
		segment += " " + strings.ToLower(f)
	}

	switch {
	case strings.Contains(segment, "calefactoragua"):
		return "water_heater", types.DeviceKindWaterHeater
	case strings.Contains(segment, "calefactor"):
		return "heater", types.DeviceKindHeater
	case strings.Contains(segment, "bomba"):
		return "water_pump", types.DeviceKindWaterPump
	case strings.Contains(segment, "ventilador"):
		return "ventilator", types.DeviceKindVentilator
	case strings.Contains(segment, "led"), strings.Contains(segment, "luz"):
		return "lights", types.DeviceKindLights
	default:
		return "relay", types.DeviceKindRelay
	}
}

func legacyField(fields map[string]any) string {
	for name := range fields {
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, "sw") && lower != "sw" {
			return name
		}
	}
	return ""
}

func canonicalFieldList(kind types.SensorKind, fields map[string]any) []string {
	seen := map[string]struct{}{}
	list := make([]string, 0, len(fields))

	for name := range fields {
		canonical := normalizer.CanonicalField(kind, name)
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		list = append(list, canonical)
	}

	return list
}

func hardwareIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return strings.ToLower(topic)
	}
	return strings.ToLower(parts[1])
}

func topicSuffix(topic string) string {
	i := strings.LastIndex(topic, "/")
	if i < 0 {
		return ""
	}
	return strings.ToLower(topic[i+1:])
}

func statusTopicFor(commandTopic string) string {
	i := strings.LastIndex(commandTopic, "/")
	if i < 0 {
		return commandTopic + "/status"
	}
	return commandTopic[:i] + "/status"
}

