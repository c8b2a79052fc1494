// Package normalizer maps the loosely shaped payloads field devices
// publish into one canonical record per sensor kind. The alias tables
// are data, not code, so new device firmware variants are a table row
// away instead of a parser change.
package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
)

var ErrInvalidPayload = errors.New("invalid payload")

// Reading is a normalized sensor frame.
type Reading struct {
	Fields    map[string]any
	Quality   types.Quality
	Timestamp time.Time
}

// Command is a normalized desired-state request for a device.
type Command struct {
	DesiredState    bool
	RequestID       string
	RequestedAt     time.Time
	DurationSeconds int
	Value           *float64
}

// aliases maps lowercased inbound field names to the canonical
// vocabulary. Matching is case-insensitive; per-kind tables extend the
// shared one.
var commonAliases = map[string]string{
	"temp":        "temperatura",
	"temperature": "temperatura",
	"temperatura": "temperatura",
	"hum":         "humedad",
	"humidity":    "humedad",
	"humedad":     "humedad",
	"rssi":        "rssi",
	"boot":        "boot",
	"mem":         "mem",
}

var kindAliases = map[types.SensorKind]map[string]string{
	types.SensorKindWaterQuality: {
		"ph":  "ph",
		"ec":  "ec",
		"tds": "ppm",
		"ppm": "ppm",
	},
	types.SensorKindTempPressure: {
		"pres":     "presion",
		"pressure": "presion",
		"presion":  "presion",
	},
	types.SensorKindLight: {
		"light": "light",
		"luz":   "light",
		"lux":   "light",
	},
	types.SensorKindPower: {
		"watts":     "watts",
		"power":     "watts",
		"potencia":  "watts",
		"voltage":   "voltage",
		"volts":     "voltage",
		"voltaje":   "voltage",
		"current":   "current",
		"amps":      "current",
		"corriente": "current",
	},
}

// validityRanges holds the physically plausible interval per canonical
// field. Values outside the interval are kept but flag the frame.
var validityRanges = map[string][2]float64{
	"temperatura": {-40, 85},
	"humedad":     {0, 100},
	"ph":          {0, 14},
	"ec":          {0, 10000},
	"ppm":         {0, 5000},
	"presion":     {300, 1100},
	"light":       {0, 200000},
	"watts":       {0, 100000},
	"voltage":     {0, 500},
	"current":     {0, 100},
}

var mandatoryFields = map[types.SensorKind][]string{
	types.SensorKindTemHum:       {"temperatura", "humedad"},
	types.SensorKindWaterQuality: {"ph"},
	types.SensorKindTempPressure: {"temperatura", "presion"},
	types.SensorKindLight:        {"light"},
}

// legacyControlFields name the device-specific booleans old firmware
// publishes in place of estado.
var legacyControlFields = []string{"bombasw", "ventiladorsw", "calefactorsw", "calefactoraguasw"}

// Sensor normalizes a telemetry payload for a sensor of the given
// kind. Unknown fields pass through untouched so nothing is lost; the
// caller persists the original payload separately as raw.
func Sensor(kind types.SensorKind, payload []byte, receivedAt time.Time) (Reading, error) {
	var m map[string]any
	err := json.Unmarshal(payload, &m)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %s", ErrInvalidPayload, err.Error())
	}

	reading := Reading{
		Fields:    map[string]any{},
		Quality:   types.QualityOK,
		Timestamp: receivedAt,
	}

	for key, value := range m {
		canonical := canonicalField(kind, key)

		if canonical == "timestamp" {
			if ts, ok := value.(string); ok {
				if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
					reading.Timestamp = parsed
				}
			}
			continue
		}

		if number, ok := asNumber(value); ok {
			if r, bounded := validityRanges[canonical]; bounded && (number < r[0] || number > r[1]) {
				reading.Quality = types.QualityWarning
			}
			reading.Fields[canonical] = number
			continue
		}

		reading.Fields[canonical] = value
	}

	err = checkMandatory(kind, reading.Fields)
	if err != nil {
		return Reading{}, err
	}

	return reading, nil
}

func checkMandatory(kind types.SensorKind, fields map[string]any) error {
	if kind == types.SensorKindPower {
		for _, f := range []string{"watts", "voltage", "current"} {
			if _, ok := fields[f]; ok {
				return nil
			}
		}
		return fmt.Errorf("%w: power frame carries none of watts, voltage or current", ErrInvalidPayload)
	}

	for _, f := range mandatoryFields[kind] {
		if _, ok := fields[f]; !ok {
			return fmt.Errorf("%w: missing mandatory field %s", ErrInvalidPayload, f)
		}
	}

	return nil
}

// DeviceCommand normalizes an inbound desired-state request. Legacy
// per-device booleans are always folded into estado.
func DeviceCommand(payload []byte, receivedAt time.Time) (Command, error) {
	var m map[string]any
	err := json.Unmarshal(payload, &m)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %s", ErrInvalidPayload, err.Error())
	}

	cmd := Command{RequestedAt: receivedAt}
	found := false

	for key, value := range m {
		lower := strings.ToLower(key)

		switch lower {
		case "estado", "state":
			state, ok := asBool(value)
			if !ok {
				return Command{}, fmt.Errorf("%w: %s is not boolean-shaped", ErrInvalidPayload, key)
			}
			cmd.DesiredState = state
			found = true
		case "requestid":
			if s, ok := value.(string); ok {
				cmd.RequestID = s
			}
		case "requestedat":
			if s, ok := value.(string); ok {
				if parsed, err := time.Parse(time.RFC3339, s); err == nil {
					cmd.RequestedAt = parsed
				}
			}
		case "durationseconds":
			if n, ok := asNumber(value); ok {
				cmd.DurationSeconds = int(n)
			}
		case "value":
			if n, ok := asNumber(value); ok {
				cmd.Value = &n
			}
		default:
			for _, legacy := range legacyControlFields {
				if lower == legacy {
					state, ok := asBool(value)
					if !ok {
						return Command{}, fmt.Errorf("%w: %s is not boolean-shaped", ErrInvalidPayload, key)
					}
					cmd.DesiredState = state
					found = true
				}
			}
		}
	}

	if !found {
		return Command{}, fmt.Errorf("%w: missing mandatory field estado", ErrInvalidPayload)
	}

	return cmd, nil
}

func canonicalField(kind types.SensorKind, field string) string {
	lower := strings.ToLower(field)

	if aliases, ok := kindAliases[kind]; ok {
		if canonical, ok := aliases[lower]; ok {
			return canonical
		}
	}

	if canonical, ok := commonAliases[lower]; ok {
		return canonical
	}

	return lower
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// asBool accepts the boolean spellings seen in the field: JSON bools,
// 1/0 and the ON/OFF and ACTIVE/INACTIVE string pairs.
func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		if b == 1 {
			return true, true
		}
		if b == 0 {
			return false, true
		}
	case string:
		switch strings.ToUpper(strings.TrimSpace(b)) {
		case "TRUE", "1", "ON", "ACTIVE":
			return true, true
		case "FALSE", "0", "OFF", "INACTIVE":
			return false, true
		}
	}

	return false, false
}

// IsBoolShaped reports whether a raw payload value would coerce to a
// boolean; discovery scoring uses it to tell devices from sensors.
func IsBoolShaped(v any) bool {
	_, ok := asBool(v)
	return ok
}

// CanonicalField exposes the alias resolution for discovery, which
// needs to map sampled payload fields without a known kind yet.
func CanonicalField(kind types.SensorKind, field string) string {
	return canonicalField(kind, field)
}
