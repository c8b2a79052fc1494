package normalizer

import (
	"errors"
	"testing"
	"time"

	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"github.com/matryer/is"
)

func TestSensorAliasesAreCaseInsensitive(t *testing.T) {
	is := is.New(t)

	now := time.Now().UTC()
	reading, err := Sensor(types.SensorKindTemHum, []byte(`{"Temp":26.2,"Humidity":43.0,"rssi":-78}`), now)

	is.NoErr(err)
	is.Equal(reading.Fields["temperatura"], 26.2)
	is.Equal(reading.Fields["humedad"], 43.0)
	is.Equal(reading.Fields["rssi"], -78.0)
	is.Equal(reading.Quality, types.QualityOK)
	is.Equal(reading.Timestamp, now)
}

func TestSensorWaterQualityAliases(t *testing.T) {
	is := is.New(t)

	reading, err := Sensor(types.SensorKindWaterQuality, []byte(`{"pH":5,"ec":1000,"tds":1000,"temp":18}`), time.Now())

	is.NoErr(err)
	is.Equal(reading.Fields["ph"], 5.0)
	is.Equal(reading.Fields["ec"], 1000.0)
	is.Equal(reading.Fields["ppm"], 1000.0)
	is.Equal(reading.Fields["temperatura"], 18.0)
}

func TestSensorOutOfRangeFlagsWarning(t *testing.T) {
	is := is.New(t)

	reading, err := Sensor(types.SensorKindTemHum, []byte(`{"temperatura":26.0,"humedad":135.0}`), time.Now())

	is.NoErr(err)
	is.Equal(reading.Quality, types.QualityWarning)
	is.Equal(reading.Fields["humedad"], 135.0) // kept, not clamped
}

func TestSensorMissingMandatoryFieldRejects(t *testing.T) {
	is := is.New(t)

	_, err := Sensor(types.SensorKindTemHum, []byte(`{"temperatura":26.0}`), time.Now())
	is.True(errors.Is(err, ErrInvalidPayload))

	_, err = Sensor(types.SensorKindWaterQuality, []byte(`{"ec":1000}`), time.Now())
	is.True(errors.Is(err, ErrInvalidPayload))
}

func TestSensorPowerAcceptsAnyOfItsFields(t *testing.T) {
	is := is.New(t)

	_, err := Sensor(types.SensorKindPower, []byte(`{"voltage":231.4}`), time.Now())
	is.NoErr(err)

	_, err = Sensor(types.SensorKindPower, []byte(`{"rssi":-60}`), time.Now())
	is.True(errors.Is(err, ErrInvalidPayload))
}

func TestSensorPayloadTimestampWins(t *testing.T) {
	is := is.New(t)

	received := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reading, err := Sensor(types.SensorKindLight, []byte(`{"lux":820,"timestamp":"2026-03-01T11:59:30Z"}`), received)

	is.NoErr(err)
	is.Equal(reading.Timestamp, time.Date(2026, 3, 1, 11, 59, 30, 0, time.UTC))
}

func TestDeviceCommandLegacyAlias(t *testing.T) {
	is := is.New(t)

	cmd, err := DeviceCommand([]byte(`{"bombaSw":true}`), time.Now())

	is.NoErr(err)
	is.True(cmd.DesiredState)
}

func TestDeviceCommandCanonicalForm(t *testing.T) {
	is := is.New(t)

	cmd, err := DeviceCommand([]byte(`{"estado":"OFF","requestId":"req-1","durationSeconds":120}`), time.Now())

	is.NoErr(err)
	is.True(!cmd.DesiredState)
	is.Equal(cmd.RequestID, "req-1")
	is.Equal(cmd.DurationSeconds, 120)
}

func TestDeviceCommandRequiresState(t *testing.T) {
	is := is.New(t)

	_, err := DeviceCommand([]byte(`{"value":42}`), time.Now())
	is.True(errors.Is(err, ErrInvalidPayload))
}

func TestBoolCoercion(t *testing.T) {
	is := is.New(t)

	for _, v := range []any{true, 1.0, "ON", "on", "ACTIVE", "1", "true"} {
		got, ok := asBool(v)
		is.True(ok)
		is.True(got)
	}

	for _, v := range []any{false, 0.0, "OFF", "inactive", "0", "false"} {
		got, ok := asBool(v)
		is.True(ok)
		is.True(!got)
	}

	_, ok := asBool("maybe")
	is.True(!ok)
	_, ok = asBool(2.0)
	is.True(!ok)
}
