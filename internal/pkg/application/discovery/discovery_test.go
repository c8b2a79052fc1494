package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"github.com/matryer/is"
)

func TestWaterQualitySensorIsAutoCreated(t *testing.T) {
	is := is.New(t)
	creator := &EntityCreatorMock{
		CreateSensorFunc: func(ctx context.Context, sensor types.Sensor) error { return nil },
	}

	d := New(creator, DefaultConfig())

	payload := []byte(`{"ph":5,"ec":1000,"ppm":1000,"temp":18}`)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		d.Observe(context.Background(), "Invernadero/Agua/data", payload, now.Add(time.Duration(i)*10*time.Second))
	}

	is.Equal(len(creator.CreateSensorCalls()), 1)

	sensor := creator.CreateSensorCalls()[0].Sensor
	is.Equal(sensor.Kind, types.SensorKindWaterQuality)
	is.Equal(sensor.HardwareID, "agua")
	is.Equal(sensor.MQTTTopic, "Invernadero/Agua/data")
	is.True(sensor.Configuration.AutoDiscovered)
	is.Equal(sensor.Configuration.CanonicalKind, "WATER_QUALITY")
}

func TestHeaterDeviceKindIsNotWaterPump(t *testing.T) {
	is := is.New(t)
	creator := &EntityCreatorMock{
		CreateDeviceFunc: func(ctx context.Context, device types.Device) error { return nil },
	}

	d := New(creator, DefaultConfig())

	payload := []byte(`{"calefactorSw":true}`)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		d.Observe(context.Background(), "Invernadero/Calefactor/sw", payload, now.Add(time.Duration(i)*time.Second))
	}

	is.Equal(len(creator.CreateDeviceCalls()), 1)

	device := creator.CreateDeviceCalls()[0].Device
	is.Equal(device.Kind, types.DeviceKindHeater)
	is.Equal(device.Configuration.DetectedKind, "heater")
	is.Equal(device.MQTTCommandTopic, "Invernadero/Calefactor/sw")
	is.Equal(device.MQTTStatusTopic, "Invernadero/Calefactor/status")
	is.Equal(device.Configuration.LegacyCommandField, "calefactorSw")
}

func TestWaterHeaterBeatsHeaterSubstring(t *testing.T) {
	is := is.New(t)
	creator := &EntityCreatorMock{
		CreateDeviceFunc: func(ctx context.Context, device types.Device) error { return nil },
	}

	d := New(creator, DefaultConfig())

	payload := []byte(`{"calefactorAguaSw":true}`)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		d.Observe(context.Background(), "Invernadero/CalefactorAgua/sw", payload, now.Add(time.Duration(i)*time.Second))
	}

	is.Equal(len(creator.CreateDeviceCalls()), 1)
	is.Equal(creator.CreateDeviceCalls()[0].Device.Kind, types.DeviceKindWaterHeater)
}

func TestAmbiguousTopicAwaitsApproval(t *testing.T) {
	is := is.New(t)
	creator := &EntityCreatorMock{
		CreateSensorFunc: func(ctx context.Context, sensor types.Sensor) error { return nil },
	}

	d := New(creator, DefaultConfig())

	// recognizable fields but an unhelpful suffix: the sensor score
	// lands in the manual approval band
	payload := []byte(`{"temperatura":20.5,"humedad":55.0}`)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		d.Observe(context.Background(), "Invernadero/Cajon/info", payload, now.Add(time.Duration(i)*time.Second))
	}

	is.Equal(len(creator.CreateSensorCalls()), 0)

	topics := d.UnknownTopics()
	is.Equal(len(topics), 1)
	is.Equal(topics[0].Status, types.TopicAnalyzing)
	is.True(topics[0].SensorScore >= 70)

	err := d.Approve(context.Background(), "Invernadero/Cajon/info", true)
	is.NoErr(err)
	is.Equal(len(creator.CreateSensorCalls()), 1)
	is.Equal(creator.CreateSensorCalls()[0].Sensor.Kind, types.SensorKindTemHum)
}

func TestNoiseIsRejected(t *testing.T) {
	is := is.New(t)
	creator := &EntityCreatorMock{}

	d := New(creator, DefaultConfig())

	payload := []byte(`{"blob":"xxxx"}`)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		d.Observe(context.Background(), "Invernadero/Junk/misc", payload, now.Add(time.Duration(i)*time.Second))
	}

	topics := d.UnknownTopics()
	is.Equal(len(topics), 1)
	is.Equal(topics[0].Status, types.TopicRejected)

	err := d.Approve(context.Background(), "Invernadero/Junk/misc", true)
	is.True(err != nil)
}

func TestStaleBufferRestartsAnalysis(t *testing.T) {
	is := is.New(t)
	creator := &EntityCreatorMock{
		CreateSensorFunc: func(ctx context.Context, sensor types.Sensor) error { return nil },
	}

	d := New(creator, DefaultConfig())

	payload := []byte(`{"ph":6,"ec":900,"ppm":800}`)
	now := time.Now().UTC()

	d.Observe(context.Background(), "Invernadero/Agua/data", payload, now)
	d.Observe(context.Background(), "Invernadero/Agua/data", payload, now.Add(10*time.Second))
	// third sample lands outside the analysis window, restarting the buffer
	d.Observe(context.Background(), "Invernadero/Agua/data", payload, now.Add(2*time.Minute))

	is.Equal(len(creator.CreateSensorCalls()), 0)

	d.Observe(context.Background(), "Invernadero/Agua/data", payload, now.Add(2*time.Minute+time.Second))
	d.Observe(context.Background(), "Invernadero/Agua/data", payload, now.Add(2*time.Minute+2*time.Second))

	is.Equal(len(creator.CreateSensorCalls()), 1)
}
