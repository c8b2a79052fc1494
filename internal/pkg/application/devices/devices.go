package devices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/storage"
	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"
	"gopkg.in/yaml.v2"
)

var ErrNotFound = fmt.Errorf("not found")
var ErrAlreadyExists = fmt.Errorf("already exists")

//go:generate moq -rm -out devices_mock.go . Management

// Management is the registry for sensors and actuating devices. The
// ingestion pipeline resolves topics through it and auto-discovery
// creates entities through it.
type Management interface {
	CreateSensor(ctx context.Context, sensor types.Sensor) error
	UpdateSensor(ctx context.Context, sensor types.Sensor) error
	DeleteSensor(ctx context.Context, sensorID string) error
	GetSensor(ctx context.Context, sensorID string) (types.Sensor, error)
	GetSensorByTopic(ctx context.Context, topic string) (types.Sensor, error)
	QuerySensors(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Sensor], error)
	SensorStatistics(ctx context.Context, sensorID string, from, to time.Time) (map[string]types.FieldStats, error)

	CreateDevice(ctx context.Context, device types.Device) error
	UpdateDevice(ctx context.Context, device types.Device) error
	DeleteDevice(ctx context.Context, deviceID string) error
	GetDevice(ctx context.Context, deviceID string) (types.Device, error)
	GetDeviceByHardwareID(ctx context.Context, hardwareID string) (types.Device, error)
	GetDeviceByStatusTopic(ctx context.Context, topic string) (types.Device, error)
	GetDeviceByCommandTopic(ctx context.Context, topic string) (types.Device, error)
	QueryDevices(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Device], error)

	QueryDeviceEvents(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.DeviceEvent], error)

	Seed(ctx context.Context, reader io.Reader) error
}

//go:generate moq -rm -out devicestorage_mock.go . Storage

// Storage is the persistence the service depends on.
type Storage interface {
	AddSensor(ctx context.Context, sensor types.Sensor) error
	UpdateSensor(ctx context.Context, sensor types.Sensor) error
	DeleteSensor(ctx context.Context, sensorID string) error
	GetSensor(ctx context.Context, conditions ...storage.ConditionFunc) (types.Sensor, error)
	QuerySensors(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Sensor], error)
	ReadingStats(ctx context.Context, kind types.SensorKind, sensorID string, from, to time.Time) (map[string]types.FieldStats, error)

	AddDevice(ctx context.Context, device types.Device) error
	UpdateDevice(ctx context.Context, device types.Device) error
	DeleteDevice(ctx context.Context, deviceID string) error
	GetDevice(ctx context.Context, conditions ...storage.ConditionFunc) (types.Device, error)
	QueryDevices(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Device], error)

	QueryDeviceEvents(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.DeviceEvent], error)
}

type service struct {
	storage Storage
}

func New(s Storage) Management {
	return &service{storage: s}
}

func (s *service) CreateSensor(ctx context.Context, sensor types.Sensor) error {
	if sensor.ID == "" {
		sensor.ID = uuid.NewString()
	}
	if sensor.Kind == "" {
		sensor.Kind = types.SensorKindCustom
	}

	err := s.storage.AddSensor(ctx, sensor)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return ErrAlreadyExists
	}

	return err
}

func (s *service) UpdateSensor(ctx context.Context, sensor types.Sensor) error {
	err := s.storage.UpdateSensor(ctx, sensor)
	if errors.Is(err, storage.ErrNoRows) {
		return ErrNotFound
	}

	return err
}

func (s *service) DeleteSensor(ctx context.Context, sensorID string) error {
	err := s.storage.DeleteSensor(ctx, sensorID)
	if errors.Is(err, storage.ErrNoRows) {
		return ErrNotFound
	}

	return err
}

func (s *service) GetSensor(ctx context.Context, sensorID string) (types.Sensor, error) {
	sensor, err := s.storage.GetSensor(ctx, storage.WithSensorID(sensorID))
	if errors.Is(err, storage.ErrNoRows) {
		return types.Sensor{}, ErrNotFound
	}

	return sensor, err
}

func (s *service) GetSensorByTopic(ctx context.Context, topic string) (types.Sensor, error) {
	sensor, err := s.storage.GetSensor(ctx, storage.WithTopic(topic))
	if errors.Is(err, storage.ErrNoRows) {
		return types.Sensor{}, ErrNotFound
	}

	return sensor, err
}

func (s *service) QuerySensors(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Sensor], error) {
	return s.storage.QuerySensors(ctx, conditions...)
}

func (s *service) SensorStatistics(ctx context.Context, sensorID string, from, to time.Time) (map[string]types.FieldStats, error) {
	sensor, err := s.GetSensor(ctx, sensorID)
	if err != nil {
		return nil, err
	}

	return s.storage.ReadingStats(ctx, sensor.Kind, sensorID, from, to)
}

func (s *service) CreateDevice(ctx context.Context, device types.Device) error {
	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	if device.Status == "" {
		device.Status = types.DeviceOffline
	}

	err := s.storage.AddDevice(ctx, device)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return ErrAlreadyExists
	}

	return err
}

func (s *service) UpdateDevice(ctx context.Context, device types.Device) error {
	err := s.storage.UpdateDevice(ctx, device)
	if errors.Is(err, storage.ErrNoRows) {
		return ErrNotFound
	}

	return err
}

func (s *service) DeleteDevice(ctx context.Context, deviceID string) error {
	err := s.storage.DeleteDevice(ctx, deviceID)
	if errors.Is(err, storage.ErrNoRows) {
		return ErrNotFound
	}

	return err
}

func (s *service) GetDevice(ctx context.Context, deviceID string) (types.Device, error) {
	device, err := s.storage.GetDevice(ctx, storage.WithDeviceID(deviceID))
	if errors.Is(err, storage.ErrNoRows) {
		return types.Device{}, ErrNotFound
	}

	return device, err
}

func (s *service) GetDeviceByHardwareID(ctx context.Context, hardwareID string) (types.Device, error) {
	device, err := s.storage.GetDevice(ctx, storage.WithHardwareID(hardwareID))
	if errors.Is(err, storage.ErrNoRows) {
		return types.Device{}, ErrNotFound
	}

	return device, err
}

func (s *service) GetDeviceByStatusTopic(ctx context.Context, topic string) (types.Device, error) {
	result, err := s.storage.QueryDevices(ctx, storage.WithLimit(1000))
	if err != nil {
		return types.Device{}, err
	}

	for _, device := range result.Data {
		if device.MQTTStatusTopic == topic {
			return device, nil
		}
	}

	return types.Device{}, ErrNotFound
}

func (s *service) GetDeviceByCommandTopic(ctx context.Context, topic string) (types.Device, error) {
	result, err := s.storage.QueryDevices(ctx, storage.WithLimit(1000))
	if err != nil {
		return types.Device{}, err
	}

	for _, device := range result.Data {
		if device.MQTTCommandTopic == topic {
			return device, nil
		}
	}

	return types.Device{}, ErrNotFound
}

func (s *service) QueryDevices(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.Device], error) {
	return s.storage.QueryDevices(ctx, conditions...)
}

func (s *service) QueryDeviceEvents(ctx context.Context, conditions ...storage.ConditionFunc) (types.Collection[types.DeviceEvent], error) {
	return s.storage.QueryDeviceEvents(ctx, conditions...)
}

type seedFile struct {
	Sensors []types.Sensor `yaml:"sensors"`
	Devices []types.Device `yaml:"devices"`
}

// Seed loads a declarative inventory file. Existing entities (matched
// by hardware id) are updated in place, new ones created.
func (s *service) Seed(ctx context.Context, reader io.Reader) error {
	b, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	var seed seedFile
	err = yaml.Unmarshal(b, &seed)
	if err != nil {
		return err
	}

	log := logging.GetFromContext(ctx)

	for _, sensor := range seed.Sensors {
		existing, err := s.storage.GetSensor(ctx, storage.WithHardwareID(sensor.HardwareID))
		if err == nil {
			sensor.ID = existing.ID
			err = s.UpdateSensor(ctx, sensor)
		} else if errors.Is(err, storage.ErrNoRows) {
			err = s.CreateSensor(ctx, sensor)
		}
		if err != nil {
			return fmt.Errorf("could not seed sensor %s: %w", sensor.HardwareID, err)
		}
	}

	for _, device := range seed.Devices {
		existing, err := s.storage.GetDevice(ctx, storage.WithHardwareID(device.HardwareID))
		if err == nil {
			device.ID = existing.ID
			err = s.UpdateDevice(ctx, device)
		} else if errors.Is(err, storage.ErrNoRows) {
			err = s.CreateDevice(ctx, device)
		}
		if err != nil {
			return fmt.Errorf("could not seed device %s: %w", device.HardwareID, err)
		}
	}

	log.Info("seeded inventory", "sensors", len(seed.Sensors), "devices", len(seed.Devices))

	return nil
}
