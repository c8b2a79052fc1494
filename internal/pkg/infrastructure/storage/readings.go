package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"github.com/jackc/pgx/v5"
)

// readingsTable routes a sensor kind to its per-kind table. Kinds
// without a dedicated table land in the generic fallback.
func readingsTable(kind types.SensorKind) string {
	switch kind {
	case types.SensorKindTemHum:
		return "readings_temhum"
	case types.SensorKindWaterQuality:
		return "readings_water_quality"
	case types.SensorKindTempPressure:
		return "readings_temp_pressure"
	case types.SensorKindLight:
		return "readings_light"
	default:
		return "sensor_data_generic"
	}
}

func (s *Storage) AddReading(ctx context.Context, kind types.SensorKind, reading types.Reading) error {
	normalized, _ := json.Marshal(reading.Normalized)

	args := pgx.NamedArgs{
		"reading_id": reading.ID,
		"sensor_id":  reading.SensorID,
		"time":       reading.ReceivedAt.UTC(),
		"quality":    string(reading.Quality),
		"normalized": string(normalized),
	}

	raw := "NULL"
	if len(reading.Raw) > 0 {
		raw = "@raw"
		args["raw"] = string(reading.Raw)
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (reading_id, sensor_id, time, quality, normalized, raw)
		VALUES (@reading_id, @sensor_id, @time, @quality, @normalized, %s)
	`, readingsTable(kind), raw), args)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}

	return nil
}

func (s *Storage) GetLatestReading(ctx context.Context, kind types.SensorKind, sensorID string) (types.Reading, error) {
	var reading types.Reading
	var quality string
	var normalized json.RawMessage
	var raw *json.RawMessage

	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT reading_id, sensor_id, time, quality, normalized, raw
		FROM %s
		WHERE sensor_id = $1
		ORDER BY time DESC
		LIMIT 1
	`, readingsTable(kind)), sensorID).Scan(
		&reading.ID, &reading.SensorID, &reading.ReceivedAt, &quality, &normalized, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Reading{}, ErrNoRows
		}
		return types.Reading{}, err
	}

	reading.Quality = types.Quality(quality)
	json.Unmarshal(normalized, &reading.Normalized)
	if raw != nil {
		reading.Raw = *raw
	}

	return reading, nil
}

func (s *Storage) QueryReadings(ctx context.Context, kind types.SensorKind, conditions ...ConditionFunc) (types.Collection[types.Reading], error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	offsetLimit, offset, limit := condition.OffsetLimit(500)
	args["_offset"] = offset
	args["_limit"] = limit

	query := fmt.Sprintf(`
		SELECT reading_id, sensor_id, time, quality, normalized, raw, count(*) OVER () AS total
		FROM %s
		WHERE %s
		%s%s
	`, readingsTable(kind), condition.Where("time"), condition.OrderBy("time"), offsetLimit)

	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return types.Collection[types.Reading]{}, err
	}
	defer rows.Close()

	readings := make([]types.Reading, 0)
	var total uint64

	for rows.Next() {
		var reading types.Reading
		var quality string
		var normalized json.RawMessage
		var raw *json.RawMessage

		err := rows.Scan(&reading.ID, &reading.SensorID, &reading.ReceivedAt, &quality, &normalized, &raw, &total)
		if err != nil {
			return types.Collection[types.Reading]{}, err
		}

		reading.Quality = types.Quality(quality)
		json.Unmarshal(normalized, &reading.Normalized)
		if raw != nil {
			reading.Raw = *raw
		}

		readings = append(readings, reading)
	}

	return types.Collection[types.Reading]{
		Data:       readings,
		Count:      uint64(len(readings)),
		Offset:     uint64(offset),
		Limit:      uint64(limit),
		TotalCount: total,
	}, nil
}

// ReadingStats aggregates min/max/avg per numeric canonical field over
// a time window, directly in the database.
func (s *Storage) ReadingStats(ctx context.Context, kind types.SensorKind, sensorID string, from, to time.Time) (map[string]types.FieldStats, error) {
	args := pgx.NamedArgs{
		"sensor_id": sensorID,
		"from":      from.UTC(),
		"to":        to.UTC(),
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT f.key,
		       MIN(f.value::numeric)::float8,
		       MAX(f.value::numeric)::float8,
		       AVG(f.value::numeric)::float8,
		       COUNT(*)
		FROM %s r, jsonb_each_text(r.normalized) f
		WHERE r.sensor_id = @sensor_id
		  AND r.time >= @from AND r.time < @to
		  AND f.value ~ '^-?[0-9]+(\.[0-9]+)?$'
		GROUP BY f.key
	`, readingsTable(kind)), args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]types.FieldStats{}

	for rows.Next() {
		var key string
		var fs types.FieldStats

		err := rows.Scan(&key, &fs.Min, &fs.Max, &fs.Avg, &fs.Count)
		if err != nil {
			return nil, err
		}

		stats[key] = fs
	}

	return stats, nil
}
