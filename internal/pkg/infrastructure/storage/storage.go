package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	host     string
	user     string
	password string
	port     string
	dbname   string
	sslmode  string
}

func (c Config) ConnStr() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.user, c.password, c.host, c.port, c.dbname, c.sslmode)
}

func NewConfig(host, user, password, port, dbname, sslmode string) Config {
	return Config{
		host:     host,
		user:     user,
		password: password,
		port:     port,
		dbname:   dbname,
		sslmode:  sslmode,
	}
}

func NewPool(ctx context.Context, config Config) (*pgxpool.Pool, error) {
	p, err := pgxpool.New(ctx, config.ConnStr())
	if err != nil {
		return nil, err
	}

	err = p.Ping(ctx)
	if err != nil {
		return nil, err
	}

	return p, nil
}

var (
	ErrNoRows          = errors.New("no rows in result set")
	ErrTooManyRows     = errors.New("too many rows in result set")
	ErrQueryRow        = errors.New("could not execute query")
	ErrStoreFailed     = errors.New("could not store data")
	ErrNoID            = errors.New("data contains no id")
	ErrAlreadyExists   = errors.New("already exists")
	ErrDeleted         = errors.New("deleted")
	ErrSchemaMismatch  = errors.New("schema version mismatch")
	ErrStoreUnreachable = errors.New("store unreachable")
)

// schemaVersion is bumped whenever CreateTables changes shape. The
// service refuses traffic when the persisted version differs.
const schemaVersion = 1

type Storage struct {
	pool *pgxpool.Pool
}

func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

func New(ctx context.Context, config Config) (*Storage, error) {
	pool, err := NewPool(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Storage{pool: pool}, nil
}

func (s *Storage) Initialize(ctx context.Context) error {
	err := s.createTables(ctx)
	if err != nil {
		return err
	}

	return s.checkSchemaVersion(ctx)
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Storage) checkSchemaVersion(ctx context.Context) error {
	var version int
	err := s.pool.QueryRow(ctx, `SELECT version FROM schema_version`).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		_, err = s.pool.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, schemaVersion)
		return err
	}
	if err != nil {
		return err
	}

	if version != schemaVersion {
		return fmt.Errorf("%w: have %d, want %d", ErrSchemaMismatch, version, schemaVersion)
	}

	return nil
}

func (s *Storage) createTables(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version		INT NOT NULL,
			applied_on	timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS users (
			user_id			TEXT	NOT NULL,
			username		TEXT	NOT NULL,
			password_hash	TEXT	NOT NULL,
			role			TEXT	NOT NULL,
			active			BOOLEAN	NOT NULL DEFAULT TRUE,
			created_on		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_on		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted			BOOLEAN DEFAULT FALSE,
			deleted_on		timestamp with time zone NULL,
			CONSTRAINT pkey_users PRIMARY KEY (user_id)
		);
		CREATE UNIQUE INDEX IF NOT EXISTS users_username_idx ON users (LOWER(username)) WHERE NOT deleted;

		CREATE TABLE IF NOT EXISTS sensors (
			sensor_id	TEXT	NOT NULL,
			hardware_id	TEXT	NOT NULL,
			kind		TEXT	NOT NULL,
			topic		TEXT	NOT NULL,
			active		BOOLEAN	NOT NULL DEFAULT TRUE,
			online		BOOLEAN	NOT NULL DEFAULT FALSE,
			last_seen	timestamp with time zone NULL,
			data		JSONB	NOT NULL,
			created_on	timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_on	timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted		BOOLEAN DEFAULT FALSE,
			deleted_on	timestamp with time zone NULL,
			CONSTRAINT pkey_sensors PRIMARY KEY (sensor_id)
		);
		CREATE UNIQUE INDEX IF NOT EXISTS sensors_hardware_idx ON sensors (hardware_id) WHERE NOT deleted;
		CREATE INDEX IF NOT EXISTS sensors_topic_idx ON sensors (topic) WHERE NOT deleted;

		CREATE TABLE IF NOT EXISTS devices (
			device_id		TEXT	NOT NULL,
			hardware_id		TEXT	NOT NULL,
			kind			TEXT	NOT NULL,
			command_topic	TEXT	NOT NULL,
			status_topic	TEXT	NULL,
			status			TEXT	NOT NULL DEFAULT 'OFFLINE',
			notifications	BOOLEAN	NOT NULL DEFAULT FALSE,
			owner_id		TEXT	NULL,
			active			BOOLEAN	NOT NULL DEFAULT TRUE,
			last_seen		timestamp with time zone NULL,
			last_confirmed	timestamp with time zone NULL,
			data			JSONB	NOT NULL,
			created_on		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_on		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted			BOOLEAN DEFAULT FALSE,
			deleted_on		timestamp with time zone NULL,
			CONSTRAINT pkey_devices PRIMARY KEY (device_id)
		);
		CREATE UNIQUE INDEX IF NOT EXISTS devices_hardware_idx ON devices (hardware_id) WHERE NOT deleted;

		CREATE TABLE IF NOT EXISTS device_events (
			event_id		TEXT	NOT NULL,
			device_id		TEXT	NOT NULL,
			request_id		TEXT	NULL,
			rule_id			TEXT	NULL,
			previous_value	TEXT	NOT NULL,
			new_value		TEXT	NOT NULL,
			authoritative	BOOLEAN	NOT NULL DEFAULT FALSE,
			observed_at		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT pkey_device_events PRIMARY KEY (event_id)
		);
		CREATE INDEX IF NOT EXISTS device_events_device_idx ON device_events (device_id, observed_at);

		CREATE TABLE IF NOT EXISTS readings_temhum (
			reading_id	TEXT	NOT NULL,
			sensor_id	TEXT	NOT NULL,
			time		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			quality		TEXT	NOT NULL DEFAULT 'ok',
			normalized	JSONB	NOT NULL,
			raw			JSONB	NULL,
			CONSTRAINT pkey_readings_temhum PRIMARY KEY (reading_id)
		);
		CREATE INDEX IF NOT EXISTS readings_temhum_sensor_idx ON readings_temhum (sensor_id, time);

		CREATE TABLE IF NOT EXISTS readings_water_quality (
			reading_id	TEXT	NOT NULL,
			sensor_id	TEXT	NOT NULL,
			time		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			quality		TEXT	NOT NULL DEFAULT 'ok',
			normalized	JSONB	NOT NULL,
			raw			JSONB	NULL,
			CONSTRAINT pkey_readings_water_quality PRIMARY KEY (reading_id)
		);
		CREATE INDEX IF NOT EXISTS readings_water_quality_sensor_idx ON readings_water_quality (sensor_id, time);

		CREATE TABLE IF NOT EXISTS readings_temp_pressure (
			reading_id	TEXT	NOT NULL,
			sensor_id	TEXT	NOT NULL,
			time		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			quality		TEXT	NOT NULL DEFAULT 'ok',
			normalized	JSONB	NOT NULL,
			raw			JSONB	NULL,
			CONSTRAINT pkey_readings_temp_pressure PRIMARY KEY (reading_id)
		);
		CREATE INDEX IF NOT EXISTS readings_temp_pressure_sensor_idx ON readings_temp_pressure (sensor_id, time);

		CREATE TABLE IF NOT EXISTS readings_light (
			reading_id	TEXT	NOT NULL,
			sensor_id	TEXT	NOT NULL,
			time		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			quality		TEXT	NOT NULL DEFAULT 'ok',
			normalized	JSONB	NOT NULL,
			raw			JSONB	NULL,
			CONSTRAINT pkey_readings_light PRIMARY KEY (reading_id)
		);
		CREATE INDEX IF NOT EXISTS readings_light_sensor_idx ON readings_light (sensor_id, time);

		CREATE TABLE IF NOT EXISTS sensor_data_generic (
			reading_id	TEXT	NOT NULL,
			sensor_id	TEXT	NOT NULL,
			time		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			quality		TEXT	NOT NULL DEFAULT 'ok',
			normalized	JSONB	NOT NULL,
			raw			JSONB	NULL,
			CONSTRAINT pkey_sensor_data_generic PRIMARY KEY (reading_id)
		);
		CREATE INDEX IF NOT EXISTS sensor_data_generic_sensor_idx ON sensor_data_generic (sensor_id, time);

		CREATE TABLE IF NOT EXISTS rules (
			rule_id			TEXT	NOT NULL,
			enabled			BOOLEAN	NOT NULL DEFAULT TRUE,
			priority		INT		NOT NULL DEFAULT 0,
			cooldown		INT		NOT NULL DEFAULT 0,
			max_per_hour	INT		NOT NULL DEFAULT 0,
			conditions		JSONB	NOT NULL,
			actions			JSONB	NOT NULL,
			data			JSONB	NOT NULL,
			last_triggered	timestamp with time zone NULL,
			trigger_count	BIGINT	NOT NULL DEFAULT 0,
			created_on		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_on		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted			BOOLEAN DEFAULT FALSE,
			deleted_on		timestamp with time zone NULL,
			CONSTRAINT pkey_rules PRIMARY KEY (rule_id)
		);

		CREATE TABLE IF NOT EXISTS rule_executions (
			execution_id	TEXT	NOT NULL,
			rule_id			TEXT	NOT NULL,
			triggered_at	timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			success			BOOLEAN	NOT NULL,
			elapsed_ms		BIGINT	NOT NULL DEFAULT 0,
			trigger_data	JSONB	NULL,
			actions			JSONB	NULL,
			error_message	TEXT	NULL,
			CONSTRAINT pkey_rule_executions PRIMARY KEY (execution_id)
		);
		CREATE INDEX IF NOT EXISTS rule_executions_rule_idx ON rule_executions (rule_id, triggered_at);

		CREATE TABLE IF NOT EXISTS notifications (
			notification_id	TEXT	NOT NULL,
			severity		TEXT	NOT NULL DEFAULT 'low',
			channel			TEXT	NOT NULL,
			recipient_id	TEXT	NULL,
			delivery_status	TEXT	NOT NULL DEFAULT 'pending',
			is_read			BOOLEAN	NOT NULL DEFAULT FALSE,
			read_on			timestamp with time zone NULL,
			delivered_on	timestamp with time zone NULL,
			template_id		TEXT	NULL,
			data			JSONB	NOT NULL,
			created_on		timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT pkey_notifications PRIMARY KEY (notification_id)
		);
		CREATE INDEX IF NOT EXISTS notifications_created_idx ON notifications (created_on);

		CREATE TABLE IF NOT EXISTS notification_templates (
			template_id	TEXT	NOT NULL,
			name		TEXT	NOT NULL,
			data		JSONB	NOT NULL,
			created_on	timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_on	timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted		BOOLEAN DEFAULT FALSE,
			deleted_on	timestamp with time zone NULL,
			CONSTRAINT pkey_notification_templates PRIMARY KEY (template_id)
		);
	`)
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) Close() {
	s.pool.Close()
}

// isUniqueViolation maps the postgres unique_violation code so that
// uniqueness of usernames and hardware ids is enforced at the store
// boundary, not only in the API layer.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
