package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v2"

	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	k8shandlers "github.com/diwise/service-chassis/pkg/infrastructure/net/http/handlers"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/servicerunner"

	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/actuator"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/devices"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/discovery"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/ingest"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/notifications"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/rules"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/users"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/application/watchdog"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/events"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/mqtt"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/infrastructure/storage"
	"github.com/hortelano/iot-greenhouse-mgmt/internal/pkg/presentation/api"
)

const serviceName string = "iot-greenhouse-mgmt"

// the database gets this long to come up before startup fails
const startupGrace = time.Minute

type flagType int
type flagMap map[flagType]string

const (
	listenAddress flagType = iota
	servicePort
	controlPort
	enableTracing

	policiesFile
	configurationFile
	seedFile

	dbHost
	dbUser
	dbPassword
	dbPort
	dbName
	dbSSLMode

	enableAMQP
)

func defaultFlags() flagMap {
	return flagMap{
		listenAddress: "0.0.0.0",
		servicePort:   "8080",
		controlPort:   "8000",
		enableTracing: "true",

		policiesFile:      "/opt/greenhouse/config/authz.rego",
		configurationFile: "/opt/greenhouse/config/config.yaml",
		seedFile:          "/opt/greenhouse/config/seed.yaml",

		dbHost:     "",
		dbUser:     "",
		dbPassword: "",
		dbPort:     "5432",
		dbName:     "greenhouse",
		dbSSLMode:  "disable",

		enableAMQP: "false",
	}
}

type appConfig struct {
	Timezone         string `yaml:"timezone"`
	EvaluationPeriod int    `yaml:"evaluationPeriod"`
	AckTimeout       int    `yaml:"ackTimeout"`
	OfflineAfter     int    `yaml:"offlineAfter"`

	Discovery struct {
		MinSamples            int `yaml:"minSamples"`
		AnalysisWindowSeconds int `yaml:"analysisWindowSeconds"`
		AutoCreateThreshold   int `yaml:"autoCreateThreshold"`
		ApprovalThreshold     int `yaml:"approvalThreshold"`
	} `yaml:"discovery"`
}

var (
	webserver  = servicerunner.WithHTTPServeMux[appConfig]
	listen     = servicerunner.WithListenAddr[appConfig]
	port       = servicerunner.WithPort[appConfig]
	pprof      = servicerunner.WithPPROF[appConfig]
	liveness   = servicerunner.WithK8SLivenessProbe[appConfig]
	readiness  = servicerunner.WithK8SReadinessProbes[appConfig]
	tracing    = servicerunner.WithTracing[appConfig]
	muxinit    = servicerunner.OnMuxInit[appConfig]
	onstarting = servicerunner.OnStarting[appConfig]
	onshutdown = servicerunner.OnShutdown[appConfig]
)

func main() {
	ctx, flags := parseExternalConfig(context.Background(), defaultFlags())

	serviceVersion := buildinfo.SourceVersion()
	ctx, logger, cleanup := o11y.Init(ctx, serviceName, serviceVersion, "json")
	defer cleanup()

	cfg, err := parseConfigurationFile(flags[configurationFile])
	exitIf(err, logger, "could not parse configuration file")

	policies, err := os.Open(flags[policiesFile])
	exitIf(err, logger, "unable to open opa policy file")

	var seed io.ReadCloser
	if f, err := os.Open(flags[seedFile]); err == nil {
		seed = f
	} else {
		logger.Info("no seed file found, skipping", "path", flags[seedFile])
	}

	runner, err := initialize(ctx, flags, cfg, policies, seed)
	exitIf(err, logger, "failed to initialize service runner")

	err = runner.Run(ctx)
	exitIf(err, logger, "failed to start service runner")
}

func initialize(ctx context.Context, flags flagMap, cfg *appConfig, policies, seed io.ReadCloser) (servicerunner.Runner[appConfig], error) {
	defer policies.Close()

	log := logging.GetFromContext(ctx)

	location := time.Local
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		exitIf(err, log, "invalid timezone in configuration", "timezone", cfg.Timezone)
		location = loc
	}

	storageConfig := storage.NewConfig(
		flags[dbHost], flags[dbUser], flags[dbPassword], flags[dbPort], flags[dbName], flags[dbSSLMode],
	)
	store, err := storage.New(ctx, storageConfig)
	for deadline := time.Now().Add(startupGrace); err != nil && time.Now().Before(deadline); {
		log.Warn("could not connect to database, retrying", "err", err.Error())
		time.Sleep(5 * time.Second)
		store, err = storage.New(ctx, storageConfig)
	}
	exitIf(err, log, "could not create or connect to database")

	broker := mqtt.NewClient(ctx, mqtt.LoadConfiguration(ctx))
	bus := events.NewBus()

	var messenger messaging.MsgContext
	if flags[enableAMQP] == "true" {
		messenger, err = messaging.Initialize(ctx, messaging.LoadConfiguration(ctx, serviceName, log))
		exitIf(err, log, "failed to init messenger")
	}

	registry := devices.New(store)
	accounts := users.New(ctx, store)

	notifier := notifications.New(store, bus, notifications.LoadConfiguration(ctx))
	control := actuator.New(registry, store, broker, bus, notifier,
		actuator.WithAckTimeout(time.Duration(cfg.AckTimeout)*time.Second))
	engine := rules.New(store, registry, store, control, notifier, bus,
		rules.WithEvaluationPeriod(time.Duration(cfg.EvaluationPeriod)*time.Second),
		rules.WithLocation(location))

	disc := discovery.New(registry, discoveryConfig(cfg))
	pipeline := ingest.New(registry, store, bus, disc, control, broker.Inbound())
	sentinel := watchdog.New(registry, store, pipeline,
		watchdog.WithOfflineAfter(time.Duration(cfg.OfflineAfter)*time.Second))

	var bridge *events.Bridge
	if messenger != nil {
		bridge = events.NewBridge(bus, messenger)
	}

	probes := map[string]k8shandlers.ServiceProber{
		"timescale": func(ctx context.Context) (string, error) { return "ok", store.Ping(ctx) },
		"mqtt": func(context.Context) (string, error) {
			if !broker.Connected() {
				return "degraded", nil
			}
			return "ok", nil
		},
	}

	_, runner := servicerunner.New(ctx, *cfg,
		webserver("control", listen(flags[listenAddress]), port(flags[controlPort]),
			pprof(), liveness(func() error { return nil }), readiness(probes),
		),
		webserver("public", listen(flags[listenAddress]), port(flags[servicePort]), tracing(flags[enableTracing] == "true"),
			muxinit(func(ctx context.Context, identifier string, port string, appCfg *appConfig, handler *http.ServeMux) error {
				router := chi.NewRouter()

				_, err := api.RegisterHandlers(ctx, router, policies, api.Services{
					Devices:       registry,
					Users:         accounts,
					Rules:         engine,
					Notifications: notifier,
					Actuator:      control,
					Discovery:     disc,
					Readings:      store,
					Telemetry:     pipeline,
					Health: api.Health{
						CheckStore:       store.Ping,
						MQTTConnected:    broker.Connected,
						BusOK:            func() bool { return bus != nil },
						LastEvaluationAt: engine.LastEvaluationAt,
					},
				})
				if err != nil {
					return err
				}

				handler.Handle("/", router)
				return nil
			}),
		),
		onstarting(func(ctx context.Context, appCfg *appConfig) error {
			log.Debug("starting servicerunner")

			err := store.Initialize(ctx)
			if err != nil {
				return err
			}

			if seed != nil {
				defer seed.Close()
				err = registry.Seed(ctx, seed)
				if err != nil {
					return err
				}
			}

			err = broker.Start(ctx)
			if err != nil {
				return err
			}

			root := mqtt.LoadConfiguration(ctx).RootTopic
			err = broker.Subscribe(ctx, root+"/+/+")
			if err != nil {
				return err
			}

			notifier.Start(ctx)
			pipeline.Start(ctx)
			sentinel.Start(ctx)

			err = engine.Start(ctx)
			if err != nil {
				return err
			}

			if messenger != nil {
				messenger.Start()
				err = bridge.Start(ctx)
				if err != nil {
					return err
				}
			}

			return nil
		}),
		onshutdown(func(ctx context.Context, appCfg *appConfig) error {
			log.Debug("shutdown servicerunner")

			if bridge != nil {
				bridge.Stop()
			}
			if messenger != nil {
				messenger.Close()
			}

			engine.Stop()
			sentinel.Stop()
			pipeline.Stop()
			control.Stop()
			notifier.Stop()
			broker.Stop()
			bus.Close()
			store.Close()

			return nil
		}),
	)

	return runner, nil
}

func discoveryConfig(cfg *appConfig) discovery.Config {
	result := discovery.DefaultConfig()

	if cfg.Discovery.MinSamples > 0 {
		result.MinSamples = cfg.Discovery.MinSamples
	}
	if cfg.Discovery.AnalysisWindowSeconds > 0 {
		result.AnalysisWindow = time.Duration(cfg.Discovery.AnalysisWindowSeconds) * time.Second
	}
	if cfg.Discovery.AutoCreateThreshold > 0 {
		result.AutoCreateThreshold = cfg.Discovery.AutoCreateThreshold
	}
	if cfg.Discovery.ApprovalThreshold > 0 {
		result.ApprovalThreshold = cfg.Discovery.ApprovalThreshold
	}

	return result
}

func parseConfigurationFile(path string) (*appConfig, error) {
	cfg := &appConfig{}

	f, err := os.Open(path)
	if err != nil {
		// the configuration file is optional, defaults cover it
		return cfg, nil
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(b, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseExternalConfig(ctx context.Context, flags flagMap) (context.Context, flagMap) {
	// Allow environment variables to override certain defaults
	envOrDef := env.GetVariableOrDefault

	flags[listenAddress] = envOrDef(ctx, "LISTEN_ADDRESS", flags[listenAddress])
	flags[controlPort] = envOrDef(ctx, "CONTROL_PORT", flags[controlPort])
	flags[servicePort] = envOrDef(ctx, "SERVICE_PORT", flags[servicePort])

	flags[policiesFile] = envOrDef(ctx, "POLICIES_FILE", flags[policiesFile])
	flags[seedFile] = envOrDef(ctx, "SEED_FILE", flags[seedFile])

	flags[dbHost] = envOrDef(ctx, "POSTGRES_HOST", flags[dbHost])
	flags[dbPort] = envOrDef(ctx, "POSTGRES_PORT", flags[dbPort])
	flags[dbName] = envOrDef(ctx, "POSTGRES_DBNAME", flags[dbName])
	flags[dbUser] = envOrDef(ctx, "POSTGRES_USER", flags[dbUser])
	flags[dbPassword] = envOrDef(ctx, "POSTGRES_PASSWORD", flags[dbPassword])
	flags[dbSSLMode] = envOrDef(ctx, "POSTGRES_SSLMODE", flags[dbSSLMode])
	flags[enableTracing] = envOrDef(ctx, "ENABLE_TRACING", flags[enableTracing])
	flags[enableAMQP] = envOrDef(ctx, "ENABLE_AMQP", flags[enableAMQP])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("policies", "an authorization policy file", apply(policiesFile))
	flag.Func("seed", "initial sensors and devices", apply(seedFile))
	flag.Func("config", "service configuration file", apply(configurationFile))
	flag.Parse()

	return ctx, flags
}

func exitIf(err error, logger *slog.Logger, msg string, args ...any) {
	if err != nil {
		logger.With(args...).Error(msg, "err", err.Error())
		time.Sleep(2 * time.Second)
		os.Exit(1)
	}
}
