package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/accesslog"
	"github.com/nerrad567/gray-logic-fingerprint/internal/bridge"
	"github.com/nerrad567/gray-logic-fingerprint/internal/fingerprint"
	"github.com/nerrad567/gray-logic-fingerprint/internal/indicator"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-fingerprint/internal/sensor"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
	"github.com/nerrad567/gray-logic-fingerprint/migrations"
)

const shutdownTimeout = 5 * time.Second

// run is the node's lifecycle, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to config.yaml
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting fingerprint node",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version).With("node_id", cfg.Node.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Access log
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	accessRepo := accesslog.NewSQLiteRepository(db.DB)
	accessSink := accesslog.NewSink(accessRepo)
	accessSink.SetLogger(log.Component("accesslog"))

	// Sensor
	dev, err := sensor.Open(ctx, cfg.Sensor, log.Component("sensor"))
	if err != nil {
		return fmt.Errorf("opening sensor: %w", err)
	}
	defer func() {
		log.Info("closing sensor")
		if closeErr := dev.Close(); closeErr != nil {
			log.Error("error closing sensor", "error", closeErr)
		}
	}()
	params := dev.Parameters()
	log.Info("sensor connected",
		"port", cfg.Sensor.Serial,
		"capacity", params.Capacity,
		"security_level", params.SecurityLevel,
	)

	leds := indicator.New(dev, cfg.GetIndicatorDwell())
	leds.SetLogger(log.Component("indicator"))

	registry := template.NewRegistry(template.NewFileStore(cfg.Registry.Path))
	registry.SetLogger(log.Component("registry"))

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"prefix", mqttClient.Topics().Prefix,
	)

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Node.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Bridge
	br, err := bridge.NewBridge(bridge.BridgeOptions{
		NodeID:         cfg.Node.ID,
		Version:        version,
		Topics:         mqttClient.Topics(),
		QoS:            mqttClient.QoS(),
		HealthInterval: cfg.GetHealthInterval(),
		MQTTClient:     &mqttBridgeAdapter{client: mqttClient},
		History:        accessRepo,
		Logger:         log.Component("bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	sinks := fingerprint.Sinks{br, accessSink}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		collector.SetCapacity(params.Capacity)
		sinks = append(sinks, collector)
	}
	if influxClient != nil {
		sinks = append(sinks, &influxSink{client: influxClient, capacity: params.Capacity})
	}

	// Service
	svc := fingerprint.NewService(dev, leds, registry, sinks, fingerprint.Options{
		CaptureTimeout: cfg.GetCaptureTimeout(),
		PollInterval:   cfg.GetPollInterval(),
		ScanInterval:   cfg.GetScanInterval(),
		MatchTimeout:   cfg.GetMatchTimeout(),
		SlotPolicy:     fingerprint.SlotPolicy(cfg.Enrollment.SlotPolicy),
	})
	svc.SetLogger(log.Component("fingerprint"))
	if startErr := svc.Start(ctx); startErr != nil {
		return fmt.Errorf("starting fingerprint service: %w", startErr)
	}
	defer func() {
		log.Info("stopping scan loop")
		svc.Stop()
	}()

	if startErr := br.Start(ctx, svc); startErr != nil {
		return fmt.Errorf("starting bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping bridge")
		br.Stop()
	}()

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected, republishing state")
		br.Resync()
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	if collector != nil {
		srv := metrics.NewServer(cfg.Metrics.Listen, collector, func(ctx context.Context) error {
			return healthCheck(ctx, svc, db, mqttClient, influxClient)
		})
		srv.SetOnError(func(err error) {
			log.Error("metrics server failed", "error", err)
		})
		if startErr := srv.Start(); startErr != nil {
			return startErr
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
				log.Error("error stopping metrics server", "error", shutdownErr)
			}
		}()
		log.Info("metrics listening", "addr", srv.Addr())
	}

	if err := healthCheck(ctx, svc, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: metrics server, bridge, scan
	// loop, InfluxDB, MQTT, sensor, database.
	return nil
}

// healthCheck verifies the scanner and every connection.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - svc: Fingerprint service, must be running
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, svc *fingerprint.Service, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if !svc.Status().Running {
		return errors.New("fingerprint: scan loop not running")
	}
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
