package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Slot selection policies for enrollment.
const (
	SlotPolicyAuto       = "auto"
	SlotPolicyLowestFree = "lowest_free"
	SlotPolicyExplicit   = "explicit"
)

// Config is the root configuration structure for the fingerprint node.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Node       NodeConfig       `yaml:"node"`
	Sensor     SensorConfig     `yaml:"sensor"`
	Enrollment EnrollmentConfig `yaml:"enrollment"`
	Scan       ScanConfig       `yaml:"scan"`
	Indicator  IndicatorConfig  `yaml:"indicator"`
	Access     AccessConfig     `yaml:"access"`
	Registry   RegistryConfig   `yaml:"registry"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// NodeConfig identifies this access-control node.
type NodeConfig struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	HealthInterval int    `yaml:"health_interval"` // seconds
}

// SensorConfig contains the serial link settings for the fingerprint sensor.
type SensorConfig struct {
	// Serial is the serial device path (e.g. "/dev/serial0", "/dev/ttyUSB0").
	Serial string `yaml:"serial"`

	// BaudRate of the sensor UART. R30x modules default to 57600.
	BaudRate int `yaml:"baud_rate"`

	// Address is the 32-bit module address. Default: 0xFFFFFFFF.
	Address uint32 `yaml:"address"`

	// Password is the 32-bit module handshake password. Default: 0.
	Password uint32 `yaml:"password"`

	// ReadTimeout bounds a single packet read (milliseconds).
	ReadTimeout int `yaml:"read_timeout"`
}

// EnrollmentConfig contains enrollment protocol settings.
type EnrollmentConfig struct {
	// CaptureTimeout is how long each capture may wait for a finger (seconds).
	CaptureTimeout int `yaml:"capture_timeout"`

	// PollInterval is the delay between capture polls (milliseconds).
	PollInterval int `yaml:"poll_interval"`

	// SlotPolicy selects the target slot: auto, lowest_free or explicit.
	SlotPolicy string `yaml:"slot_policy"`
}

// ScanConfig contains continuous scan loop settings.
type ScanConfig struct {
	// Interval is the pause between scan iterations (milliseconds).
	Interval int `yaml:"interval"`
}

// IndicatorConfig contains LED indicator settings.
type IndicatorConfig struct {
	// Dwell is how long success/error colours are held before reset (milliseconds).
	Dwell int `yaml:"dwell"`
}

// AccessConfig contains access decision settings.
type AccessConfig struct {
	// MatchTimeout flags unnamed identities unseen for longer than this many
	// seconds as "timeout" instead of "unlock". 0 disables the check.
	MatchTimeout int `yaml:"match_timeout"`
}

// RegistryConfig contains template registry persistence settings.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig contains SQLite database settings for the access log.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: FINGERPRINT_SECTION_KEY
// For example: FINGERPRINT_SENSOR_SERIAL, FINGERPRINT_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			ID:             "fingerprint-01",
			Name:           "Fingerprint Reader",
			HealthInterval: 30,
		},
		Sensor: SensorConfig{
			Serial:      "/dev/serial0",
			BaudRate:    57600,
			Address:     0xFFFFFFFF,
			Password:    0,
			ReadTimeout: 1000,
		},
		Enrollment: EnrollmentConfig{
			CaptureTimeout: 10,
			PollInterval:   50,
			SlotPolicy:     SlotPolicyAuto,
		},
		Scan: ScanConfig{
			Interval: 100,
		},
		Indicator: IndicatorConfig{
			Dwell: 1000,
		},
		Registry: RegistryConfig{
			Path: "./data/templates.yaml",
		},
		Database: DatabaseConfig{
			Path:        "./data/fingerprint.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "fingerprint-node",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "fingerprint",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9102",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: FINGERPRINT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Sensor
	if v := os.Getenv("FINGERPRINT_SENSOR_SERIAL"); v != "" {
		cfg.Sensor.Serial = v
	}
	if v := os.Getenv("FINGERPRINT_SENSOR_PASSWORD"); v != "" {
		if pw, err := strconv.ParseUint(v, 0, 32); err == nil {
			cfg.Sensor.Password = uint32(pw)
		}
	}

	// Registry / database
	if v := os.Getenv("FINGERPRINT_REGISTRY_PATH"); v != "" {
		cfg.Registry.Path = v
	}
	if v := os.Getenv("FINGERPRINT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("FINGERPRINT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("FINGERPRINT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("FINGERPRINT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("FINGERPRINT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Node.ID == "" {
		errs = append(errs, "node.id is required")
	}

	if c.Sensor.Serial == "" {
		errs = append(errs, "sensor.serial is required")
	}
	if c.Sensor.BaudRate <= 0 {
		errs = append(errs, "sensor.baud_rate must be positive")
	}

	if c.Enrollment.CaptureTimeout <= 0 {
		errs = append(errs, "enrollment.capture_timeout must be positive")
	}
	switch c.Enrollment.SlotPolicy {
	case SlotPolicyAuto, SlotPolicyLowestFree, SlotPolicyExplicit:
	default:
		errs = append(errs, fmt.Sprintf("enrollment.slot_policy %q must be auto, lowest_free or explicit", c.Enrollment.SlotPolicy))
	}

	if c.Access.MatchTimeout < 0 {
		errs = append(errs, "access.match_timeout must not be negative")
	}

	if c.Registry.Path == "" {
		errs = append(errs, "registry.path is required")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.TopicPrefix == "" || strings.ContainsAny(c.MQTT.TopicPrefix, "#+") {
		errs = append(errs, "mqtt.topic_prefix must be non-empty and free of wildcards")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, "metrics.listen is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetCaptureTimeout returns the enrollment capture timeout as a Duration.
func (c *Config) GetCaptureTimeout() time.Duration {
	return time.Duration(c.Enrollment.CaptureTimeout) * time.Second
}

// GetPollInterval returns the enrollment poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Enrollment.PollInterval) * time.Millisecond
}

// GetScanInterval returns the pause between scan iterations as a Duration.
func (c *Config) GetScanInterval() time.Duration {
	return time.Duration(c.Scan.Interval) * time.Millisecond
}

// GetIndicatorDwell returns how long transient indicator colours are held.
func (c *Config) GetIndicatorDwell() time.Duration {
	return time.Duration(c.Indicator.Dwell) * time.Millisecond
}

// GetMatchTimeout returns the stale-identity threshold. Zero disables the check.
func (c *Config) GetMatchTimeout() time.Duration {
	return time.Duration(c.Access.MatchTimeout) * time.Second
}

// GetSensorReadTimeout returns the per-packet serial read timeout.
func (c *Config) GetSensorReadTimeout() time.Duration {
	return time.Duration(c.Sensor.ReadTimeout) * time.Millisecond
}

// GetHealthInterval returns the health report interval.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Node.HealthInterval) * time.Second
}
