package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
node:
  id: "door-front"
sensor:
  serial: "/dev/ttyUSB0"
  baud_rate: 57600
enrollment:
  capture_timeout: 15
  slot_policy: lowest_free
access:
  match_timeout: 3600
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "test-client"
  qos: 1
  topic_prefix: "door/front"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Node.ID != "door-front" {
		t.Errorf("Node.ID = %q, want %q", cfg.Node.ID, "door-front")
	}
	if cfg.Sensor.Serial != "/dev/ttyUSB0" {
		t.Errorf("Sensor.Serial = %q, want %q", cfg.Sensor.Serial, "/dev/ttyUSB0")
	}
	if cfg.GetCaptureTimeout() != 15*time.Second {
		t.Errorf("GetCaptureTimeout() = %v, want 15s", cfg.GetCaptureTimeout())
	}
	if cfg.Enrollment.SlotPolicy != SlotPolicyLowestFree {
		t.Errorf("SlotPolicy = %q, want %q", cfg.Enrollment.SlotPolicy, SlotPolicyLowestFree)
	}
	if cfg.GetMatchTimeout() != time.Hour {
		t.Errorf("GetMatchTimeout() = %v, want 1h", cfg.GetMatchTimeout())
	}
	if cfg.MQTT.TopicPrefix != "door/front" {
		t.Errorf("TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "door/front")
	}

	// Unset values keep their defaults
	if cfg.Sensor.Address != 0xFFFFFFFF {
		t.Errorf("Sensor.Address = %#x, want 0xFFFFFFFF", cfg.Sensor.Address)
	}
	if cfg.GetIndicatorDwell() != time.Second {
		t.Errorf("GetIndicatorDwell() = %v, want 1s", cfg.GetIndicatorDwell())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FINGERPRINT_SENSOR_SERIAL", "/dev/ttyAMA0")
	t.Setenv("FINGERPRINT_SENSOR_PASSWORD", "0x1234")
	t.Setenv("FINGERPRINT_MQTT_HOST", "mqtt.example")
	t.Setenv("FINGERPRINT_REGISTRY_PATH", "/var/lib/fp/templates.yaml")

	cfg, err := Load(writeConfig(t, "node:\n  id: env-test\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sensor.Serial != "/dev/ttyAMA0" {
		t.Errorf("Sensor.Serial = %q, want env override", cfg.Sensor.Serial)
	}
	if cfg.Sensor.Password != 0x1234 {
		t.Errorf("Sensor.Password = %#x, want 0x1234", cfg.Sensor.Password)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example" {
		t.Errorf("MQTT.Broker.Host = %q, want env override", cfg.MQTT.Broker.Host)
	}
	if cfg.Registry.Path != "/var/lib/fp/templates.yaml" {
		t.Errorf("Registry.Path = %q, want env override", cfg.Registry.Path)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "missing node id",
			mutate:  func(c *Config) { c.Node.ID = "" },
			wantErr: "node.id",
		},
		{
			name:    "missing serial",
			mutate:  func(c *Config) { c.Sensor.Serial = "" },
			wantErr: "sensor.serial",
		},
		{
			name:    "zero capture timeout",
			mutate:  func(c *Config) { c.Enrollment.CaptureTimeout = 0 },
			wantErr: "capture_timeout",
		},
		{
			name:    "unknown slot policy",
			mutate:  func(c *Config) { c.Enrollment.SlotPolicy = "random" },
			wantErr: "slot_policy",
		},
		{
			name:    "negative match timeout",
			mutate:  func(c *Config) { c.Access.MatchTimeout = -1 },
			wantErr: "match_timeout",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "wildcard topic prefix",
			mutate:  func(c *Config) { c.MQTT.TopicPrefix = "fingerprint/#" },
			wantErr: "topic_prefix",
		},
		{
			name: "influx enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = ""
			},
			wantErr: "influxdb.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Node.ID = ""
	cfg.Registry.Path = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "node.id") || !strings.Contains(err.Error(), "registry.path") {
		t.Errorf("Validate() error = %v, want both problems reported", err)
	}
}
