package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agribot.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(nil, envMap(nil))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":3000" || cfg.TickInterval != 3*time.Second || cfg.QueueSize != 16 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.MQTT.Enabled() || cfg.Influx.Enabled() {
		t.Fatalf("sinks must be disabled by default")
	}
}

func TestPrecedence(t *testing.T) {
	path := writeFile(t, `
addr: ":4000"
tick_interval: 5s
queue_size: 8
mqtt:
  host: broker.local
influx:
  url: http://influx:8086
  bucket: yard
`)

	tests := []struct {
		name      string
		args      []string
		env       map[string]string
		wantAddr  string
		wantTick  time.Duration
		wantQueue int
	}{
		{"file only", []string{"--config", path}, nil, ":4000", 5 * time.Second, 8},
		{"env over file", []string{"--config", path}, map[string]string{"PORT": "5000", "TICK_INTERVAL_MS": "250"}, ":5000", 250 * time.Millisecond, 8},
		{"flags over env", []string{"--config", path, "--addr", ":6000", "--tick", "1s", "--queue-size", "4"},
			map[string]string{"PORT": "5000", "TICK_INTERVAL_MS": "250", "QUEUE_SIZE": "2"}, ":6000", time.Second, 4},
		{"config from env", nil, map[string]string{"CONFIG_FILE": path}, ":4000", 5 * time.Second, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.args, envMap(tt.env))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Addr != tt.wantAddr || cfg.TickInterval != tt.wantTick || cfg.QueueSize != tt.wantQueue {
				t.Fatalf("got addr=%s tick=%s queue=%d", cfg.Addr, cfg.TickInterval, cfg.QueueSize)
			}
			if cfg.MQTT.Host != "broker.local" || cfg.MQTT.Port != 1883 {
				t.Fatalf("file mqtt settings lost: %+v", cfg.MQTT)
			}
			if cfg.Influx.Bucket != "yard" || cfg.Influx.Org != "agribot" {
				t.Fatalf("unexpected influx settings: %+v", cfg.Influx)
			}
		})
	}
}

func TestRabbitMQEnvNames(t *testing.T) {
	cfg, err := Load(nil, envMap(map[string]string{
		"RABBITMQ_HOST": "rabbit",
		"RABBITMQ_PORT": "1884",
		"MQTT_USER":     "farm",
	}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MQTT.Host != "rabbit" || cfg.MQTT.Port != 1884 || cfg.MQTT.User != "farm" {
		t.Fatalf("unexpected mqtt config %+v", cfg.MQTT)
	}
}

func TestInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"bad int env", nil, map[string]string{"TICK_INTERVAL_MS": "fast"}},
		{"zero tick flag", []string{"--tick", "0s"}, nil},
		{"negative queue", []string{"--queue-size", "-1"}, nil},
		{"unknown flag", []string{"--nope"}, nil},
		{"missing file", []string{"--config", "/does/not/exist.yaml"}, nil},
		{"bad mqtt port", nil, map[string]string{"MQTT_HOST": "b", "MQTT_PORT": "70000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.args, envMap(tt.env)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
