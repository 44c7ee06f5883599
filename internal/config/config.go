// Package config resolves the service configuration.
// Precedence, lowest first: defaults, YAML file, environment, command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type MQTT struct {
	Host     string `yaml:"host"` // empty disables MQTT
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`
}

func (m MQTT) Enabled() bool { return strings.TrimSpace(m.Host) != "" }

type Influx struct {
	URL             string `yaml:"url"` // empty disables InfluxDB
	Token           string `yaml:"token"`
	Org             string `yaml:"org"`
	Bucket          string `yaml:"bucket"`
	BatchSize       int    `yaml:"batch_size"`
	FlushIntervalMS int    `yaml:"flush_interval_ms"`
}

func (i Influx) Enabled() bool { return strings.TrimSpace(i.URL) != "" }

type Config struct {
	Addr         string        `yaml:"addr"`
	GRPCAddr     string        `yaml:"grpc_addr"` // empty disables gRPC
	TickInterval time.Duration `yaml:"tick_interval"`
	QueueSize    int           `yaml:"queue_size"`
	Seed         int64         `yaml:"seed"` // 0 = time based

	MQTT   MQTT   `yaml:"mqtt"`
	Influx Influx `yaml:"influx"`
}

func Defaults() Config {
	return Config{
		Addr:         ":3000",
		GRPCAddr:     ":50051",
		TickInterval: 3 * time.Second,
		QueueSize:    16,
		MQTT: MQTT{
			Port:     1883,
			User:     "guest",
			Password: "guest",
			ClientID: "agribot",
		},
		Influx: Influx{
			Org:             "agribot",
			Bucket:          "farm",
			BatchSize:       10,
			FlushIntervalMS: 200,
		},
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration from args (without the program name) and the environment.
func Load(args []string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	fs := pflag.NewFlagSet("agribot", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to a YAML config file")
	addr := fs.String("addr", "", "HTTP listen address")
	grpcAddr := fs.String("grpc-addr", "", "gRPC listen address (empty disables gRPC)")
	tick := fs.Duration("tick", 0, "simulation tick interval")
	queue := fs.Int("queue-size", 0, "per-subscriber queue size")
	seed := fs.Int64("seed", 0, "random seed (0 = time based)")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Defaults()

	path := *configPath
	if path == "" {
		path = envStr(lookup, "", "CONFIG_FILE")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	if fs.Changed("addr") {
		cfg.Addr = *addr
	}
	if fs.Changed("grpc-addr") {
		cfg.GRPCAddr = *grpcAddr
	}
	if fs.Changed("tick") {
		cfg.TickInterval = *tick
	}
	if fs.Changed("queue-size") {
		cfg.QueueSize = *queue
	}
	if fs.Changed("seed") {
		cfg.Seed = *seed
	}

	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	if port := envStr(lookup, "", "PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	cfg.Addr = envStr(lookup, cfg.Addr, "HTTP_ADDR")
	if port := envStr(lookup, "", "GRPC_PORT"); port != "" {
		cfg.GRPCAddr = ":" + port
	}

	var err error
	if ms, ok, e := envInt(lookup, "TICK_INTERVAL_MS"); e != nil {
		err = errors.Join(err, e)
	} else if ok {
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	}
	if n, ok, e := envInt(lookup, "QUEUE_SIZE"); e != nil {
		err = errors.Join(err, e)
	} else if ok {
		cfg.QueueSize = n
	}
	if n, ok, e := envInt(lookup, "SIM_SEED"); e != nil {
		err = errors.Join(err, e)
	} else if ok {
		cfg.Seed = int64(n)
	}

	cfg.MQTT.Host = envStr(lookup, cfg.MQTT.Host, "MQTT_HOST", "RABBITMQ_HOST")
	if n, ok, e := envInt(lookup, "MQTT_PORT", "RABBITMQ_PORT"); e != nil {
		err = errors.Join(err, e)
	} else if ok {
		cfg.MQTT.Port = n
	}
	cfg.MQTT.User = envStr(lookup, cfg.MQTT.User, "MQTT_USER", "RABBITMQ_USER")
	cfg.MQTT.Password = envStr(lookup, cfg.MQTT.Password, "MQTT_PASSWORD", "RABBITMQ_PASSWORD")
	cfg.MQTT.ClientID = envStr(lookup, cfg.MQTT.ClientID, "MQTT_CLIENT_ID", "RABBITMQ_CLIENTID")

	cfg.Influx.URL = envStr(lookup, cfg.Influx.URL, "INFLUX_URL")
	cfg.Influx.Token = envStr(lookup, cfg.Influx.Token, "INFLUX_TOKEN")
	cfg.Influx.Org = envStr(lookup, cfg.Influx.Org, "INFLUX_ORG")
	cfg.Influx.Bucket = envStr(lookup, cfg.Influx.Bucket, "INFLUX_BUCKET")
	if n, ok, e := envInt(lookup, "WRITE_BATCH_SIZE"); e != nil {
		err = errors.Join(err, e)
	} else if ok {
		cfg.Influx.BatchSize = n
	}
	if n, ok, e := envInt(lookup, "WRITE_FLUSH_INTERVAL_MS"); e != nil {
		err = errors.Join(err, e)
	} else if ok {
		cfg.Influx.FlushIntervalMS = n
	}

	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %s", c.TickInterval))
	}
	if c.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("queue size must be positive, got %d", c.QueueSize))
	}
	if c.MQTT.Enabled() && (c.MQTT.Port <= 0 || c.MQTT.Port > 65535) {
		errs = append(errs, fmt.Errorf("mqtt port out of range: %d", c.MQTT.Port))
	}
	if c.Influx.Enabled() && strings.TrimSpace(c.Influx.Bucket) == "" {
		errs = append(errs, errors.New("influx bucket must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// envStr returns the first non-empty variable among keys, or def.
func envStr(lookup LookupFunc, def string, keys ...string) string {
	for _, k := range keys {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return def
}

// envInt parses the first non-empty variable among keys; ok is false when none is set.
func envInt(lookup LookupFunc, keys ...string) (n int, ok bool, err error) {
	for _, k := range keys {
		v, set := lookup(k)
		if !set || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false, fmt.Errorf("%s: %w", k, err)
		}
		return n, true, nil
	}
	return 0, false, nil
}
