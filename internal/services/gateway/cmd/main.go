package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"github.com/LeonardoBeccarini/agribot/internal/broadcast"
	"github.com/LeonardoBeccarini/agribot/internal/config"
	"github.com/LeonardoBeccarini/agribot/internal/metrics"
	"github.com/LeonardoBeccarini/agribot/internal/model/entities"
	sim "github.com/LeonardoBeccarini/agribot/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/agribot/internal/services/device"
	"github.com/LeonardoBeccarini/agribot/internal/services/event"
	"github.com/LeonardoBeccarini/agribot/internal/services/gateway/app"
	"github.com/LeonardoBeccarini/agribot/internal/store"
	"github.com/LeonardoBeccarini/agribot/pkg/rabbitmq"
)

const shutdownGrace = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:], os.LookupEnv)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("agribot: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("agribot: %v", err)
	}
}

func run(cfg config.Config) error {
	logger := log.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// === State ===
	m := metrics.New()
	now := time.Now()
	st := store.New(entities.NewFarmState(now))
	defer st.Close()
	if _, err := sim.Seed(st, now, rand.New(rand.NewSource(seed))); err != nil {
		return fmt.Errorf("seed history: %w", err)
	}

	hub := broadcast.NewHub(st, broadcast.Config{QueueSize: cfg.QueueSize, Logger: logger, Metrics: m})
	defer hub.Close()

	// un errore fatale da qualsiasi componente ferma il servizio
	fatal := make(chan error, 4)

	// === MQTT (opzionale) ===
	var (
		notifiers  []device.Notifier
		mqttClient mqtt.Client
		mirror     *event.StateMirror
	)
	if cfg.MQTT.Enabled() {
		client, err := rabbitmq.NewRabbitMQConn(&rabbitmq.RabbitMQConfig{
			Host:     cfg.MQTT.Host,
			Port:     cfg.MQTT.Port,
			User:     cfg.MQTT.User,
			Password: cfg.MQTT.Password,
			ClientID: cfg.MQTT.ClientID + "-" + uuid.NewString()[:8],
		}, ctx)
		if err != nil {
			return fmt.Errorf("mqtt connection error: %w", err)
		}
		defer rabbitmq.CloseRabbitMQConn(client)
		mqttClient = client

		statePub := rabbitmq.NewPublisher(client).Retained()
		mirror = event.NewStateMirror(statePub, event.NewBreaker("mqtt-state", 5, 10*time.Second))

		eventPub := rabbitmq.NewPublisher(client)
		notifiers = append(notifiers, event.NewEventPublisher(eventPub, event.NewBreaker("mqtt-events", 5, 10*time.Second), logger, m))
	}

	// === InfluxDB (opzionale) ===
	var (
		influx influxdb2.Client
		writer *event.Writer
		events http.Handler
	)
	if cfg.Influx.Enabled() {
		opts := influxdb2.DefaultOptions().
			SetBatchSize(uint(cfg.Influx.BatchSize)).
			SetFlushInterval(uint(cfg.Influx.FlushIntervalMS))
		influx = influxdb2.NewClientWithOptions(cfg.Influx.URL, cfg.Influx.Token, opts)
		defer influx.Close()

		writer = event.NewWriter(influx.WriteAPI(cfg.Influx.Org, cfg.Influx.Bucket), m)
		notifiers = append(notifiers, writer)
		events = event.NewActuatorEventsHandler(influx, cfg.Influx.Org, cfg.Influx.Bucket,
			event.NewBreaker("influx-query", 3, 15*time.Second))
	}

	// === Control surface + engine ===
	svc := device.NewDeviceService(st, device.Config{Logger: logger, Metrics: m, Notifiers: notifiers})
	engine := sim.NewSimulator(st,
		sim.NewDataGenerator(sim.NewUniformPerturber(seed+1)),
		hub,
		sim.Config{Interval: cfg.TickInterval, Logger: logger, Metrics: m})

	go func() {
		if err := engine.Run(ctx); err != nil {
			fatal <- err
		}
	}()

	if mirror != nil {
		go func() { _ = event.Drain(ctx, hub, mirror, logger, m) }()
		consumer := rabbitmq.NewConsumer(mqttClient, event.CommandTopicPrefix+"#", nil)
		go func() {
			if err := svc.Start(ctx, consumer); err != nil {
				logger.Printf("device: command consumer stopped: %v", err)
			}
		}()
	}
	if writer != nil {
		go func() { _ = event.Drain(ctx, hub, writer, logger, m) }()
	}

	// === gRPC ===
	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", cfg.GRPCAddr, err)
		}
		grpcSrv = grpc.NewServer()
		device.RegisterControlServer(grpcSrv, device.NewGrpcHandler(svc, hub, logger))
		go func() {
			logger.Printf("gateway: gRPC listening on %s", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				fatal <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	// === HTTP ===
	gw := app.NewGateway(app.Config{
		Device:  svc,
		Hub:     hub,
		Metrics: m,
		Health: event.Deps{
			MQTT:   mqttClient,
			Influx: influx,
			Writer: writer,
			Engine: engine,
		},
		Events: events,
		Logger: logger,
	})
	hs := &http.Server{
		Addr:              cfg.Addr,
		Handler:           gw.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Printf("gateway: HTTP listening on %s", cfg.Addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal <- fmt.Errorf("http server: %w", err)
		}
	}()

	// === Wait ===
	var runErr error
	select {
	case <-ctx.Done():
		logger.Printf("gateway: shutting down...")
	case runErr = <-fatal:
		logger.Printf("gateway: fatal: %v", runErr)
		stop()
	}

	// chiudere l'hub sblocca websocket e stream gRPC ancora aperti
	hub.Close()

	shCtx, shCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shCancel()
	if err := hs.Shutdown(shCtx); err != nil {
		logger.Printf("gateway: http shutdown: %v", err)
	}
	if grpcSrv != nil {
		done := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shCtx.Done():
			grpcSrv.Stop()
		}
	}

	if influx != nil {
		influx.WriteAPI(cfg.Influx.Org, cfg.Influx.Bucket).Flush()
	}
	return runErr
}
