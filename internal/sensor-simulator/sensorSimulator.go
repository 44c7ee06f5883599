package sensor_simulator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/LeonardoBeccarini/agribot/internal/metrics"
	"github.com/LeonardoBeccarini/agribot/internal/model/entities"
	"github.com/LeonardoBeccarini/agribot/internal/store"
)

const (
	// DefaultInterval is the tick period of the simulator.
	DefaultInterval = 3 * time.Second
	// DefaultLogEvery logs one tick summary per minute at the default interval.
	DefaultLogEvery = 20
)

// ErrAlreadyStarted is returned by Run when the simulator is not idle.
var ErrAlreadyStarted = errors.New("sensor simulator: already started")

type EngineState int32

const (
	StateIdle EngineState = iota
	StateRunning
	StateStopped
)

func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Publisher receives the snapshot produced by every successful tick.
type Publisher interface {
	Publish(snap store.Snapshot)
}

type Config struct {
	Interval time.Duration
	// LogEvery is how many applied ticks pass between summary lines; 0 means DefaultLogEvery.
	LogEvery int
	Logger   *log.Logger
	Metrics  *metrics.Metrics
}

// Simulator periodically drifts the farm state and hands each result to the publisher.
type Simulator struct {
	store     *store.Store
	generator *DataGenerator
	publisher Publisher
	interval  time.Duration
	logEvery  uint64
	logger    *log.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	state   atomic.Int32
	applied atomic.Uint64
}

func NewSimulator(st *store.Store, gen *DataGenerator, pub Publisher, cfg Config) *Simulator {
	if gen == nil {
		gen = NewDataGenerator(nil)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = DefaultLogEvery
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Simulator{
		store:     st,
		generator: gen,
		publisher: pub,
		interval:  cfg.Interval,
		logEvery:  uint64(cfg.LogEvery),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		now:       time.Now,
	}
}

// Step applies a single tick. On error the state is untouched and nothing is published.
func (s *Simulator) Step() (store.Snapshot, error) {
	now := s.now()
	snap, err := s.store.Apply(func(st *entities.FarmState) error {
		return s.generator.Next(st, now)
	})
	if err != nil {
		s.metrics.TickFailed()
		return store.Snapshot{}, err
	}
	s.metrics.TickApplied()
	if s.publisher != nil {
		s.publisher.Publish(snap)
	}
	if n := s.applied.Add(1); n%s.logEvery == 0 {
		s.logger.Printf("sim: tick v=%d soil=%.1f%% water=%.1f%% light=%.0flx",
			snap.Version,
			snap.State.SoilMoisture.Current,
			snap.State.WaterLevel.Current,
			snap.State.LightIntensity.Current)
	}
	return snap, nil
}

// Run ticks until ctx is done. A failed tick is logged and skipped; a closed
// store is fatal and returned to the caller.
func (s *Simulator) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrAlreadyStarted
	}
	defer s.state.Store(int32(StateStopped))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Printf("sim: running, tick every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("sim: stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Step(); err != nil {
				if errors.Is(err, store.ErrStoreClosed) {
					return fmt.Errorf("sim: %w", err)
				}
				s.logger.Printf("sim: tick skipped: %v", err)
			}
		}
	}
}

func (s *Simulator) State() EngineState {
	return EngineState(s.state.Load())
}

func (s *Simulator) Running() bool { return s.State() == StateRunning }
