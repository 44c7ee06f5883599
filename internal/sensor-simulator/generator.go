package sensor_simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/agribot/internal/model/entities"
)

// ====== Tunables ======
// Half-widths of the uniform delta applied to each reading per tick.
const (
	soilSpread        = 2.0
	waterSpread       = 1.0
	lightSpread       = 50.0
	temperatureSpread = 1.0
	humiditySpread    = 2.5
	windSpread        = 1.5
)

// ErrInvalidDelta is returned when a perturber yields NaN or ±Inf.
var ErrInvalidDelta = errors.New("sensor simulator: invalid delta")

// Field identifies the reading a delta is drawn for.
type Field int

const (
	FieldSoilMoisture Field = iota
	FieldWaterLevel
	FieldLightIntensity
	FieldTemperature
	FieldHumidity
	FieldWindSpeed
)

func (f Field) String() string {
	switch f {
	case FieldSoilMoisture:
		return "soil_moisture"
	case FieldWaterLevel:
		return "water_level"
	case FieldLightIntensity:
		return "light_intensity"
	case FieldTemperature:
		return "temperature"
	case FieldHumidity:
		return "humidity"
	case FieldWindSpeed:
		return "wind_speed"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Perturber draws the delta for one reading; spread is the nominal half-width.
type Perturber interface {
	Delta(f Field, spread float64) float64
}

// PerturbFunc adapts a plain function to Perturber.
type PerturbFunc func(f Field, spread float64) float64

func (fn PerturbFunc) Delta(f Field, spread float64) float64 { return fn(f, spread) }

type uniformPerturber struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewUniformPerturber draws deltas uniformly from [-spread, +spread).
// A zero seed picks a time-based one.
func NewUniformPerturber(seed int64) Perturber {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &uniformPerturber{rnd: rand.New(rand.NewSource(seed))}
}

func (p *uniformPerturber) Delta(_ Field, spread float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return (p.rnd.Float64()*2 - 1) * spread
}

// DataGenerator applies one tick worth of drift to the farm state.
type DataGenerator struct {
	perturber Perturber
}

func NewDataGenerator(p Perturber) *DataGenerator {
	if p == nil {
		p = NewUniformPerturber(0)
	}
	return &DataGenerator{perturber: p}
}

// Next draws every delta first and only then touches st, so a bad delta leaves st as it was.
func (g *DataGenerator) Next(st *entities.FarmState, now time.Time) error {
	var d [6]float64
	spreads := [6]float64{soilSpread, waterSpread, lightSpread, temperatureSpread, humiditySpread, windSpread}
	for i := range d {
		v, err := g.delta(Field(i), spreads[i])
		if err != nil {
			return err
		}
		d[i] = v
	}

	st.SoilMoisture.SetCurrent(st.SoilMoisture.Current+d[FieldSoilMoisture], now)
	st.WaterLevel.SetCurrent(st.WaterLevel.Current+d[FieldWaterLevel], now)
	st.LightIntensity.SetCurrent(st.LightIntensity.Current+d[FieldLightIntensity], now)

	// weather is not clamped
	st.Weather.Temperature += d[FieldTemperature]
	st.Weather.Humidity += d[FieldHumidity]
	st.Weather.WindSpeed += d[FieldWindSpeed]
	return nil
}

func (g *DataGenerator) delta(f Field, spread float64) (float64, error) {
	v := g.perturber.Delta(f, spread)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s=%v", ErrInvalidDelta, f, v)
	}
	return v, nil
}
