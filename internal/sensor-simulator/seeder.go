package sensor_simulator

import (
	"errors"
	"math/rand"
	"time"

	"github.com/LeonardoBeccarini/agribot/internal/model/entities"
	"github.com/LeonardoBeccarini/agribot/internal/store"
)

const (
	historyHours  = 24
	analyticsDays = 7
	forecastDays  = 5

	dateLayout = "2006-01-02"
	day        = 24 * time.Hour
)

// ErrAlreadySeeded is returned when Seed runs on a state that already has history.
var ErrAlreadySeeded = errors.New("sensor simulator: history already seeded")

// Seed backfills the last 24h of readings, the last 7 days of analytics and a
// 5-day forecast. It must run once, before the simulator and the HTTP listener start.
func Seed(s *store.Store, now time.Time, rnd *rand.Rand) (store.Snapshot, error) {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(now.UnixNano()))
	}
	return s.Apply(func(st *entities.FarmState) error {
		if len(st.SoilMoisture.History) > 0 || len(st.Weather.Forecast) > 0 {
			return ErrAlreadySeeded
		}
		SeedState(st, now, rnd)
		return nil
	})
}

// SeedState fills st in place. Every value is drawn independently.
func SeedState(st *entities.FarmState, now time.Time, rnd *rand.Rand) {
	// hourly series, oldest first
	for i := historyHours - 1; i >= 0; i-- {
		ts := now.Add(-time.Duration(i) * time.Hour)
		st.SoilMoisture.History = append(st.SoilMoisture.History, entities.Reading{Timestamp: ts, Value: 50 + rnd.Float64()*40})
		st.WaterLevel.History = append(st.WaterLevel.History, entities.Reading{Timestamp: ts, Value: 60 + rnd.Float64()*35})
		st.LightIntensity.History = append(st.LightIntensity.History, entities.Reading{Timestamp: ts, Value: rnd.Float64() * 1200})
	}

	// daily analytics, oldest first
	for i := analyticsDays - 1; i >= 0; i-- {
		date := now.Add(-time.Duration(i) * day).UTC().Format(dateLayout)
		st.Analytics.DailyWaterUsage = append(st.Analytics.DailyWaterUsage, entities.WaterUsage{Date: date, Usage: 80 + rnd.Float64()*60})
		st.Analytics.WeeklyGrowth = append(st.Analytics.WeeklyGrowth, entities.Growth{Date: date, Growth: rnd.Float64() * 5})
	}

	// forecast starting today
	for i := 0; i < forecastDays; i++ {
		date := now.Add(time.Duration(i) * day).UTC().Format(dateLayout)
		st.Weather.Forecast = append(st.Weather.Forecast, entities.ForecastDay{
			Date:        date,
			Temperature: 20 + rnd.Float64()*15,
			Humidity:    40 + rnd.Float64()*40,
			Condition:   entities.Conditions[rnd.Intn(len(entities.Conditions))],
		})
	}
}
