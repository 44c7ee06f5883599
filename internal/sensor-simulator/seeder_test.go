package sensor_simulator

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/agribot/internal/model/entities"
	"github.com/LeonardoBeccarini/agribot/internal/store"
)

func TestSeedFillsHistoryAnalyticsAndForecast(t *testing.T) {
	s := store.New(entities.NewFarmState(t0))
	snap, err := Seed(s, t0, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	st := snap.State

	series := map[string][]entities.Reading{
		"soil":  st.SoilMoisture.History,
		"water": st.WaterLevel.History,
		"light": st.LightIntensity.History,
	}
	for name, h := range series {
		if len(h) != historyHours {
			t.Fatalf("%s: expected %d points, got %d", name, historyHours, len(h))
		}
		if !h[len(h)-1].Timestamp.Equal(t0) {
			t.Fatalf("%s: last point at %v, want %v", name, h[len(h)-1].Timestamp, t0)
		}
		for i := 1; i < len(h); i++ {
			if gap := h[i].Timestamp.Sub(h[i-1].Timestamp); gap != time.Hour {
				t.Fatalf("%s: gap %v between points %d and %d", name, gap, i-1, i)
			}
		}
	}

	for _, r := range st.SoilMoisture.History {
		if r.Value < 50 || r.Value >= 90 {
			t.Fatalf("soil history value %v outside [50, 90)", r.Value)
		}
	}
	for _, r := range st.WaterLevel.History {
		if r.Value < 60 || r.Value >= 95 {
			t.Fatalf("water history value %v outside [60, 95)", r.Value)
		}
	}
	for _, r := range st.LightIntensity.History {
		if r.Value < 0 || r.Value >= 1200 {
			t.Fatalf("light history value %v outside [0, 1200)", r.Value)
		}
	}

	if len(st.Analytics.DailyWaterUsage) != analyticsDays || len(st.Analytics.WeeklyGrowth) != analyticsDays {
		t.Fatalf("expected %d analytics days, got %d/%d", analyticsDays,
			len(st.Analytics.DailyWaterUsage), len(st.Analytics.WeeklyGrowth))
	}
	if got := st.Analytics.DailyWaterUsage[analyticsDays-1].Date; got != "2024-06-01" {
		t.Fatalf("expected last usage date 2024-06-01, got %s", got)
	}
	if got := st.Analytics.DailyWaterUsage[0].Date; got != "2024-05-26" {
		t.Fatalf("expected first usage date 2024-05-26, got %s", got)
	}

	if len(st.Weather.Forecast) != forecastDays {
		t.Fatalf("expected %d forecast days, got %d", forecastDays, len(st.Weather.Forecast))
	}
	if st.Weather.Forecast[0].Date != "2024-06-01" || st.Weather.Forecast[4].Date != "2024-06-05" {
		t.Fatalf("unexpected forecast dates: %s..%s", st.Weather.Forecast[0].Date, st.Weather.Forecast[4].Date)
	}
	for _, f := range st.Weather.Forecast {
		switch f.Condition {
		case entities.ConditionSunny, entities.ConditionCloudy, entities.ConditionRainy:
		default:
			t.Fatalf("unexpected condition %q", f.Condition)
		}
		if f.Temperature < 20 || f.Temperature >= 35 || f.Humidity < 40 || f.Humidity >= 80 {
			t.Fatalf("forecast out of range: %+v", f)
		}
	}

	if len(st.Analytics.MonthlyYield) != 0 {
		t.Fatalf("monthly yield must stay empty")
	}
}

func TestSeedTwiceFails(t *testing.T) {
	s := store.New(entities.NewFarmState(t0))
	if _, err := Seed(s, t0, nil); err != nil {
		t.Fatalf("first Seed failed: %v", err)
	}
	v := s.Version()
	if _, err := Seed(s, t0, nil); !errors.Is(err, ErrAlreadySeeded) {
		t.Fatalf("expected ErrAlreadySeeded, got %v", err)
	}
	if s.Version() != v {
		t.Fatalf("second Seed changed the store version")
	}
}
