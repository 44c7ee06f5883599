package entities

import "time"

// FarmState is the whole picture the dashboard renders: every sensor slice,
// every actuator and the precomputed analytics.
type FarmState struct {
	SoilMoisture   SoilMoisture   `json:"soilMoisture"`
	WaterLevel     WaterLevel     `json:"waterLevel"`
	LightIntensity LightIntensity `json:"lightIntensity"`
	Irrigation     Irrigation     `json:"irrigation"`
	Security       Security       `json:"security"`
	Camera         Camera         `json:"camera"`
	Weather        Weather        `json:"weather"`
	Analytics      Analytics      `json:"analytics"`
}

// NewFarmState returns the boot-time state with empty history series.
func NewFarmState(now time.Time) FarmState {
	st := FarmState{
		SoilMoisture: SoilMoisture{
			Current:    65.0,
			History:    []Reading{},
			Status:     SoilOptimal,
			LastUpdate: now,
		},
		WaterLevel: WaterLevel{
			Current:    78.0,
			Capacity:   DefaultTankCapacity,
			History:    []Reading{},
			LastUpdate: now,
		},
		LightIntensity: LightIntensity{
			Current:    750,
			History:    []Reading{},
			LastUpdate: now,
		},
		Irrigation: Irrigation{
			AutoMode: true,
			Schedule: []ScheduleEntry{
				{Time: "06:00", Enabled: true, Name: "Morning"},
				{Time: "14:00", Enabled: false, Name: "Afternoon"},
				{Time: "18:00", Enabled: true, Name: "Evening"},
			},
		},
		Security: Security{
			Active: true,
			Zones: []Zone{
				{Name: "Field Perimeter", Active: true, Type: "Motion Sensors"},
				{Name: "Equipment Shed", Active: true, Type: "Door Sensor"},
				{Name: "Water Tank Area", Active: true, Type: "Camera + Motion"},
				{Name: "Main Gate", Active: false, Type: "Access Control"},
			},
			Alerts: []Alert{},
		},
		Camera: Camera{
			Online: true,
			Recordings: []Recording{
				{Name: "Morning_Inspection_2024.mp4", Time: "2 hours ago", Size: "45 MB"},
				{Name: "Irrigation_Session_2024.mp4", Time: "1 day ago", Size: "128 MB"},
				{Name: "Weekly_Growth_2024.mp4", Time: "3 days ago", Size: "256 MB"},
			},
		},
		Weather: Weather{
			Temperature: 24.5,
			Humidity:    68,
			WindSpeed:   12.3,
			Pressure:    1013.2,
			Forecast:    []ForecastDay{},
		},
		Analytics: Analytics{
			DailyWaterUsage: []WaterUsage{},
			WeeklyGrowth:    []Growth{},
			MonthlyYield:    []YieldPoint{},
			Efficiency:      87.5,
		},
	}
	st.Recompute()
	return st
}

// Recompute refreshes every derived field (tank volume, light level).
func (f *FarmState) Recompute() {
	f.WaterLevel.Recompute()
	f.LightIntensity.Recompute()
}

// Clone returns a deep copy that shares no slices with f.
func (f FarmState) Clone() FarmState {
	out := f
	out.SoilMoisture.History = cloneSlice(f.SoilMoisture.History)
	out.WaterLevel.History = cloneSlice(f.WaterLevel.History)
	out.LightIntensity.History = cloneSlice(f.LightIntensity.History)
	out.Irrigation.Schedule = cloneSlice(f.Irrigation.Schedule)
	out.Security.Zones = cloneSlice(f.Security.Zones)
	out.Security.Alerts = cloneSlice(f.Security.Alerts)
	out.Camera.Recordings = cloneSlice(f.Camera.Recordings)
	out.Weather.Forecast = cloneSlice(f.Weather.Forecast)
	out.Analytics.DailyWaterUsage = cloneSlice(f.Analytics.DailyWaterUsage)
	out.Analytics.WeeklyGrowth = cloneSlice(f.Analytics.WeeklyGrowth)
	out.Analytics.MonthlyYield = cloneSlice(f.Analytics.MonthlyYield)
	return out
}
