package entities

type Condition string

const (
	ConditionSunny  Condition = "sunny"
	ConditionCloudy Condition = "cloudy"
	ConditionRainy  Condition = "rainy"
)

// Conditions lists every forecast condition in a stable order.
var Conditions = []Condition{ConditionSunny, ConditionCloudy, ConditionRainy}

// ForecastDay is one day of the 5-day outlook.
type ForecastDay struct {
	Date        string    `json:"date"` // YYYY-MM-DD (UTC)
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Condition   Condition `json:"condition"`
}

// Weather readings drift without bounds; only soil, water and light are clamped.
type Weather struct {
	Temperature float64       `json:"temperature"` // °C
	Humidity    float64       `json:"humidity"`    // %
	WindSpeed   float64       `json:"windSpeed"`   // km/h
	Pressure    float64       `json:"pressure"`    // hPa
	Forecast    []ForecastDay `json:"forecast"`
}
