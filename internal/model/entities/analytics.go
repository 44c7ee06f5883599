package entities

type WaterUsage struct {
	Date  string  `json:"date"`
	Usage float64 `json:"usage"` // litres
}

type Growth struct {
	Date   string  `json:"date"`
	Growth float64 `json:"growth"` // cm
}

type YieldPoint struct {
	Month string  `json:"month"`
	Yield float64 `json:"yield"`
}

// Analytics is generated once at startup and never refreshed.
type Analytics struct {
	DailyWaterUsage []WaterUsage `json:"dailyWaterUsage"`
	WeeklyGrowth    []Growth     `json:"weeklyGrowth"`
	MonthlyYield    []YieldPoint `json:"monthlyYield"`
	Efficiency      float64      `json:"efficiency"` // %
}
