package model

// UserProgress is the shopkeeper's level and experience, derived from
// aggregate sales behaviour.
type UserProgress struct {
	Level       int `json:"level"`
	XP          int `json:"xp"`
	NextLevelXP int `json:"next_level_xp"`
}

// Badge is an achievement earned from sales behaviour.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// Mission is a daily/weekly goal with tracked progress.
type Mission struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Progress    float64 `json:"progress"`
	Target      float64 `json:"target"`
	Reward      string  `json:"reward"`
	Type        string  `json:"type"` // daily or weekly
	Completed   bool    `json:"completed"`
}

// GamificationSummary is everything the gamification screen needs.
type GamificationSummary struct {
	Progress UserProgress `json:"progress"`
	Badges   []Badge      `json:"badges"`
	Missions []Mission    `json:"missions"`
}

// SalesAnalytics are the aggregates missions and badges are computed from.
type SalesAnalytics struct {
	TodaysSales          int     `json:"todays_sales"`
	TodaysDigitalSales   int     `json:"todays_digital_sales"`
	WeekSalesTotal       float64 `json:"week_sales_total"`
	WeekTransactionCount int     `json:"week_transaction_count"`
	DigitalAdoption      float64 `json:"digital_adoption"`
}
