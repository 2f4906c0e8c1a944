package domain

// BatteryProfile is the scheduler's view of the battery, refreshed from the
// inverter every cycle.
type BatteryProfile struct {
	CapacityWh    float64
	StateOfCharge float64 // fraction 0..1
}

func (b BatteryProfile) RemainingWh() float64 {
	return b.StateOfCharge * b.CapacityWh
}

// Snapshot is the flat record exposed to the presentation layer (MQTT
// sensors and the HTTP API) after every scheduler cycle.
type Snapshot struct {
	Status           string      `json:"status"`
	ForecasterStatus string      `json:"forecaster_status"`
	ForecasterName   string      `json:"forecaster_name"`
	Mode             BoostMode   `json:"mode"`
	CalculatedSoC    int         `json:"calculated"`
	ManualSoC        int         `json:"manual"`
	ActualSoC        float64     `json:"actual"`
	BatterySoC       float64     `json:"battery_soc"`
	MinimumSoC       int         `json:"min_soc"`
	LoadDays         int         `json:"load_days"`
	UpdateHour       int         `json:"update_hour"`
	BoostStartHour   int         `json:"start"`
	BoostEndHour     int         `json:"end"`
	BatteryTimeLeft  float64     `json:"battery_time_remaining"` // hours
	BatteryExhausted string      `json:"battery_exhausted"`
	CalculatedPVNow  int         `json:"calculated_pv_now"`
	LoadAverages     HourlyCurve `json:"load_averages"`
	PVRatios         RatioTable  `json:"pv_ratios"`
	PVToday          HourlyCurve `json:"pv_calculated_today"`
	PVTodayTotal     int         `json:"pv_calculated_today_total"`
	PVTodayLabel     string      `json:"pv_calculated_today_day"`
	PVTomorrow       HourlyCurve `json:"pv_calculated_tomorrow"`
	PVTomorrowTotal  int         `json:"pv_calculated_tomorrow_total"`
	PVTomorrowLabel  string      `json:"pv_calculated_tomorrow_day"`
}
