package pipeline

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"vaxcli/internal/vaccination"
)

// Default heuristic constants
const (
	DefaultAbsTolerance   = 1000.0
	DefaultRelTolerance   = 0.05
	DefaultDoseLag        = 12 * 7 * 24 * time.Hour
	DefaultWaitPeriod     = 7 * 24 * time.Hour
	DefaultForecastWindow = 7 * 24 * time.Hour
	DefaultForecastWeeks  = 51
)

// DefaultFirstDailyData is the first real date with daily reporting. Weekly
// figures on or after it are superseded by daily ones.
var DefaultFirstDailyData = vaccination.Day(2021, 1, 9)

// Params holds every tunable constant of the pipeline
type Params struct {
	// Deaggregation peer check: |aggregate - sum(peers)| < AbsTolerance or
	// the relative difference < RelTolerance.
	AbsTolerance float64 `json:"abs_tolerance" validate:"gte=0"`
	RelTolerance float64 `json:"rel_tolerance" validate:"gte=0,lte=1"`

	// Dose-2 eligibility lag behind dose 1
	DoseLag time.Duration `json:"dose_lag" validate:"gt=0"`
	// Wait after dose 2 before the dose_2_plus_wait slice counts someone
	WaitPeriod time.Duration `json:"wait_period" validate:"gt=0"`

	// Trailing window of observations used for each forecast fit
	ForecastWindow time.Duration `json:"forecast_window" validate:"gt=0"`
	// Number of weekly forecast points emitted per slice
	ForecastWeeks int `json:"forecast_weeks" validate:"gte=1,lte=520"`

	// Weekly records on or after this date are dropped by suppression
	FirstDailyData time.Time `json:"first_daily_data" validate:"required"`
}

// DefaultParams returns the documented default heuristics
func DefaultParams() Params {
	return Params{
		AbsTolerance:   DefaultAbsTolerance,
		RelTolerance:   DefaultRelTolerance,
		DoseLag:        DefaultDoseLag,
		WaitPeriod:     DefaultWaitPeriod,
		ForecastWindow: DefaultForecastWindow,
		ForecastWeeks:  DefaultForecastWeeks,
		FirstDailyData: DefaultFirstDailyData,
	}
}

var paramsValidator = validator.New()

// Validate checks that every parameter is within its allowed range
func (p Params) Validate() error {
	if err := paramsValidator.Struct(p); err != nil {
		return fmt.Errorf("invalid pipeline params: %w", err)
	}
	if p.DoseLag%(24*time.Hour) != 0 || p.WaitPeriod%(24*time.Hour) != 0 || p.ForecastWindow%(24*time.Hour) != 0 {
		return fmt.Errorf("invalid pipeline params: lags and windows must be whole days")
	}
	return nil
}

// days converts a whole-day duration into a day count
func days(d time.Duration) int {
	return int(d / (24 * time.Hour))
}
