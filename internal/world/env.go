package world

import (
	"time"

	"github.com/nidhogg/neighborhood-life/internal/schedule"
)

// Env bundles the clock and weather into the single environment facade the
// schedule builder and director consume.
type Env struct {
	Clock   *Clock
	Weather *Weather
}

// CurrentWeather implements schedule.Environment.
func (e *Env) CurrentWeather() schedule.WeatherCategory {
	return e.Weather.CurrentWeather()
}

// IsWeekend implements schedule.Environment.
func (e *Env) IsWeekend() bool {
	return e.Clock.IsWeekend()
}

// MinuteOfDay returns the simulated minute of day.
func (e *Env) MinuteOfDay() int {
	return e.Clock.MinuteOfDay()
}

// WorldTime returns the simulated world time.
func (e *Env) WorldTime() time.Time {
	return e.Clock.WorldTime()
}

var _ schedule.Environment = (*Env)(nil)
