package world

import (
	"math/rand"
	"sync"
	"time"

	"github.com/nidhogg/neighborhood-life/internal/schedule"
	"go.uber.org/zap"
)

// weatherTransitions gives the relative odds of moving from one category to
// another when the weather drifts.
var weatherTransitions = map[schedule.WeatherCategory]map[schedule.WeatherCategory]float64{
	schedule.WeatherClear:  {schedule.WeatherClear: 6, schedule.WeatherCloudy: 3, schedule.WeatherRain: 1},
	schedule.WeatherCloudy: {schedule.WeatherClear: 3, schedule.WeatherCloudy: 4, schedule.WeatherRain: 2, schedule.WeatherSnow: 1},
	schedule.WeatherRain:   {schedule.WeatherCloudy: 4, schedule.WeatherRain: 5, schedule.WeatherClear: 1},
	schedule.WeatherSnow:   {schedule.WeatherSnow: 5, schedule.WeatherCloudy: 4, schedule.WeatherClear: 1},
}

// Weather simulates the current weather category. When pinned via config it
// never drifts; otherwise it re-rolls on a fixed world-time cadence.
type Weather struct {
	current   schedule.WeatherCategory
	pinned    bool
	cadence   time.Duration
	lastDrift time.Time
	rng       *rand.Rand
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewWeather creates a weather service. An empty pinned category enables
// drifting starting from clear skies.
func NewWeather(pinned schedule.WeatherCategory, cadence time.Duration, seed int64, logger *zap.Logger) *Weather {
	w := &Weather{
		current: schedule.WeatherClear,
		cadence: cadence,
		rng:     rand.New(rand.NewSource(seed)),
		logger:  logger,
	}
	if pinned != schedule.WeatherNone {
		w.current = pinned
		w.pinned = true
	}
	return w
}

// CurrentWeather implements schedule.Environment.
func (w *Weather) CurrentWeather() schedule.WeatherCategory {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnTick implements ClockListener. Drifts the weather once per cadence.
func (w *Weather) OnTick(worldTime time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pinned {
		return
	}
	if w.lastDrift.IsZero() {
		w.lastDrift = worldTime
		return
	}
	if worldTime.Sub(w.lastDrift) < w.cadence {
		return
	}
	w.lastDrift = worldTime

	next := w.roll(weatherTransitions[w.current])
	if next != w.current {
		w.logger.Info("weather changed",
			zap.String("from", string(w.current)),
			zap.String("to", string(next)))
		w.current = next
	}
}

func (w *Weather) roll(odds map[schedule.WeatherCategory]float64) schedule.WeatherCategory {
	if len(odds) == 0 {
		return w.current
	}
	ordered := []schedule.WeatherCategory{
		schedule.WeatherClear, schedule.WeatherCloudy, schedule.WeatherRain, schedule.WeatherSnow,
	}
	total := 0.0
	for _, c := range ordered {
		total += odds[c]
	}
	r := w.rng.Float64() * total
	upto := 0.0
	for _, c := range ordered {
		upto += odds[c]
		if upto >= r {
			return c
		}
	}
	return w.current
}
