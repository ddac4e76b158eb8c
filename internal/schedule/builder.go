package schedule

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Environment supplies the world signals that bias schedule generation.
type Environment interface {
	CurrentWeather() WeatherCategory
	IsWeekend() bool
}

// TraitResolver returns the trait identifiers active on a resident.
type TraitResolver interface {
	Traits(residentID string) ([]string, error)
}

// BiasTables holds the three configured bias layers.
type BiasTables struct {
	Trait   map[string]map[Action]float64 // trait id -> deltas
	Weather map[string]map[Action]float64 // "Rain" / "Snow" -> deltas
	Weekend map[Action]float64
}

// Builder expands block templates into concrete daily schedules.
type Builder struct {
	templates []BlockTemplate
	bias      BiasTables
	env       Environment
	traits    TraitResolver
	selector  *Selector
	rng       *rand.Rand
	mu        sync.Mutex
	logger    *zap.Logger
}

// NewBuilder creates a schedule builder.
func NewBuilder(templates []BlockTemplate, bias BiasTables, env Environment, traits TraitResolver, selector *Selector, seed int64, logger *zap.Logger) *Builder {
	return &Builder{
		templates: templates,
		bias:      bias,
		env:       env,
		traits:    traits,
		selector:  selector,
		rng:       rand.New(rand.NewSource(seed)),
		logger:    logger,
	}
}

// BuildAll produces one daily schedule per requested resident. Environment
// signals are read once for the whole batch so every resident sees the same
// weather and day type. A resident whose build fails is skipped with a log;
// one failure never aborts the batch.
func (b *Builder) BuildAll(residentIDs []string) map[string]*DailySchedule {
	weather := b.env.CurrentWeather()
	weekend := b.env.IsWeekend()

	schedules := make(map[string]*DailySchedule, len(residentIDs))
	for _, id := range residentIDs {
		sched, err := b.buildOne(id, weather, weekend)
		if err != nil {
			b.logger.Warn("schedule build failed, skipping resident",
				zap.String("resident", id),
				zap.Error(err))
			continue
		}
		schedules[id] = sched
		b.logger.Debug("built daily schedule",
			zap.String("resident", id),
			zap.Int("blocks", len(sched.Blocks)))
	}
	return schedules
}

func (b *Builder) buildOne(residentID string, weather WeatherCategory, weekend bool) (*DailySchedule, error) {
	layers := b.resolveLayers(residentID, weather, weekend)

	blocks := make([]TimeBlock, 0, len(b.templates))
	for i, tpl := range b.templates {
		start, err := ParseClock(tpl.Start)
		if err != nil {
			return nil, fmt.Errorf("template %d: %w", i, err)
		}
		action, err := b.selector.Pick(tpl.Actions, layers)
		if err != nil {
			return nil, fmt.Errorf("template %d: %w", i, err)
		}
		blocks = append(blocks, TimeBlock{
			StartMinute:     start,
			DurationMinutes: b.sampleDuration(tpl.DurationMin),
			Action:          action,
			Venue:           VenueFor(action),
		})
	}
	return &DailySchedule{ResidentID: residentID, Blocks: blocks}, nil
}

// resolveLayers assembles the bias layers that apply to this resident right
// now: matching trait layers, then the weather layer, then the weekend layer.
// A failed trait lookup degrades to no trait bias; it is never fatal.
func (b *Builder) resolveLayers(residentID string, weather WeatherCategory, weekend bool) []BiasLayer {
	var layers []BiasLayer

	traits, err := b.traits.Traits(residentID)
	if err != nil {
		b.logger.Debug("trait lookup unavailable, no trait bias",
			zap.String("resident", residentID),
			zap.Error(err))
	} else {
		sort.Strings(traits)
		for _, t := range traits {
			if deltas, ok := b.bias.Trait[t]; ok {
				layers = append(layers, BiasLayer{Name: "trait:" + t, Deltas: deltas})
			}
		}
	}

	if key := weatherBiasKey(weather); key != "" {
		if deltas, ok := b.bias.Weather[key]; ok {
			layers = append(layers, BiasLayer{Name: "weather:" + key, Deltas: deltas})
		}
	}

	if weekend && len(b.bias.Weekend) > 0 {
		layers = append(layers, BiasLayer{Name: "weekend", Deltas: b.bias.Weekend})
	}
	return layers
}

// weatherBiasKey maps a weather category to its bias table key. Only rain
// and snow carry bias; everything else leaves weights untouched.
func weatherBiasKey(w WeatherCategory) string {
	switch w {
	case WeatherRain:
		return "Rain"
	case WeatherSnow:
		return "Snow"
	default:
		return ""
	}
}

// sampleDuration draws uniformly from the inclusive [min,max] range.
func (b *Builder) sampleDuration(rng [2]int) int {
	lo, hi := rng[0], rng[1]
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return lo + b.rng.Intn(hi-lo+1)
}

// ParseClock converts "HH:MM" to a minute of day in [0,1440).
func ParseClock(hhmm string) (int, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q", hhmm)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", hhmm)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", hhmm)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clock %q out of range", hhmm)
	}
	return hh*60 + mm, nil
}
