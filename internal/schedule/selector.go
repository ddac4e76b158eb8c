package schedule

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
)

// ErrEmptyWeights is returned when a template reaches the selector with no
// actions at all. This is a config problem, not a runtime one.
var ErrEmptyWeights = errors.New("schedule: empty action weight table")

// Selector performs weighted random action selection with additive bias
// layers. Safe for concurrent use.
type Selector struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// NewSelector creates a selector seeded for reproducible draws.
func NewSelector(seed int64) *Selector {
	return &Selector{rng: rand.New(rand.NewSource(seed))}
}

// Pick chooses one action from base weights after applying every layer's
// deltas. Layers are purely additive, so their relative order cannot change
// the outcome; the caller decides which layers apply.
//
// Selection runs in two phases: weighted sampling over the strictly positive
// weights, and, when biasing drives everything non-positive, a uniform draw
// over all keys regardless of sign. The second branch is deliberate
// compatibility behavior, not an error path.
func (s *Selector) Pick(base map[Action]float64, layers []BiasLayer) (Action, error) {
	if len(base) == 0 {
		return "", ErrEmptyWeights
	}

	weights := make(map[Action]float64, len(base))
	for a, w := range base {
		weights[a] = w
	}
	for _, layer := range layers {
		for a, delta := range layer.Deltas {
			weights[a] += delta
		}
	}

	type entry struct {
		action Action
		weight float64
	}
	positive := make([]entry, 0, len(weights))
	total := 0.0
	for a, w := range weights {
		if w > 0 {
			positive = append(positive, entry{a, w})
			total += w
		}
	}

	if len(positive) == 0 {
		// All weights collapsed to non-positive: uniform over every key.
		all := make([]Action, 0, len(weights))
		for a := range weights {
			all = append(all, a)
		}
		sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
		s.mu.Lock()
		picked := all[s.rng.Intn(len(all))]
		s.mu.Unlock()
		return picked, nil
	}

	sort.Slice(positive, func(i, j int) bool { return positive[i].action < positive[j].action })

	s.mu.Lock()
	r := s.rng.Float64() * total
	s.mu.Unlock()

	upto := 0.0
	for _, e := range positive {
		if upto+e.weight >= r {
			return e.action, nil
		}
		upto += e.weight
	}
	// Float accumulation can exhaust the list without selecting; the last
	// positive entry wins rather than failing.
	return positive[len(positive)-1].action, nil
}
