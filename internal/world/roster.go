package world

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/nidhogg/neighborhood-life/internal/schedule"
	"go.uber.org/zap"
)

// Resident is one townsperson eligible for scheduling. Name, Traits and Home
// are fixed at Add time; only Present and Activity change afterward, always
// under the roster lock.
type Resident struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Traits   []string `json:"traits,omitempty"`
	Home     Position `json:"home"`
	Player   bool     `json:"player,omitempty"`  // player households are never scheduled
	Present  bool     `json:"present"`           // instanced in the world right now
	Activity string   `json:"activity,omitempty"`
}

// Roster holds every resident and answers participant discovery, live
// resident resolution, and trait lookups.
type Roster struct {
	residents map[string]*Resident
	rng       *rand.Rand
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRoster creates an empty roster.
func NewRoster(seed int64, logger *zap.Logger) *Roster {
	return &Roster{
		residents: make(map[string]*Resident),
		rng:       rand.New(rand.NewSource(seed)),
		logger:    logger,
	}
}

// Add registers a resident, assigning an ID when absent, and returns the ID.
func (r *Roster) Add(res *Resident) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	r.residents[res.ID] = res
	return res.ID
}

// All returns a snapshot of every resident sorted by name. Entries are value
// copies; later presence or activity writes never show through.
func (r *Roster) All() []Resident {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Resident, 0, len(r.residents))
	for _, res := range r.residents {
		out = append(out, *res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SelectParticipants picks up to count non-player residents at random,
// always at least one when any candidate exists.
func (r *Roster) SelectParticipants(count int) []string {
	r.mu.RLock()
	candidates := make([]string, 0, len(r.residents))
	for id, res := range r.residents {
		if !res.Player {
			candidates = append(candidates, id)
		}
	}
	r.mu.RUnlock()

	sort.Strings(candidates)
	r.mu.Lock()
	r.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	r.mu.Unlock()

	if count < 1 {
		count = 1
	}
	if count > len(candidates) {
		count = len(candidates)
	}
	picked := candidates[:count]
	r.logger.Debug("picked participants",
		zap.Int("picked", len(picked)),
		zap.Int("candidates", len(candidates)))
	return picked
}

// Resolve returns a snapshot of the live resident, or false when the
// resident is unknown or not currently instanced in the world.
func (r *Roster) Resolve(id string) (Resident, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.residents[id]
	if !ok || !res.Present {
		return Resident{}, false
	}
	return *res, true
}

// ResolveName resolves a live resident to its display name; false when the
// resident is unknown or not instanced.
func (r *Roster) ResolveName(id string) (string, bool) {
	res, ok := r.Resolve(id)
	if !ok {
		return "", false
	}
	return res.Name, true
}

// Traits implements schedule.TraitResolver.
func (r *Roster) Traits(id string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.residents[id]
	if !ok {
		return nil, fmt.Errorf("unknown resident %s", id)
	}
	traits := make([]string, len(res.Traits))
	copy(traits, res.Traits)
	return traits, nil
}

// SetPresent marks a resident as instanced or not.
func (r *Roster) SetPresent(id string, present bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.residents[id]; ok {
		res.Present = present
	}
}

// SetActivity records what a resident is currently doing, for display.
func (r *Roster) SetActivity(id string, activity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.residents[id]; ok {
		res.Activity = activity
	}
}

// Neighbors returns home positions of every present resident other than id,
// used by the visit action.
func (r *Roster) Neighbors(id string) []Position {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var homes []Position
	ids := make([]string, 0, len(r.residents))
	for rid := range r.residents {
		ids = append(ids, rid)
	}
	sort.Strings(ids)
	for _, rid := range ids {
		res := r.residents[rid]
		if rid != id && res.Present {
			homes = append(homes, res.Home)
		}
	}
	return homes
}

var _ schedule.TraitResolver = (*Roster)(nil)
