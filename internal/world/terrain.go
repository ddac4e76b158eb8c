package world

import (
	"sync"

	"github.com/nidhogg/neighborhood-life/internal/schedule"
	"go.uber.org/zap"
)

// Position is a point in the neighborhood.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Terrain is the walkable surface of the neighborhood: a rectangular lot
// with fixed venue locations and per-resident positions.
type Terrain struct {
	minX, maxX float64
	minZ, maxZ float64
	venues     map[schedule.VenueTag]Position
	positions  map[string]Position
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewTerrain creates a terrain with the given walkable bounds and venues
// spread across it.
func NewTerrain(width, depth float64, logger *zap.Logger) *Terrain {
	t := &Terrain{
		minX: 0, maxX: width,
		minZ: 0, maxZ: depth,
		positions: make(map[string]Position),
		logger:    logger,
	}
	t.venues = map[schedule.VenueTag]Position{
		schedule.VenueCafe:        {X: width * 0.2, Z: depth * 0.2},
		schedule.VenueLibrary:     {X: width * 0.8, Z: depth * 0.2},
		schedule.VenueGym:         {X: width * 0.2, Z: depth * 0.8},
		schedule.VenueDining:      {X: width * 0.8, Z: depth * 0.8},
		schedule.VenuePark:        {X: width * 0.5, Z: depth * 0.5},
		schedule.VenueResidential: {X: width * 0.5, Z: depth * 0.1},
	}
	return t
}

// IsWalkable reports whether a position lies on the lot.
func (t *Terrain) IsWalkable(p Position) bool {
	return p.X >= t.minX && p.X <= t.maxX && p.Z >= t.minZ && p.Z <= t.maxZ
}

// VenuePosition returns the location of a venue.
func (t *Terrain) VenuePosition(tag schedule.VenueTag) (Position, bool) {
	p, ok := t.venues[tag]
	return p, ok
}

// PositionOf returns a resident's current position, defaulting to the lot
// center for residents that never moved.
func (t *Terrain) PositionOf(residentID string) Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p, ok := t.positions[residentID]; ok {
		return p
	}
	return Position{X: (t.minX + t.maxX) / 2, Z: (t.minZ + t.maxZ) / 2}
}

// RouteTo moves a resident toward a target position. Movement is immediate;
// pathing fidelity is out of scope.
func (t *Terrain) RouteTo(residentID string, p Position) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.positions[residentID] = p
}
