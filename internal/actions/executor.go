// Package actions turns chosen schedule actions into movement commands.
package actions

import (
	"math/rand"
	"sync"

	"github.com/nidhogg/neighborhood-life/internal/schedule"
	"github.com/nidhogg/neighborhood-life/internal/world"
	"go.uber.org/zap"
)

// Mover is the movement surface residents walk on.
type Mover interface {
	PositionOf(residentID string) world.Position
	RouteTo(residentID string, p world.Position)
	IsWalkable(p world.Position) bool
	VenuePosition(tag schedule.VenueTag) (world.Position, bool)
}

// NeighborFinder locates homes a resident could visit.
type NeighborFinder interface {
	Neighbors(residentID string) []world.Position
}

// Executor issues movement commands for block start and end. Commands are
// fire-and-forget; the executor never reports failure upward.
type Executor struct {
	mover     Mover
	neighbors NeighborFinder
	rng       *rand.Rand
	mu        sync.Mutex
	logger    *zap.Logger
}

// NewExecutor creates an action executor.
func NewExecutor(mover Mover, neighbors NeighborFinder, seed int64, logger *zap.Logger) *Executor {
	return &Executor{
		mover:     mover,
		neighbors: neighbors,
		rng:       rand.New(rand.NewSource(seed)),
		logger:    logger,
	}
}

// Execute starts the block's action for a resident.
func (e *Executor) Execute(residentID string, block schedule.TimeBlock) {
	switch block.Action {
	case schedule.ActionWalk, schedule.ActionParkWalk:
		e.walkOrJog(residentID, block, false)
	case schedule.ActionJog:
		e.walkOrJog(residentID, block, true)
	case schedule.ActionCafeIdle, schedule.ActionLibraryIdle, schedule.ActionGymIdle,
		schedule.ActionDiningIdle, schedule.ActionHomeIdle:
		e.idleAt(residentID, block)
	case schedule.ActionNeighborVisit:
		e.visitNeighbor(residentID, block)
	default:
		// Unreachable under a valid config; log and skip.
		e.logger.Warn("unknown action, skipping",
			zap.String("resident", residentID),
			zap.String("action", string(block.Action)))
	}
}

// Cleanup ends the block: the resident heads back toward the residential
// area.
func (e *Executor) Cleanup(residentID string, block schedule.TimeBlock) {
	home, ok := e.mover.VenuePosition(schedule.VenueResidential)
	if !ok {
		return
	}
	e.mover.RouteTo(residentID, home)
	e.logger.Debug("block cleanup, routed home",
		zap.String("resident", residentID),
		zap.String("action", string(block.Action)))
}

// walkOrJog routes to a random walkable point nearby. Jogging chains two
// extra legs to cover more ground.
func (e *Executor) walkOrJog(residentID string, block schedule.TimeBlock, jog bool) {
	start := e.startPosition(residentID, block)
	target, ok := e.randomPointNearby(start, 12.0, 6)
	if !ok {
		e.logger.Debug("no walkable target, skipping",
			zap.String("resident", residentID),
			zap.String("action", string(block.Action)))
		return
	}
	e.mover.RouteTo(residentID, target)
	if jog {
		for i := 0; i < 2; i++ {
			next, ok := e.randomPointNearby(target, 10.0, 4)
			if !ok {
				break
			}
			e.mover.RouteTo(residentID, next)
			target = next
		}
	}
}

// idleAt repositions slightly around the block's venue.
func (e *Executor) idleAt(residentID string, block schedule.TimeBlock) {
	anchor := e.startPosition(residentID, block)
	target, ok := e.randomPointNearby(anchor, 8.0, 6)
	if !ok {
		return
	}
	e.mover.RouteTo(residentID, target)
}

// visitNeighbor heads to a random present neighbor's home, idling in place
// when nobody is around.
func (e *Executor) visitNeighbor(residentID string, block schedule.TimeBlock) {
	homes := e.neighbors.Neighbors(residentID)
	if len(homes) == 0 {
		e.idleAt(residentID, block)
		return
	}
	e.mu.Lock()
	home := homes[e.rng.Intn(len(homes))]
	e.mu.Unlock()
	e.mover.RouteTo(residentID, home)
}

// startPosition anchors the action at its venue when it has one, otherwise
// at the resident's current position.
func (e *Executor) startPosition(residentID string, block schedule.TimeBlock) world.Position {
	if block.Venue != schedule.VenueNone {
		if p, ok := e.mover.VenuePosition(block.Venue); ok {
			return p
		}
	}
	return e.mover.PositionOf(residentID)
}

func (e *Executor) randomPointNearby(p world.Position, radius float64, tries int) (world.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := 0; i < tries; i++ {
		candidate := world.Position{
			X: p.X + (e.rng.Float64()*2-1)*radius,
			Y: p.Y,
			Z: p.Z + (e.rng.Float64()*2-1)*radius,
		}
		if e.mover.IsWalkable(candidate) {
			return candidate, true
		}
	}
	return world.Position{}, false
}
