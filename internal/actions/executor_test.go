package actions

import (
	"testing"

	"github.com/nidhogg/neighborhood-life/internal/schedule"
	"github.com/nidhogg/neighborhood-life/internal/world"
	"go.uber.org/zap"
)

// fakeMover records routing commands on a fully walkable 100x100 lot.
type fakeMover struct {
	routes    map[string][]world.Position
	positions map[string]world.Position
}

func newFakeMover() *fakeMover {
	return &fakeMover{
		routes:    make(map[string][]world.Position),
		positions: make(map[string]world.Position),
	}
}

func (m *fakeMover) PositionOf(id string) world.Position { return m.positions[id] }

func (m *fakeMover) RouteTo(id string, p world.Position) {
	m.routes[id] = append(m.routes[id], p)
	m.positions[id] = p
}

func (m *fakeMover) IsWalkable(p world.Position) bool {
	return p.X >= 0 && p.X <= 100 && p.Z >= 0 && p.Z <= 100
}

func (m *fakeMover) VenuePosition(tag schedule.VenueTag) (world.Position, bool) {
	switch tag {
	case schedule.VenueCafe:
		return world.Position{X: 20, Z: 20}, true
	case schedule.VenueResidential:
		return world.Position{X: 50, Z: 10}, true
	case schedule.VenuePark:
		return world.Position{X: 50, Z: 50}, true
	}
	return world.Position{}, false
}

type fakeNeighbors struct {
	homes []world.Position
}

func (f *fakeNeighbors) Neighbors(string) []world.Position { return f.homes }

func block(a schedule.Action) schedule.TimeBlock {
	return schedule.TimeBlock{StartMinute: 480, DurationMinutes: 30, Action: a, Venue: schedule.VenueFor(a)}
}

func TestWalkRoutesSomewhereWalkable(t *testing.T) {
	m := newFakeMover()
	e := NewExecutor(m, &fakeNeighbors{}, 1, zap.NewNop())
	m.positions["r1"] = world.Position{X: 50, Z: 50}

	e.Execute("r1", block(schedule.ActionWalk))

	if len(m.routes["r1"]) != 1 {
		t.Fatalf("expected 1 route, got %d", len(m.routes["r1"]))
	}
	if !m.IsWalkable(m.routes["r1"][0]) {
		t.Errorf("routed to unwalkable %+v", m.routes["r1"][0])
	}
}

func TestJogChainsExtraLegs(t *testing.T) {
	m := newFakeMover()
	e := NewExecutor(m, &fakeNeighbors{}, 1, zap.NewNop())
	m.positions["r1"] = world.Position{X: 50, Z: 50}

	e.Execute("r1", block(schedule.ActionJog))

	if got := len(m.routes["r1"]); got < 2 {
		t.Errorf("jog issued %d legs, want at least 2", got)
	}
}

func TestIdleAnchorsAtVenue(t *testing.T) {
	m := newFakeMover()
	e := NewExecutor(m, &fakeNeighbors{}, 1, zap.NewNop())
	m.positions["r1"] = world.Position{X: 90, Z: 90}

	e.Execute("r1", block(schedule.ActionCafeIdle))

	routes := m.routes["r1"]
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	// Within idle radius of the cafe at (20,20).
	dx := routes[0].X - 20
	dz := routes[0].Z - 20
	if dx < -8 || dx > 8 || dz < -8 || dz > 8 {
		t.Errorf("idle routed far from venue: %+v", routes[0])
	}
}

func TestNeighborVisitUsesNeighborHome(t *testing.T) {
	m := newFakeMover()
	home := world.Position{X: 77, Z: 11}
	e := NewExecutor(m, &fakeNeighbors{homes: []world.Position{home}}, 1, zap.NewNop())

	e.Execute("r1", block(schedule.ActionNeighborVisit))

	routes := m.routes["r1"]
	if len(routes) != 1 || routes[0] != home {
		t.Errorf("visit routed to %v, want %+v", routes, home)
	}
}

func TestNeighborVisitWithNobodyAroundIdles(t *testing.T) {
	m := newFakeMover()
	e := NewExecutor(m, &fakeNeighbors{}, 1, zap.NewNop())

	e.Execute("r1", block(schedule.ActionNeighborVisit))

	if len(m.routes["r1"]) != 1 {
		t.Errorf("expected idle fallback route, got %d", len(m.routes["r1"]))
	}
}

func TestUnknownActionSkipped(t *testing.T) {
	m := newFakeMover()
	e := NewExecutor(m, &fakeNeighbors{}, 1, zap.NewNop())

	e.Execute("r1", schedule.TimeBlock{Action: schedule.Action("TELEPORT")})

	if len(m.routes["r1"]) != 0 {
		t.Errorf("unknown action issued routes: %v", m.routes["r1"])
	}
}

func TestCleanupRoutesHome(t *testing.T) {
	m := newFakeMover()
	e := NewExecutor(m, &fakeNeighbors{}, 1, zap.NewNop())

	e.Cleanup("r1", block(schedule.ActionGymIdle))

	routes := m.routes["r1"]
	want := world.Position{X: 50, Z: 10}
	if len(routes) != 1 || routes[0] != want {
		t.Errorf("cleanup routed to %v, want %+v", routes, want)
	}
}
