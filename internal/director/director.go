// Package director owns the daily activity lifecycle: it builds schedules on
// activation, arms one-shot alarms for every block, and dispatches start/end
// events to the executor and news collaborators.
package director

import (
	"sync"
	"time"

	"github.com/nidhogg/neighborhood-life/internal/alarm"
	"github.com/nidhogg/neighborhood-life/internal/schedule"
	"go.uber.org/zap"
)

// State is the director lifecycle state.
type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
)

// Roster supplies participants and resolves live residents at fire time.
type Roster interface {
	SelectParticipants(count int) []string
	ResolveName(residentID string) (string, bool)
	SetActivity(residentID, activity string)
}

// Executor receives fire-and-forget action commands.
type Executor interface {
	Execute(residentID string, block schedule.TimeBlock)
	Cleanup(residentID string, block schedule.TimeBlock)
}

// Notifier publishes start/end notifications.
type Notifier interface {
	PostStart(residentID, residentName string, block schedule.TimeBlock, worldTime time.Time)
	PostEnd(residentID, residentName string, block schedule.TimeBlock, worldTime time.Time)
}

// Environment exposes the simulated clock signals the director needs.
type Environment interface {
	MinuteOfDay() int
	WorldTime() time.Time
}

// Director coordinates schedule building and alarm-driven execution for one
// neighborhood. Hold exactly one instance; Activate replaces any previous
// activation rather than stacking.
type Director struct {
	participantCount int
	builder          *schedule.Builder
	alarms           alarm.Clock
	env              Environment
	roster           Roster
	executor         Executor
	news             Notifier

	mu         sync.Mutex
	state      State
	generation uint64
	schedules  map[string]*schedule.DailySchedule
	handles    []alarm.Handle

	logger *zap.Logger
}

// New creates an inactive director.
func New(participantCount int, builder *schedule.Builder, alarms alarm.Clock, env Environment, roster Roster, executor Executor, news Notifier, logger *zap.Logger) *Director {
	return &Director{
		participantCount: participantCount,
		builder:          builder,
		alarms:           alarms,
		env:              env,
		roster:           roster,
		executor:         executor,
		news:             news,
		state:            StateInactive,
		schedules:        make(map[string]*schedule.DailySchedule),
		logger:           logger,
	}
}

// Activate selects today's participants, builds their schedules, and arms a
// start and an end alarm for every block. An already-active director is
// deactivated first so no alarms from the previous activation survive.
func (d *Director) Activate() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateActive {
		d.logger.Info("activate while active, replacing previous activation")
		d.deactivateLocked()
	}

	participants := d.roster.SelectParticipants(d.participantCount)
	d.schedules = d.builder.BuildAll(participants)

	d.generation++
	gen := d.generation
	nowMin := d.env.MinuteOfDay()

	blocks := 0
	for _, ds := range d.schedules {
		residentID := ds.ResidentID
		for _, block := range ds.Blocks {
			startDelay := block.StartMinute - nowMin
			if startDelay < 0 {
				startDelay = 0
			}
			endDelay := startDelay + block.DurationMinutes

			b := block
			d.handles = append(d.handles,
				d.alarms.Set(startDelay, func() { d.onBlockStart(gen, residentID, b) }),
				d.alarms.Set(endDelay, func() { d.onBlockEnd(gen, residentID, b) }),
			)
			blocks++
			d.logger.Debug("alarms armed for block",
				zap.String("resident", residentID),
				zap.String("action", string(block.Action)),
				zap.Int("start_delay_min", startDelay),
				zap.Int("duration_min", block.DurationMinutes))
		}
	}

	d.state = StateActive
	d.logger.Info("director activated",
		zap.Int("participants", len(d.schedules)),
		zap.Int("blocks", blocks),
		zap.Int("alarms", len(d.handles)))
}

// Deactivate cancels every outstanding alarm and discards all schedules.
// Idempotent: deactivating an inactive director is a no-op.
func (d *Director) Deactivate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateInactive {
		return
	}
	d.deactivateLocked()
	d.logger.Info("director deactivated")
}

func (d *Director) deactivateLocked() {
	for _, h := range d.handles {
		d.alarms.Cancel(h)
	}
	d.handles = nil
	d.schedules = make(map[string]*schedule.DailySchedule)
	d.state = StateInactive
}

// onBlockStart fires when a block's start alarm goes off. A resident that is
// not instanced right now is skipped silently; that is expected, not an
// error. Notification is dispatched before execution begins.
func (d *Director) onBlockStart(gen uint64, residentID string, block schedule.TimeBlock) {
	if d.stale(gen) {
		return
	}
	name, ok := d.roster.ResolveName(residentID)
	if !ok {
		d.logger.Debug("resident not instanced at block start, skipping",
			zap.String("resident", residentID),
			zap.String("action", string(block.Action)))
		return
	}
	d.news.PostStart(residentID, name, block, d.env.WorldTime())
	d.executor.Execute(residentID, block)
	d.roster.SetActivity(residentID, block.Action.Title())
}

// onBlockEnd mirrors onBlockStart for the block's end alarm.
func (d *Director) onBlockEnd(gen uint64, residentID string, block schedule.TimeBlock) {
	if d.stale(gen) {
		return
	}
	name, ok := d.roster.ResolveName(residentID)
	if !ok {
		d.logger.Debug("resident not instanced at block end, skipping",
			zap.String("resident", residentID),
			zap.String("action", string(block.Action)))
		return
	}
	d.news.PostEnd(residentID, name, block, d.env.WorldTime())
	d.executor.Cleanup(residentID, block)
	d.roster.SetActivity(residentID, "")
}

// stale rejects callbacks from alarms armed by a previous activation. The
// alarm facility guarantees cancelled handles never fire; this is a second
// line of defense.
func (d *Director) stale(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state != StateActive || gen != d.generation
}

// State returns the current lifecycle state.
func (d *Director) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Schedules returns a snapshot of the current daily schedules.
func (d *Director) Schedules() map[string]*schedule.DailySchedule {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]*schedule.DailySchedule, len(d.schedules))
	for id, ds := range d.schedules {
		out[id] = ds
	}
	return out
}

// Schedule returns the daily schedule for one resident, if any.
func (d *Director) Schedule(residentID string) (*schedule.DailySchedule, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ds, ok := d.schedules[residentID]
	return ds, ok
}

// ArmedAlarms returns how many alarm handles this activation registered.
func (d *Director) ArmedAlarms() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handles)
}
