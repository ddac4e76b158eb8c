package director

import (
	"testing"
	"time"

	"github.com/nidhogg/neighborhood-life/internal/alarm"
	"github.com/nidhogg/neighborhood-life/internal/schedule"
	"go.uber.org/zap"
)

// fakeClock records every Set and Cancel so tests can fire alarms by hand
// and count cancellations.
type fakeAlarmEntry struct {
	handle    alarm.Handle
	delay     int
	fn        func()
	cancelled bool
	fired     bool
}

type fakeClock struct {
	next    alarm.Handle
	entries []*fakeAlarmEntry
	cancels int
}

func (f *fakeClock) Set(delayMinutes int, fn func()) alarm.Handle {
	f.next++
	f.entries = append(f.entries, &fakeAlarmEntry{handle: f.next, delay: delayMinutes, fn: fn})
	return f.next
}

func (f *fakeClock) Cancel(h alarm.Handle) bool {
	for _, e := range f.entries {
		if e.handle == h && !e.cancelled && !e.fired {
			e.cancelled = true
			f.cancels++
			return true
		}
	}
	return false
}

func (f *fakeClock) fire(e *fakeAlarmEntry) {
	if e.cancelled || e.fired {
		return
	}
	e.fired = true
	e.fn()
}

func (f *fakeClock) live() []*fakeAlarmEntry {
	var out []*fakeAlarmEntry
	for _, e := range f.entries {
		if !e.cancelled && !e.fired {
			out = append(out, e)
		}
	}
	return out
}

// fakeEnv satisfies both the builder's and the director's environment needs.
type fakeEnv struct {
	minute  int
	weekend bool
}

func (f *fakeEnv) CurrentWeather() schedule.WeatherCategory { return schedule.WeatherClear }
func (f *fakeEnv) IsWeekend() bool                          { return f.weekend }
func (f *fakeEnv) MinuteOfDay() int                         { return f.minute }
func (f *fakeEnv) WorldTime() time.Time {
	return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.minute) * time.Minute)
}

type fakeRoster struct {
	ids        []string
	absent     map[string]bool
	activities map[string]string
}

func (f *fakeRoster) SelectParticipants(count int) []string {
	if count > len(f.ids) {
		count = len(f.ids)
	}
	return f.ids[:count]
}

func (f *fakeRoster) ResolveName(id string) (string, bool) {
	if f.absent[id] {
		return "", false
	}
	return "Resident " + id, true
}

func (f *fakeRoster) SetActivity(id, activity string) {
	if f.activities == nil {
		f.activities = make(map[string]string)
	}
	f.activities[id] = activity
}

func (f *fakeRoster) Traits(id string) ([]string, error) { return nil, nil }

// recorder captures the dispatch order across notifier and executor.
type recorder struct {
	events []string
}

func (r *recorder) PostStart(id, name string, b schedule.TimeBlock, _ time.Time) {
	r.events = append(r.events, "notify-start:"+id)
}

func (r *recorder) PostEnd(id, name string, b schedule.TimeBlock, _ time.Time) {
	r.events = append(r.events, "notify-end:"+id)
}

func (r *recorder) Execute(id string, b schedule.TimeBlock) {
	r.events = append(r.events, "execute:"+id)
}

func (r *recorder) Cleanup(id string, b schedule.TimeBlock) {
	r.events = append(r.events, "cleanup:"+id)
}

func newTestDirector(t *testing.T, env *fakeEnv, roster *fakeRoster, clock alarm.Clock) (*Director, *recorder) {
	t.Helper()
	templates := []schedule.BlockTemplate{
		{Start: "08:00", DurationMin: [2]int{30, 30}, Actions: map[schedule.Action]float64{
			schedule.ActionWalk: 1, schedule.ActionHomeIdle: 1,
		}},
	}
	builder := schedule.NewBuilder(templates, schedule.BiasTables{}, env, roster, schedule.NewSelector(1), 2, zap.NewNop())
	rec := &recorder{}
	d := New(len(roster.ids), builder, clock, env, roster, rec, rec, zap.NewNop())
	return d, rec
}

func TestActivateArmsStartAndEndAlarms(t *testing.T) {
	clock := &fakeClock{}
	env := &fakeEnv{minute: 420} // 07:00
	roster := &fakeRoster{ids: []string{"r1"}}
	d, _ := newTestDirector(t, env, roster, clock)

	d.Activate()

	if d.State() != StateActive {
		t.Fatalf("state %s, want active", d.State())
	}
	if len(clock.entries) != 2 {
		t.Fatalf("expected 2 alarms for 1 block, got %d", len(clock.entries))
	}
	// Block starts at 08:00, now is 07:00: start in 60, end in 90.
	if clock.entries[0].delay != 60 {
		t.Errorf("start delay %d, want 60", clock.entries[0].delay)
	}
	if clock.entries[1].delay != 90 {
		t.Errorf("end delay %d, want 90", clock.entries[1].delay)
	}
}

func TestActivatePastStartClampsToZero(t *testing.T) {
	clock := &fakeClock{}
	env := &fakeEnv{minute: 500} // 08:20, block start already passed
	roster := &fakeRoster{ids: []string{"r1"}}
	d, _ := newTestDirector(t, env, roster, clock)

	d.Activate()

	if clock.entries[0].delay != 0 {
		t.Errorf("start delay %d, want 0", clock.entries[0].delay)
	}
	if clock.entries[1].delay != 30 {
		t.Errorf("end delay %d, want 30", clock.entries[1].delay)
	}
}

func TestDeactivateCancelsEverything(t *testing.T) {
	clock := &fakeClock{}
	roster := &fakeRoster{ids: []string{"r1", "r2"}}
	d, _ := newTestDirector(t, &fakeEnv{minute: 0}, roster, clock)

	d.Activate()
	armed := d.ArmedAlarms()
	if armed != 4 {
		t.Fatalf("expected 4 armed alarms, got %d", armed)
	}

	d.Deactivate()
	if clock.cancels != armed {
		t.Errorf("cancelled %d, want %d", clock.cancels, armed)
	}
	if d.State() != StateInactive {
		t.Errorf("state %s, want inactive", d.State())
	}
	if len(d.Schedules()) != 0 {
		t.Errorf("schedules not discarded")
	}

	// Idempotent: no further cancels.
	d.Deactivate()
	if clock.cancels != armed {
		t.Errorf("second deactivate cancelled more: %d", clock.cancels)
	}
}

func TestReactivationLeavesNoOldAlarms(t *testing.T) {
	clock := &fakeClock{}
	roster := &fakeRoster{ids: []string{"r1"}}
	d, _ := newTestDirector(t, &fakeEnv{minute: 0}, roster, clock)

	d.Activate()
	first := d.ArmedAlarms()

	d.Deactivate()
	d.Activate()

	if clock.cancels != first {
		t.Errorf("cancels %d, want %d before second activation completes", clock.cancels, first)
	}
	if got := len(clock.live()); got != first {
		t.Errorf("live alarms %d, want %d fresh ones", got, first)
	}
}

func TestActivateWhileActiveReplaces(t *testing.T) {
	clock := &fakeClock{}
	roster := &fakeRoster{ids: []string{"r1"}}
	d, rec := newTestDirector(t, &fakeEnv{minute: 0}, roster, clock)

	d.Activate()
	stale := clock.entries[0]

	d.Activate() // no Deactivate in between

	if d.State() != StateActive {
		t.Fatalf("state %s, want active", d.State())
	}
	if clock.cancels != 2 {
		t.Errorf("expected previous activation's 2 alarms cancelled, got %d", clock.cancels)
	}

	// A late fire from the first activation must be ignored even if the
	// host facility leaked it past cancellation.
	stale.cancelled = false
	clock.fire(stale)
	if len(rec.events) != 0 {
		t.Errorf("stale alarm dispatched: %v", rec.events)
	}
}

func TestStartAlarmNotifiesThenExecutes(t *testing.T) {
	clock := &fakeClock{}
	roster := &fakeRoster{ids: []string{"r1"}}
	d, rec := newTestDirector(t, &fakeEnv{minute: 0}, roster, clock)

	d.Activate()
	clock.fire(clock.entries[0])

	if len(rec.events) != 2 {
		t.Fatalf("expected 2 events, got %v", rec.events)
	}
	if rec.events[0] != "notify-start:r1" || rec.events[1] != "execute:r1" {
		t.Errorf("wrong dispatch order: %v", rec.events)
	}
	if roster.activities["r1"] == "" {
		t.Error("resident activity not set on start")
	}
}

func TestEndAlarmNotifiesThenCleansUp(t *testing.T) {
	clock := &fakeClock{}
	roster := &fakeRoster{ids: []string{"r1"}}
	d, rec := newTestDirector(t, &fakeEnv{minute: 0}, roster, clock)

	d.Activate()
	clock.fire(clock.entries[1])

	if len(rec.events) != 2 {
		t.Fatalf("expected 2 events, got %v", rec.events)
	}
	if rec.events[0] != "notify-end:r1" || rec.events[1] != "cleanup:r1" {
		t.Errorf("wrong dispatch order: %v", rec.events)
	}
	if roster.activities["r1"] != "" {
		t.Error("resident activity not cleared on end")
	}
}

func TestAbsentResidentSkippedSilently(t *testing.T) {
	clock := &fakeClock{}
	roster := &fakeRoster{ids: []string{"r1"}, absent: map[string]bool{"r1": true}}
	d, rec := newTestDirector(t, &fakeEnv{minute: 0}, roster, clock)

	d.Activate()
	clock.fire(clock.entries[0])
	clock.fire(clock.entries[1])

	if len(rec.events) != 0 {
		t.Errorf("absent resident dispatched events: %v", rec.events)
	}
}

func TestDeactivatedAlarmNeverDispatches(t *testing.T) {
	clock := &fakeClock{}
	roster := &fakeRoster{ids: []string{"r1"}}
	d, rec := newTestDirector(t, &fakeEnv{minute: 0}, roster, clock)

	d.Activate()
	stale := clock.entries[0]
	d.Deactivate()

	stale.cancelled = false // simulate a handle the host failed to cancel
	clock.fire(stale)
	if len(rec.events) != 0 {
		t.Errorf("alarm from deactivated session dispatched: %v", rec.events)
	}
}

// End-to-end over the real alarm facility: the worked example drives a
// start at +60 and an end at +90 world minutes.
func TestDirectorWithRealAlarms(t *testing.T) {
	alarms := alarm.New(zap.NewNop())
	alarms.Advance(0)

	env := &fakeEnv{minute: 420}
	roster := &fakeRoster{ids: []string{"r1"}}
	d, rec := newTestDirector(t, env, roster, alarms)

	d.Activate()
	if alarms.Pending() != 2 {
		t.Fatalf("pending %d, want 2", alarms.Pending())
	}

	alarms.Advance(59)
	if len(rec.events) != 0 {
		t.Fatalf("fired before start delay: %v", rec.events)
	}
	alarms.Advance(1)
	if len(rec.events) != 2 || rec.events[0] != "notify-start:r1" {
		t.Fatalf("after start: %v", rec.events)
	}
	alarms.Advance(30)
	if len(rec.events) != 4 || rec.events[2] != "notify-end:r1" {
		t.Fatalf("after end: %v", rec.events)
	}
	if alarms.Pending() != 0 {
		t.Errorf("pending %d after both fired, want 0", alarms.Pending())
	}
}
