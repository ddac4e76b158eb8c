package schedule

// Action identifies what a resident does during a time block.
type Action string

const (
	ActionWalk          Action = "WALK"
	ActionJog           Action = "JOG"
	ActionParkWalk      Action = "PARK_WALK"
	ActionCafeIdle      Action = "CAFE_IDLE"
	ActionLibraryIdle   Action = "LIB_IDLE"
	ActionGymIdle       Action = "GYM_IDLE"
	ActionDiningIdle    Action = "DINING_IDLE"
	ActionHomeIdle      Action = "HOME_IDLE"
	ActionNeighborVisit Action = "NEIGHBOR_VISIT"
)

// VenueTag is a coarse location category derived from an action.
type VenueTag string

const (
	VenueCafe        VenueTag = "cafe"
	VenueLibrary     VenueTag = "library"
	VenueGym         VenueTag = "gym"
	VenueDining      VenueTag = "dining"
	VenuePark        VenueTag = "park"
	VenueResidential VenueTag = "residential"
	VenueNone        VenueTag = ""
)

// actionVenues maps each action to its venue. Plain locomotion actions
// carry no venue.
var actionVenues = map[Action]VenueTag{
	ActionCafeIdle:      VenueCafe,
	ActionLibraryIdle:   VenueLibrary,
	ActionGymIdle:       VenueGym,
	ActionDiningIdle:    VenueDining,
	ActionParkWalk:      VenuePark,
	ActionNeighborVisit: VenueResidential,
	ActionHomeIdle:      VenueResidential,
	ActionWalk:          VenueNone,
	ActionJog:           VenueNone,
}

// VenueFor returns the venue tag for an action, VenueNone if it has none.
func VenueFor(a Action) VenueTag {
	return actionVenues[a]
}

// KnownAction reports whether a belongs to the fixed action set.
func KnownAction(a Action) bool {
	_, ok := actionVenues[a]
	return ok
}

// Title renders an action as a human-readable activity name,
// e.g. NEIGHBOR_VISIT -> "Neighbor Visit".
func (a Action) Title() string {
	out := make([]byte, 0, len(a))
	startOfWord := true
	for i := 0; i < len(a); i++ {
		c := a[i]
		switch {
		case c == '_':
			out = append(out, ' ')
			startOfWord = true
		case startOfWord:
			out = append(out, c)
			startOfWord = false
		case c >= 'A' && c <= 'Z':
			out = append(out, c+'a'-'A')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

// TimeBlock is a contiguous scheduled interval with one chosen action.
// Immutable once built.
type TimeBlock struct {
	StartMinute     int      `json:"start_minute"` // minute of day, 0-1439
	DurationMinutes int      `json:"duration_minutes"`
	Action          Action   `json:"action"`
	Venue           VenueTag `json:"venue,omitempty"`
}

// DailySchedule is the ordered block list for one resident, one per day.
// Rebuilt wholesale on every activation, never mutated.
type DailySchedule struct {
	ResidentID string      `json:"resident_id"`
	Blocks     []TimeBlock `json:"blocks"`
}

// BlockTemplate is one configured schedule slot. Each daily schedule gets
// exactly one block per template, in template order.
type BlockTemplate struct {
	Start       string             `json:"start"` // "HH:MM"
	DurationMin [2]int             `json:"duration_min"`
	Actions     map[Action]float64 `json:"actions"`
}

// BiasLayer is a named additive adjustment to action weights.
type BiasLayer struct {
	Name   string
	Deltas map[Action]float64
}

// WeatherCategory buckets the current weather for bias purposes.
type WeatherCategory string

const (
	WeatherClear  WeatherCategory = "Clear"
	WeatherCloudy WeatherCategory = "Cloudy"
	WeatherRain   WeatherCategory = "Rain"
	WeatherSnow   WeatherCategory = "Snow"
	WeatherNone   WeatherCategory = ""
)
