// Package news fans out block start/end notifications to configured sinks.
package news

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/neighborhood-life/internal/schedule"
	"go.uber.org/zap"
)

// Phase marks whether an event is a block start or end.
type Phase string

const (
	PhaseStart Phase = "start"
	PhaseEnd   Phase = "end"
)

// Event is one neighborhood news item.
type Event struct {
	ID           string            `json:"id"`
	ResidentID   string            `json:"resident_id"`
	ResidentName string            `json:"resident_name"`
	Action       schedule.Action   `json:"action"`
	Venue        schedule.VenueTag `json:"venue,omitempty"`
	Phase        Phase             `json:"phase"`
	Message      string            `json:"message"`
	WorldTime    time.Time         `json:"world_time"`
}

// Sink receives news events. Sink failures are logged and absorbed; they
// never reach the director.
type Sink interface {
	Name() string
	Post(ctx context.Context, ev *Event) error
	Close() error
}

// Center formats and publishes start/end notifications. Sink delivery runs
// on a single background goroutine in publish order, so a slow remote sink
// never stalls the clock tick that fired the event.
type Center struct {
	enabled bool
	sinks   []Sink
	recent  []*Event
	queue   chan *Event
	done    chan struct{}
	closed  bool
	mu      sync.Mutex
	logger  *zap.Logger
}

// keep a bounded tail of events for the API.
const recentLimit = 100

// queueDepth bounds undelivered events; overflow drops with a warning.
const queueDepth = 256

// NewCenter creates a news center. When disabled it drops everything.
func NewCenter(enabled bool, logger *zap.Logger) *Center {
	c := &Center{
		enabled: enabled,
		queue:   make(chan *Event, queueDepth),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go c.run()
	return c
}

func (c *Center) run() {
	for ev := range c.queue {
		c.deliver(ev)
	}
	close(c.done)
}

func (c *Center) deliver(ev *Event) {
	c.mu.Lock()
	sinks := make([]Sink, len(c.sinks))
	copy(sinks, c.sinks)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, s := range sinks {
		if err := s.Post(ctx, ev); err != nil {
			c.logger.Warn("news sink failed",
				zap.String("sink", s.Name()),
				zap.Error(err))
		}
	}
}

// AddSink registers a delivery sink.
func (c *Center) AddSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, s)
	c.logger.Info("registered news sink", zap.String("sink", s.Name()))
}

// PostStart publishes a block start notification.
func (c *Center) PostStart(residentID, residentName string, block schedule.TimeBlock, worldTime time.Time) {
	c.post(residentID, residentName, block, PhaseStart, worldTime)
}

// PostEnd publishes a block end notification.
func (c *Center) PostEnd(residentID, residentName string, block schedule.TimeBlock, worldTime time.Time) {
	c.post(residentID, residentName, block, PhaseEnd, worldTime)
}

func (c *Center) post(residentID, residentName string, block schedule.TimeBlock, phase Phase, worldTime time.Time) {
	if !c.enabled {
		return
	}
	verb := "started"
	if phase == PhaseEnd {
		verb = "finished"
	}
	ev := &Event{
		ID:           uuid.New().String(),
		ResidentID:   residentID,
		ResidentName: residentName,
		Action:       block.Action,
		Venue:        block.Venue,
		Phase:        phase,
		Message:      fmt.Sprintf("%s %s: %s", residentName, verb, block.Action.Title()),
		WorldTime:    worldTime,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.recent = append(c.recent, ev)
	if len(c.recent) > recentLimit {
		c.recent = c.recent[len(c.recent)-recentLimit:]
	}
	select {
	case c.queue <- ev:
	default:
		c.logger.Warn("news queue full, dropping event",
			zap.String("message", ev.Message))
	}
}

// Recent returns up to n most recent events, newest last.
func (c *Center) Recent(n int) []*Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || n > len(c.recent) {
		n = len(c.recent)
	}
	out := make([]*Event, n)
	copy(out, c.recent[len(c.recent)-n:])
	return out
}

// Close drains the delivery queue, then shuts every sink down. Events
// published after Close are dropped.
func (c *Center) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()
	<-c.done

	c.mu.Lock()
	sinks := c.sinks
	c.sinks = nil
	c.mu.Unlock()
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			c.logger.Warn("news sink close failed",
				zap.String("sink", s.Name()),
				zap.Error(err))
		}
	}
}

// LogSink writes events to the process log. Always registered.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Post(_ context.Context, ev *Event) error {
	s.logger.Info("neighborhood news",
		zap.String("resident", ev.ResidentName),
		zap.String("phase", string(ev.Phase)),
		zap.String("message", ev.Message))
	return nil
}

func (s *LogSink) Close() error { return nil }
