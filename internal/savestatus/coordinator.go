// Package savestatus tracks the status of concurrently in-flight save
// operations under operation-scoped keys, so unrelated saves never
// clobber each other's user-visible state.
package savestatus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/course-studio/internal/platform/events"
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseInFlight Phase = "in-flight"
	PhaseSuccess  Phase = "success"
	PhaseError    Phase = "error"
)

// Status is the displayed state of one operation key.
type Status struct {
	Key     string    `json:"key"`
	Phase   Phase     `json:"phase"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// SavedFlagSink persists the durable per-(course, category) saved flag.
// Implemented by the gateway.
type SavedFlagSink interface {
	MarkSaved(ctx context.Context, courseID, category string) error
}

type Config struct {
	Logger *zap.Logger
	Events *events.Publisher // nil-safe
	Flags  SavedFlagSink     // nil disables durable flag writes

	// Terminal states linger for these durations before Status/Snapshot
	// report them as idle again. In-flight entries never expire.
	SuccessTTL time.Duration // default 3s
	ErrorTTL   time.Duration // default 5s
}

// Coordinator is safe for concurrent use by every store of a session.
type Coordinator struct {
	log        *zap.Logger
	events     *events.Publisher
	flags      SavedFlagSink
	successTTL time.Duration
	errorTTL   time.Duration

	mu       sync.Mutex
	statuses map[string]Status
	saved    map[string]bool // courseID + "/" + category

	now func() time.Time // overridable in tests
}

func New(cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.SuccessTTL <= 0 {
		cfg.SuccessTTL = 3 * time.Second
	}
	if cfg.ErrorTTL <= 0 {
		cfg.ErrorTTL = 5 * time.Second
	}
	return &Coordinator{
		log:        cfg.Logger,
		events:     cfg.Events,
		flags:      cfg.Flags,
		successTTL: cfg.SuccessTTL,
		errorTTL:   cfg.ErrorTTL,
		statuses:   make(map[string]Status),
		saved:      make(map[string]bool),
		now:        time.Now,
	}
}

// Begin marks key in-flight, clearing any previous terminal state for it.
func (c *Coordinator) Begin(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[key] = Status{Key: key, Phase: PhaseInFlight, At: c.now()}
}

// Complete records the terminal state for key. A nil err marks success
// and sets the saved flag for (courseID, category); setting an already
// set flag is a no-op. Errors retain their message until the next Begin
// on the same key or until the error TTL elapses.
func (c *Coordinator) Complete(ctx context.Context, key, courseID, category string, err error) {
	c.mu.Lock()
	st := Status{Key: key, Phase: PhaseSuccess, At: c.now()}
	if err != nil {
		st.Phase = PhaseError
		st.Message = err.Error()
	}
	c.statuses[key] = st

	markFlag := false
	if err == nil {
		flagKey := courseID + "/" + category
		if !c.saved[flagKey] {
			c.saved[flagKey] = true
			markFlag = true
		}
	}
	c.mu.Unlock()

	if markFlag && c.flags != nil {
		if ferr := c.flags.MarkSaved(ctx, courseID, category); ferr != nil {
			c.log.Warn("saved flag write failed",
				zap.String("course_id", courseID),
				zap.String("category", category),
				zap.Error(ferr))
		}
	}

	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.events.Publish(courseID, category, key, err == nil, msg)
}

// Status returns the current phase for key. Expired terminal states
// report idle.
func (c *Coordinator) Status(key string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.statuses[key]
	if !ok || c.expired(st) {
		return Status{Key: key, Phase: PhaseIdle}
	}
	return st
}

// Snapshot returns all live statuses and prunes expired terminal entries.
func (c *Coordinator) Snapshot() map[string]Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]Status, len(c.statuses))
	for k, st := range c.statuses {
		if c.expired(st) {
			delete(c.statuses, k)
			continue
		}
		out[k] = st
	}
	return out
}

// Saved reports whether (courseID, category) has completed at least one
// successful save during this coordinator's lifetime.
func (c *Coordinator) Saved(courseID, category string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved[courseID+"/"+category]
}

// expired is called with c.mu held.
func (c *Coordinator) expired(st Status) bool {
	switch st.Phase {
	case PhaseSuccess:
		return c.now().Sub(st.At) >= c.successTTL
	case PhaseError:
		return c.now().Sub(st.At) >= c.errorTTL
	default:
		return false
	}
}
