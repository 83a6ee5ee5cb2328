package editor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/course-studio/internal/gateway"
	"github.com/example/course-studio/internal/platform/events"
	"github.com/example/course-studio/internal/savestatus"
)

// Session is one course's editing state: a store per flat category, the
// outline store, expansion state and a shared save-status coordinator.
type Session struct {
	CourseID  string
	Status    *savestatus.Coordinator
	Outline   *OutlineStore
	Expansion *Expansion

	stores map[Category]*Store
}

// Store returns the flat-category store, or nil for non-flat categories.
func (s *Session) Store(c Category) *Store {
	return s.stores[c]
}

// Flush drains every store's persistence queue.
func (s *Session) Flush(ctx context.Context) error {
	for _, st := range s.stores {
		if err := st.Flush(ctx); err != nil {
			return err
		}
	}
	return s.Outline.Flush(ctx)
}

// Close tears down every store. Queued saves still reach the gateway;
// their completions stop mutating session state.
func (s *Session) Close() {
	for _, st := range s.stores {
		st.Close()
	}
	s.Outline.Close()
}

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Gateway gateway.Gateway
	Logger  *zap.Logger
	Events  *events.Publisher // nil-safe

	// Defaults supplies seed templates; nil disables seeding globally.
	Defaults func(category string) []string

	SuccessTTL time.Duration
	ErrorTTL   time.Duration
	QueueSize  int
}

// Sessions is the process-wide registry, one Session per course,
// created lazily and dropped on Close.
type Sessions struct {
	deps Deps

	mu sync.Mutex
	m  map[string]*Session
}

func NewSessions(deps Deps) *Sessions {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Sessions{deps: deps, m: make(map[string]*Session)}
}

// Get returns the course's session, creating it on first use.
func (r *Sessions) Get(courseID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.m[courseID]; ok {
		return s
	}

	coord := savestatus.New(savestatus.Config{
		Logger:     r.deps.Logger,
		Events:     r.deps.Events,
		Flags:      r.deps.Gateway,
		SuccessTTL: r.deps.SuccessTTL,
		ErrorTTL:   r.deps.ErrorTTL,
	})

	s := &Session{
		CourseID:  courseID,
		Status:    coord,
		Expansion: NewExpansion(),
		stores:    make(map[Category]*Store, len(FlatCategories)),
	}
	for _, c := range FlatCategories {
		s.stores[c] = NewStore(StoreConfig{
			CourseID:  courseID,
			Category:  c,
			Gateway:   r.deps.Gateway,
			Status:    coord,
			Logger:    r.deps.Logger,
			Defaults:  r.deps.Defaults,
			QueueSize: r.deps.QueueSize,
		})
	}
	s.Outline = NewOutlineStore(OutlineConfig{
		CourseID:  courseID,
		Gateway:   r.deps.Gateway,
		Status:    coord,
		Logger:    r.deps.Logger,
		QueueSize: r.deps.QueueSize,
	})

	r.m[courseID] = s
	r.deps.Logger.Info("editor session opened", zap.String("course_id", courseID))
	return s
}

// Close drops a course's session if present.
func (r *Sessions) Close(courseID string) {
	r.mu.Lock()
	s, ok := r.m[courseID]
	delete(r.m, courseID)
	r.mu.Unlock()

	if ok {
		s.Close()
		r.deps.Logger.Info("editor session closed", zap.String("course_id", courseID))
	}
}

// CloseAll tears down every session; used on shutdown.
func (r *Sessions) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.m))
	for _, s := range r.m {
		all = append(all, s)
	}
	r.m = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
