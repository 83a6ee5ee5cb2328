package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/course-studio/internal/gateway"
	"github.com/example/course-studio/internal/savestatus"
)

// Sentinel errors surfaced by store operations.
var (
	ErrLoadInFlight = errors.New("load already in flight")
	ErrEmptyContent = errors.New("content must not be empty")
	ErrNotFound     = errors.New("item not found in this scope")
	ErrClosed       = errors.New("store is closed")
	ErrBadOrder     = errors.New("order must contain exactly the current sibling ids")
)

// StoreConfig wires one store to its collaborators. Gateway and Status
// are required; everything else has defaults.
type StoreConfig struct {
	CourseID string
	Category Category
	Gateway  gateway.Gateway
	Status   *savestatus.Coordinator
	Logger   *zap.Logger

	// Defaults supplies the seed template per category. Nil disables
	// seeding entirely.
	Defaults func(category string) []string

	QueueSize int // pending persistence jobs; default 64
}

// Store holds one sibling scope's items and applies every mutation
// optimistically: local state changes synchronously, the persistence
// call runs on the store's queue worker, and a failure rolls the local
// change back (or reloads the canonical snapshot).
type Store struct {
	courseID string
	category Category
	gw       gateway.Gateway
	status   *savestatus.Coordinator
	defaults func(string) []string
	log      *zap.Logger

	mu      sync.Mutex
	items   []Item
	aliases map[string]string // temp id -> durable id
	loading bool
	loaded  bool
	loadErr string
	closed  bool

	queue *saveQueue
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Store{
		courseID: cfg.CourseID,
		category: cfg.Category,
		gw:       cfg.Gateway,
		status:   cfg.Status,
		defaults: cfg.Defaults,
		log:      cfg.Logger.With(zap.String("course_id", cfg.CourseID), zap.String("category", string(cfg.Category))),
		aliases:  make(map[string]string),
	}
	s.queue = newSaveQueue(cfg.QueueSize, func(key string, err error) {
		if err != nil {
			s.log.Warn("save failed", zap.String("key", key), zap.Error(err))
		}
		s.status.Complete(context.Background(), key, s.courseID, string(s.category), err)
	})
	return s
}

func (s *Store) Category() Category { return s.category }

// Items returns the current sibling scope in position order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Loaded reports whether a snapshot has been applied.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// LoadErr returns the retained load failure, empty once a load succeeds.
func (s *Store) LoadErr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Load fetches the canonical snapshot and, when the scope is empty and
// has never been saved, offers the default template. A Load issued
// while another is in flight is a no-op and returns ErrLoadInFlight;
// it is neither queued nor retried.
func (s *Store) Load(ctx context.Context) error {
	return s.load(ctx, false)
}

// Reload is a forced refresh: it never seeds.
func (s *Store) Reload(ctx context.Context) error {
	return s.load(ctx, true)
}

func (s *Store) load(ctx context.Context, forced bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.loading {
		s.mu.Unlock()
		s.log.Debug("load already in flight, ignoring")
		return ErrLoadInFlight
	}
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	records, err := s.gw.ListItems(ctx, s.courseID, string(s.category))
	if err != nil {
		s.mu.Lock()
		s.loadErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("load %s: %w", s.category, err)
	}

	items := make([]Item, len(records))
	for i, r := range records {
		items[i] = Item{ID: r.ID, Content: r.Content, Position: r.Position, Visible: r.Visible}
	}

	if len(items) == 0 && !forced && s.defaults != nil {
		if seeded, err := s.seed(ctx); err == nil && seeded != nil {
			items = seeded
		}
		// Seeding failure leaves the scope empty; the error has already
		// been surfaced through the coordinator.
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.items = items
	s.loaded = true
	s.loadErr = ""
	s.mu.Unlock()
	return nil
}

// seed persists the default template through the normal create path.
// It runs at most once per (course, category): the saved flag is
// checked first and set by the coordinator on success, so even a
// subsequently emptied list is never re-seeded.
func (s *Store) seed(ctx context.Context) ([]Item, error) {
	saved, err := s.gw.SavedFlag(ctx, s.courseID, string(s.category))
	if err != nil {
		s.log.Warn("saved flag lookup failed, skipping seeding", zap.Error(err))
		return nil, nil
	}
	if saved {
		return nil, nil
	}
	template := s.defaults(string(s.category))
	if len(template) == 0 {
		return nil, nil
	}

	key := "seed-" + string(s.category)
	s.status.Begin(key)

	items := make([]Item, 0, len(template))
	for i, content := range template {
		created, err := s.gw.CreateItem(ctx, gateway.Item{
			CourseID: s.courseID,
			Category: string(s.category),
			Content:  content,
			Position: i,
			Visible:  true,
		})
		if err != nil {
			s.status.Complete(ctx, key, s.courseID, string(s.category), err)
			s.log.Warn("seeding failed", zap.Int("position", i), zap.Error(err))
			return nil, fmt.Errorf("seed %s: %w", s.category, err)
		}
		items = append(items, Item{ID: created.ID, Content: created.Content, Position: created.Position, Visible: created.Visible})
	}
	s.status.Complete(ctx, key, s.courseID, string(s.category), nil)
	s.log.Info("seeded default content", zap.Int("count", len(items)))
	return items, nil
}

// Add appends a new item with a temporary id and position = current
// length, then persists it. On success the durable id replaces the
// temporary one in place; on failure the item is removed again.
func (s *Store) Add(_ context.Context, content string) (Item, error) {
	if content == "" {
		return Item{}, ErrEmptyContent
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Item{}, ErrClosed
	}
	it := Item{ID: tempID(), Content: content, Position: len(s.items), Visible: true}
	s.items = append(s.items, it)
	s.mu.Unlock()

	err := s.persist("add-"+string(s.category), func(ctx context.Context) error {
		created, err := s.gw.CreateItem(ctx, gateway.Item{
			CourseID: s.courseID,
			Category: string(s.category),
			Content:  content,
			Position: s.positionOf(it.ID),
			Visible:  true,
		})
		if err != nil {
			s.discard(it.ID)
			return err
		}
		s.adoptID(it.ID, created.ID)
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	return it, nil
}

// Edit replaces an item's content in place. A failed save reverts to
// the last-known-good content.
func (s *Store) Edit(_ context.Context, id, content string) error {
	if content == "" {
		return ErrEmptyContent
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	prev := s.items[idx].Content
	s.items[idx].Content = content
	s.mu.Unlock()

	return s.persist("edit-"+string(s.category), func(ctx context.Context) error {
		if err := s.gw.UpdateItem(ctx, s.courseID, string(s.category), s.resolveID(id), content); err != nil {
			s.revertContent(id, content, prev)
			return err
		}
		return nil
	})
}

// Remove deletes an item, renumbers the survivors to 0..n-1 and pushes
// one bulk reposition. A failed delete reloads the canonical snapshot.
func (s *Store) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.renumberLocked()
	s.mu.Unlock()

	return s.persist("remove-"+string(s.category), func(ctx context.Context) error {
		if err := s.gw.DeleteItem(ctx, s.courseID, string(s.category), s.resolveID(id)); err != nil {
			s.reloadCanonical(ctx)
			return err
		}
		moves := s.currentMoves()
		if len(moves) == 0 {
			return nil
		}
		if err := s.gw.RepositionItems(ctx, s.courseID, string(s.category), moves); err != nil {
			s.reloadCanonical(ctx)
			return err
		}
		return nil
	})
}

// Reorder replaces the sibling order with orderedIDs (the complete set,
// typically produced by Move) and reassigns position = index in one
// pass. A failed bulk reposition discards the optimistic order and
// reloads the canonical snapshot.
func (s *Store) Reorder(_ context.Context, orderedIDs []string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if len(orderedIDs) != len(s.items) {
		s.mu.Unlock()
		return ErrBadOrder
	}
	byID := make(map[string]Item, len(s.items))
	for _, it := range s.items {
		byID[it.ID] = it
	}
	next := make([]Item, len(orderedIDs))
	for i, id := range orderedIDs {
		it, ok := byID[id]
		if !ok {
			s.mu.Unlock()
			return ErrBadOrder
		}
		delete(byID, id)
		it.Position = i
		next[i] = it
	}
	s.items = next
	s.mu.Unlock()

	return s.persist("reorder-"+string(s.category), func(ctx context.Context) error {
		if err := s.gw.RepositionItems(ctx, s.courseID, string(s.category), s.currentMoves()); err != nil {
			s.reloadCanonical(ctx)
			return err
		}
		return nil
	})
}

// SetVisibility applies one visibility value to every item in the
// scope, then issues a single bulk call. Failure restores the previous
// per-item values.
func (s *Store) SetVisibility(_ context.Context, visible bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	prev := make(map[string]bool, len(s.items))
	for i := range s.items {
		prev[s.items[i].ID] = s.items[i].Visible
		s.items[i].Visible = visible
	}
	s.mu.Unlock()

	return s.persist("visibility-"+string(s.category), func(ctx context.Context) error {
		if err := s.gw.SetItemsVisibility(ctx, s.courseID, string(s.category), visible); err != nil {
			s.restoreVisibility(prev)
			return err
		}
		return nil
	})
}

// Flush blocks until every previously enqueued persistence job has
// completed. Used by graceful shutdown and tests.
func (s *Store) Flush(ctx context.Context) error {
	return s.queue.flush(ctx)
}

// Close tears the store down. Already queued persistence jobs still run
// to completion against the gateway, but their completions no longer
// mutate local state.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.queue.close()
}

func (s *Store) persist(key string, run func(ctx context.Context) error) error {
	return s.queue.enqueue(job{key: key, run: run}, func() {
		s.status.Begin(key)
	})
}

// adoptID swaps the temporary id for the durable one without touching
// position or content.
func (s *Store) adoptID(temp, durable string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[temp] = durable
	if s.closed {
		return
	}
	for i := range s.items {
		if s.items[i].ID == temp {
			s.items[i].ID = durable
			return
		}
	}
}

// discard removes a failed optimistic add and renumbers.
func (s *Store) discard(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if idx := s.indexOfLocked(id); idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		s.renumberLocked()
	}
}

// revertContent undoes a failed edit, unless a newer edit already
// replaced the failed value.
func (s *Store) revertContent(id, failed, prev string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if idx := s.indexOfLocked(id); idx >= 0 && s.items[idx].Content == failed {
		s.items[idx].Content = prev
	}
}

func (s *Store) restoreVisibility(prev map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for i := range s.items {
		if v, ok := prev[s.items[i].ID]; ok {
			s.items[i].Visible = v
		}
	}
}

// reloadCanonical discards optimistic state after a failed bulk write.
// No field-level merging: the server snapshot wins wholesale.
func (s *Store) reloadCanonical(ctx context.Context) {
	records, err := s.gw.ListItems(ctx, s.courseID, string(s.category))
	if err != nil {
		s.log.Warn("canonical reload failed", zap.Error(err))
		s.mu.Lock()
		if !s.closed {
			s.loadErr = err.Error()
		}
		s.mu.Unlock()
		return
	}
	items := make([]Item, len(records))
	for i, r := range records {
		items[i] = Item{ID: r.ID, Content: r.Content, Position: r.Position, Visible: r.Visible}
	}
	s.mu.Lock()
	if !s.closed {
		s.items = items
	}
	s.mu.Unlock()
}

func (s *Store) indexOfLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) renumberLocked() {
	for i := range s.items {
		s.items[i].Position = i
	}
}

// resolveID maps a temporary id to its durable replacement once the
// create has confirmed. FIFO job order guarantees the create ran first.
func (s *Store) resolveID(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if durable, ok := s.aliases[id]; ok {
		return durable
	}
	return id
}

func (s *Store) positionOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOfLocked(id); idx >= 0 {
		return s.items[idx].Position
	}
	return 0
}

// currentMoves snapshots the scope's resolved id/position pairs for a
// bulk reposition. Entries still waiting on their durable id are
// skipped; their create job carries the right position itself.
func (s *Store) currentMoves() []gateway.Reposition {
	s.mu.Lock()
	defer s.mu.Unlock()
	moves := make([]gateway.Reposition, 0, len(s.items))
	for _, it := range s.items {
		id := it.ID
		if durable, ok := s.aliases[id]; ok {
			id = durable
		}
		if IsTempID(id) {
			continue
		}
		moves = append(moves, gateway.Reposition{ID: id, Position: it.Position})
	}
	return moves
}
