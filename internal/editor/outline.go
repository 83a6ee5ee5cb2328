package editor

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/course-studio/internal/gateway"
	"github.com/example/course-studio/internal/savestatus"
)

// OutlineConfig wires the hierarchical section/lecture store.
type OutlineConfig struct {
	CourseID  string
	Gateway   gateway.Gateway
	Status    *savestatus.Coordinator
	Logger    *zap.Logger
	QueueSize int
}

// OutlineStore manages a course's sections, each owning an ordered
// lecture list. Section positions are scoped to the course, lecture
// positions to their section: reordering lectures inside one section
// never touches another section, and reordering sections never touches
// lecture positions.
//
// Every mutation persists the full tree through Gateway.SaveOutline
// (fail-whole); a failed save discards the optimistic tree and reloads
// the canonical one. Moving a lecture between sections is not
// supported: lecture operations are scoped to a single section.
type OutlineStore struct {
	courseID string
	gw       gateway.Gateway
	status   *savestatus.Coordinator
	log      *zap.Logger

	mu       sync.Mutex
	sections []Section
	aliases  map[string]string // temp id -> durable id
	loading  bool
	loaded   bool
	loadErr  string
	closed   bool

	queue *saveQueue
}

// LectureUpdate carries a partial lecture mutation; nil fields are left
// untouched. Flags never affect positions.
type LectureUpdate struct {
	Title            *string `json:"title,omitempty"`
	IsFree           *bool   `json:"is_free,omitempty"`
	RequiresHomework *bool   `json:"requires_homework,omitempty"`
	VideoURL         *string `json:"video_url,omitempty"`
}

func NewOutlineStore(cfg OutlineConfig) *OutlineStore {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &OutlineStore{
		courseID: cfg.CourseID,
		gw:       cfg.Gateway,
		status:   cfg.Status,
		log:      cfg.Logger.With(zap.String("course_id", cfg.CourseID), zap.String("category", string(CategoryOutline))),
		aliases:  make(map[string]string),
	}
	s.queue = newSaveQueue(cfg.QueueSize, func(key string, err error) {
		if err != nil {
			s.log.Warn("outline save failed", zap.String("key", key), zap.Error(err))
		}
		s.status.Complete(context.Background(), key, s.courseID, string(CategoryOutline), err)
	})
	return s
}

// Sections returns a deep copy of the current tree in position order.
func (s *OutlineStore) Sections() []Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTree(s.sections)
}

// SectionIDs returns the section ids in position order.
func (s *OutlineStore) SectionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.sections))
	for i := range s.sections {
		ids[i] = s.sections[i].ID
	}
	return ids
}

func (s *OutlineStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *OutlineStore) LoadErr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Load fetches the canonical tree. Single-flight like Store.Load; the
// outline has no default template, so it never seeds.
func (s *OutlineStore) Load(ctx context.Context) error {
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

	records, err := s.gw.GetOutline(ctx, s.courseID)
	if err != nil {
		s.mu.Lock()
		s.loadErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("load outline: %w", err)
	}

	tree := fromRecords(records)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.sections = tree
	s.loaded = true
	s.loadErr = ""
	s.mu.Unlock()
	return nil
}

// AddSection appends a section at the end of the course.
func (s *OutlineStore) AddSection(_ context.Context, title string) (Section, error) {
	if title == "" {
		return Section{}, ErrEmptyContent
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Section{}, ErrClosed
	}
	sec := Section{ID: tempID(), Title: title, Position: len(s.sections), Visible: true, Lectures: []Lecture{}}
	s.sections = append(s.sections, sec)
	s.mu.Unlock()

	if err := s.persist("add-section"); err != nil {
		return Section{}, err
	}
	return sec, nil
}

// RenameSection replaces a section's title.
func (s *OutlineStore) RenameSection(_ context.Context, id, title string) error {
	if title == "" {
		return ErrEmptyContent
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	idx := s.sectionIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.sections[idx].Title = title
	s.mu.Unlock()

	return s.persist("rename-section")
}

// RemoveSection deletes a section and all of its lectures (cascade) as
// one logical operation, then renumbers the remaining sections.
func (s *OutlineStore) RemoveSection(_ context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	idx := s.sectionIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.sections = append(s.sections[:idx], s.sections[idx+1:]...)
	for i := range s.sections {
		s.sections[i].Position = i
	}
	s.mu.Unlock()

	return s.persist("remove-section")
}

// ReorderSections replaces the section order with orderedIDs (the
// complete set). Lecture positions are untouched.
func (s *OutlineStore) ReorderSections(_ context.Context, orderedIDs []string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if len(orderedIDs) != len(s.sections) {
		s.mu.Unlock()
		return ErrBadOrder
	}
	byID := make(map[string]Section, len(s.sections))
	for _, sec := range s.sections {
		byID[sec.ID] = sec
	}
	next := make([]Section, len(orderedIDs))
	for i, id := range orderedIDs {
		sec, ok := byID[id]
		if !ok {
			s.mu.Unlock()
			return ErrBadOrder
		}
		delete(byID, id)
		sec.Position = i
		next[i] = sec
	}
	s.sections = next
	s.mu.Unlock()

	return s.persist("reorder-sections")
}

// SetVisibility applies one visibility value to every section.
func (s *OutlineStore) SetVisibility(_ context.Context, visible bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	for i := range s.sections {
		s.sections[i].Visible = visible
	}
	s.mu.Unlock()

	return s.persist("visibility-outline")
}

// AddLecture appends a lecture at the end of one section's list.
func (s *OutlineStore) AddLecture(_ context.Context, sectionID, title string) (Lecture, error) {
	if title == "" {
		return Lecture{}, ErrEmptyContent
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Lecture{}, ErrClosed
	}
	idx := s.sectionIndexLocked(sectionID)
	if idx < 0 {
		s.mu.Unlock()
		return Lecture{}, ErrNotFound
	}
	lec := Lecture{
		ID:        tempID(),
		SectionID: s.sections[idx].ID,
		Title:     title,
		Position:  len(s.sections[idx].Lectures),
	}
	s.sections[idx].Lectures = append(s.sections[idx].Lectures, lec)
	s.mu.Unlock()

	if err := s.persist("add-lecture"); err != nil {
		return Lecture{}, err
	}
	return lec, nil
}

// UpdateLecture applies a partial update. Flag changes (isFree,
// requiresHomework) and video attachment go through here, never through
// reorder, so positions are guaranteed untouched.
func (s *OutlineStore) UpdateLecture(_ context.Context, id string, upd LectureUpdate) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	si, li := s.lectureIndexLocked(id)
	if si < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	lec := &s.sections[si].Lectures[li]
	if upd.Title != nil {
		if *upd.Title == "" {
			s.mu.Unlock()
			return ErrEmptyContent
		}
		lec.Title = *upd.Title
	}
	if upd.IsFree != nil {
		lec.IsFree = *upd.IsFree
	}
	if upd.RequiresHomework != nil {
		lec.RequiresHomework = *upd.RequiresHomework
	}
	if upd.VideoURL != nil {
		lec.VideoURL = *upd.VideoURL
	}
	s.mu.Unlock()

	return s.persist("update-lecture")
}

// RemoveLecture deletes one lecture and renumbers its section's list.
func (s *OutlineStore) RemoveLecture(_ context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	si, li := s.lectureIndexLocked(id)
	if si < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	lectures := s.sections[si].Lectures
	s.sections[si].Lectures = append(lectures[:li], lectures[li+1:]...)
	for i := range s.sections[si].Lectures {
		s.sections[si].Lectures[i].Position = i
	}
	s.mu.Unlock()

	return s.persist("remove-lecture")
}

// ReorderLectures replaces one section's lecture order with orderedIDs.
// Every id must belong to that section: cross-section moves are
// rejected with ErrBadOrder.
func (s *OutlineStore) ReorderLectures(_ context.Context, sectionID string, orderedIDs []string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	si := s.sectionIndexLocked(sectionID)
	if si < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	lectures := s.sections[si].Lectures
	if len(orderedIDs) != len(lectures) {
		s.mu.Unlock()
		return ErrBadOrder
	}
	byID := make(map[string]Lecture, len(lectures))
	for _, l := range lectures {
		byID[l.ID] = l
	}
	next := make([]Lecture, len(orderedIDs))
	for i, id := range orderedIDs {
		l, ok := byID[id]
		if !ok {
			s.mu.Unlock()
			return ErrBadOrder
		}
		delete(byID, id)
		l.Position = i
		next[i] = l
	}
	s.sections[si].Lectures = next
	s.mu.Unlock()

	return s.persist("reorder-lectures")
}

// Flush blocks until every previously enqueued save has completed.
func (s *OutlineStore) Flush(ctx context.Context) error {
	return s.queue.flush(ctx)
}

func (s *OutlineStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.queue.close()
}

// persist queues one fail-whole save of the full tree. The snapshot is
// taken when the job runs, so FIFO order means each save carries the
// newest local state; a failure reloads the canonical tree.
func (s *OutlineStore) persist(key string) error {
	return s.queue.enqueue(job{key: key, run: func(ctx context.Context) error {
		sent := s.snapshotRecords()
		saved, err := s.gw.SaveOutline(ctx, s.courseID, sent)
		if err != nil {
			s.reloadCanonical(ctx)
			return err
		}
		s.adoptIDs(sent, saved)
		return nil
	}}, func() {
		s.status.Begin(key)
	})
}

// snapshotRecords converts the current tree for the gateway.
func (s *OutlineStore) snapshotRecords() []gateway.SectionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gateway.SectionRecord, len(s.sections))
	for i, sec := range s.sections {
		rec := gateway.SectionRecord{
			ID:       s.resolveLocked(sec.ID),
			CourseID: s.courseID,
			Title:    sec.Title,
			Position: sec.Position,
			Visible:  sec.Visible,
			Lectures: make([]gateway.LectureRecord, len(sec.Lectures)),
		}
		for j, lec := range sec.Lectures {
			rec.Lectures[j] = gateway.LectureRecord{
				ID:               s.resolveLocked(lec.ID),
				SectionID:        rec.ID,
				Title:            lec.Title,
				Position:         lec.Position,
				IsFree:           lec.IsFree,
				RequiresHomework: lec.RequiresHomework,
				VideoURL:         lec.VideoURL,
			}
		}
		out[i] = rec
	}
	return out
}

// adoptIDs maps temp ids in the sent snapshot onto the durable ids the
// gateway returned (index-aligned) and rewrites the local tree in
// place, leaving positions and content untouched.
func (s *OutlineStore) adoptIDs(sent, saved []gateway.SectionRecord) {
	if len(sent) != len(saved) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range sent {
		if IsTempID(sent[i].ID) {
			s.aliases[sent[i].ID] = saved[i].ID
		}
		for j := range sent[i].Lectures {
			if j < len(saved[i].Lectures) && IsTempID(sent[i].Lectures[j].ID) {
				s.aliases[sent[i].Lectures[j].ID] = saved[i].Lectures[j].ID
			}
		}
	}
	if s.closed {
		return
	}
	for i := range s.sections {
		if durable, ok := s.aliases[s.sections[i].ID]; ok {
			s.sections[i].ID = durable
		}
		for j := range s.sections[i].Lectures {
			lec := &s.sections[i].Lectures[j]
			if durable, ok := s.aliases[lec.ID]; ok {
				lec.ID = durable
			}
			if durable, ok := s.aliases[lec.SectionID]; ok {
				lec.SectionID = durable
			}
		}
	}
}

// reloadCanonical replaces the optimistic tree after a failed save.
func (s *OutlineStore) reloadCanonical(ctx context.Context) {
	records, err := s.gw.GetOutline(ctx, s.courseID)
	if err != nil {
		s.log.Warn("canonical outline reload failed", zap.Error(err))
		s.mu.Lock()
		if !s.closed {
			s.loadErr = err.Error()
		}
		s.mu.Unlock()
		return
	}
	tree := fromRecords(records)
	s.mu.Lock()
	if !s.closed {
		s.sections = tree
	}
	s.mu.Unlock()
}

func (s *OutlineStore) sectionIndexLocked(id string) int {
	for i := range s.sections {
		if s.sections[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *OutlineStore) lectureIndexLocked(id string) (int, int) {
	for i := range s.sections {
		for j := range s.sections[i].Lectures {
			if s.sections[i].Lectures[j].ID == id {
				return i, j
			}
		}
	}
	return -1, -1
}

func (s *OutlineStore) resolveLocked(id string) string {
	if durable, ok := s.aliases[id]; ok {
		return durable
	}
	return id
}

func fromRecords(records []gateway.SectionRecord) []Section {
	out := make([]Section, len(records))
	for i, r := range records {
		sec := Section{
			ID:       r.ID,
			Title:    r.Title,
			Position: r.Position,
			Visible:  r.Visible,
			Lectures: make([]Lecture, len(r.Lectures)),
		}
		for j, l := range r.Lectures {
			sec.Lectures[j] = Lecture{
				ID:               l.ID,
				SectionID:        l.SectionID,
				Title:            l.Title,
				Position:         l.Position,
				IsFree:           l.IsFree,
				RequiresHomework: l.RequiresHomework,
				VideoURL:         l.VideoURL,
			}
		}
		out[i] = sec
	}
	return out
}

func cloneTree(in []Section) []Section {
	out := make([]Section, len(in))
	for i, sec := range in {
		out[i] = sec
		out[i].Lectures = make([]Lecture, len(sec.Lectures))
		copy(out[i].Lectures, sec.Lectures)
	}
	return out
}
