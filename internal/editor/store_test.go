package editor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/course-studio/internal/gateway"
	"github.com/example/course-studio/internal/savestatus"
)

var errBackendDown = errors.New("backend down")

// flakyGateway delegates to an inner gateway but fails selected
// operations, for exercising the rollback paths.
type flakyGateway struct {
	gateway.Gateway
	failCreate     bool
	failUpdate     bool
	failDelete     bool
	failReposition bool
	failVisibility bool
	failList       bool
}

func (g *flakyGateway) ListItems(ctx context.Context, courseID, category string) ([]gateway.Item, error) {
	if g.failList {
		return nil, errBackendDown
	}
	return g.Gateway.ListItems(ctx, courseID, category)
}

func (g *flakyGateway) CreateItem(ctx context.Context, item gateway.Item) (gateway.Item, error) {
	if g.failCreate {
		return gateway.Item{}, errBackendDown
	}
	return g.Gateway.CreateItem(ctx, item)
}

func (g *flakyGateway) UpdateItem(ctx context.Context, courseID, category, id, content string) error {
	if g.failUpdate {
		return errBackendDown
	}
	return g.Gateway.UpdateItem(ctx, courseID, category, id, content)
}

func (g *flakyGateway) DeleteItem(ctx context.Context, courseID, category, id string) error {
	if g.failDelete {
		return errBackendDown
	}
	return g.Gateway.DeleteItem(ctx, courseID, category, id)
}

func (g *flakyGateway) RepositionItems(ctx context.Context, courseID, category string, moves []gateway.Reposition) error {
	if g.failReposition {
		return errBackendDown
	}
	return g.Gateway.RepositionItems(ctx, courseID, category, moves)
}

func (g *flakyGateway) SetItemsVisibility(ctx context.Context, courseID, category string, visible bool) error {
	if g.failVisibility {
		return errBackendDown
	}
	return g.Gateway.SetItemsVisibility(ctx, courseID, category, visible)
}

func newTestStore(gw gateway.Gateway, defaults func(string) []string) (*Store, *savestatus.Coordinator) {
	coord := savestatus.New(savestatus.Config{Flags: gw})
	st := NewStore(StoreConfig{
		CourseID: "course-1",
		Category: CategoryObjectives,
		Gateway:  gw,
		Status:   coord,
		Defaults: defaults,
	})
	return st, coord
}

func mustFlush(t *testing.T, st *Store) {
	t.Helper()
	if err := st.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestStore_LoadSeedsEmptyUnsavedScope(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	defaults := func(string) []string { return []string{"first", "second", "third"} }
	st, coord := newTestStore(gw, defaults)

	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	items := st.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 seeded items, got %d", len(items))
	}
	for i, it := range items {
		if it.Position != i {
			t.Fatalf("expected position %d, got %d", i, it.Position)
		}
		if IsTempID(it.ID) || it.ID == "" {
			t.Fatalf("expected durable id for seeded item, got %q", it.ID)
		}
		if !it.Visible {
			t.Fatalf("expected seeded item visible")
		}
	}
	if !coord.Saved("course-1", "objectives") {
		t.Fatalf("expected saved flag after seeding")
	}
	if flag, _ := gw.SavedFlag(context.Background(), "course-1", "objectives"); !flag {
		t.Fatalf("expected durable saved flag after seeding")
	}
}

func TestStore_LoadDoesNotReseedSavedScope(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	if err := gw.MarkSaved(context.Background(), "course-1", "objectives"); err != nil {
		t.Fatalf("mark saved: %v", err)
	}
	st, _ := newTestStore(gw, func(string) []string { return []string{"seed"} })

	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := st.Items(); len(got) != 0 {
		t.Fatalf("expected saved empty scope to stay empty, got %d items", len(got))
	}
}

func TestStore_ReloadNeverSeeds(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	st, _ := newTestStore(gw, func(string) []string { return []string{"seed"} })

	if err := st.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := st.Items(); len(got) != 0 {
		t.Fatalf("expected reload to skip seeding, got %d items", len(got))
	}
}

func TestStore_SeedFailureLeavesScopeEmpty(t *testing.T) {
	gw := &flakyGateway{Gateway: gateway.NewMemoryGateway(), failCreate: true}
	st, coord := newTestStore(gw, func(string) []string { return []string{"seed"} })

	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load itself must succeed, got %v", err)
	}
	if got := st.Items(); len(got) != 0 {
		t.Fatalf("expected empty scope after failed seed, got %d items", len(got))
	}
	if phase := coord.Status("seed-objectives").Phase; phase != savestatus.PhaseError {
		t.Fatalf("expected error status for failed seed, got %q", phase)
	}
	if coord.Saved("course-1", "objectives") {
		t.Fatalf("failed seed must not set the saved flag")
	}
}

func TestStore_LoadFailureIsRetained(t *testing.T) {
	gw := &flakyGateway{Gateway: gateway.NewMemoryGateway(), failList: true}
	st, _ := newTestStore(gw, nil)

	if err := st.Load(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
	if st.Loaded() {
		t.Fatalf("expected store not loaded after failure")
	}
	if st.LoadErr() == "" {
		t.Fatalf("expected retained load error")
	}

	gw.failList = false
	if err := st.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if st.LoadErr() != "" {
		t.Fatalf("expected load error cleared after successful reload")
	}
}

func TestStore_AddAdoptsDurableID(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	st, _ := newTestStore(gw, nil)

	it, err := st.Add(context.Background(), "learn pointers")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !IsTempID(it.ID) {
		t.Fatalf("expected temporary id on the optimistic item, got %q", it.ID)
	}
	if it.Position != 0 {
		t.Fatalf("expected position 0, got %d", it.Position)
	}

	mustFlush(t, st)

	items := st.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if IsTempID(items[0].ID) {
		t.Fatalf("expected durable id after flush, got %q", items[0].ID)
	}
	if items[0].Content != "learn pointers" || items[0].Position != 0 {
		t.Fatalf("unexpected item after flush: %+v", items[0])
	}
}

func TestStore_AddEmptyContentRejected(t *testing.T) {
	st, _ := newTestStore(gateway.NewMemoryGateway(), nil)
	if _, err := st.Add(context.Background(), ""); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestStore_AddFailureDiscardsItem(t *testing.T) {
	gw := &flakyGateway{Gateway: gateway.NewMemoryGateway(), failCreate: true}
	st, coord := newTestStore(gw, nil)

	if _, err := st.Add(context.Background(), "doomed"); err != nil {
		t.Fatalf("optimistic add must succeed, got %v", err)
	}
	if len(st.Items()) != 1 {
		t.Fatalf("expected optimistic item present before flush")
	}

	mustFlush(t, st)

	if got := st.Items(); len(got) != 0 {
		t.Fatalf("expected failed add discarded, got %d items", len(got))
	}
	st2 := coord.Status("add-objectives")
	if st2.Phase != savestatus.PhaseError || !strings.Contains(st2.Message, "backend down") {
		t.Fatalf("expected error status with message, got %+v", st2)
	}
}

func TestStore_EditFailureRevertsContent(t *testing.T) {
	gw := &flakyGateway{Gateway: gateway.NewMemoryGateway()}
	st, _ := newTestStore(gw, nil)

	if _, err := st.Add(context.Background(), "original"); err != nil {
		t.Fatalf("add: %v", err)
	}
	mustFlush(t, st)
	id := st.Items()[0].ID

	gw.failUpdate = true
	if err := st.Edit(context.Background(), id, "broken"); err != nil {
		t.Fatalf("optimistic edit must succeed, got %v", err)
	}
	if st.Items()[0].Content != "broken" {
		t.Fatalf("expected optimistic content applied")
	}
	mustFlush(t, st)

	if got := st.Items()[0].Content; got != "original" {
		t.Fatalf("expected content reverted to 'original', got %q", got)
	}
}

func TestStore_EditUnknownID(t *testing.T) {
	st, _ := newTestStore(gateway.NewMemoryGateway(), nil)
	if err := st.Edit(context.Background(), "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_RemoveRenumbersSurvivors(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	st, _ := newTestStore(gw, nil)

	for _, c := range []string{"a", "b", "c"} {
		if _, err := st.Add(context.Background(), c); err != nil {
			t.Fatalf("add %s: %v", c, err)
		}
	}
	mustFlush(t, st)
	victim := st.Items()[1]

	if err := st.Remove(context.Background(), victim.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	mustFlush(t, st)

	items := st.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Content != "a" || items[1].Content != "c" {
		t.Fatalf("unexpected survivors: %+v", items)
	}
	for i, it := range items {
		if it.Position != i {
			t.Fatalf("expected contiguous positions, got %d at index %d", it.Position, i)
		}
	}

	persisted, err := gw.ListItems(context.Background(), "course-1", "objectives")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(persisted) != 2 || persisted[0].Position != 0 || persisted[1].Position != 1 {
		t.Fatalf("expected renumbered persisted positions, got %+v", persisted)
	}
}

func TestStore_RemoveFailureReloadsCanonical(t *testing.T) {
	gw := &flakyGateway{Gateway: gateway.NewMemoryGateway()}
	st, _ := newTestStore(gw, nil)

	for _, c := range []string{"a", "b"} {
		if _, err := st.Add(context.Background(), c); err != nil {
			t.Fatalf("add %s: %v", c, err)
		}
	}
	mustFlush(t, st)
	id := st.Items()[0].ID

	gw.failDelete = true
	if err := st.Remove(context.Background(), id); err != nil {
		t.Fatalf("optimistic remove must succeed, got %v", err)
	}
	mustFlush(t, st)

	items := st.Items()
	if len(items) != 2 {
		t.Fatalf("expected canonical snapshot restored, got %d items", len(items))
	}
	if items[0].Content != "a" {
		t.Fatalf("expected original first item back, got %+v", items[0])
	}
}

func TestStore_ReorderAssignsPositionsByIndex(t *testing.T) {
	gw := gateway.NewMemoryGateway()
	st, _ := newTestStore(gw, nil)

	for _, c := range []string{"a", "b", "c", "d"} {
		if _, err := st.Add(context.Background(), c); err != nil {
			t.Fatalf("add %s: %v", c, err)
		}
	}
	mustFlush(t, st)

	items := st.Items()
	// Drag the third item onto the first.
	next := MoveItems(items, items[2].ID, items[0].ID)
	if err := st.Reorder(context.Background(), OrderedIDs(next)); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	mustFlush(t, st)

	got := st.Items()
	want := []string{"c", "a", "b", "d"}
	for i := range got {
		if got[i].Content != want[i] {
			t.Fatalf("expected %v, got %+v", want, got)
		}
		if got[i].Position != i {
			t.Fatalf("expected position %d, got %d", i, got[i].Position)
		}
	}

	persisted, _ := gw.ListItems(context.Background(), "course-1", "objectives")
	for i := range persisted {
		if persisted[i].Content != want[i] {
			t.Fatalf("expected persisted order %v, got %+v", want, persisted)
		}
	}
}

func TestStore_ReorderRejectsWrongIDSet(t *testing.T) {
	st, _ := newTestStore(gateway.NewMemoryGateway(), nil)
	if _, err := st.Add(context.Background(), "a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	mustFlush(t, st)
	id := st.Items()[0].ID

	if err := st.Reorder(context.Background(), []string{id, "extra"}); !errors.Is(err, ErrBadOrder) {
		t.Fatalf("expected ErrBadOrder for extra id, got %v", err)
	}
	if err := st.Reorder(context.Background(), []string{"other"}); !errors.Is(err, ErrBadOrder) {
		t.Fatalf("expected ErrBadOrder for foreign id, got %v", err)
	}
}

func TestStore_ReorderFailureReloadsCanonical(t *testing.T) {
	gw := &flakyGateway{Gateway: gateway.NewMemoryGateway()}
	st, _ := newTestStore(gw, nil)

	for _, c := range []string{"a", "b", "c"} {
		if _, err := st.Add(context.Background(), c); err != nil {
			t.Fatalf("add %s: %v", c, err)
		}
	}
	mustFlush(t, st)
	items := st.Items()

	gw.failReposition = true
	next := MoveItems(items, items[2].ID, items[0].ID)
	if err := st.Reorder(context.Background(), OrderedIDs(next)); err != nil {
		t.Fatalf("optimistic reorder must succeed, got %v", err)
	}
	mustFlush(t, st)

	got := st.Items()
	want := []string{"a", "b", "c"}
	for i := range got {
		if got[i].Content != want[i] {
			t.Fatalf("expected canonical order %v restored, got %+v", want, got)
		}
	}
}

func TestStore_SetVisibilityFailureRestores(t *testing.T) {
	gw := &flakyGateway{Gateway: gateway.NewMemoryGateway()}
	st, _ := newTestStore(gw, nil)

	if _, err := st.Add(context.Background(), "a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	mustFlush(t, st)

	gw.failVisibility = true
	if err := st.SetVisibility(context.Background(), false); err != nil {
		t.Fatalf("optimistic visibility must succeed, got %v", err)
	}
	if st.Items()[0].Visible {
		t.Fatalf("expected optimistic hide applied")
	}
	mustFlush(t, st)

	if !st.Items()[0].Visible {
		t.Fatalf("expected visibility restored after failed save")
	}
}

func TestStore_SingleFlightLoad(t *testing.T) {
	inner := gateway.NewMemoryGateway()
	release := make(chan struct{})
	entered := make(chan struct{})
	gw := &blockingGateway{Gateway: inner, entered: entered, release: release}
	st, _ := newTestStore(gw, nil)

	done := make(chan error, 1)
	go func() { done <- st.Load(context.Background()) }()
	<-entered

	if err := st.Load(context.Background()); !errors.Is(err, ErrLoadInFlight) {
		t.Fatalf("expected ErrLoadInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first load: %v", err)
	}
	if !st.Loaded() {
		t.Fatalf("expected store loaded")
	}
}

// blockingGateway parks ListItems until released, for racing loads.
type blockingGateway struct {
	gateway.Gateway
	entered chan struct{}
	release chan struct{}
	once    bool
}

func (g *blockingGateway) ListItems(ctx context.Context, courseID, category string) ([]gateway.Item, error) {
	if !g.once {
		g.once = true
		close(g.entered)
		<-g.release
	}
	return g.Gateway.ListItems(ctx, courseID, category)
}

func TestStore_ClosedRejectsMutations(t *testing.T) {
	st, _ := newTestStore(gateway.NewMemoryGateway(), nil)
	st.Close()

	if _, err := st.Add(context.Background(), "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Add, got %v", err)
	}
	if err := st.Load(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Load, got %v", err)
	}
}
