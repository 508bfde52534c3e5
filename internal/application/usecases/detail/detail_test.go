package detail_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hilthontt/forum/internal/application/usecases/detail"
	"github.com/hilthontt/forum/internal/application/usecases/usecasetest"
	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/logging"
	"github.com/hilthontt/forum/internal/infrastructure/metrics"
)

type env struct {
	fx     *usecasetest.Fixture
	spy    *usecasetest.Spy
	detail *detail.Detail
	rooms  []int64
}

// newEnv seeds two rooms, each with one answer.
func newEnv(t *testing.T) *env {
	t.Helper()

	fx := usecasetest.NewFixture(t)
	r1 := fx.Room(t, "alice", "one", "first room")
	r2 := fx.Room(t, "bob", "two", "second room")
	fx.Answer(t, "carol", r1, "answer in one")
	fx.Answer(t, "carol", r2, "answer in two")

	spy := usecasetest.NewSpy(fx.Store)
	d := detail.New(spy, logging.NewNop(), detail.Options{Metrics: metrics.New()})
	t.Cleanup(d.Close)

	return &env{fx: fx, spy: spy, detail: d, rooms: []int64{r1, r2}}
}

type recorder struct {
	mu    sync.Mutex
	rooms []domain.Room
}

func (r *recorder) listen(room domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, room)
}

func (r *recorder) ids() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []int64{}
	for _, room := range r.rooms {
		out = append(out, room.ID)
	}
	return out
}

// blockOnce makes the next call of op wait until the returned release func
// runs. entered is closed once the call is parked.
func blockOnce(spy *usecasetest.Spy, op string) (entered <-chan struct{}, release func()) {
	in := make(chan struct{})
	gate := make(chan struct{})
	var once sync.Once
	spy.Before(op, func(context.Context) {
		first := false
		once.Do(func() { first = true })
		if !first {
			return
		}
		close(in)
		<-gate
	})
	return in, func() { close(gate) }
}

func TestOpenPublishesOneSnapshot(t *testing.T) {
	e := newEnv(t)

	early := &recorder{}
	sub := e.detail.Subscribe(early.listen)
	t.Cleanup(sub.Close)

	if err := e.detail.Open(context.Background(), e.rooms[0]); err != nil {
		t.Fatalf("Open: %v", err)
	}

	late := &recorder{}
	lateSub := e.detail.Subscribe(late.listen)
	t.Cleanup(lateSub.Close)

	if diff := cmp.Diff(early.rooms, late.rooms); diff != "" {
		t.Fatalf("subscribers diverged (-early +late):\n%s", diff)
	}
	if len(early.rooms) != 1 {
		t.Fatalf("expected exactly one publish, got %d", len(early.rooms))
	}

	room := early.rooms[0]
	if room.Title != "one" || room.AnswersCount != 1 || len(room.Answers) != 1 {
		t.Fatalf("unexpected snapshot: %+v", room)
	}
	for _, a := range room.Answers {
		if a.RoomID != room.ID {
			t.Fatalf("answer %d belongs to room %d, snapshot is room %d", a.ID, a.RoomID, room.ID)
		}
	}
	if id, ok := e.detail.OpenRoomID(); !ok || id != e.rooms[0] {
		t.Fatalf("OpenRoomID: got %d %v", id, ok)
	}
}

func TestFailedLoadKeepsSnapshot(t *testing.T) {
	type tcase struct {
		op      string
		err     error
		open    func(e *env) int64
		wantErr error
	}

	tests := map[string]tcase{
		"answers unavailable": {
			op:      "ListAnswers",
			err:     usecasetest.ErrTransport,
			open:    func(e *env) int64 { return e.rooms[1] },
			wantErr: domain.ErrRemoteUnavailable,
		},
		"votes unavailable": {
			op:      "ListVotes",
			err:     usecasetest.ErrTransport,
			open:    func(e *env) int64 { return e.rooms[1] },
			wantErr: domain.ErrRemoteUnavailable,
		},
		"missing room": {
			open:    func(*env) int64 { return 404 },
			wantErr: domain.ErrNotFound,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()

			enricher := enricherFunc(func(ctx context.Context, answers []domain.Answer) ([]domain.Answer, error) {
				for _, a := range answers {
					if _, err := e.spy.ListVotes(ctx, a.ID); err != nil {
						return nil, err
					}
				}
				return answers, nil
			})
			e.detail = detail.New(e.spy, logging.NewNop(), detail.Options{Enricher: enricher})
			t.Cleanup(e.detail.Close)

			if err := e.detail.Open(ctx, e.rooms[0]); err != nil {
				t.Fatalf("Open: %v", err)
			}
			before, _ := e.detail.Current()

			rec := &recorder{}
			sub := e.detail.Subscribe(rec.listen)
			t.Cleanup(sub.Close)

			if tc.op != "" {
				e.spy.FailWith(tc.op, tc.err)
			}
			if err := e.detail.Open(ctx, tc.open(e)); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}

			if len(rec.rooms) != 1 {
				t.Fatalf("a failed load published %d extra snapshots", len(rec.rooms)-1)
			}
			after, ok := e.detail.Current()
			if !ok {
				t.Fatalf("previous room should stay open")
			}
			if diff := cmp.Diff(before, after); diff != "" {
				t.Fatalf("snapshot changed (-want +got):\n%s", diff)
			}
		})
	}
}

type enricherFunc func(ctx context.Context, answers []domain.Answer) ([]domain.Answer, error)

func (f enricherFunc) Enrich(ctx context.Context, answers []domain.Answer) ([]domain.Answer, error) {
	return f(ctx, answers)
}

func TestStaleLoadOfPreviousRoomIsDiscarded(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.detail.Open(ctx, e.rooms[0]); err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec := &recorder{}
	sub := e.detail.Subscribe(rec.listen)
	t.Cleanup(sub.Close)

	entered, release := blockOnce(e.spy, "ListAnswers")
	done := make(chan error, 1)
	go func() { done <- e.detail.Refresh(ctx) }()
	<-entered

	if err := e.detail.Open(ctx, e.rooms[1]); err != nil {
		t.Fatalf("Open: %v", err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("slow refresh: %v", err)
	}

	if diff := cmp.Diff([]int64{e.rooms[0], e.rooms[1]}, rec.ids()); diff != "" {
		t.Fatalf("published rooms mismatch (-want +got):\n%s", diff)
	}
	if room, _ := e.detail.Current(); room.ID != e.rooms[1] {
		t.Fatalf("current room: got %d, want %d", room.ID, e.rooms[1])
	}
}

func TestOverlappingRefreshKeepsNewest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.detail.Open(ctx, e.rooms[0]); err != nil {
		t.Fatalf("Open: %v", err)
	}

	entered, release := blockOnce(e.spy, "GetRoom")
	done := make(chan error, 1)
	go func() { done <- e.detail.Refresh(ctx) }()
	<-entered

	e.fx.Answer(t, "bob", e.rooms[0], "late answer")
	if err := e.detail.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("slow refresh: %v", err)
	}

	room, _ := e.detail.Current()
	if room.AnswersCount != 2 {
		t.Fatalf("older refresh overwrote a newer snapshot: %+v", room)
	}
}

func TestRefreshRoomOnlyTouchesOpenRoom(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.detail.RefreshRoom(ctx, e.rooms[0]); err != nil {
		t.Fatalf("RefreshRoom with nothing open: %v", err)
	}
	if err := e.detail.Open(ctx, e.rooms[0]); err != nil {
		t.Fatalf("Open: %v", err)
	}
	e.spy.ResetCalls()

	if err := e.detail.RefreshRoom(ctx, e.rooms[1]); err != nil {
		t.Fatalf("RefreshRoom other: %v", err)
	}
	if n := e.spy.Total(); n != 0 {
		t.Fatalf("refreshing a closed room made %d calls", n)
	}
	if err := e.detail.RefreshRoom(ctx, e.rooms[0]); err != nil {
		t.Fatalf("RefreshRoom open: %v", err)
	}
	if n := e.spy.Calls("GetRoom"); n != 1 {
		t.Fatalf("GetRoom calls: got %d, want 1", n)
	}
}

func TestCloseRoomAndApply(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if e.detail.Apply(e.rooms[0], func(r domain.Room) domain.Room { return r }) {
		t.Fatalf("Apply with nothing open should report false")
	}
	if err := e.detail.Refresh(ctx); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Refresh with nothing open: got %v", err)
	}

	if err := e.detail.Open(ctx, e.rooms[0]); err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec := &recorder{}
	sub := e.detail.Subscribe(rec.listen)
	t.Cleanup(sub.Close)

	ok := e.detail.Apply(e.rooms[0], func(r domain.Room) domain.Room {
		r.Title = "renamed"
		return r
	})
	if !ok {
		t.Fatalf("Apply on the open room should succeed")
	}
	if room, _ := e.detail.Current(); room.Title != "renamed" {
		t.Fatalf("Apply not published: %+v", room)
	}
	if rec.rooms[0].Title != "one" {
		t.Fatalf("Apply mutated a published snapshot in place")
	}

	e.detail.CloseRoom()
	if _, ok := e.detail.Current(); ok {
		t.Fatalf("Current after CloseRoom should be empty")
	}
	if _, ok := e.detail.OpenRoomID(); ok {
		t.Fatalf("OpenRoomID after CloseRoom should be empty")
	}
	if diff := cmp.Diff([]int64{e.rooms[0], e.rooms[0], 0}, rec.ids()); diff != "" {
		t.Fatalf("published rooms mismatch (-want +got):\n%s", diff)
	}

	sub.Close()
	if err := e.detail.Open(ctx, e.rooms[1]); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(rec.rooms) != 3 {
		t.Fatalf("closed subscription kept receiving snapshots")
	}
}
