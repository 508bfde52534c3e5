package votes_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hilthontt/forum/internal/application/usecases/detail"
	"github.com/hilthontt/forum/internal/application/usecases/usecasetest"
	"github.com/hilthontt/forum/internal/application/usecases/votes"
	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/logging"
	"github.com/hilthontt/forum/internal/infrastructure/metrics"
)

type identity struct {
	id int64
}

func (i identity) CurrentUserID() (int64, bool) {
	return i.id, i.id > 0
}

type rig struct {
	spy    *usecasetest.Spy
	detail *detail.Detail
	engine *votes.Engine
}

func newRig(t *testing.T, fx *usecasetest.Fixture, user string, m *metrics.Metrics) *rig {
	t.Helper()

	spy := usecasetest.NewSpy(fx.Store)
	id := identity{id: fx.Users[user]}
	d := detail.New(spy, logging.NewNop(), detail.Options{
		Enricher: votes.NewReconciler(spy, id, 2),
		Metrics:  m,
	})
	t.Cleanup(d.Close)

	return &rig{
		spy:    spy,
		detail: d,
		engine: votes.NewEngine(spy, id, d, logging.NewNop(), m),
	}
}

func (r *rig) answer(t *testing.T, id int64) domain.Answer {
	t.Helper()
	a, ok := r.detail.Answer(id)
	if !ok {
		t.Fatalf("answer %d is not in the open snapshot", id)
	}
	return a
}

// setup creates a room by bob with one answer by carol and leaves alice
// logged in. Every name in voters upvotes the answer first.
func setup(t *testing.T, voters ...string) (*usecasetest.Fixture, int64, int64) {
	t.Helper()
	fx := usecasetest.NewFixture(t, "alice", "bob", "carol", "dave", "erin")
	roomID := fx.Room(t, "bob", "Q", "question")
	answerID := fx.Answer(t, "carol", roomID, "answer")
	for _, v := range voters {
		fx.Vote(t, v, answerID)
	}
	fx.As(t, "alice")
	return fx, roomID, answerID
}

func TestVoteRoundTrip(t *testing.T) {
	fx, roomID, answerID := setup(t, "bob")
	r := newRig(t, fx, "alice", metrics.New())
	ctx := context.Background()

	if err := r.detail.Open(ctx, roomID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	before := r.answer(t, answerID)

	if err := r.engine.VoteUp(ctx, answerID); err != nil {
		t.Fatalf("VoteUp: %v", err)
	}
	up := r.answer(t, answerID)
	if up.VotesLength != before.VotesLength+1 || !up.Voted() {
		t.Fatalf("after VoteUp: %+v", up)
	}

	if err := r.engine.VoteDown(ctx, answerID); err != nil {
		t.Fatalf("VoteDown: %v", err)
	}
	if diff := cmp.Diff(before, r.answer(t, answerID)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPreconditionsSkipRemote(t *testing.T) {
	type tcase struct {
		voters  []string
		down    bool
		wantErr error
	}

	tests := map[string]tcase{
		"up while voted":       {voters: []string{"alice"}, wantErr: domain.ErrDuplicateVote},
		"down while not voted": {down: true, wantErr: domain.ErrNoActiveVote},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			fx, roomID, answerID := setup(t, tc.voters...)
			r := newRig(t, fx, "alice", nil)
			ctx := context.Background()

			if err := r.detail.Open(ctx, roomID); err != nil {
				t.Fatalf("Open: %v", err)
			}
			before := r.answer(t, answerID)
			r.spy.ResetCalls()

			var err error
			if tc.down {
				err = r.engine.VoteDown(ctx, answerID)
			} else {
				err = r.engine.VoteUp(ctx, answerID)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if n := r.spy.Total(); n != 0 {
				t.Fatalf("precondition failure made %d remote calls", n)
			}
			if diff := cmp.Diff(before, r.answer(t, answerID)); diff != "" {
				t.Fatalf("snapshot changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServerRejectionLeavesCount(t *testing.T) {
	fx, roomID, answerID := setup(t, "bob", "dave", "erin")
	ctx := context.Background()

	first := newRig(t, fx, "alice", nil)
	second := newRig(t, fx, "alice", nil)
	for _, r := range []*rig{first, second} {
		if err := r.detail.Open(ctx, roomID); err != nil {
			t.Fatalf("Open: %v", err)
		}
		if a := r.answer(t, answerID); a.VotesLength != 3 || a.Voted() {
			t.Fatalf("initial state: %+v", a)
		}
	}

	if err := first.engine.VoteUp(ctx, answerID); err != nil {
		t.Fatalf("VoteUp: %v", err)
	}
	if a := first.answer(t, answerID); a.VotesLength != 4 || !a.Voted() {
		t.Fatalf("after VoteUp: %+v", a)
	}

	// second still believes alice has not voted; the store knows better.
	err := second.engine.VoteUp(ctx, answerID)
	var rejected *votes.VoteRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected VoteRejectedError, got %v", err)
	}
	if !errors.Is(err, domain.ErrDuplicateVote) || !rejected.RefreshRecommended() {
		t.Fatalf("rejection should be a duplicate that recommends a refresh: %v", err)
	}
	if a := second.answer(t, answerID); a.VotesLength != 3 || a.Voted() {
		t.Fatalf("rejected vote changed the snapshot: %+v", a)
	}

	if a := first.answer(t, answerID); a.VotesLength != 4 {
		t.Fatalf("first view drifted: %+v", a)
	}
	if err := second.detail.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if a := second.answer(t, answerID); a.VotesLength != 4 || !a.Voted() {
		t.Fatalf("after refresh: %+v", a)
	}
}

func TestTransportFailureIsRejected(t *testing.T) {
	fx, roomID, answerID := setup(t)
	r := newRig(t, fx, "alice", nil)
	ctx := context.Background()

	if err := r.detail.Open(ctx, roomID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	r.spy.FailWith("InsertVote", usecasetest.ErrTransport)

	err := r.engine.VoteUp(ctx, answerID)
	var rejected *votes.VoteRejectedError
	if !errors.As(err, &rejected) || !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Fatalf("expected a remote VoteRejectedError, got %v", err)
	}
	if rejected.RefreshRecommended() {
		t.Fatalf("transport failures should not recommend a refresh")
	}
	if a := r.answer(t, answerID); a.VotesLength != 0 || a.Voted() {
		t.Fatalf("no optimistic increment may survive a failed call: %+v", a)
	}
}

func TestVoteRequiresSessionAndAnswer(t *testing.T) {
	fx, roomID, answerID := setup(t)
	ctx := context.Background()

	loggedOut := newRig(t, fx, "nobody", nil)
	if err := loggedOut.detail.Open(ctx, roomID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := loggedOut.engine.VoteUp(ctx, answerID); !errors.Is(err, domain.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}

	r := newRig(t, fx, "alice", nil)
	if err := r.engine.VoteUp(ctx, answerID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("no open room: expected ErrNotFound, got %v", err)
	}
}

func TestRefreshReconcilesWithStore(t *testing.T) {
	fx, roomID, answerID := setup(t, "bob", "carol")
	second := fx.Answer(t, "dave", roomID, "another")
	fx.Vote(t, "erin", second)
	fx.As(t, "alice")

	r := newRig(t, fx, "alice", nil)
	ctx := context.Background()
	if err := r.detail.Open(ctx, roomID); err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Drift the snapshot the way a lost update would.
	r.detail.Apply(roomID, func(room domain.Room) domain.Room {
		for i := range room.Answers {
			room.Answers[i].VotesLength += 10
		}
		return room
	})
	if err := r.detail.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	room, _ := r.detail.Current()
	for _, a := range room.Answers {
		stored, err := fx.Store.ListVotes(ctx, a.ID)
		if err != nil {
			t.Fatalf("ListVotes: %v", err)
		}
		if a.VotesLength != len(stored) {
			t.Fatalf("answer %d: votesLength %d, store has %d", a.ID, a.VotesLength, len(stored))
		}
	}
	if got := r.answer(t, answerID).VotesLength; got != 2 {
		t.Fatalf("answer %d: got %d votes, want 2", answerID, got)
	}
}
