package votes

import (
	"context"
	"fmt"

	"github.com/hilthontt/forum/internal/domain"
	"golang.org/x/sync/errgroup"
)

type VoteLister interface {
	ListVotes(ctx context.Context, answerID int64) ([]domain.Vote, error)
}

type Identity interface {
	CurrentUserID() (int64, bool)
}

// Reconciler recomputes vote counts from the store on every room load, so
// drift from optimistic updates never outlives the next refresh.
type Reconciler struct {
	store    VoteLister
	identity Identity
	limit    int
}

func NewReconciler(store VoteLister, identity Identity, concurrency int) *Reconciler {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Reconciler{store: store, identity: identity, limit: concurrency}
}

// Enrich returns copies of answers with counts and the acting user's vote
// taken from ListVotes. Order is preserved.
func (r *Reconciler) Enrich(ctx context.Context, answers []domain.Answer) ([]domain.Answer, error) {
	userID, _ := r.identity.CurrentUserID()
	out := make([]domain.Answer, len(answers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i, a := range answers {
		g.Go(func() error {
			votes, err := r.store.ListVotes(ctx, a.ID)
			if err != nil {
				return fmt.Errorf("list votes of answer %d: %w", a.ID, err)
			}
			out[i] = Reconcile(a, votes, userID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
