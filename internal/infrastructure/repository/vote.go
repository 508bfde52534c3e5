package repository

import (
	"slices"
	"sync"

	"github.com/hilthontt/forum/internal/domain"
)

// voteRepository holds at most one vote per (user, answer) pair.
type voteRepository struct {
	votes map[domain.Vote]struct{}
	mu    *sync.RWMutex
}

func newVoteRepository() *voteRepository {
	return &voteRepository{
		votes: make(map[domain.Vote]struct{}),
		mu:    &sync.RWMutex{},
	}
}

func (r *voteRepository) Insert(v domain.Vote) error {
	if err := v.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.votes[v]; exists {
		return domain.ErrDuplicateVote
	}
	r.votes[v] = struct{}{}
	return nil
}

func (r *voteRepository) Delete(v domain.Vote) error {
	if err := v.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.votes[v]; !exists {
		return domain.ErrNoActiveVote
	}
	delete(r.votes, v)
	return nil
}

func (r *voteRepository) DeleteByAnswer(answerIDs ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for v := range r.votes {
		if slices.Contains(answerIDs, v.AnswerID) {
			delete(r.votes, v)
		}
	}
}

// GetByAnswerID returns the votes ordered by user id.
func (r *voteRepository) GetByAnswerID(answerID int64) []domain.Vote {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Vote{}
	for v := range r.votes {
		if v.AnswerID == answerID {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b domain.Vote) int {
		switch {
		case a.UserID < b.UserID:
			return -1
		case a.UserID > b.UserID:
			return 1
		}
		return 0
	})
	return out
}
