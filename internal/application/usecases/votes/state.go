package votes

import "github.com/hilthontt/forum/internal/domain"

// A (user, answer) pair is either NoVote or Voted. The acting user's state
// is read from Answer.UserVote.

func PlanUp(a domain.Answer) error {
	if a.Voted() {
		return domain.ErrDuplicateVote
	}
	return nil
}

func PlanDown(a domain.Answer) error {
	if !a.Voted() {
		return domain.ErrNoActiveVote
	}
	return nil
}

// ApplyUp is the optimistic result of a confirmed insert.
func ApplyUp(a domain.Answer, userID int64) domain.Answer {
	c := a.Clone()
	if c.Voted() {
		return c
	}
	c.VotesLength++
	c.UserVote = &domain.Vote{UserID: userID, AnswerID: a.ID}
	return c
}

// ApplyDown is the optimistic result of a confirmed delete.
func ApplyDown(a domain.Answer) domain.Answer {
	c := a.Clone()
	if !c.Voted() {
		return c
	}
	if c.VotesLength > 0 {
		c.VotesLength--
	}
	c.UserVote = nil
	return c
}

// Reconcile replaces the count and the acting user's vote with what the
// store reported. Votes for other answers are ignored. userID 0 means
// nobody is logged in.
func Reconcile(a domain.Answer, votes []domain.Vote, userID int64) domain.Answer {
	c := a.Clone()
	c.UserVote = nil

	own := make([]domain.Vote, 0, len(votes))
	for _, v := range votes {
		if v.AnswerID != a.ID {
			continue
		}
		own = append(own, v)
		if userID > 0 && v.UserID == userID && c.UserVote == nil {
			vote := v
			c.UserVote = &vote
		}
	}
	c.VotesLength = domain.DistinctVoters(own)
	return c
}
