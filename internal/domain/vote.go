package domain

// Vote is an upvote relation. There is no negative vote: retracting an
// upvote deletes the relation.
type Vote struct {
	UserID   int64 `json:"userId"`
	AnswerID int64 `json:"answerId"`
}

func (v Vote) Validate() error {
	if v.UserID <= 0 {
		return NewValidationError("vote.userId", "must be positive")
	}
	if v.AnswerID <= 0 {
		return NewValidationError("vote.answerId", "must be positive")
	}
	return nil
}

// DistinctVoters counts the distinct users among votes for one answer.
func DistinctVoters(votes []Vote) int {
	seen := make(map[int64]struct{}, len(votes))
	for _, v := range votes {
		seen[v.UserID] = struct{}{}
	}
	return len(seen)
}
