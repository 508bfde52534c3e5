package domain

type Answer struct {
	ID          int64  `json:"id"`
	RoomID      int64  `json:"roomId"`
	Message     string `json:"message"`
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	VotesLength int    `json:"votesLength"`
	// UserVote is set iff the acting user has an active upvote on this answer.
	UserVote *Vote `json:"userVote,omitempty"`
}

func (a Answer) Validate() error {
	if a.ID <= 0 {
		return NewValidationError("answer.id", "must be positive")
	}
	if a.RoomID <= 0 {
		return NewValidationError("answer.roomId", "must be positive")
	}
	if a.VotesLength < 0 {
		return NewValidationError("answer.votesLength", "must not be negative")
	}
	return nil
}

func (a Answer) Clone() Answer {
	c := a
	if a.UserVote != nil {
		v := *a.UserVote
		c.UserVote = &v
	}
	return c
}

func (a Answer) Voted() bool {
	return a.UserVote != nil
}
