package domain

import "strings"

type Room struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Message      string   `json:"message"`
	CreatorID    int64    `json:"creatorId"`
	CreatorName  string   `json:"creatorName"`
	Answers      []Answer `json:"answers,omitempty"`
	AnswersCount int      `json:"answersCount"`
}

func (r Room) Validate() error {
	if r.ID <= 0 {
		return NewValidationError("room.id", "must be positive")
	}
	return nil
}

// Clone returns a deep copy. Published snapshots are never shared with the
// caller that produced them.
func (r Room) Clone() Room {
	c := r
	if r.Answers != nil {
		c.Answers = make([]Answer, len(r.Answers))
		for i, a := range r.Answers {
			c.Answers[i] = a.Clone()
		}
	}
	return c
}

// FindAnswer returns the index of the answer with the given id or -1.
func (r Room) FindAnswer(answerID int64) int {
	for i, a := range r.Answers {
		if a.ID == answerID {
			return i
		}
	}
	return -1
}

// Summary is the list form of a room: no answers, only the derived count.
func (r Room) Summary(answersCount int) Room {
	s := r
	s.Answers = nil
	s.AnswersCount = answersCount
	return s
}

func CloneRooms(rooms []Room) []Room {
	if rooms == nil {
		return nil
	}
	out := make([]Room, len(rooms))
	for i, r := range rooms {
		out[i] = r.Clone()
	}
	return out
}

type CreateRoomParams struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	CreatorID int64  `json:"creatorId"`
}

func (p CreateRoomParams) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(p.Message) == "" {
		return NewValidationError("message", "must not be empty")
	}
	if p.CreatorID <= 0 {
		return NewValidationError("creatorId", "must be positive")
	}
	return nil
}
