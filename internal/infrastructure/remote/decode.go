package remote

import (
	"github.com/hilthontt/forum/internal/domain"
	"github.com/tidwall/gjson"
)

func parseJSON(what string, data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, malformed(what, nil)
	}
	return gjson.ParseBytes(data), nil
}

// firstOf returns the first key present in r. The server is not consistent
// about naming between endpoints.
func firstOf(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func decodeRoom(r gjson.Result) (domain.Room, error) {
	room := domain.Room{
		ID:           r.Get("id").Int(),
		Title:        r.Get("title").String(),
		Message:      r.Get("message").String(),
		CreatorID:    firstOf(r, "creatorId", "userId").Int(),
		CreatorName:  firstOf(r, "creatorName", "username").String(),
		AnswersCount: int(r.Get("answersCount").Int()),
	}
	if err := room.Validate(); err != nil {
		return domain.Room{}, malformed("room", err)
	}
	return room, nil
}

func decodeRooms(data []byte) ([]domain.Room, error) {
	root, err := parseJSON("rooms", data)
	if err != nil {
		return nil, err
	}
	if root.Type == gjson.Null {
		return []domain.Room{}, nil
	}
	if !root.IsArray() {
		return nil, malformed("rooms", nil)
	}

	rooms := make([]domain.Room, 0, len(root.Array()))
	for _, r := range root.Array() {
		room, err := decodeRoom(r)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func decodeAnswers(roomID int64, data []byte) ([]domain.Answer, error) {
	root, err := parseJSON("answers", data)
	if err != nil {
		return nil, err
	}
	if root.Type == gjson.Null {
		return []domain.Answer{}, nil
	}
	if !root.IsArray() {
		return nil, malformed("answers", nil)
	}

	answers := make([]domain.Answer, 0, len(root.Array()))
	for _, r := range root.Array() {
		a := domain.Answer{
			ID:          r.Get("id").Int(),
			RoomID:      r.Get("roomId").Int(),
			Message:     r.Get("message").String(),
			UserID:      r.Get("userId").Int(),
			Username:    r.Get("username").String(),
			VotesLength: int(r.Get("votesLength").Int()),
		}
		if a.RoomID == 0 {
			a.RoomID = roomID
		}
		if err := a.Validate(); err != nil {
			return nil, malformed("answer", err)
		}
		if a.RoomID != roomID {
			return nil, malformed("answer", domain.NewValidationError("answer.roomId", "belongs to another room"))
		}
		answers = append(answers, a)
	}
	return answers, nil
}

// decodeVotes accepts a bare array of votes or an object whose values are
// arrays of votes.
func decodeVotes(answerID int64, data []byte) ([]domain.Vote, error) {
	root, err := parseJSON("votes", data)
	if err != nil {
		return nil, err
	}

	var raw []gjson.Result
	switch {
	case root.Type == gjson.Null:
		return []domain.Vote{}, nil
	case root.IsArray():
		raw = root.Array()
	case root.IsObject():
		var bad bool
		root.ForEach(func(_, value gjson.Result) bool {
			if !value.IsArray() {
				bad = true
				return false
			}
			raw = append(raw, value.Array()...)
			return true
		})
		if bad {
			return nil, malformed("votes", nil)
		}
	default:
		return nil, malformed("votes", nil)
	}

	votes := make([]domain.Vote, 0, len(raw))
	for _, r := range raw {
		v := domain.Vote{
			UserID:   r.Get("userId").Int(),
			AnswerID: r.Get("answerId").Int(),
		}
		if v.AnswerID == 0 {
			v.AnswerID = answerID
		}
		if err := v.Validate(); err != nil {
			return nil, malformed("vote", err)
		}
		if v.AnswerID != answerID {
			continue
		}
		votes = append(votes, v)
	}
	return votes, nil
}

// decodeSession reads {isLoggedIn, username, userId}. Null identity fields
// stay nil. A login response without isLoggedIn counts as logged in when it
// carries a user id.
func decodeSession(data []byte) (domain.Session, error) {
	root, err := parseJSON("session", data)
	if err != nil {
		return domain.Session{}, err
	}
	if !root.IsObject() {
		return domain.Session{}, malformed("session", nil)
	}

	var s domain.Session
	if v := root.Get("username"); v.Exists() && v.Type != gjson.Null {
		name := v.String()
		s.Username = &name
	}
	if v := root.Get("userId"); v.Exists() && v.Type != gjson.Null {
		id := v.Int()
		s.UserID = &id
	}

	if v := root.Get("isLoggedIn"); v.Exists() {
		s.IsLoggedIn = v.Bool()
	} else {
		s.IsLoggedIn = s.UserID != nil
	}
	return s.Normalize(), nil
}

func decodeMessage(data []byte) string {
	if !gjson.ValidBytes(data) {
		return string(data)
	}
	return gjson.GetBytes(data, "message").String()
}
