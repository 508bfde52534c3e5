package ws

import "encoding/json"

const (
	AnswerCreatedEvent = "answer.created"
	AnswerDeletedEvent = "answer.deleted"

	VoteAddedEvent   = "vote.added"
	VoteRemovedEvent = "vote.removed"

	RoomUpdatedEvent = "room.updated"
)

type WSMessage struct {
	Type   string          `json:"type"`
	RoomID int64           `json:"roomId"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Invalidates reports whether the event means the room's published
// snapshot is out of date.
func (m WSMessage) Invalidates() bool {
	switch m.Type {
	case AnswerCreatedEvent, AnswerDeletedEvent, VoteAddedEvent, VoteRemovedEvent, RoomUpdatedEvent:
		return true
	}
	return false
}
