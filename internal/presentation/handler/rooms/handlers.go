package rooms

import (
	"net/http"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/json"
)

type Directory interface {
	Rooms() []domain.Room
	Filter() (domain.SearchFilter, bool)
}

type Detail interface {
	Current() (domain.Room, bool)
}

// Handler exposes what the client currently displays. It never calls the
// remote store.
type Handler struct {
	directory Directory
	detail    Detail
}

func NewHandler(directory Directory, detail Detail) *Handler {
	return &Handler{directory: directory, detail: detail}
}

func (h *Handler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms := h.directory.Rooms()
	resp := listResponse{Rooms: make([]roomResponse, 0, len(rooms))}
	for _, room := range rooms {
		resp.Rooms = append(resp.Rooms, toRoomResponse(room))
	}
	if f, ok := h.directory.Filter(); ok {
		resp.Filter = &filterResponse{Query: f.Query, Type: string(f.Type)}
	}
	json.Write(w, http.StatusOK, resp)
}

func (h *Handler) GetOpenRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, ok := h.detail.Current()
	if !ok {
		json.WriteNotFoundError(w, "No room is open")
		return
	}

	resp := toRoomResponse(room)
	resp.Answers = make([]answerResponse, 0, len(room.Answers))
	for _, a := range room.Answers {
		resp.Answers = append(resp.Answers, answerResponse{
			ID:          a.ID,
			Message:     a.Message,
			Username:    a.Username,
			VotesLength: a.VotesLength,
			Voted:       a.Voted(),
		})
	}
	json.Write(w, http.StatusOK, resp)
}

func toRoomResponse(room domain.Room) roomResponse {
	return roomResponse{
		ID:           room.ID,
		Title:        room.Title,
		Message:      room.Message,
		CreatorName:  room.CreatorName,
		AnswersCount: room.AnswersCount,
	}
}
