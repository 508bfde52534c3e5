package session

import (
	"net/http"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/json"
)

type Reader interface {
	Current() domain.Session
}

type Handler struct {
	session Reader
}

func NewHandler(session Reader) *Handler {
	return &Handler{session: session}
}

func (h *Handler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	s := h.session.Current()
	resp := sessionResponse{IsLoggedIn: s.IsLoggedIn}
	if id, ok := s.ActingUserID(); ok {
		resp.UserID = id
	}
	if name, ok := s.Name(); ok {
		resp.Username = name
	}
	json.Write(w, http.StatusOK, resp)
}

type sessionResponse struct {
	IsLoggedIn bool   `json:"isLoggedIn"`
	UserID     int64  `json:"userId,omitempty"`
	Username   string `json:"username,omitempty"`
}
