package health

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hilthontt/forum/internal/infrastructure/json"
)

type Handler struct {
	started time.Time
	healthy atomic.Bool
}

func NewHandler() *Handler {
	h := &Handler{started: time.Now()}
	h.healthy.Store(true)
	return h
}

// SetHealthy flips the reported status. The client marks itself unhealthy
// once shutdown begins.
func (h *Handler) SetHealthy(ok bool) {
	h.healthy.Store(ok)
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}
	if !h.healthy.Load() {
		resp.Status = "unhealthy"
		json.Write(w, http.StatusServiceUnavailable, resp)
		return
	}
	json.Write(w, http.StatusOK, resp)
}
