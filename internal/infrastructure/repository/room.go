package repository

import (
	"strings"
	"sync"

	"github.com/hilthontt/forum/internal/domain"
)

type roomRepository struct {
	rooms  map[int64]*domain.Room // ID -> Room
	order  []int64                // creation order
	nextID int64
	mu     *sync.RWMutex
}

func newRoomRepository() *roomRepository {
	return &roomRepository{
		rooms: make(map[int64]*domain.Room),
		mu:    &sync.RWMutex{},
	}
}

func (r *roomRepository) Create(params domain.CreateRoomParams, creatorName string) (domain.Room, error) {
	if err := params.Validate(); err != nil {
		return domain.Room{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	room := &domain.Room{
		ID:          r.nextID,
		Title:       strings.TrimSpace(params.Title),
		Message:     params.Message,
		CreatorID:   params.CreatorID,
		CreatorName: creatorName,
	}
	r.rooms[room.ID] = room
	r.order = append(r.order, room.ID)

	return *room, nil
}

// GetByID returns a copy of the room.
func (r *roomRepository) GetByID(id int64) (domain.Room, error) {
	if id <= 0 {
		return domain.Room{}, domain.NewValidationError("id", "must be positive")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[id]
	if !exists {
		return domain.Room{}, domain.ErrNotFound
	}
	return room.Clone(), nil
}

func (r *roomRepository) Exists(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.rooms[id]
	return exists
}

// List returns copies in creation order.
func (r *roomRepository) List() []domain.Room {
	return r.filter(func(*domain.Room) bool { return true })
}

// Search matches keywords against title and message and users against the
// creator name, both case-insensitively.
func (r *roomRepository) Search(filter domain.SearchFilter) ([]domain.Room, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	switch filter.Type {
	case domain.SearchByUser:
		return r.filter(func(room *domain.Room) bool {
			return strings.ToLower(room.CreatorName) == query
		}), nil
	default:
		return r.filter(func(room *domain.Room) bool {
			return strings.Contains(strings.ToLower(room.Title), query) ||
				strings.Contains(strings.ToLower(room.Message), query)
		}), nil
	}
}

func (r *roomRepository) filter(keep func(*domain.Room) bool) []domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Room, 0, len(r.order))
	for _, id := range r.order {
		room := r.rooms[id]
		if keep(room) {
			out = append(out, room.Clone())
		}
	}
	return out
}
