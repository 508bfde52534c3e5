package repository

import (
	"sync"

	"github.com/hilthontt/forum/internal/domain"
)

// Oldest answers of a room are evicted when capacity is exceeded.
type answerRepository struct {
	answers  map[int64][]domain.Answer // roomID -> []Answer
	roomOf   map[int64]int64           // answerID -> roomID
	capacity uint
	nextID   int64
	mu       *sync.RWMutex
}

func newAnswerRepository(capacity uint) *answerRepository {
	if capacity == 0 {
		capacity = 500
	}
	return &answerRepository{
		answers:  make(map[int64][]domain.Answer),
		roomOf:   make(map[int64]int64),
		capacity: capacity,
		mu:       &sync.RWMutex{},
	}
}

// Create stores a new answer and returns it with its assigned id. Evicted
// answer ids are returned so their votes can be dropped.
func (r *answerRepository) Create(roomID int64, message string, userID int64, username string) (domain.Answer, []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	answer := domain.Answer{
		ID:       r.nextID,
		RoomID:   roomID,
		Message:  message,
		UserID:   userID,
		Username: username,
	}

	roomAnswers := append(r.answers[roomID], answer)
	r.roomOf[answer.ID] = roomID

	var evicted []int64
	if len(roomAnswers) > int(r.capacity) {
		excess := len(roomAnswers) - int(r.capacity)
		for _, a := range roomAnswers[:excess] {
			evicted = append(evicted, a.ID)
			delete(r.roomOf, a.ID)
		}
		roomAnswers = append([]domain.Answer(nil), roomAnswers[excess:]...)
	}
	r.answers[roomID] = roomAnswers

	return answer, evicted
}

// Delete removes an answer, keeping the order of the rest.
func (r *answerRepository) Delete(answerID int64) (domain.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, exists := r.roomOf[answerID]
	if !exists {
		return domain.Answer{}, domain.ErrNotFound
	}

	roomAnswers := r.answers[roomID]
	for i, a := range roomAnswers {
		if a.ID == answerID {
			r.answers[roomID] = append(roomAnswers[:i:i], roomAnswers[i+1:]...)
			delete(r.roomOf, answerID)
			return a, nil
		}
	}
	return domain.Answer{}, domain.ErrNotFound
}

func (r *answerRepository) Exists(answerID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.roomOf[answerID]
	return exists
}

func (r *answerRepository) GetByRoomID(roomID int64) []domain.Answer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomAnswers := r.answers[roomID]
	if len(roomAnswers) == 0 {
		return []domain.Answer{}
	}

	// Return a copy to prevent external mutation
	cpy := make([]domain.Answer, len(roomAnswers))
	copy(cpy, roomAnswers)
	return cpy
}
