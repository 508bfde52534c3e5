// Package answers posts and deletes answers. New answers are never
// synthesized locally: ids and attribution come from the store on the
// following refresh.
package answers

import (
	"context"
	"fmt"
	"strings"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/logging"
	"github.com/hilthontt/forum/internal/infrastructure/tracing"
	"github.com/hilthontt/forum/internal/infrastructure/validate"
	"go.opentelemetry.io/otel/attribute"
)

const MaxMessageLength = 2000

type Store interface {
	PostAnswer(ctx context.Context, roomID int64, message string, userID int64) error
	DeleteAnswer(ctx context.Context, answerID int64) error
}

// Room is the open room snapshot.
type Room interface {
	RefreshRoom(ctx context.Context, roomID int64) error
	Answer(answerID int64) (domain.Answer, bool)
}

// Confirmer asks the user before something destructive happens.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

var validateMessage = validate.Field("message", validate.Required(), validate.MaxLength(MaxMessageLength))

type Manager struct {
	store  Store
	room   Room
	logger logging.Logger
}

func New(store Store, room Room, logger logging.Logger) *Manager {
	return &Manager{store: store, room: room, logger: logger}
}

// PostAnswer posts message to roomID as userID and refreshes the room.
func (m *Manager) PostAnswer(ctx context.Context, roomID int64, message string, userID int64) (err error) {
	ctx, span := tracing.Start(ctx, "answers.PostAnswer")
	defer func() { tracing.End(span, err) }()
	span.SetAttributes(attribute.Int64("forum.room_id", roomID))

	if err := validateMessage(message); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if roomID <= 0 {
		return domain.NewValidationError("roomId", "must be positive")
	}
	if userID <= 0 {
		return domain.ErrNotLoggedIn
	}

	if err := m.store.PostAnswer(ctx, roomID, strings.TrimSpace(message), userID); err != nil {
		return fmt.Errorf("post answer: %w", domain.AsRemote(err))
	}
	m.logger.Info(logging.Sync, logging.Answers, "answer posted", map[logging.ExtraKey]any{
		logging.RoomID: roomID,
		logging.UserID: userID,
	})

	if err := m.room.RefreshRoom(ctx, roomID); err != nil {
		return fmt.Errorf("answer posted, refresh failed: %w", err)
	}
	return nil
}

// DeleteAnswer deletes an answer of the open room once confirm agrees and
// refreshes that room. A declined confirmation returns domain.ErrCancelled.
func (m *Manager) DeleteAnswer(ctx context.Context, answerID int64, confirm Confirmer) (err error) {
	ctx, span := tracing.Start(ctx, "answers.DeleteAnswer")
	defer func() { tracing.End(span, err) }()
	span.SetAttributes(attribute.Int64("forum.answer_id", answerID))

	answer, ok := m.room.Answer(answerID)
	if !ok {
		return fmt.Errorf("answer %d: %w in the open room", answerID, domain.ErrNotFound)
	}

	yes, err := confirm.Confirm(ctx, fmt.Sprintf("Delete answer %d by %s?", answer.ID, answer.Username))
	if err != nil {
		return fmt.Errorf("confirm delete: %w", err)
	}
	if !yes {
		return domain.ErrCancelled
	}

	if err := m.store.DeleteAnswer(ctx, answerID); err != nil {
		return fmt.Errorf("delete answer: %w", domain.AsRemote(err))
	}
	m.logger.Info(logging.Sync, logging.Answers, "answer deleted", map[logging.ExtraKey]any{
		logging.RoomID:   answer.RoomID,
		logging.AnswerID: answerID,
	})

	if err := m.room.RefreshRoom(ctx, answer.RoomID); err != nil {
		return fmt.Errorf("answer deleted, refresh failed: %w", err)
	}
	return nil
}
