// Package votes keeps the acting user's upvotes consistent between the
// open snapshot and the store. The store is the final arbiter.
package votes

import (
	"context"
	"errors"
	"fmt"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/logging"
	"github.com/hilthontt/forum/internal/infrastructure/metrics"
	"github.com/hilthontt/forum/internal/infrastructure/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	OpUp   = "up"
	OpDown = "down"
)

type Store interface {
	InsertVote(ctx context.Context, userID, answerID int64) error
	DeleteVote(ctx context.Context, userID, answerID int64) error
}

// Snapshot is the open room the engine reads state from and writes
// optimistic results into.
type Snapshot interface {
	Answer(answerID int64) (domain.Answer, bool)
	Apply(roomID int64, fn func(domain.Room) domain.Room) bool
}

// VoteRejectedError is returned when the store refuses a vote change. The
// snapshot is left as it was.
type VoteRejectedError struct {
	Op       string
	AnswerID int64
	Err      error
}

func (e *VoteRejectedError) Error() string {
	return fmt.Sprintf("vote %s on answer %d rejected: %v", e.Op, e.AnswerID, e.Err)
}

func (e *VoteRejectedError) Unwrap() error {
	return e.Err
}

// RefreshRecommended reports whether the local state disagreed with the
// store and should be reloaded.
func (e *VoteRejectedError) RefreshRecommended() bool {
	return errors.Is(e.Err, domain.ErrConflict) || errors.Is(e.Err, domain.ErrNotFound)
}

type Engine struct {
	store    Store
	identity Identity
	snapshot Snapshot
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func NewEngine(store Store, identity Identity, snapshot Snapshot, logger logging.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		store:    store,
		identity: identity,
		snapshot: snapshot,
		logger:   logger,
		metrics:  m,
	}
}

// VoteUp upvotes answerID as the acting user. An answer already voted
// fails with domain.ErrDuplicateVote before any remote call.
func (e *Engine) VoteUp(ctx context.Context, answerID int64) error {
	return e.run(ctx, OpUp, answerID)
}

// VoteDown retracts the acting user's upvote. Without one it fails with
// domain.ErrNoActiveVote before any remote call.
func (e *Engine) VoteDown(ctx context.Context, answerID int64) error {
	return e.run(ctx, OpDown, answerID)
}

func (e *Engine) run(ctx context.Context, op string, answerID int64) (err error) {
	ctx, span := tracing.Start(ctx, "votes."+op)
	defer func() { tracing.End(span, err) }()
	span.SetAttributes(attribute.Int64("forum.answer_id", answerID))

	userID, ok := e.identity.CurrentUserID()
	if !ok {
		e.metrics.VoteOperation(op, "precondition")
		return domain.ErrNotLoggedIn
	}
	answer, ok := e.snapshot.Answer(answerID)
	if !ok {
		e.metrics.VoteOperation(op, "precondition")
		return fmt.Errorf("answer %d: %w in the open room", answerID, domain.ErrNotFound)
	}

	plan, remote, apply := PlanUp, e.store.InsertVote, func(a domain.Answer) domain.Answer { return ApplyUp(a, userID) }
	if op == OpDown {
		plan, remote, apply = PlanDown, e.store.DeleteVote, ApplyDown
	}

	if err := plan(answer); err != nil {
		e.metrics.VoteOperation(op, "precondition")
		return err
	}

	if err := remote(ctx, userID, answerID); err != nil {
		e.metrics.VoteOperation(op, "rejected")
		e.logger.Warn(logging.Sync, logging.Votes, "vote rejected by the store", map[logging.ExtraKey]any{
			logging.AnswerID:     answerID,
			logging.UserID:       userID,
			logging.ErrorMessage: err.Error(),
		})
		return &VoteRejectedError{Op: op, AnswerID: answerID, Err: domain.AsRemote(err)}
	}

	e.snapshot.Apply(answer.RoomID, func(r domain.Room) domain.Room {
		if i := r.FindAnswer(answerID); i >= 0 {
			r.Answers[i] = apply(r.Answers[i])
		}
		return r
	})
	e.metrics.VoteOperation(op, "ok")
	e.logger.Debug(logging.Sync, logging.Votes, "vote applied", map[logging.ExtraKey]any{
		logging.AnswerID: answerID,
		logging.UserID:   userID,
	})
	return nil
}
