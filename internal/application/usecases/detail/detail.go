// Package detail owns the snapshot of the open room. Every view showing
// the room subscribes to the same channel and sees the same sequence of
// snapshots.
package detail

import (
	"context"
	"fmt"
	"sync"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/broadcast"
	"github.com/hilthontt/forum/internal/infrastructure/logging"
	"github.com/hilthontt/forum/internal/infrastructure/metrics"
	"github.com/hilthontt/forum/internal/infrastructure/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const ChannelName = "room"

type Store interface {
	GetRoom(ctx context.Context, id int64) (domain.Room, error)
	ListAnswers(ctx context.Context, roomID int64) ([]domain.Answer, error)
}

// Enricher fills in vote data for a freshly listed set of answers.
type Enricher interface {
	Enrich(ctx context.Context, answers []domain.Answer) ([]domain.Answer, error)
}

type Options struct {
	// Enricher is optional. Without one answers keep the counts the store
	// returned.
	Enricher Enricher
	Metrics  *metrics.Metrics
}

// Detail publishes one consistent Room at a time. A zero Room means no
// room is open.
type Detail struct {
	store    Store
	enricher Enricher
	logger   logging.Logger
	metrics  *metrics.Metrics

	ch *broadcast.Channel[domain.Room]

	pubMu  sync.Mutex
	mu     sync.Mutex
	open   int64
	seq    uint64 // last issued load or mutation
	pubSeq uint64 // last one that reached the channel
}

func New(store Store, logger logging.Logger, opts Options) *Detail {
	return &Detail{
		store:    store,
		enricher: opts.Enricher,
		logger:   logger,
		metrics:  opts.Metrics,
		ch:       broadcast.New[domain.Room](ChannelName, broadcast.WithPublishHook(opts.Metrics.PublishHook)),
	}
}

// Open makes roomID the open room and publishes its first snapshot. If the
// load fails the previously open room stays open.
func (d *Detail) Open(ctx context.Context, roomID int64) (err error) {
	ctx, span := tracing.Start(ctx, "detail.Open")
	defer func() { tracing.End(span, err) }()
	span.SetAttributes(attribute.Int64("forum.room_id", roomID))

	if roomID <= 0 {
		return domain.NewValidationError("roomId", "must be positive")
	}

	d.mu.Lock()
	prev := d.open
	d.open = roomID
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	if err := d.load(ctx, roomID, seq); err != nil {
		d.mu.Lock()
		if d.seq == seq && d.open == roomID {
			d.open = prev
		}
		d.mu.Unlock()
		return err
	}
	return nil
}

// Refresh reloads the open room.
func (d *Detail) Refresh(ctx context.Context) (err error) {
	ctx, span := tracing.Start(ctx, "detail.Refresh")
	defer func() { tracing.End(span, err) }()

	d.mu.Lock()
	roomID := d.open
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	if roomID == 0 {
		return fmt.Errorf("%w: no room is open", domain.ErrValidation)
	}
	span.SetAttributes(attribute.Int64("forum.room_id", roomID))
	return d.load(ctx, roomID, seq)
}

// RefreshRoom reloads roomID if it is the open room and does nothing
// otherwise. Invalidation handlers call it with whatever room changed.
func (d *Detail) RefreshRoom(ctx context.Context, roomID int64) error {
	d.mu.Lock()
	open := d.open
	d.mu.Unlock()

	if open == 0 || open != roomID {
		return nil
	}
	return d.Refresh(ctx)
}

// CloseRoom forgets the open room and publishes the zero Room. Loads still
// in flight are discarded.
func (d *Detail) CloseRoom() {
	d.commit(func() (domain.Room, bool) {
		if d.open == 0 {
			return domain.Room{}, false
		}
		d.open = 0
		d.seq++
		d.pubSeq = d.seq
		return domain.Room{}, true
	})
}

func (d *Detail) load(ctx context.Context, roomID int64, seq uint64) error {
	room, err := d.fetch(ctx, roomID)
	if err != nil {
		d.logger.Warn(logging.Sync, logging.Detail, "room load failed, keeping the current snapshot", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.Seq:          seq,
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	published := d.commit(func() (domain.Room, bool) {
		if d.open != roomID || seq <= d.pubSeq {
			return domain.Room{}, false
		}
		d.pubSeq = seq
		return room, true
	})
	if !published {
		d.metrics.StaleDiscard(ChannelName)
		d.logger.Debug(logging.Sync, logging.Detail, "stale snapshot discarded", map[logging.ExtraKey]any{
			logging.RoomID: roomID,
			logging.Seq:    seq,
		})
		return nil
	}
	d.logger.Debug(logging.Sync, logging.Detail, "room published", map[logging.ExtraKey]any{
		logging.RoomID: roomID,
		logging.Seq:    seq,
		logging.Count:  len(room.Answers),
	})
	return nil
}

// fetch assembles a full snapshot: room, then answers, then votes.
func (d *Detail) fetch(ctx context.Context, roomID int64) (domain.Room, error) {
	room, err := d.store.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, fmt.Errorf("get room %d: %w", roomID, domain.AsRemote(err))
	}
	if room.ID != roomID {
		return domain.Room{}, fmt.Errorf("get room %d: %w: got room %d", roomID, domain.ErrRemoteUnavailable, room.ID)
	}

	answers, err := d.store.ListAnswers(ctx, roomID)
	if err != nil {
		return domain.Room{}, fmt.Errorf("list answers of room %d: %w", roomID, domain.AsRemote(err))
	}
	for _, a := range answers {
		if a.RoomID != roomID {
			return domain.Room{}, fmt.Errorf("list answers of room %d: %w: answer %d belongs to room %d",
				roomID, domain.ErrRemoteUnavailable, a.ID, a.RoomID)
		}
	}

	if d.enricher != nil {
		answers, err = d.enricher.Enrich(ctx, answers)
		if err != nil {
			return domain.Room{}, fmt.Errorf("votes of room %d: %w", roomID, domain.AsRemote(err))
		}
	}
	if answers == nil {
		answers = []domain.Answer{}
	}

	room.Answers = answers
	room.AnswersCount = len(answers)
	return room, nil
}

func (d *Detail) commit(apply func() (domain.Room, bool)) bool {
	d.pubMu.Lock()
	defer d.pubMu.Unlock()

	d.mu.Lock()
	room, ok := apply()
	d.mu.Unlock()

	if ok {
		d.ch.Publish(room)
	}
	return ok
}

// Apply replaces the open snapshot with fn's result. fn receives a private
// copy. Loads started before Apply are discarded since they may not see the
// change. It reports false if roomID is not open or not loaded yet.
func (d *Detail) Apply(roomID int64, fn func(domain.Room) domain.Room) bool {
	return d.commit(func() (domain.Room, bool) {
		cur, ok := d.ch.Value()
		if d.open != roomID || !ok || cur.ID != roomID {
			return domain.Room{}, false
		}
		d.seq++
		d.pubSeq = d.seq
		return fn(cur.Clone()), true
	})
}

// Current returns the snapshot of the open room once it has loaded.
func (d *Detail) Current() (domain.Room, bool) {
	d.mu.Lock()
	open := d.open
	d.mu.Unlock()

	room, ok := d.ch.Value()
	if !ok || open == 0 || room.ID != open {
		return domain.Room{}, false
	}
	return room.Clone(), true
}

func (d *Detail) OpenRoomID() (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open, d.open != 0
}

// Answer looks an answer up in the open snapshot.
func (d *Detail) Answer(answerID int64) (domain.Answer, bool) {
	room, ok := d.Current()
	if !ok {
		return domain.Answer{}, false
	}
	i := room.FindAnswer(answerID)
	if i < 0 {
		return domain.Answer{}, false
	}
	return room.Answers[i], true
}

// Subscribe observes every published snapshot. Listeners must treat the
// room as read-only and release the subscription when their view goes away.
func (d *Detail) Subscribe(fn broadcast.Listener[domain.Room]) *broadcast.Subscription[domain.Room] {
	return d.ch.Subscribe(fn)
}

func (d *Detail) Close() {
	d.ch.Close()
}
