// Package directory keeps the room list: a master cache of every room and
// the filtered view that is actually displayed.
package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/broadcast"
	"github.com/hilthontt/forum/internal/infrastructure/logging"
	"github.com/hilthontt/forum/internal/infrastructure/metrics"
	"github.com/hilthontt/forum/internal/infrastructure/tracing"
	"github.com/hilthontt/forum/internal/infrastructure/validate"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const ChannelName = "rooms"

type Store interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	SearchRooms(ctx context.Context, filter domain.SearchFilter) ([]domain.Room, error)
	ListAnswers(ctx context.Context, roomID int64) ([]domain.Answer, error)
	CreateRoom(ctx context.Context, params domain.CreateRoomParams) (string, error)
}

// Identity supplies the acting user for CreateRoom.
type Identity interface {
	CurrentUserID() (int64, bool)
}

type Options struct {
	// FetchConcurrency bounds the per-room answer count fetches.
	FetchConcurrency int
	Metrics          *metrics.Metrics
}

var (
	validateTitle   = validate.Field("title", validate.Required(), validate.MaxLength(200))
	validateMessage = validate.Field("message", validate.Required(), validate.MaxLength(5000))
	validateQuery   = validate.Field("query", validate.Required(), validate.MaxLength(200))
	validateType    = validate.Field("type", validate.OneOf(string(domain.SearchByKeyword), string(domain.SearchByUser)))
)

type SearchSummary struct {
	Query string
	Type  domain.SearchType
	Count int
}

type Directory struct {
	store    Store
	identity Identity
	logger   logging.Logger
	metrics  *metrics.Metrics
	limit    int

	view *broadcast.Channel[[]domain.Room]

	// pubMu makes deciding and publishing a view one step.
	pubMu     sync.Mutex
	mu        sync.Mutex
	master    []domain.Room
	filter    *domain.SearchFilter
	seq       uint64 // last issued operation
	masterSeq uint64 // operation that last replaced master
	viewSeq   uint64 // operation that last replaced the view
}

func New(store Store, identity Identity, logger logging.Logger, opts Options) *Directory {
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 4
	}
	return &Directory{
		store:    store,
		identity: identity,
		logger:   logger,
		metrics:  opts.Metrics,
		limit:    opts.FetchConcurrency,
		view:     broadcast.New[[]domain.Room](ChannelName, broadcast.WithPublishHook(opts.Metrics.PublishHook)),
	}
}

// commit runs apply under the state lock and publishes the view it returns.
// Listeners must not call back into LoadRooms, Search or ResetSearch.
func (d *Directory) commit(apply func() ([]domain.Room, bool)) bool {
	d.pubMu.Lock()
	defer d.pubMu.Unlock()

	d.mu.Lock()
	view, ok := apply()
	d.mu.Unlock()

	if ok {
		d.view.Publish(view)
	}
	return ok
}

func (d *Directory) next() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	return d.seq
}

// withAnswerCounts fetches the answers of every room concurrently and
// returns list summaries in the original order.
func (d *Directory) withAnswerCounts(ctx context.Context, rooms []domain.Room) ([]domain.Room, error) {
	out := make([]domain.Room, len(rooms))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.limit)
	for i, room := range rooms {
		g.Go(func() error {
			answers, err := d.store.ListAnswers(ctx, room.ID)
			if err != nil {
				return fmt.Errorf("count answers of room %d: %w", room.ID, err)
			}
			out[i] = room.Summary(len(answers))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadRooms refreshes the master cache and resets the view to it. On
// failure nothing changes. An empty list is a valid result.
func (d *Directory) LoadRooms(ctx context.Context) (err error) {
	ctx, span := tracing.Start(ctx, "directory.LoadRooms")
	defer func() { tracing.End(span, err) }()

	seq := d.next()

	rooms, err := d.store.ListRooms(ctx)
	if err != nil {
		return d.fail("load rooms", err)
	}
	rooms, err = d.withAnswerCounts(ctx, rooms)
	if err != nil {
		return d.fail("load rooms", err)
	}
	span.SetAttributes(attribute.Int("forum.rooms", len(rooms)))

	published := d.commit(func() ([]domain.Room, bool) {
		if seq > d.masterSeq {
			d.master = rooms
			d.masterSeq = seq
		}
		if seq <= d.viewSeq {
			return nil, false
		}
		d.viewSeq = seq
		d.filter = nil
		return domain.CloneRooms(rooms), true
	})
	if !published {
		d.metrics.StaleDiscard(ChannelName)
		return nil
	}
	d.logger.Debug(logging.Sync, logging.Directory, "rooms loaded", map[logging.ExtraKey]any{
		logging.Count: len(rooms),
	})
	return nil
}

// Search replaces only the view with the server's matches. The master
// cache is untouched.
func (d *Directory) Search(ctx context.Context, query string, searchType string) (summary SearchSummary, err error) {
	ctx, span := tracing.Start(ctx, "directory.Search")
	defer func() { tracing.End(span, err) }()

	query = strings.TrimSpace(query)
	if err := validateQuery(query); err != nil {
		return SearchSummary{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	searchType = strings.ToLower(strings.TrimSpace(searchType))
	if err := validateType(searchType); err != nil {
		return SearchSummary{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	filter := domain.SearchFilter{Query: query, Type: domain.SearchType(searchType)}

	seq := d.next()

	rooms, err := d.store.SearchRooms(ctx, filter)
	if err != nil {
		return SearchSummary{}, d.fail("search rooms", err)
	}
	rooms, err = d.withAnswerCounts(ctx, rooms)
	if err != nil {
		return SearchSummary{}, d.fail("search rooms", err)
	}

	summary = SearchSummary{Query: filter.Query, Type: filter.Type, Count: len(rooms)}

	published := d.commit(func() ([]domain.Room, bool) {
		if seq <= d.viewSeq {
			return nil, false
		}
		d.viewSeq = seq
		d.filter = &filter
		return rooms, true
	})
	if !published {
		d.metrics.StaleDiscard(ChannelName)
		return summary, nil
	}
	d.logger.Debug(logging.Sync, logging.Directory, "search applied", map[logging.ExtraKey]any{
		logging.Query: filter.Query,
		logging.Count: len(rooms),
	})
	return summary, nil
}

// ResetSearch restores the view to the master cache and clears the query.
// It returns the number of rooms restored.
func (d *Directory) ResetSearch() int {
	seq := d.next()

	var count int
	d.commit(func() ([]domain.Room, bool) {
		d.viewSeq = seq
		d.filter = nil
		view := domain.CloneRooms(d.master)
		if view == nil {
			view = []domain.Room{}
		}
		count = len(view)
		return view, true
	})
	return count
}

// CreateRoom posts a new room as the current user and reloads the list.
// The server's confirmation message is returned even if the reload fails.
func (d *Directory) CreateRoom(ctx context.Context, title, message string) (msg string, err error) {
	ctx, span := tracing.Start(ctx, "directory.CreateRoom")
	defer func() { tracing.End(span, err) }()

	if err := validateTitle(title); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err := validateMessage(message); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	userID, ok := d.identity.CurrentUserID()
	if !ok {
		return "", domain.ErrNotLoggedIn
	}

	msg, err = d.store.CreateRoom(ctx, domain.CreateRoomParams{
		Title:     strings.TrimSpace(title),
		Message:   message,
		CreatorID: userID,
	})
	if err != nil {
		return "", fmt.Errorf("create room: %w", domain.AsRemote(err))
	}

	if err := d.LoadRooms(ctx); err != nil {
		return msg, fmt.Errorf("room created, reload failed: %w", err)
	}
	return msg, nil
}

func (d *Directory) fail(op string, err error) error {
	d.logger.Warn(logging.Sync, logging.Directory, op+" failed, keeping the current view", map[logging.ExtraKey]any{
		logging.ErrorMessage: err.Error(),
	})
	return fmt.Errorf("%s: %w", op, domain.AsRemote(err))
}

// Rooms is the displayed view.
func (d *Directory) Rooms() []domain.Room {
	v, _ := d.view.Value()
	return domain.CloneRooms(v)
}

// Master is the unfiltered cache from the last successful LoadRooms.
func (d *Directory) Master() []domain.Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	return domain.CloneRooms(d.master)
}

// Filter returns the search that produced the current view, if any.
func (d *Directory) Filter() (domain.SearchFilter, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.filter == nil {
		return domain.SearchFilter{}, false
	}
	return *d.filter, true
}

// Subscribe observes the displayed view. Listeners must treat the slice as
// read-only.
func (d *Directory) Subscribe(fn broadcast.Listener[[]domain.Room]) *broadcast.Subscription[[]domain.Room] {
	return d.view.Subscribe(fn)
}

func (d *Directory) Close() {
	d.view.Close()
}
