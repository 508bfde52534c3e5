package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/forum/internal/infrastructure/logging"
)

var ErrFeedClosed = errors.New("live feed closed")

// InvalidateFunc is called from the watch goroutine for every event that
// makes a room's snapshot stale.
type InvalidateFunc func(roomID int64)

type Options struct {
	BaseURL          string
	HandshakeTimeout time.Duration
	// Jar carries the session cookie into the handshake.
	Jar          http.CookieJar
	Logger       logging.Logger
	OnInvalidate InvalidateFunc
}

// Feed dials per-room event streams on the forum server.
type Feed struct {
	baseURL      *url.URL
	dialer       *websocket.Dialer
	logger       logging.Logger
	onInvalidate InvalidateFunc

	mu      sync.Mutex
	watches map[*Watch]struct{}
	closed  bool
}

func NewFeed(opts Options) (*Feed, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse live feed base url: %w", err)
	}

	// Convert http(s) to ws(s)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported live feed scheme %q", u.Scheme)
	}

	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.OnInvalidate == nil {
		opts.OnInvalidate = func(int64) {}
	}

	return &Feed{
		baseURL: u,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
			Jar:              opts.Jar,
		},
		logger:       opts.Logger,
		onInvalidate: opts.OnInvalidate,
		watches:      make(map[*Watch]struct{}),
	}, nil
}

func (f *Feed) eventsURL(roomID int64) string {
	u := *f.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + fmt.Sprintf("/rooms/%d/events", roomID)
	return u.String()
}

// Watch opens the event stream of one room. The returned handle must be
// closed when the room view goes away.
func (f *Feed) Watch(ctx context.Context, roomID int64) (*Watch, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, ErrFeedClosed
	}

	conn, resp, err := f.dialer.DialContext(ctx, f.eventsURL(roomID), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial live feed for room %d: %w", roomID, err)
	}

	w := &Watch{
		roomID: roomID,
		conn:   newConnWrapper(conn),
		feed:   f,
		done:   make(chan struct{}),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		w.conn.Close()
		return nil, ErrFeedClosed
	}
	f.watches[w] = struct{}{}
	f.mu.Unlock()

	f.logger.Info(logging.Live, logging.Detail, "watching room events", map[logging.ExtraKey]any{
		logging.RoomID: roomID,
	})

	go w.listen()
	return w, nil
}

func (f *Feed) forget(w *Watch) {
	f.mu.Lock()
	delete(f.watches, w)
	f.mu.Unlock()
}

// Active returns the number of open watches.
func (f *Feed) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watches)
}

// Close closes every open watch. Later calls to Watch fail.
func (f *Feed) Close() error {
	f.mu.Lock()
	f.closed = true
	watches := make([]*Watch, 0, len(f.watches))
	for w := range f.watches {
		watches = append(watches, w)
	}
	f.mu.Unlock()

	var errs []error
	for _, w := range watches {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Watch struct {
	roomID int64
	conn   *connWrapper
	feed   *Feed

	closeOnce sync.Once
	mu        sync.Mutex
	closing   bool
	done      chan struct{}
}

func (w *Watch) RoomID() int64 {
	return w.roomID
}

// Done is closed once the watch stopped listening.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

func (w *Watch) listen() {
	defer close(w.done)
	defer w.feed.forget(w)
	defer w.conn.Close()

	for {
		var msg WSMessage
		if err := w.conn.ReadJSON(&msg); err != nil {
			w.mu.Lock()
			closing := w.closing
			w.mu.Unlock()

			if !closing && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.feed.logger.Warn(logging.Live, logging.Detail, "room event stream dropped", map[logging.ExtraKey]any{
					logging.RoomID:       w.roomID,
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		if msg.RoomID != 0 && msg.RoomID != w.roomID {
			continue
		}
		if !msg.Invalidates() {
			w.feed.logger.Debug(logging.Live, logging.Detail, "ignoring room event", map[logging.ExtraKey]any{
				logging.RoomID: w.roomID,
				"Type":         msg.Type,
			})
			continue
		}
		w.feed.onInvalidate(w.roomID)
	}
}

// Close stops the watch and waits for its goroutine. Safe to call twice,
// but not from the InvalidateFunc.
func (w *Watch) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closing = true
		w.mu.Unlock()

		_ = w.conn.WriteClose()
		err = w.conn.Close()
		<-w.done
	})
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
