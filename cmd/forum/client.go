package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/hilthontt/forum/internal/application/usecases/answers"
	"github.com/hilthontt/forum/internal/application/usecases/detail"
	"github.com/hilthontt/forum/internal/application/usecases/directory"
	"github.com/hilthontt/forum/internal/application/usecases/session"
	"github.com/hilthontt/forum/internal/application/usecases/votes"
	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/logging"
	"github.com/hilthontt/forum/internal/infrastructure/ws"
	"github.com/hilthontt/forum/internal/presentation/views"
)

const help = `commands:
  register <user> <password>
  login <user> <password>   logout   whoami
  rooms                     list every room
  search <keyword|user> <q> filter the list on the server
  reset                     clear the search
  newroom <title> | <text>  create a room
  open <id>   refresh   close
  answer <text>             answer the open room
  up <answerId>   down <answerId>   delete <answerId>
  quit`

// client is the interactive command loop. Views are scoped to the command
// that shows them and released before the next prompt.
type client struct {
	console *views.Console
	logger  logging.Logger
	session *session.Broadcaster
	dir     *directory.Directory
	room    *detail.Detail
	votes   *votes.Engine
	answers *answers.Manager
	feed    *ws.Feed

	lines <-chan string

	watchMu sync.Mutex
	watch   *ws.Watch
	// roomView stays attached while a room is open so live refreshes print.
	roomView *views.DetailView
}

func (c *client) loop(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	c.lines = lines

	c.console.Printf("%s\n", help)
	for {
		c.console.Printf("> ")
		line, ok := c.next(ctx)
		if !ok {
			c.console.Printf("\n")
			return
		}
		if quit := c.dispatch(ctx, line); quit {
			return
		}
	}
}

func (c *client) next(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-c.lines:
		return strings.TrimSpace(line), ok
	}
}

func (c *client) dispatch(ctx context.Context, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch strings.ToLower(cmd) {
	case "":
		return false
	case "quit", "exit":
		return true
	case "help":
		c.console.Printf("%s\n", help)
	case "register":
		user, pass, _ := strings.Cut(rest, " ")
		creds := domain.Credentials{Username: user, Password: strings.TrimSpace(pass)}
		if err = c.session.Register(ctx, creds); err == nil {
			c.console.Printf("Registered %s, log in to continue.\n", creds.Username)
		}
	case "login":
		user, pass, _ := strings.Cut(rest, " ")
		err = c.session.Login(ctx, domain.Credentials{Username: user, Password: strings.TrimSpace(pass)})
		if err == nil {
			err = c.room.Refresh(ctx)
			if errors.Is(err, domain.ErrValidation) {
				err = nil
			}
		}
	case "logout":
		err = c.session.Logout(ctx)
		if refreshErr := c.room.Refresh(ctx); err == nil && !errors.Is(refreshErr, domain.ErrValidation) {
			err = refreshErr
		}
	case "whoami":
		c.console.Printf("%s\n", views.SessionLine(c.session.Current()))
	case "rooms":
		err = c.showList(func() error { return c.dir.LoadRooms(ctx) })
	case "search":
		kind, q, _ := strings.Cut(rest, " ")
		err = c.showList(func() error {
			summary, err := c.dir.Search(ctx, q, kind)
			if err == nil {
				c.console.Printf("%d room(s) match %q.\n", summary.Count, summary.Query)
			}
			return err
		})
	case "reset":
		err = c.showList(func() error {
			c.console.Printf("Showing all %d room(s).\n", c.dir.ResetSearch())
			return nil
		})
	case "newroom":
		title, text, _ := strings.Cut(rest, "|")
		var msg string
		msg, err = c.dir.CreateRoom(ctx, strings.TrimSpace(title), strings.TrimSpace(text))
		if msg != "" {
			c.console.Printf("%s\n", msg)
		}
	case "open":
		var id int64
		if id, err = parseID(rest); err == nil {
			err = c.open(ctx, id)
		}
	case "refresh":
		err = c.room.Refresh(ctx)
	case "close":
		c.closeWatch()
		c.room.CloseRoom()
		c.detachRoomView()
	case "answer":
		roomID, _ := c.room.OpenRoomID()
		userID, _ := c.session.CurrentUserID()
		err = c.answers.PostAnswer(ctx, roomID, rest, userID)
	case "up", "down":
		var id int64
		if id, err = parseID(rest); err == nil {
			if strings.EqualFold(cmd, "up") {
				err = c.votes.VoteUp(ctx, id)
			} else {
				err = c.votes.VoteDown(ctx, id)
			}
		}
		var rejected *votes.VoteRejectedError
		if errors.As(err, &rejected) && rejected.RefreshRecommended() {
			c.report(err)
			err = c.room.Refresh(ctx)
		}
	case "delete":
		var id int64
		if id, err = parseID(rest); err == nil {
			err = c.answers.DeleteAnswer(ctx, id, answers.ConfirmFunc(c.confirm))
		}
	default:
		err = fmt.Errorf("%w: unknown command %q, try help", domain.ErrValidation, cmd)
	}

	c.report(err)
	return false
}

// showList runs fn and then prints the list through a view scoped to this
// command.
func (c *client) showList(fn func() error) error {
	if err := fn(); err != nil {
		return err
	}

	var scope views.Scope
	defer scope.Close()
	lv := views.NewListView(c.console, c.dir)
	scope.Add(lv.Close)
	return nil
}

func (c *client) open(ctx context.Context, roomID int64) error {
	c.detachRoomView()
	if err := c.room.Open(ctx, roomID); err != nil {
		if _, ok := c.room.OpenRoomID(); ok {
			c.attachRoomView()
		}
		return err
	}
	c.attachRoomView()

	c.closeWatch()
	if c.feed == nil {
		return nil
	}
	w, err := c.feed.Watch(ctx, roomID)
	if err != nil {
		c.logger.Warn(logging.Live, logging.Detail, "live updates unavailable, use refresh", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
		return nil
	}
	c.watchMu.Lock()
	c.watch = w
	c.watchMu.Unlock()
	return nil
}

func (c *client) attachRoomView() {
	c.roomView = views.NewDetailView(c.console, c.room)
}

func (c *client) detachRoomView() {
	if c.roomView != nil {
		c.roomView.Close()
		c.roomView = nil
	}
}

func (c *client) closeWatch() {
	c.watchMu.Lock()
	w := c.watch
	c.watch = nil
	c.watchMu.Unlock()

	if w != nil {
		_ = w.Close()
	}
}

// invalidate runs on the feed's goroutine.
func (c *client) invalidate(ctx context.Context, roomID int64) {
	if err := c.room.RefreshRoom(ctx, roomID); err != nil {
		c.logger.Warn(logging.Live, logging.Detail, "live refresh failed", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
	}
}

func (c *client) confirm(ctx context.Context, prompt string) (bool, error) {
	c.console.Printf("%s [y/N] ", prompt)
	line, ok := c.next(ctx)
	if !ok {
		return false, domain.ErrCancelled
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (c *client) report(err error) {
	if err == nil {
		return
	}

	var rejected *votes.VoteRejectedError
	switch {
	case errors.Is(err, domain.ErrDuplicateVote):
		c.console.Printf("You have already upvoted this answer.\n")
	case errors.Is(err, domain.ErrNoActiveVote):
		c.console.Printf("You have no upvote on this answer.\n")
	case errors.As(err, &rejected):
		c.console.Printf("Vote rejected: %v\n", rejected.Err)
	case errors.Is(err, domain.ErrNotLoggedIn):
		c.console.Printf("Log in first.\n")
	case errors.Is(err, domain.ErrCancelled):
		c.console.Printf("Cancelled.\n")
	case errors.Is(err, domain.ErrConflict):
		c.console.Printf("Rejected: %v\n", err)
	case errors.Is(err, domain.ErrAuth):
		c.console.Printf("Login failed: %v\n", err)
	case errors.Is(err, domain.ErrRemoteUnavailable):
		c.console.Printf("Server unavailable, showing cached data: %v\n", err)
	default:
		c.console.Printf("error: %v\n", err)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "must be a positive number")
	}
	return id, nil
}
