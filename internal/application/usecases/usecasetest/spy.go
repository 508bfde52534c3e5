// Package usecasetest holds fakes shared by the use-case tests.
package usecasetest

import (
	"context"
	"errors"
	"sync"

	"github.com/hilthontt/forum/internal/domain"
)

// ErrTransport stands in for a network failure.
var ErrTransport = errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")

// Spy wraps a RemoteStore, counts calls per operation and can inject
// failures or run a hook before an operation reaches the store.
type Spy struct {
	domain.RemoteStore

	mu    sync.Mutex
	calls map[string]int
	errs  map[string]error
	hooks map[string]func(ctx context.Context)
}

func NewSpy(store domain.RemoteStore) *Spy {
	return &Spy{
		RemoteStore: store,
		calls:       make(map[string]int),
		errs:        make(map[string]error),
		hooks:       make(map[string]func(ctx context.Context)),
	}
}

func (s *Spy) FailWith(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[op] = err
}

func (s *Spy) Heal(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errs, op)
}

// Before runs fn every time op is called, before the store sees it.
func (s *Spy) Before(op string, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		delete(s.hooks, op)
		return
	}
	s.hooks[op] = fn
}

func (s *Spy) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Spy) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *Spy) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[string]int)
}

func (s *Spy) enter(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls[op]++
	hook := s.hooks[op]
	err := s.errs[op]
	s.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	return err
}

func (s *Spy) ListRooms(ctx context.Context) ([]domain.Room, error) {
	if err := s.enter(ctx, "ListRooms"); err != nil {
		return nil, err
	}
	return s.RemoteStore.ListRooms(ctx)
}

func (s *Spy) SearchRooms(ctx context.Context, filter domain.SearchFilter) ([]domain.Room, error) {
	if err := s.enter(ctx, "SearchRooms"); err != nil {
		return nil, err
	}
	return s.RemoteStore.SearchRooms(ctx, filter)
}

func (s *Spy) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	if err := s.enter(ctx, "GetRoom"); err != nil {
		return domain.Room{}, err
	}
	return s.RemoteStore.GetRoom(ctx, id)
}

func (s *Spy) CreateRoom(ctx context.Context, params domain.CreateRoomParams) (string, error) {
	if err := s.enter(ctx, "CreateRoom"); err != nil {
		return "", err
	}
	return s.RemoteStore.CreateRoom(ctx, params)
}

func (s *Spy) ListAnswers(ctx context.Context, roomID int64) ([]domain.Answer, error) {
	if err := s.enter(ctx, "ListAnswers"); err != nil {
		return nil, err
	}
	return s.RemoteStore.ListAnswers(ctx, roomID)
}

func (s *Spy) PostAnswer(ctx context.Context, roomID int64, message string, userID int64) error {
	if err := s.enter(ctx, "PostAnswer"); err != nil {
		return err
	}
	return s.RemoteStore.PostAnswer(ctx, roomID, message, userID)
}

func (s *Spy) DeleteAnswer(ctx context.Context, answerID int64) error {
	if err := s.enter(ctx, "DeleteAnswer"); err != nil {
		return err
	}
	return s.RemoteStore.DeleteAnswer(ctx, answerID)
}

func (s *Spy) ListVotes(ctx context.Context, answerID int64) ([]domain.Vote, error) {
	if err := s.enter(ctx, "ListVotes"); err != nil {
		return nil, err
	}
	return s.RemoteStore.ListVotes(ctx, answerID)
}

func (s *Spy) InsertVote(ctx context.Context, userID, answerID int64) error {
	if err := s.enter(ctx, "InsertVote"); err != nil {
		return err
	}
	return s.RemoteStore.InsertVote(ctx, userID, answerID)
}

func (s *Spy) DeleteVote(ctx context.Context, userID, answerID int64) error {
	if err := s.enter(ctx, "DeleteVote"); err != nil {
		return err
	}
	return s.RemoteStore.DeleteVote(ctx, userID, answerID)
}

func (s *Spy) GetSession(ctx context.Context) (domain.Session, error) {
	if err := s.enter(ctx, "GetSession"); err != nil {
		return domain.Session{}, err
	}
	return s.RemoteStore.GetSession(ctx)
}

func (s *Spy) Register(ctx context.Context, creds domain.Credentials) error {
	if err := s.enter(ctx, "Register"); err != nil {
		return err
	}
	return s.RemoteStore.Register(ctx, creds)
}

func (s *Spy) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	if err := s.enter(ctx, "Login"); err != nil {
		return domain.Session{}, err
	}
	return s.RemoteStore.Login(ctx, creds)
}

func (s *Spy) Logout(ctx context.Context) error {
	if err := s.enter(ctx, "Logout"); err != nil {
		return err
	}
	return s.RemoteStore.Logout(ctx)
}
