package repository

import (
	"context"
	"strings"

	"github.com/hilthontt/forum/internal/domain"
)

// Store is an in-process domain.RemoteStore. It backs the offline mode of
// the client and the use-case tests, and enforces the same rules as the
// forum server: one vote per (user, answer) and a logged-in session for
// every mutation.
type Store struct {
	rooms    *roomRepository
	answers  *answerRepository
	votes    *voteRepository
	sessions *sessionRepository
}

var _ domain.RemoteStore = (*Store)(nil)

func NewStore(answerCapacity uint) *Store {
	return &Store{
		rooms:    newRoomRepository(),
		answers:  newAnswerRepository(answerCapacity),
		votes:    newVoteRepository(),
		sessions: newSessionRepository(),
	}
}

// AddUser creates an account and returns its user id.
func (s *Store) AddUser(username, password string) (int64, error) {
	return s.sessions.Register(username, password)
}

// Register creates an account. The current session is left alone.
func (s *Store) Register(ctx context.Context, creds domain.Credentials) error {
	if err := ctx.Err(); err != nil {
		return domain.AsRemote(err)
	}
	_, err := s.sessions.Register(creds.Username, creds.Password)
	return err
}

func (s *Store) actingUser(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.AsRemote(err)
	}
	id, ok := s.sessions.Current().ActingUserID()
	if !ok {
		return 0, domain.ErrAuth
	}
	return id, nil
}

func (s *Store) actAs(ctx context.Context, userID int64) error {
	acting, err := s.actingUser(ctx)
	if err != nil {
		return err
	}
	if acting != userID {
		return domain.ErrAuth
	}
	return nil
}

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.AsRemote(err)
	}
	return s.rooms.List(), nil
}

func (s *Store) SearchRooms(ctx context.Context, filter domain.SearchFilter) ([]domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.AsRemote(err)
	}
	return s.rooms.Search(filter)
}

func (s *Store) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return domain.Room{}, domain.AsRemote(err)
	}
	return s.rooms.GetByID(id)
}

func (s *Store) CreateRoom(ctx context.Context, params domain.CreateRoomParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	if err := s.actAs(ctx, params.CreatorID); err != nil {
		return "", err
	}

	name, _ := s.sessions.Username(params.CreatorID)
	if _, err := s.rooms.Create(params, name); err != nil {
		return "", err
	}
	return "Topic created", nil
}

func (s *Store) ListAnswers(ctx context.Context, roomID int64) ([]domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.AsRemote(err)
	}
	if !s.rooms.Exists(roomID) {
		return nil, domain.ErrNotFound
	}
	return s.answers.GetByRoomID(roomID), nil
}

func (s *Store) PostAnswer(ctx context.Context, roomID int64, message string, userID int64) error {
	if strings.TrimSpace(message) == "" {
		return domain.NewValidationError("message", "must not be empty")
	}
	if err := s.actAs(ctx, userID); err != nil {
		return err
	}
	if !s.rooms.Exists(roomID) {
		return domain.ErrNotFound
	}

	name, _ := s.sessions.Username(userID)
	_, evicted := s.answers.Create(roomID, message, userID, name)
	if len(evicted) > 0 {
		s.votes.DeleteByAnswer(evicted...)
	}
	return nil
}

func (s *Store) DeleteAnswer(ctx context.Context, answerID int64) error {
	if _, err := s.actingUser(ctx); err != nil {
		return err
	}
	if _, err := s.answers.Delete(answerID); err != nil {
		return err
	}
	s.votes.DeleteByAnswer(answerID)
	return nil
}

func (s *Store) ListVotes(ctx context.Context, answerID int64) ([]domain.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.AsRemote(err)
	}
	if !s.answers.Exists(answerID) {
		return nil, domain.ErrNotFound
	}
	return s.votes.GetByAnswerID(answerID), nil
}

func (s *Store) InsertVote(ctx context.Context, userID, answerID int64) error {
	if err := s.actAs(ctx, userID); err != nil {
		return err
	}
	if !s.answers.Exists(answerID) {
		return domain.ErrNotFound
	}
	return s.votes.Insert(domain.Vote{UserID: userID, AnswerID: answerID})
}

func (s *Store) DeleteVote(ctx context.Context, userID, answerID int64) error {
	if err := s.actAs(ctx, userID); err != nil {
		return err
	}
	return s.votes.Delete(domain.Vote{UserID: userID, AnswerID: answerID})
}

func (s *Store) GetSession(ctx context.Context) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, domain.AsRemote(err)
	}
	return s.sessions.Current(), nil
}

func (s *Store) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, domain.AsRemote(err)
	}
	return s.sessions.Login(creds)
}

func (s *Store) Logout(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return domain.AsRemote(err)
	}
	s.sessions.Logout()
	return nil
}
