package domain

import "context"

// RemoteStore is the contract the core needs from the remote data service.
// Every call carries the acting-session credential; how is up to the
// implementation.
type RemoteStore interface {
	ListRooms(ctx context.Context) ([]Room, error)
	SearchRooms(ctx context.Context, filter SearchFilter) ([]Room, error)
	GetRoom(ctx context.Context, id int64) (Room, error)
	CreateRoom(ctx context.Context, params CreateRoomParams) (string, error)

	ListAnswers(ctx context.Context, roomID int64) ([]Answer, error)
	PostAnswer(ctx context.Context, roomID int64, message string, userID int64) error
	DeleteAnswer(ctx context.Context, answerID int64) error

	ListVotes(ctx context.Context, answerID int64) ([]Vote, error)
	// InsertVote fails with ErrDuplicateVote if the pair already exists.
	InsertVote(ctx context.Context, userID, answerID int64) error
	// DeleteVote fails with ErrNoActiveVote if the pair does not exist.
	DeleteVote(ctx context.Context, userID, answerID int64) error

	GetSession(ctx context.Context) (Session, error)
	// Register creates an account without logging it in. A taken username
	// fails with ErrConflict.
	Register(ctx context.Context, creds Credentials) error
	Login(ctx context.Context, creds Credentials) (Session, error)
	Logout(ctx context.Context) error
}
