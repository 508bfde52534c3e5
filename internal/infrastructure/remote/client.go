package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"slices"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/remote/option"
	"github.com/hilthontt/forum/internal/infrastructure/remote/requestconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client is the HTTP implementation of domain.RemoteStore. The session
// credential is the cookie the server sets on login, kept in the client's jar.
type Client struct {
	Options []option.RequestOption
	Rooms   *RoomService
	Answers *AnswerService
	Votes   *VoteService
	Session *SessionService
}

var _ domain.RemoteStore = (*Client)(nil)

// NewHTTPClient returns an http.Client with a cookie jar and an
// otel-instrumented transport.
func NewHTTPClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &http.Client{
		Jar:       jar,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, nil
}

// hasHTTPClient reports whether opts already carry a WithHTTPClient.
func hasHTTPClient(opts []option.RequestOption) (bool, error) {
	var cfg requestconfig.RequestConfig
	cfg.Headers = http.Header{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.Apply(&cfg); err != nil {
			return false, err
		}
	}
	return cfg.HTTPClient != nil, nil
}

// NewClient builds the remote store. Unless opts include WithHTTPClient a
// client from NewHTTPClient is used, so the session cookie is kept.
func NewClient(opts ...option.RequestOption) (*Client, error) {
	custom, err := hasHTTPClient(opts)
	if err != nil {
		return nil, err
	}
	if !custom {
		httpClient, err := NewHTTPClient()
		if err != nil {
			return nil, err
		}
		opts = slices.Concat([]option.RequestOption{option.WithHTTPClient(httpClient)}, opts)
	}

	return &Client{
		Options: opts,
		Rooms:   NewRoomService(opts...),
		Answers: NewAnswerService(opts...),
		Votes:   NewVoteService(opts...),
		Session: NewSessionService(opts...),
	}, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return c.Rooms.List(ctx)
}

func (c *Client) SearchRooms(ctx context.Context, filter domain.SearchFilter) ([]domain.Room, error) {
	return c.Rooms.Search(ctx, filter)
}

func (c *Client) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	return c.Rooms.Get(ctx, id)
}

func (c *Client) CreateRoom(ctx context.Context, params domain.CreateRoomParams) (string, error) {
	return c.Rooms.New(ctx, params)
}

func (c *Client) ListAnswers(ctx context.Context, roomID int64) ([]domain.Answer, error) {
	return c.Answers.List(ctx, roomID)
}

func (c *Client) PostAnswer(ctx context.Context, roomID int64, message string, userID int64) error {
	return c.Answers.New(ctx, roomID, message, userID)
}

func (c *Client) DeleteAnswer(ctx context.Context, answerID int64) error {
	return c.Answers.Delete(ctx, answerID)
}

func (c *Client) ListVotes(ctx context.Context, answerID int64) ([]domain.Vote, error) {
	return c.Votes.List(ctx, answerID)
}

func (c *Client) InsertVote(ctx context.Context, userID, answerID int64) error {
	return c.Votes.New(ctx, userID, answerID)
}

func (c *Client) DeleteVote(ctx context.Context, userID, answerID int64) error {
	return c.Votes.Delete(ctx, userID, answerID)
}

func (c *Client) GetSession(ctx context.Context) (domain.Session, error) {
	return c.Session.Get(ctx)
}

func (c *Client) Register(ctx context.Context, creds domain.Credentials) error {
	return c.Session.Register(ctx, creds)
}

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	return c.Session.Login(ctx, creds)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.Session.Logout(ctx)
}
