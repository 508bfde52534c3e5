package remote_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/remote"
	"github.com/hilthontt/forum/internal/infrastructure/remote/option"
	"github.com/tidwall/gjson"
)

type fakeForum struct {
	mu         sync.Mutex
	votes      map[[2]int64]bool
	requests   []*http.Request
	sessionID  string
	registered []string
}

func newFakeForum(t *testing.T) (*fakeForum, *remote.Client) {
	t.Helper()

	f := &fakeForum{votes: map[[2]int64]bool{{7, 11}: true}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.requests = append(f.requests, req.Clone(context.Background()))
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/rooms", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[{"id":1,"title":"A","message":"first","creatorId":7,"creatorName":"alice"},{"id":2,"title":"B","message":"second","creatorId":8,"creatorName":"bob"}]`)
	})
	r.Get("/rooms/search", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("type") == "user" && req.URL.Query().Get("query") == "alice" {
			io.WriteString(w, `[{"id":1,"title":"A","message":"first","creatorId":7,"creatorName":"alice"}]`)
			return
		}
		io.WriteString(w, `[]`)
	})
	r.Get("/rooms/{id}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") != "1" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		io.WriteString(w, `{"id":1,"title":"A","message":"first","creatorId":7,"creatorName":"alice"}`)
	})
	r.Get("/rooms/{id}/answers", func(w http.ResponseWriter, req *http.Request) {
		switch chi.URLParam(req, "id") {
		case "1":
			io.WriteString(w, `[{"id":10,"roomId":1,"message":"hi","userId":8,"username":"bob"},{"id":11,"roomId":1,"message":"yo","userId":7,"username":"alice"}]`)
		case "2":
			io.WriteString(w, `[{"id":12,"roomId":1,"message":"leak","userId":8,"username":"bob"}]`)
		default:
			io.WriteString(w, `null`)
		}
	})
	r.Get("/answers/{id}/votes", func(w http.ResponseWriter, req *http.Request) {
		switch chi.URLParam(req, "id") {
		case "10":
			io.WriteString(w, `[{"userId":7,"answerId":10},{"userId":8,"answerId":10}]`)
		case "11":
			io.WriteString(w, `{"votes":[{"userId":7},{"userId":9}],"more":[{"userId":10}]}`)
		default:
			io.WriteString(w, `"nope"`)
		}
	})
	r.Post("/votes", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		key := [2]int64{gjson.GetBytes(body, "userId").Int(), gjson.GetBytes(body, "answerId").Int()}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.votes[key] {
			w.WriteHeader(http.StatusConflict)
			return
		}
		f.votes[key] = true
		w.WriteHeader(http.StatusCreated)
	})
	r.Delete("/votes", func(w http.ResponseWriter, req *http.Request) {
		userID, _ := strconv.ParseInt(req.URL.Query().Get("userId"), 10, 64)
		answerID, _ := strconv.ParseInt(req.URL.Query().Get("answerId"), 10, 64)
		key := [2]int64{userID, answerID}
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.votes[key] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.votes, key)
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/answers", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		if gjson.GetBytes(body, "message").String() == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	r.Delete("/answers/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	r.Post("/newpost", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"message":"Topic created"}`)
	})
	r.Post("/login", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		if gjson.GetBytes(body, "password").String() != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		f.sessionID = "s-1"
		f.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s-1", Path: "/"})
		io.WriteString(w, `{"username":"alice","userId":7}`)
	})
	r.Get("/session", func(w http.ResponseWriter, req *http.Request) {
		c, err := req.Cookie("sid")
		f.mu.Lock()
		active := err == nil && c.Value == f.sessionID && f.sessionID != ""
		f.mu.Unlock()
		if !active {
			io.WriteString(w, `{"isLoggedIn":false,"username":null,"userId":null}`)
			return
		}
		io.WriteString(w, `{"isLoggedIn":true,"username":"alice","userId":7}`)
	})
	r.Post("/register", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		username := gjson.GetBytes(body, "username").String()
		if username == "alice" {
			http.Error(w, `{"error":"username taken"}`, http.StatusConflict)
			return
		}
		f.mu.Lock()
		f.registered = append(f.registered, username)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"message":"User registered"}`)
	})
	r.Post("/logout", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.sessionID = ""
		f.mu.Unlock()
		io.WriteString(w, "ok")
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client, err := remote.NewClient(option.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return f, client
}

func TestRooms(t *testing.T) {
	_, client := newFakeForum(t)
	ctx := context.Background()

	rooms, err := client.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	want := []domain.Room{
		{ID: 1, Title: "A", Message: "first", CreatorID: 7, CreatorName: "alice"},
		{ID: 2, Title: "B", Message: "second", CreatorID: 8, CreatorName: "bob"},
	}
	if diff := cmp.Diff(want, rooms); diff != "" {
		t.Fatalf("ListRooms mismatch (-want +got):\n%s", diff)
	}

	found, err := client.SearchRooms(ctx, domain.SearchFilter{Query: "alice", Type: domain.SearchByUser})
	if err != nil {
		t.Fatalf("SearchRooms: %v", err)
	}
	if diff := cmp.Diff(want[:1], found); diff != "" {
		t.Fatalf("SearchRooms mismatch (-want +got):\n%s", diff)
	}

	room, err := client.GetRoom(ctx, 1)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if diff := cmp.Diff(want[0], room); diff != "" {
		t.Fatalf("GetRoom mismatch (-want +got):\n%s", diff)
	}

	msg, err := client.CreateRoom(ctx, domain.CreateRoomParams{Title: "C", Message: "third", CreatorID: 7})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if msg != "Topic created" {
		t.Fatalf("CreateRoom message: got %q", msg)
	}
}

func TestAnswers(t *testing.T) {
	_, client := newFakeForum(t)
	ctx := context.Background()

	answers, err := client.ListAnswers(ctx, 1)
	if err != nil {
		t.Fatalf("ListAnswers: %v", err)
	}
	want := []domain.Answer{
		{ID: 10, RoomID: 1, Message: "hi", UserID: 8, Username: "bob"},
		{ID: 11, RoomID: 1, Message: "yo", UserID: 7, Username: "alice"},
	}
	if diff := cmp.Diff(want, answers); diff != "" {
		t.Fatalf("ListAnswers mismatch (-want +got):\n%s", diff)
	}

	empty, err := client.ListAnswers(ctx, 3)
	if err != nil {
		t.Fatalf("ListAnswers null: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no answers, got %v", empty)
	}

	if _, err := client.ListAnswers(ctx, 2); !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Fatalf("answers from another room must be rejected, got %v", err)
	}
}

func TestVotePayloadShapes(t *testing.T) {
	_, client := newFakeForum(t)
	ctx := context.Background()

	type tcase struct {
		answerID int64
		want     []domain.Vote
		wantErr  error
	}

	tests := map[string]tcase{
		"bare array": {
			answerID: 10,
			want:     []domain.Vote{{UserID: 7, AnswerID: 10}, {UserID: 8, AnswerID: 10}},
		},
		"object of arrays": {
			answerID: 11,
			want:     []domain.Vote{{UserID: 7, AnswerID: 11}, {UserID: 9, AnswerID: 11}, {UserID: 10, AnswerID: 11}},
		},
		"scalar payload": {
			answerID: 12,
			wantErr:  domain.ErrRemoteUnavailable,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			votes, err := client.ListVotes(ctx, tc.answerID)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListVotes: %v", err)
			}
			if diff := cmp.Diff(tc.want, votes); diff != "" {
				t.Fatalf("votes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStatusMapping(t *testing.T) {
	_, client := newFakeForum(t)
	ctx := context.Background()

	type tcase struct {
		call func() error
		want error
	}

	tests := map[string]tcase{
		"missing room is not found": {
			call: func() error { _, err := client.GetRoom(ctx, 42); return err },
			want: domain.ErrNotFound,
		},
		"duplicate vote": {
			call: func() error { return client.InsertVote(ctx, 7, 11) },
			want: domain.ErrDuplicateVote,
		},
		"retracting a missing vote": {
			call: func() error { return client.DeleteVote(ctx, 8, 11) },
			want: domain.ErrNoActiveVote,
		},
		"unprocessable answer": {
			call: func() error { return client.PostAnswer(ctx, 1, "", 7) },
			want: domain.ErrValidation,
		},
		"forbidden delete": {
			call: func() error { return client.DeleteAnswer(ctx, 10) },
			want: domain.ErrAuth,
		},
		"bad credentials": {
			call: func() error {
				_, err := client.Login(ctx, domain.Credentials{Username: "alice", Password: "nope"})
				return err
			},
			want: domain.ErrAuth,
		},
		"zero id never leaves the client": {
			call: func() error { _, err := client.GetRoom(ctx, 0); return err },
			want: domain.ErrValidation,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if !errors.Is(client.InsertVote(ctx, 7, 11), domain.ErrConflict) {
		t.Fatalf("duplicate vote must also match ErrConflict")
	}
}

func TestVoteRoundTrip(t *testing.T) {
	_, client := newFakeForum(t)
	ctx := context.Background()

	if err := client.InsertVote(ctx, 8, 10); err != nil {
		t.Fatalf("InsertVote: %v", err)
	}
	if err := client.DeleteVote(ctx, 8, 10); err != nil {
		t.Fatalf("DeleteVote: %v", err)
	}
	if err := client.DeleteVote(ctx, 8, 10); !errors.Is(err, domain.ErrNoActiveVote) {
		t.Fatalf("second delete: expected ErrNoActiveVote, got %v", err)
	}
}

func TestSessionCookieRoundTrip(t *testing.T) {
	_, client := newFakeForum(t)
	ctx := context.Background()

	s, err := client.GetSession(ctx)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if diff := cmp.Diff(domain.LoggedOut(), s); diff != "" {
		t.Fatalf("initial session mismatch (-want +got):\n%s", diff)
	}

	s, err = client.Login(ctx, domain.Credentials{Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if diff := cmp.Diff(domain.NewSession("alice", 7), s); diff != "" {
		t.Fatalf("login session mismatch (-want +got):\n%s", diff)
	}

	s, err = client.GetSession(ctx)
	if err != nil {
		t.Fatalf("GetSession after login: %v", err)
	}
	if !s.IsLoggedIn {
		t.Fatalf("cookie was not carried to /session")
	}

	if err := client.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	s, err = client.GetSession(ctx)
	if err != nil {
		t.Fatalf("GetSession after logout: %v", err)
	}
	if s.IsLoggedIn {
		t.Fatalf("expected logged out session")
	}
}

func TestRegister(t *testing.T) {
	f, client := newFakeForum(t)
	ctx := context.Background()

	if err := client.Register(ctx, domain.Credentials{Username: "dave", Password: "hunter22"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := client.Register(ctx, domain.Credentials{Username: "alice", Password: "hunter22"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := client.Register(ctx, domain.Credentials{Username: "dave"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(f.requests))
	}
	if diff := cmp.Diff([]string{"dave"}, f.registered); diff != "" {
		t.Fatalf("registered mismatch (-want +got):\n%s", diff)
	}
	if f.sessionID != "" {
		t.Fatalf("register must not start a session")
	}
}

func TestRequestHeaders(t *testing.T) {
	f, client := newFakeForum(t)
	ctx := context.Background()

	if _, err := client.ListRooms(ctx); err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if _, err := client.ListRooms(ctx); err != nil {
		t.Fatalf("ListRooms: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(f.requests))
	}
	first, second := f.requests[0].Header.Get("X-Request-ID"), f.requests[1].Header.Get("X-Request-ID")
	if first == "" || first == second {
		t.Fatalf("request ids must be present and unique: %q %q", first, second)
	}
	if ua := f.requests[0].Header.Get("User-Agent"); ua == "" {
		t.Fatalf("missing user agent")
	}
}

func TestRetriesIdempotentCalls(t *testing.T) {
	var hits atomic.Int32
	r := chi.NewRouter()
	r.Get("/rooms", func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `[]`)
	})
	r.Get("/rooms/{id}", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})
	r.Post("/answers", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client, err := remote.NewClient(option.WithBaseURL(srv.URL), option.WithMaxRetries(2))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	rooms, err := client.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 0 || hits.Load() != 3 {
		t.Fatalf("expected empty list after 3 attempts, got %v after %d", rooms, hits.Load())
	}

	hits.Store(0)
	if _, err := client.GetRoom(context.Background(), 9); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("404 GET attempted %d times, want 1", hits.Load())
	}

	hits.Store(0)
	err = client.PostAnswer(context.Background(), 1, "hello", 7)
	if !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("non-idempotent call retried %d times", hits.Load())
	}
}

func TestSessionRefreshIsSingleAttempt(t *testing.T) {
	var hits atomic.Int32
	r := chi.NewRouter()
	r.Get("/session", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client, err := remote.NewClient(option.WithBaseURL(srv.URL), option.WithMaxRetries(2))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.GetSession(context.Background()); !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("GET /session attempted %d times, want 1", hits.Load())
	}
}

type countingDoer struct {
	calls atomic.Int32
	next  *http.Client
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	return d.next.Do(req)
}

func TestNewClientUsesProvidedHTTPClient(t *testing.T) {
	t.Setenv("FORUM_BASE_URL", "http://127.0.0.1:1")

	r := chi.NewRouter()
	r.Get("/rooms", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[]`)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	doer := &countingDoer{next: srv.Client()}
	client, err := remote.NewClient(option.WithBaseURL(srv.URL), option.WithHTTPClient(doer))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.ListRooms(context.Background()); err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if doer.calls.Load() != 1 {
		t.Fatalf("custom client called %d times, want 1", doer.calls.Load())
	}
}

func TestNewClientRejectsInvalidOptions(t *testing.T) {
	if _, err := remote.NewClient(option.WithHTTPClient(nil)); err == nil {
		t.Fatalf("expected error for nil http client")
	}
}

func TestTransportFailureIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := remote.NewClient(option.WithBaseURL(url))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.ListRooms(context.Background()); !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}
