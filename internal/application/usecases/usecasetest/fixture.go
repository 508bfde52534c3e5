package usecasetest

import (
	"context"
	"testing"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/repository"
)

const Password = "pw"

// Fixture builds server-side state in an in-memory store.
type Fixture struct {
	Store *repository.Store
	Users map[string]int64
}

func NewFixture(t testing.TB, users ...string) *Fixture {
	t.Helper()

	if len(users) == 0 {
		users = []string{"alice", "bob", "carol"}
	}
	f := &Fixture{
		Store: repository.NewStore(0),
		Users: make(map[string]int64, len(users)),
	}
	for _, u := range users {
		id, err := f.Store.AddUser(u, Password)
		if err != nil {
			t.Fatalf("register %s: %v", u, err)
		}
		f.Users[u] = id
	}
	return f
}

// As logs the store's session in as user.
func (f *Fixture) As(t testing.TB, user string) int64 {
	t.Helper()
	if _, err := f.Store.Login(context.Background(), domain.Credentials{Username: user, Password: Password}); err != nil {
		t.Fatalf("login %s: %v", user, err)
	}
	return f.Users[user]
}

func (f *Fixture) Room(t testing.TB, user, title, message string) int64 {
	t.Helper()
	ctx := context.Background()
	id := f.As(t, user)
	if _, err := f.Store.CreateRoom(ctx, domain.CreateRoomParams{Title: title, Message: message, CreatorID: id}); err != nil {
		t.Fatalf("create room %q: %v", title, err)
	}
	rooms, _ := f.Store.ListRooms(ctx)
	return rooms[len(rooms)-1].ID
}

func (f *Fixture) Answer(t testing.TB, user string, roomID int64, message string) int64 {
	t.Helper()
	ctx := context.Background()
	id := f.As(t, user)
	if err := f.Store.PostAnswer(ctx, roomID, message, id); err != nil {
		t.Fatalf("post answer: %v", err)
	}
	answers, _ := f.Store.ListAnswers(ctx, roomID)
	return answers[len(answers)-1].ID
}

func (f *Fixture) Vote(t testing.TB, user string, answerID int64) {
	t.Helper()
	id := f.As(t, user)
	if err := f.Store.InsertVote(context.Background(), id, answerID); err != nil {
		t.Fatalf("vote: %v", err)
	}
}
