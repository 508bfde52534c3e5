package repository

import (
	"context"
	"fmt"

	"github.com/hilthontt/forum/internal/domain"
)

// Seed fills the store with a few accounts, rooms, answers and votes so the
// offline client has something to show. Every account's password is
// "password". The session is logged out afterwards.
func (s *Store) Seed(ctx context.Context) error {
	users := []string{"alice", "bob", "carol"}
	ids := make(map[string]int64, len(users))
	for _, u := range users {
		id, err := s.AddUser(u, "password")
		if err != nil {
			return fmt.Errorf("seed account %s: %w", u, err)
		}
		ids[u] = id
	}

	as := func(user string, fn func(id int64) error) error {
		if _, err := s.Login(ctx, domain.Credentials{Username: user, Password: "password"}); err != nil {
			return err
		}
		defer s.Logout(ctx)
		return fn(ids[user])
	}

	steps := []struct {
		user string
		fn   func(id int64) error
	}{
		{"alice", func(id int64) error {
			_, err := s.CreateRoom(ctx, domain.CreateRoomParams{Title: "Go channels vs mutexes", Message: "When do you reach for which?", CreatorID: id})
			return err
		}},
		{"bob", func(id int64) error {
			_, err := s.CreateRoom(ctx, domain.CreateRoomParams{Title: "Favourite config library", Message: "koanf or viper?", CreatorID: id})
			return err
		}},
		{"bob", func(id int64) error {
			return s.PostAnswer(ctx, 1, "Mutexes for state, channels for ownership transfer.", id)
		}},
		{"carol", func(id int64) error {
			return s.PostAnswer(ctx, 1, "Whatever keeps the invariants obvious.", id)
		}},
		{"alice", func(id int64) error {
			return s.InsertVote(ctx, id, 1)
		}},
		{"carol", func(id int64) error {
			return s.InsertVote(ctx, id, 1)
		}},
		{"alice", func(id int64) error {
			return s.PostAnswer(ctx, 2, "koanf, fewer surprises.", id)
		}},
	}

	for i, step := range steps {
		if err := as(step.user, step.fn); err != nil {
			return fmt.Errorf("seed step %d: %w", i, err)
		}
	}
	return nil
}
