package repository

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hilthontt/forum/internal/domain"
)

type account struct {
	id       int64
	username string
	password string
}

// sessionRepository keeps the accounts and the single session of the
// client talking to this store.
type sessionRepository struct {
	accounts map[string]account // lowercased username -> account
	names    map[int64]string   // user id -> username
	current  domain.Session
	nextID   int64
	mu       *sync.RWMutex
}

func newSessionRepository() *sessionRepository {
	return &sessionRepository{
		accounts: make(map[string]account),
		names:    make(map[int64]string),
		current:  domain.LoggedOut(),
		mu:       &sync.RWMutex{},
	}
}

func (r *sessionRepository) Register(username, password string) (int64, error) {
	creds := domain.Credentials{Username: username, Password: password}
	if err := creds.Validate(); err != nil {
		return 0, err
	}
	key := strings.ToLower(strings.TrimSpace(username))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[key]; exists {
		return 0, fmt.Errorf("%w: username %q already taken", domain.ErrConflict, strings.TrimSpace(username))
	}
	r.nextID++
	r.accounts[key] = account{id: r.nextID, username: strings.TrimSpace(username), password: password}
	r.names[r.nextID] = strings.TrimSpace(username)
	return r.nextID, nil
}

func (r *sessionRepository) Login(creds domain.Credentials) (domain.Session, error) {
	if err := creds.Validate(); err != nil {
		return domain.Session{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	acc, exists := r.accounts[strings.ToLower(strings.TrimSpace(creds.Username))]
	if !exists || acc.password != creds.Password {
		return domain.Session{}, domain.ErrAuth
	}
	r.current = domain.NewSession(acc.username, acc.id)
	return r.current, nil
}

func (r *sessionRepository) Logout() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = domain.LoggedOut()
}

func (r *sessionRepository) Current() domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.current
}

func (r *sessionRepository) Username(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.names[userID]
	return name, ok
}
