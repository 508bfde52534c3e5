// Package session publishes the client's authenticated identity.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/broadcast"
	"github.com/hilthontt/forum/internal/infrastructure/logging"
	"github.com/hilthontt/forum/internal/infrastructure/tracing"
	"github.com/hilthontt/forum/internal/infrastructure/validate"
	"go.opentelemetry.io/otel/attribute"
)

const ChannelName = "session"

type Store interface {
	GetSession(ctx context.Context) (domain.Session, error)
	Register(ctx context.Context, creds domain.Credentials) error
	Login(ctx context.Context, creds domain.Credentials) (domain.Session, error)
	Logout(ctx context.Context) error
}

var (
	validateUsername = validate.Field("username", validate.Required(), validate.MaxLength(64))
	validatePassword = validate.Field("password", validate.Required())

	// New accounts get stricter rules than logins so older names still work.
	accountName         = validate.Compose(validate.Required(), validate.NoSpaces())
	validateNewUsername = validate.Field("username", accountName, validate.MinLength(3), validate.MaxLength(64))
	validateNewPassword = validate.Field("password", validate.Required(), validate.MinLength(6))
)

// Broadcaster owns the published session. It starts logged out; callers
// run Refresh once to pick up an existing server session.
type Broadcaster struct {
	store  Store
	ch     *broadcast.Channel[domain.Session]
	logger logging.Logger
}

func New(store Store, logger logging.Logger, opts ...broadcast.Option) *Broadcaster {
	b := &Broadcaster{
		store:  store,
		ch:     broadcast.New[domain.Session](ChannelName, opts...),
		logger: logger,
	}
	b.ch.Publish(domain.LoggedOut())
	return b
}

// Refresh republishes the server's view of the session. Any failure
// publishes the logged-out state and is returned.
func (b *Broadcaster) Refresh(ctx context.Context) (err error) {
	ctx, span := tracing.Start(ctx, "session.Refresh")
	defer func() { tracing.End(span, err) }()

	s, err := b.store.GetSession(ctx)
	if err != nil {
		b.ch.Publish(domain.LoggedOut())
		b.logger.Warn(logging.Sync, logging.Session, "session refresh failed, assuming logged out", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return fmt.Errorf("refresh session: %w", domain.AsRemote(err))
	}

	b.ch.Publish(s.Normalize())
	return nil
}

// Register creates an account. The published session does not change; the
// caller logs in separately.
func (b *Broadcaster) Register(ctx context.Context, creds domain.Credentials) (err error) {
	ctx, span := tracing.Start(ctx, "session.Register")
	defer func() { tracing.End(span, err) }()

	if err := validateNewUsername(creds.Username); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err := validateNewPassword(creds.Password); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	if err := b.store.Register(ctx, creds); err != nil {
		return fmt.Errorf("register: %w", domain.AsRemote(err))
	}
	b.logger.Info(logging.Sync, logging.Session, "account registered", map[logging.ExtraKey]any{
		logging.Username: creds.Username,
	})
	return nil
}

// Login publishes the returned identity. On failure the published state is
// left alone and the error matches domain.ErrAuth; transport failures also
// match domain.ErrRemoteUnavailable.
func (b *Broadcaster) Login(ctx context.Context, creds domain.Credentials) (err error) {
	ctx, span := tracing.Start(ctx, "session.Login")
	defer func() { tracing.End(span, err) }()

	if err := validateUsername(creds.Username); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err := validatePassword(creds.Password); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	s, err := b.store.Login(ctx, creds)
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			return fmt.Errorf("login: %w", err)
		}
		return fmt.Errorf("login: %w: %w", domain.ErrAuth, domain.AsRemote(err))
	}

	s = s.Normalize()
	if _, ok := s.ActingUserID(); !ok {
		return fmt.Errorf("login: %w: server returned no identity", domain.ErrAuth)
	}

	span.SetAttributes(attribute.Int64("forum.user_id", *s.UserID))
	b.ch.Publish(s)
	b.logger.Info(logging.Sync, logging.Session, "logged in", map[logging.ExtraKey]any{
		logging.UserID: *s.UserID,
	})
	return nil
}

// Logout always publishes the logged-out state, then reports the remote
// failure if there was one.
func (b *Broadcaster) Logout(ctx context.Context) (err error) {
	ctx, span := tracing.Start(ctx, "session.Logout")
	defer func() { tracing.End(span, err) }()

	remoteErr := b.store.Logout(ctx)
	b.ch.Publish(domain.LoggedOut())

	if remoteErr != nil {
		b.logger.Warn(logging.Sync, logging.Session, "remote logout failed, logged out locally", map[logging.ExtraKey]any{
			logging.ErrorMessage: remoteErr.Error(),
		})
		return fmt.Errorf("logout: %w", domain.AsRemote(remoteErr))
	}
	return nil
}

// Current is the last published session.
func (b *Broadcaster) Current() domain.Session {
	s, _ := b.ch.Value()
	return s
}

func (b *Broadcaster) CurrentUserID() (int64, bool) {
	return b.Current().ActingUserID()
}

func (b *Broadcaster) CurrentUsername() (string, bool) {
	return b.Current().Name()
}

func (b *Broadcaster) IsLoggedIn() bool {
	return b.Current().IsLoggedIn
}

func (b *Broadcaster) Subscribe(fn broadcast.Listener[domain.Session]) *broadcast.Subscription[domain.Session] {
	return b.ch.Subscribe(fn)
}

// Close releases every subscription.
func (b *Broadcaster) Close() {
	b.ch.Close()
}
