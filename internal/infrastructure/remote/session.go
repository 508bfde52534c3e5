package remote

import (
	"context"
	"net/http"
	"slices"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/remote/option"
	"github.com/hilthontt/forum/internal/infrastructure/remote/requestconfig"
	"github.com/tidwall/sjson"
)

type SessionService struct {
	Options []option.RequestOption
}

func NewSessionService(opts ...option.RequestOption) *SessionService {
	return &SessionService{opts}
}

// Get is a single attempt regardless of the configured retries.
func (s *SessionService) Get(ctx context.Context, opts ...option.RequestOption) (domain.Session, error) {
	opts = slices.Concat(s.Options, opts, []option.RequestOption{
		option.WithRoute("/session"),
		option.WithMaxRetries(0),
	})

	var res []byte
	if err := requestconfig.ExecuteNewRequest(ctx, http.MethodGet, "session", nil, &res, opts...); err != nil {
		return domain.Session{}, mapError(err, nil)
	}
	return decodeSession(res)
}

// Register creates an account. The server does not start a session, so the
// jar is untouched. 409 maps to ErrConflict.
func (s *SessionService) Register(ctx context.Context, creds domain.Credentials, opts ...option.RequestOption) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	opts = slices.Concat(s.Options, opts, []option.RequestOption{option.WithRoute("/register")})

	body, _ := sjson.SetBytes(nil, "username", creds.Username)
	body, _ = sjson.SetBytes(body, "password", creds.Password)

	err := requestconfig.ExecuteNewRequest(ctx, http.MethodPost, "register", body, nil, opts...)
	return mapError(err, nil)
}

// Login rejects with ErrAuth on 400, 401 and 403. The session cookie from
// the response lands in the client's jar.
func (s *SessionService) Login(ctx context.Context, creds domain.Credentials, opts ...option.RequestOption) (domain.Session, error) {
	if err := creds.Validate(); err != nil {
		return domain.Session{}, err
	}
	opts = slices.Concat(s.Options, opts, []option.RequestOption{option.WithRoute("/login")})

	body, _ := sjson.SetBytes(nil, "username", creds.Username)
	body, _ = sjson.SetBytes(body, "password", creds.Password)

	var res []byte
	if err := requestconfig.ExecuteNewRequest(ctx, http.MethodPost, "login", body, &res, opts...); err != nil {
		return domain.Session{}, mapError(err, statusOverrides{
			http.StatusBadRequest: domain.ErrAuth,
		})
	}

	session, err := decodeSession(res)
	if err != nil {
		return domain.Session{}, err
	}
	if !session.IsLoggedIn {
		return domain.Session{}, domain.ErrAuth
	}
	return session, nil
}

func (s *SessionService) Logout(ctx context.Context, opts ...option.RequestOption) error {
	opts = slices.Concat(s.Options, opts, []option.RequestOption{option.WithRoute("/logout")})

	err := requestconfig.ExecuteNewRequest(ctx, http.MethodPost, "logout", []byte("{}"), nil, opts...)
	return mapError(err, nil)
}
