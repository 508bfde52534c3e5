package remote

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/remote/requestconfig"
)

var ErrMissingIDParameter = domain.NewValidationError("id", "missing required id parameter")

// statusOverrides replaces the default classification for specific statuses
// on a single endpoint.
type statusOverrides map[int]error

func classify(status int) error {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return domain.ErrValidation
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ErrAuth
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusConflict:
		return domain.ErrConflict
	default:
		return domain.ErrRemoteUnavailable
	}
}

// mapError turns transport and status errors into the domain taxonomy. The
// original error stays in the chain for logging.
func mapError(err error, overrides statusOverrides) error {
	if err == nil {
		return nil
	}

	var apiErr *requestconfig.Error
	if errors.As(err, &apiErr) {
		kind, ok := overrides[apiErr.StatusCode]
		if !ok {
			kind = classify(apiErr.StatusCode)
		}
		return fmt.Errorf("%w: %w", kind, apiErr)
	}

	return fmt.Errorf("%w: %w", domain.ErrRemoteUnavailable, err)
}

func malformed(what string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: malformed %s payload", domain.ErrRemoteUnavailable, what)
	}
	return fmt.Errorf("%w: malformed %s payload: %w", domain.ErrRemoteUnavailable, what, err)
}
