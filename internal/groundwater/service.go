// Package groundwater exposes one typed operation per groundwater API
// endpoint on top of the authenticated client.
//
// Protected operations check for a stored credential before touching the
// network and fail with ErrNoToken when there is none. Errors reported by the
// server keep their detail message; anything else is replaced by a short
// per-operation description such as "failed to run simulation".
package groundwater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/couchcryptid/groundwater-client/internal/adapter/api"
	"github.com/couchcryptid/groundwater-client/internal/credential"
	"github.com/couchcryptid/groundwater-client/internal/observability"
)

// ErrNoToken is returned by protected operations when no credential is stored.
var ErrNoToken = api.ErrNoToken

// Service issues typed requests against the groundwater API.
type Service struct {
	client *api.Client
	store  credential.Store
	logger *slog.Logger
}

// NewService creates a Service. store must be the same store client reads
// its credential from.
func NewService(client *api.Client, store credential.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{client: client, store: store, logger: logger}
}

// requireToken fails fast when the store holds no access token. A store that
// cannot be read counts as empty.
func (s *Service) requireToken(ctx context.Context) error {
	if s.store == nil {
		return ErrNoToken
	}
	access, err := credential.AccessToken(s.store)
	if err != nil {
		observability.WithInvocationID(ctx, s.logger).Debug("credential store unavailable", "error", err)
		return ErrNoToken
	}
	if access == "" {
		return ErrNoToken
	}
	return nil
}

func (s *Service) getProtected(ctx context.Context, path string, out any, fallback string) error {
	if err := s.requireToken(ctx); err != nil {
		return err
	}
	return describe(s.client.GetJSON(ctx, path, out), fallback)
}

func (s *Service) postProtected(ctx context.Context, path string, body, out any, fallback string) error {
	if err := s.requireToken(ctx); err != nil {
		return err
	}
	return describe(s.client.PostJSON(ctx, path, body, out), fallback)
}

// describe maps a client error onto what the caller reports. Server detail is
// kept verbatim; a bare status is replaced by fallback; everything else is
// prefixed with fallback and stays unwrappable.
func describe(err error, fallback string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNoToken) {
		return err
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.FromBody {
			return apiErr
		}
		return &api.APIError{
			StatusCode: apiErr.StatusCode,
			Status:     apiErr.Status,
			Detail:     fallback,
		}
	}
	return fmt.Errorf("%s: %w", fallback, err)
}

// withQuery appends the non-empty values to path.
func withQuery(path string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
