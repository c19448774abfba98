package groundwater

import (
	"context"

	"github.com/couchcryptid/groundwater-client/internal/domain"
)

// DriverAttribution splits the observed level change for a state, or one of
// its districts, into contributing factors.
func (s *Service) DriverAttribution(ctx context.Context, state, district string) (domain.DriverAttribution, error) {
	var resp domain.DriverAttribution
	path := withQuery("/api/drivers/attribution", map[string]string{"state": state, "district": district})
	err := s.getProtected(ctx, path, &resp, "failed to load attribution")
	return resp, err
}
