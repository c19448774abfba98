package groundwater

import (
	"context"

	"github.com/couchcryptid/groundwater-client/internal/domain"
)

// Alerts lists active threshold alerts. An empty severity returns all of them.
func (s *Service) Alerts(ctx context.Context, severity string) ([]domain.Alert, error) {
	var resp domain.AlertList
	path := withQuery("/api/alerts", map[string]string{"severity": severity})
	if err := s.getProtected(ctx, path, &resp, "failed to load alerts"); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}
