package groundwater

import (
	"context"
	"strconv"

	"github.com/couchcryptid/groundwater-client/internal/domain"
)

// ForecastHistory returns the caller's most recent forecasts, newest first.
// limit <= 0 leaves the page size to the server.
func (s *Service) ForecastHistory(ctx context.Context, limit int) ([]domain.Forecast, error) {
	var resp domain.ForecastHistory
	path := withQuery("/api/forecast/history", map[string]string{"limit": limitParam(limit)})
	if err := s.getProtected(ctx, path, &resp, "failed to load forecast history"); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GenerateForecast runs a new forecast.
func (s *Service) GenerateForecast(ctx context.Context, req domain.ForecastRequest) (domain.Forecast, error) {
	var resp domain.Forecast
	err := s.postProtected(ctx, "/api/forecast/generate", req, &resp, "failed to generate forecast")
	return resp, err
}

func limitParam(limit int) string {
	if limit <= 0 {
		return ""
	}
	return strconv.Itoa(limit)
}
