package groundwater

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/couchcryptid/groundwater-client/internal/domain"
)

func (s *Service) ValidationMetrics(ctx context.Context) (domain.ValidationReport, error) {
	var resp domain.ValidationReport
	err := s.getProtected(ctx, "/api/validation/metrics", &resp, "failed to load validation metrics")
	return resp, err
}

func (s *Service) MetricsHistory(ctx context.Context, limit int) ([]domain.MetricsSnapshot, error) {
	var resp domain.MetricsHistory
	path := withQuery("/api/validation/metrics/history", map[string]string{"limit": limitParam(limit)})
	if err := s.getProtected(ctx, path, &resp, "failed to load metrics history"); err != nil {
		return nil, err
	}
	return resp.History, nil
}

func (s *Service) ModelInfo(ctx context.Context) (domain.ModelInfo, error) {
	var resp domain.ModelInfoResponse
	err := s.getProtected(ctx, "/api/validation/model-info", &resp, "failed to load model info")
	return resp.ModelInfo, err
}

func (s *Service) Limitations(ctx context.Context) ([]string, error) {
	var resp domain.LimitationsResponse
	if err := s.getProtected(ctx, "/api/validation/limitations", &resp, "failed to fetch limitations"); err != nil {
		return nil, err
	}
	return resp.Limitations, nil
}

// ConfidenceMap returns per-state model confidence.
func (s *Service) ConfidenceMap(ctx context.Context) ([]domain.ConfidenceEntry, error) {
	var resp domain.ConfidenceMap
	if err := s.getProtected(ctx, "/api/validation/confidence-map", &resp, "failed to fetch confidence map"); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Regions returns the state boundary GeoJSON used by the confidence map.
func (s *Service) Regions(ctx context.Context) (domain.FeatureCollection, error) {
	var resp domain.FeatureCollection
	err := s.getProtected(ctx, "/api/validation/regions", &resp, "failed to fetch regions")
	return resp, err
}

// RawRegions returns the regions GeoJSON exactly as served.
func (s *Service) RawRegions(ctx context.Context) (json.RawMessage, error) {
	var resp json.RawMessage
	err := s.getProtected(ctx, "/api/validation/regions", &resp, "failed to fetch regions")
	return resp, err
}

// ConfidenceRegions fetches the confidence map and the region boundaries and
// joins them with domain.AttachConfidence. A regions failure is reported
// alongside the entries, which are still returned.
func (s *Service) ConfidenceRegions(ctx context.Context) (domain.FeatureCollection, []domain.ConfidenceEntry, error) {
	entries, err := s.ConfidenceMap(ctx)
	if err != nil {
		return domain.FeatureCollection{}, nil, err
	}
	fc, err := s.Regions(ctx)
	if err != nil {
		return domain.FeatureCollection{}, entries, err
	}
	domain.AttachConfidence(&fc, entries)
	return fc, entries, nil
}

// DistrictConfidence returns per-district model confidence within state.
func (s *Service) DistrictConfidence(ctx context.Context, state string) ([]domain.ConfidenceEntry, error) {
	var resp domain.ConfidenceMap
	path := withQuery("/api/validation/confidence-map/districts", map[string]string{"state": state})
	if err := s.getProtected(ctx, path, &resp, "failed to fetch district confidence"); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Uncertainty returns the forecast band for state over horizon months.
func (s *Service) Uncertainty(ctx context.Context, state string, horizon int) (domain.UncertaintySeries, error) {
	var resp domain.UncertaintySeries
	params := map[string]string{"state": state}
	if horizon > 0 {
		params["horizon"] = strconv.Itoa(horizon)
	}
	err := s.getProtected(ctx, withQuery("/api/validation/uncertainty", params), &resp, "failed to fetch uncertainty data")
	return resp, err
}
