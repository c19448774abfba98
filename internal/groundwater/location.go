package groundwater

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/couchcryptid/groundwater-client/internal/adapter/api"
	"github.com/couchcryptid/groundwater-client/internal/domain"
)

// DefaultLocationReportName is used when the report carries no filename.
const DefaultLocationReportName = "location_groundwater_report.pdf"

// LocationGroundwater interpolates current level and outlook at a point from
// the nearest monitoring stations.
func (s *Service) LocationGroundwater(ctx context.Context, req domain.LocationRequest) (domain.LocationInsight, error) {
	var resp domain.LocationInsight
	err := s.postProtected(ctx, "/api/location/groundwater", withDefaultPower(req), &resp, "failed to get location insight")
	return resp, err
}

// LocationReportPDF downloads the PDF report for a point.
func (s *Service) LocationReportPDF(ctx context.Context, req domain.LocationRequest) (*Document, error) {
	payload, err := json.Marshal(withDefaultPower(req))
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	r := &api.Request{Method: http.MethodPost, Body: bytes.NewReader(payload)}
	return s.download(ctx, "/api/location/report.pdf", r, DefaultLocationReportName, "failed to download report")
}

func withDefaultPower(req domain.LocationRequest) domain.LocationRequest {
	if req.Power == 0 {
		req.Power = domain.DefaultIDWPower
	}
	return req
}
