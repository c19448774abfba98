package groundwater

import (
	"context"

	"github.com/couchcryptid/groundwater-client/internal/domain"
)

// DefaultPolicyReportName is used when the export carries no filename.
const DefaultPolicyReportName = "policy_comparison.pdf"

// SimulatePolicy runs a counterfactual intervention for one state.
func (s *Service) SimulatePolicy(ctx context.Context, req domain.PolicyRequest) (domain.SimulationResult, error) {
	var resp domain.SimulationResult
	err := s.postProtected(ctx, "/api/policy/simulate", req, &resp, "failed to run simulation")
	return resp, err
}

// PolicyHistory returns the caller's stored interventions. limit <= 0 leaves
// the page size to the server.
func (s *Service) PolicyHistory(ctx context.Context, limit int) ([]domain.Intervention, error) {
	var resp domain.InterventionHistory
	path := withQuery("/api/policy/history", map[string]string{"limit": limitParam(limit)})
	if err := s.getProtected(ctx, path, &resp, "failed to load intervention history"); err != nil {
		return nil, err
	}
	return resp.Interventions, nil
}

// ExportPolicyPDF downloads the comparison report for a stored intervention.
func (s *Service) ExportPolicyPDF(ctx context.Context, interventionID string) (*Document, error) {
	path := withQuery("/api/policy/export-pdf", map[string]string{"intervention_id": interventionID})
	return s.download(ctx, path, nil, DefaultPolicyReportName, "export failed")
}
