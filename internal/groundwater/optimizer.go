package groundwater

import (
	"context"

	"github.com/couchcryptid/groundwater-client/internal/domain"
)

// Optimize selects recharge sites for the request's objectives.
func (s *Service) Optimize(ctx context.Context, req domain.OptimizeRequest) (domain.OptimizationResult, error) {
	var resp domain.OptimizationResult
	err := s.postProtected(ctx, "/api/optimizer/optimize", req, &resp, "failed to run optimization")
	return resp, err
}
