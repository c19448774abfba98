package groundwater

import (
	"context"
	"slices"

	"github.com/couchcryptid/groundwater-client/internal/cache"
	"github.com/couchcryptid/groundwater-client/internal/domain"
	"github.com/couchcryptid/groundwater-client/internal/observability"
)

// Taxonomy lists the states and districts each part of the API supports.
type Taxonomy interface {
	States(ctx context.Context) ([]string, error)
	Districts(ctx context.Context, state string) ([]string, error)
	PolicyStates(ctx context.Context) ([]string, error)
	OptimizerStates(ctx context.Context) ([]string, error)
}

var _ Taxonomy = (*Service)(nil)

// States lists states with monitoring data.
func (s *Service) States(ctx context.Context) ([]string, error) {
	var resp domain.StateList
	if err := s.getProtected(ctx, "/api/states", &resp, "failed to load states"); err != nil {
		return nil, err
	}
	return resp.States, nil
}

// Districts lists the districts of state.
func (s *Service) Districts(ctx context.Context, state string) ([]string, error) {
	var resp domain.DistrictList
	path := withQuery("/api/districts", map[string]string{"state": state})
	if err := s.getProtected(ctx, path, &resp, "failed to load districts"); err != nil {
		return nil, err
	}
	return resp.Districts, nil
}

// PolicyStates lists states the policy simulator supports.
func (s *Service) PolicyStates(ctx context.Context) ([]string, error) {
	var resp domain.StateList
	if err := s.getProtected(ctx, "/api/policy/states", &resp, "failed to load states"); err != nil {
		return nil, err
	}
	return resp.States, nil
}

// OptimizerStates lists states the site optimizer supports.
func (s *Service) OptimizerStates(ctx context.Context) ([]string, error) {
	var resp domain.StateList
	if err := s.getProtected(ctx, "/api/optimizer/states", &resp, "failed to load states"); err != nil {
		return nil, err
	}
	return resp.States, nil
}

// CachedTaxonomy memoises a Taxonomy in a bounded LRU. Errors and empty lists
// are never cached, so a transient failure is retried on the next call.
type CachedTaxonomy struct {
	next    Taxonomy
	entries *cache.LRU[string, []string]
	metrics *observability.Metrics
}

var _ Taxonomy = (*CachedTaxonomy)(nil)

// NewCachedTaxonomy wraps next with an LRU of at most size entries.
func NewCachedTaxonomy(next Taxonomy, size int, metrics *observability.Metrics) *CachedTaxonomy {
	return &CachedTaxonomy{
		next:    next,
		entries: cache.NewLRU[string, []string](size),
		metrics: metrics,
	}
}

func (c *CachedTaxonomy) States(ctx context.Context) ([]string, error) {
	return c.lookup("states", "states", func() ([]string, error) { return c.next.States(ctx) })
}

func (c *CachedTaxonomy) Districts(ctx context.Context, state string) ([]string, error) {
	return c.lookup("districts", "districts:"+state, func() ([]string, error) { return c.next.Districts(ctx, state) })
}

func (c *CachedTaxonomy) PolicyStates(ctx context.Context) ([]string, error) {
	return c.lookup("policy_states", "policy_states", func() ([]string, error) { return c.next.PolicyStates(ctx) })
}

func (c *CachedTaxonomy) OptimizerStates(ctx context.Context) ([]string, error) {
	return c.lookup("optimizer_states", "optimizer_states", func() ([]string, error) { return c.next.OptimizerStates(ctx) })
}

// Len returns the number of cached lists.
func (c *CachedTaxonomy) Len() int {
	return c.entries.Len()
}

func (c *CachedTaxonomy) lookup(kind, key string, fetch func() ([]string, error)) ([]string, error) {
	if v, ok := c.entries.Get(key); ok {
		c.record(kind, "hit")
		return slices.Clone(v), nil
	}
	c.record(kind, "miss")

	v, err := fetch()
	if err != nil {
		return nil, err
	}
	if len(v) > 0 {
		c.entries.Put(key, slices.Clone(v))
	}
	return v, nil
}

func (c *CachedTaxonomy) record(kind, result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.TaxonomyCache.WithLabelValues(kind, result).Inc()
}
