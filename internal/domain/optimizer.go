package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OptimizeRequest is the body of POST /api/optimizer/optimize.
type OptimizeRequest struct {
	State      string   `json:"state"`
	Objectives []string `json:"objectives"`
	MaxBudget  *float64 `json:"max_budget,omitempty"`
	NLQuery    string   `json:"nl_query,omitempty"`
	NSites     int      `json:"n_sites"`
}

// SiteID identifies a candidate site. The server sends either a string or a
// number; both decode to the same textual form.
type SiteID string

func (id *SiteID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SiteID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("site id: %w", err)
	}
	*id = SiteID(n.String())
	return nil
}

// Site is one recommended recharge site.
type Site struct {
	ID            SiteID   `json:"id"`
	Explanation   string   `json:"explanation"`
	ImpactScore   float64  `json:"impact_score"`
	EstimatedCost float64  `json:"estimated_cost"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	State         string   `json:"state,omitempty"`
	TotalScore    *float64 `json:"total_score,omitempty"`
}

// LatLon is a WGS-84 coordinate pair.
type LatLon struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Bounds is a lat/lon bounding box.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// OptimizationMetadata reports how much of the candidate pool was searched.
type OptimizationMetadata struct {
	CandidatesEvaluated int  `json:"n_candidates_evaluated"`
	SitesSelected       *int `json:"n_sites_selected,omitempty"`
}

// OptimizationResult is the response of POST /api/optimizer/optimize.
type OptimizationResult struct {
	SelectedSites    []Site               `json:"selected_sites"`
	AverageCost      float64              `json:"average_cost"`
	TotalImpact      float64              `json:"total_impact"`
	MapCenter        LatLon               `json:"map_center"`
	SearchAreaBounds Bounds               `json:"search_area_bounds"`
	Metadata         OptimizationMetadata `json:"metadata"`
}
