package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want SiteID
	}{
		{name: "string", in: `"site-42"`, want: "site-42"},
		{name: "integer", in: `42`, want: "42"},
		{name: "float", in: `4.5`, want: "4.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id SiteID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
			assert.Equal(t, tt.want, id)
		})
	}

	var id SiteID
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &id))
}

func TestOptimizationResult_Decode(t *testing.T) {
	raw := `{
		"selected_sites":[{"id":7,"explanation":"high recharge potential","impact_score":0.81,"estimated_cost":125000,"latitude":30.9,"longitude":75.8}],
		"average_cost":125000,"total_impact":0.81,
		"map_center":{"latitude":30.9,"longitude":75.8},
		"search_area_bounds":{"north":32,"south":29,"east":77,"west":73},
		"metadata":{"n_candidates_evaluated":500}
	}`
	var got OptimizationResult
	require.NoError(t, json.Unmarshal([]byte(raw), &got))

	want := OptimizationResult{
		SelectedSites: []Site{{
			ID: "7", Explanation: "high recharge potential", ImpactScore: 0.81,
			EstimatedCost: 125000, Latitude: 30.9, Longitude: 75.8,
		}},
		AverageCost:      125000,
		TotalImpact:      0.81,
		MapCenter:        LatLon{Latitude: 30.9, Longitude: 75.8},
		SearchAreaBounds: Bounds{North: 32, South: 29, East: 77, West: 73},
		Metadata:         OptimizationMetadata{CandidatesEvaluated: 500},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("OptimizationResult mismatch (-want +got):\n%s", diff)
	}
}

func TestOptimizeRequest_OmitsOptionalFields(t *testing.T) {
	data, err := json.Marshal(OptimizeRequest{State: "Punjab", Objectives: []string{"impact"}, NSites: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"Punjab","objectives":["impact"],"n_sites":5}`, string(data))
}
