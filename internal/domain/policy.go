package domain

// PolicyRequest is the body of POST /api/policy/simulate.
type PolicyRequest struct {
	State               string  `json:"state"`
	PumpingChange       float64 `json:"pumping_change"`
	RechargeStructures  int     `json:"recharge_structures"`
	CropIntensityChange float64 `json:"crop_intensity_change"`
	MonthsAhead         int     `json:"months_ahead"`
}

// TrajectoryPoint is one month of a simulated groundwater trajectory.
type TrajectoryPoint struct {
	Month       int      `json:"month"`
	Groundwater float64  `json:"groundwater"`
	Rainfall    *float64 `json:"rainfall,omitempty"`
}

// PolicyEffect summarises the counterfactual minus the baseline.
type PolicyEffect struct {
	MeanEffect        float64 `json:"mean_effect"`
	FinalEffect       float64 `json:"final_effect"`
	CumulativeEffect  float64 `json:"cumulative_effect"`
	UncertaintyMargin float64 `json:"uncertainty_margin"`
}

// SimulationResult is the response of POST /api/policy/simulate.
type SimulationResult struct {
	BaselineTrajectory       []TrajectoryPoint `json:"baseline_trajectory"`
	CounterfactualTrajectory []TrajectoryPoint `json:"counterfactual_trajectory"`
	PolicyEffect
}

// Intervention is a simulation stored server-side.
type Intervention struct {
	ID                       string            `json:"id"`
	UserID                   string            `json:"user_id"`
	Params                   PolicyRequest     `json:"params"`
	Result                   PolicyEffect      `json:"result"`
	BaselineTrajectory       []TrajectoryPoint `json:"baseline_trajectory"`
	CounterfactualTrajectory []TrajectoryPoint `json:"counterfactual_trajectory"`
	CreatedAt                string            `json:"created_at"`
}

// Simulation reassembles the stored intervention as a SimulationResult.
func (i Intervention) Simulation() SimulationResult {
	return SimulationResult{
		BaselineTrajectory:       i.BaselineTrajectory,
		CounterfactualTrajectory: i.CounterfactualTrajectory,
		PolicyEffect:             i.Result,
	}
}

// InterventionHistory is the envelope of GET /api/policy/history.
type InterventionHistory struct {
	Interventions []Intervention `json:"interventions"`
}
