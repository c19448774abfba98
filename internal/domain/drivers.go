package domain

// DriverContribution is one factor's share of the observed level change.
type DriverContribution struct {
	Factor          string  `json:"factor"`
	ContributionPct float64 `json:"contribution_pct"`
	ContributionAbs float64 `json:"contribution_abs"`
	Description     string  `json:"description"`
}

// DriverAttribution is the response of GET /api/drivers/attribution.
type DriverAttribution struct {
	State         string               `json:"state,omitempty"`
	District      string               `json:"district,omitempty"`
	Contributions []DriverContribution `json:"contributions"`
}
