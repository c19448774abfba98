package domain

// StateList is the envelope of the various */states taxonomy endpoints.
type StateList struct {
	States []string `json:"states"`
}

// DistrictList is the envelope of GET /api/districts.
type DistrictList struct {
	State     string   `json:"state,omitempty"`
	Districts []string `json:"districts"`
}
