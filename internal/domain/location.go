package domain

// DefaultIDWPower is the inverse-distance weighting exponent requested by
// default for point interpolation.
const DefaultIDWPower = 2.0

// LocationRequest is the body of POST /api/location/groundwater and
// POST /api/location/report.pdf.
type LocationRequest struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	MonthsAhead int     `json:"months_ahead"`
	K           int     `json:"k"`
	Power       float64 `json:"power"`
}

// LocationForecastPoint is one month of the interpolated outlook.
type LocationForecastPoint struct {
	Month          int     `json:"month"`
	PredictedLevel float64 `json:"predicted_level"`
	LowerBound     float64 `json:"lower_bound"`
	UpperBound     float64 `json:"upper_bound"`
}

// NearestStation is a monitoring well contributing to the interpolation.
type NearestStation struct {
	StationCode string  `json:"station_code"`
	StationName string  `json:"station_name"`
	State       string  `json:"state"`
	District    string  `json:"district"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DistanceKM  float64 `json:"distance_km"`
	GWLatest    float64 `json:"gw_latest"`
	Weight      float64 `json:"weight"`
}

// LocationInsight is the response of POST /api/location/groundwater.
type LocationInsight struct {
	CurrentLevel    float64                 `json:"current_level_m_bgl"`
	TrendPerMonth   float64                 `json:"trend_m_per_month"`
	Trend           string                  `json:"trend"`
	UncertaintyM    float64                 `json:"uncertainty_m"`
	Confidence      string                  `json:"confidence"`
	Forecast        []LocationForecastPoint `json:"forecast"`
	NearestStations []NearestStation        `json:"nearest_stations"`
	Meta            map[string]any          `json:"meta,omitempty"`
}
