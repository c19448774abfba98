package domain

// ForecastRequest is the body of POST /api/forecast/generate.
type ForecastRequest struct {
	State           string  `json:"state"`
	District        string  `json:"district"`
	ForecastHorizon int     `json:"forecast_horizon"`
	RainfallValue   float64 `json:"rainfall_value"`
	LagGW           float64 `json:"lag_gw"`
}

// ForecastParams echoes the inputs a forecast was generated from.
type ForecastParams struct {
	State           string  `json:"state"`
	District        string  `json:"district"`
	ForecastHorizon int     `json:"forecast_horizon"`
	Rainfall        float64 `json:"rainfall"`
	LaggingGW       float64 `json:"lagging_gw"`
}

// ForecastResult is the model output for one forecast run.
type ForecastResult struct {
	PredictedLevel    float64 `json:"predicted_level"`
	Confidence        float64 `json:"confidence"`
	Uncertainty       float64 `json:"uncertainty"`
	PhysicsCompliance float64 `json:"physics_compliance"`
}

// Forecast is one stored or freshly generated forecast run.
type Forecast struct {
	Params    ForecastParams `json:"params"`
	Result    ForecastResult `json:"result"`
	Timestamp string         `json:"timestamp"`
}

// ForecastHistory is the envelope of GET /api/forecast/history.
type ForecastHistory struct {
	Data []Forecast `json:"data"`
}
