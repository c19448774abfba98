package domain

// ValidationMetrics are the headline accuracy figures for the deployed model.
type ValidationMetrics struct {
	RMSE                        float64 `json:"rmse"`
	MAE                         float64 `json:"mae"`
	RSquared                    float64 `json:"r_squared"`
	PhysicsCompliance           float64 `json:"physics_compliance"`
	MeanAbsolutePercentageError float64 `json:"mean_absolute_percentage_error"`
}

// ComparisonMetric compares the model against the baseline on one metric.
type ComparisonMetric struct {
	MetricName            string  `json:"metric_name"`
	BaselineValue         float64 `json:"baseline_value"`
	GNNModelValue         float64 `json:"gnn_model_value"`
	ImprovementPercentage float64 `json:"improvement_percentage"`
}

// ModelInfo describes the deployed model.
type ModelInfo struct {
	Name               string         `json:"name"`
	Version            string         `json:"version"`
	Type               string         `json:"type"`
	ReleaseDate        string         `json:"release_date,omitempty"`
	Architecture       map[string]any `json:"architecture,omitempty"`
	Training           map[string]any `json:"training,omitempty"`
	PhysicsConstraints []string       `json:"physics_constraints,omitempty"`
	Limitations        []string       `json:"limitations,omitempty"`
}

// ValidationReport is the response of GET /api/validation/metrics.
type ValidationReport struct {
	Metrics         ValidationMetrics  `json:"metrics"`
	ComparisonTable []ComparisonMetric `json:"comparison_table"`
	Timestamp       string             `json:"timestamp"`
	ModelInfo       ModelInfo          `json:"model_info"`
}

// MetricsSnapshot is one historical evaluation.
type MetricsSnapshot struct {
	Date              string  `json:"date"`
	RMSE              float64 `json:"rmse"`
	RSquared          float64 `json:"r_squared"`
	PhysicsCompliance float64 `json:"physics_compliance"`
}

// MetricsHistory is the envelope of GET /api/validation/metrics/history.
type MetricsHistory struct {
	History []MetricsSnapshot `json:"history"`
}

// ModelInfoResponse is the envelope of GET /api/validation/model-info.
type ModelInfoResponse struct {
	ModelInfo ModelInfo `json:"model_info"`
}

// LimitationsResponse is the envelope of GET /api/validation/limitations.
type LimitationsResponse struct {
	Limitations []string `json:"limitations"`
}

// ConfidenceEntry is the model confidence for one state or district.
type ConfidenceEntry struct {
	State      string  `json:"state"`
	District   string  `json:"district,omitempty"`
	Confidence float64 `json:"confidence"`
	Samples    int     `json:"samples"`
}

// ConfidenceMap is the envelope of the confidence-map endpoints.
type ConfidenceMap struct {
	Entries []ConfidenceEntry `json:"entries"`
}

// UncertaintyPoint is one dated mean with its 95% band.
type UncertaintyPoint struct {
	Date  string  `json:"date"`
	Mean  float64 `json:"mean"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// UncertaintySeries is the response of GET /api/validation/uncertainty.
type UncertaintySeries struct {
	Predictions []UncertaintyPoint `json:"predictions"`
	Source      string             `json:"source,omitempty"`
}
