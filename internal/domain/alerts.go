package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Alert severities reported by GET /api/alerts.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

// Alert is a threshold alert for a state or district.
type Alert struct {
	State             string  `json:"state"`
	District          string  `json:"district,omitempty"`
	Severity          string  `json:"severity"`
	Message           string  `json:"message"`
	GWLevel           float64 `json:"gw_level"`
	Trend             string  `json:"trend"`
	ThresholdExceeded bool    `json:"threshold_exceeded"`
}

// AlertList is the envelope of GET /api/alerts.
type AlertList struct {
	Alerts []Alert `json:"alerts"`
}

// AlertEvent is an alert as published downstream by the relay.
type AlertEvent struct {
	ID string `json:"id"`
	Alert
	ObservedAt time.Time `json:"observed_at"`
}

// NewAlertEvent stamps a with its deterministic ID and the current time.
func NewAlertEvent(a Alert) AlertEvent {
	return AlertEvent{
		ID:         generateID(a.State, a.District, a.Severity, a.Message),
		Alert:      a,
		ObservedAt: clock.Now().UTC(),
	}
}

// generateID hashes the fields that identify an alert, so the same alert
// observed on successive polls yields the same ID.
func generateID(state, district, severity, message string) string {
	hash := sha256.Sum256([]byte(state + "|" + district + "|" + severity + "|" + message))
	short := hex.EncodeToString(hash[:8])
	if severity == "" {
		return short
	}
	return severity + "-" + short
}
