// Package domain holds the wire types exchanged with the groundwater API and
// the few pure transformations the client applies to them.
//
// # Payload Conventions
//
// All payloads are JSON with snake_case keys. Levels are metres below ground
// level (m bgl): a larger number means a deeper water table, so a positive
// trend is a decline.
//
// Fractions versus percentages:
//
//	confidence, r_squared, physics_compliance   0.0–1.0 fractions
//	pumping_change, crop_intensity_change       signed percentages (25 = +25%)
//	contribution_pct                            0–100
//
// Collections are wrapped in a named envelope rather than returned bare:
//
//	GET /api/forecast/history      {"data": [...]}
//	GET /api/policy/history        {"interventions": [...]}
//	GET /api/validation/*map*      {"entries": [...]}
//	GET /api/alerts                {"alerts": [...]}
//
// # Alert Events
//
// The alert relay republishes threshold alerts as [AlertEvent] values. Event
// IDs are deterministic SHA-256 hashes of state|district|severity|message so
// an alert that persists across polls keeps the same ID and is published
// once. See [NewAlertEvent].
package domain
