package domain

import (
	"encoding/json"
	"math"
	"strings"
)

// ConfidenceProperty is the feature property AttachConfidence writes.
const ConfidenceProperty = "_confidence"

// FeatureCollection is a GeoJSON feature collection as served by
// GET /api/validation/regions. Geometry is passed through untouched.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
	// Members holds every other top-level member (bbox, crs, ...) verbatim.
	Members map[string]json.RawMessage `json:"-"`
}

func (fc *FeatureCollection) UnmarshalJSON(data []byte) error {
	type plain FeatureCollection
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	members, err := foreignMembers(data, "type", "features")
	if err != nil {
		return err
	}
	p.Members = members
	*fc = FeatureCollection(p)
	return nil
}

func (fc FeatureCollection) MarshalJSON() ([]byte, error) {
	type plain FeatureCollection
	return withMembers(plain(fc), fc.Members)
}

// Feature is a single GeoJSON feature.
type Feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	Properties map[string]any  `json:"properties"`
	// Members holds id, bbox and any other member verbatim.
	Members map[string]json.RawMessage `json:"-"`
}

func (f *Feature) UnmarshalJSON(data []byte) error {
	type plain Feature
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	members, err := foreignMembers(data, "type", "geometry", "properties")
	if err != nil {
		return err
	}
	p.Members = members
	*f = Feature(p)
	return nil
}

func (f Feature) MarshalJSON() ([]byte, error) {
	type plain Feature
	return withMembers(plain(f), f.Members)
}

// foreignMembers returns the members of the JSON object data other than known.
func foreignMembers(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// withMembers marshals v and adds members it does not already define.
func withMembers(v any, members map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(members) == 0 {
		return data, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for k, raw := range members {
		if _, ok := out[k]; !ok {
			out[k] = raw
		}
	}
	return json.Marshal(out)
}

// Name returns the feature's region name: state_name, else state, else "".
func (f Feature) Name() string {
	for _, key := range []string{"state_name", "state"} {
		if v, ok := f.Properties[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// AttachConfidence sets properties._confidence on every feature to the
// matching entry's confidence as a rounded percentage. Names are compared
// case-insensitively; unmatched features get 0.
func AttachConfidence(fc *FeatureCollection, entries []ConfidenceEntry) {
	if fc == nil {
		return
	}
	byState := make(map[string]ConfidenceEntry, len(entries))
	for _, e := range entries {
		byState[strings.ToLower(e.State)] = e
	}

	for i := range fc.Features {
		f := &fc.Features[i]
		if f.Properties == nil {
			f.Properties = make(map[string]any)
		}
		pct := 0
		if match, ok := byState[strings.ToLower(f.Name())]; ok {
			pct = int(math.Floor(match.Confidence*100 + 0.5))
		}
		f.Properties[ConfidenceProperty] = pct
	}
}
