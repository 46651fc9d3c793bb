package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CurrentVersion is the encoding version written by Encode.
const CurrentVersion = 1

// Envelope is the structured, versioned encoding of a series inside a document.
type Envelope struct {
	Version int            `json:"version"`
	Weeks   []WeeklyMetric `json:"weeks"`
}

// legacyMetric is the shape of entries in the text-encoded array.
type legacyMetric struct {
	Name     string  `json:"name"`
	Volume   float64 `json:"volume"`
	Progress float64 `json:"progress"`
	Cut      float64 `json:"cut"`
	Fill     float64 `json:"fill"`
}

// Encode writes the series as a version 1 envelope.
func Encode(s Series) (json.RawMessage, error) {
	weeks := []WeeklyMetric(s)
	if weeks == nil {
		weeks = []WeeklyMetric{}
	}
	data, err := json.Marshal(Envelope{Version: CurrentVersion, Weeks: weeks})
	if err != nil {
		return nil, fmt.Errorf("encode metrics: %w", err)
	}
	return data, nil
}

// Decode reads any supported encoding and always returns a non-nil series.
//
// Accepted forms: a versioned envelope, a bare array of version 1 entries, a JSON
// string holding the legacy text-encoded array, or null/absent.
func Decode(raw json.RawMessage) (Series, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Series{}, nil
	}

	switch trimmed[0] {
	case '{':
		var env struct {
			Version *int            `json:"version"`
			Weeks   json.RawMessage `json:"weeks"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if env.Version == nil {
			return nil, fmt.Errorf("%w: missing version", ErrMalformed)
		}
		if *env.Version != CurrentVersion {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, *env.Version)
		}
		return decodeWeeks(env.Weeks)
	case '[':
		return decodeWeeks(trimmed)
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return decodeLegacy(text)
	default:
		return nil, fmt.Errorf("%w: unexpected token %q", ErrMalformed, trimmed[0])
	}
}

func decodeWeeks(raw json.RawMessage) (Series, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Series{}, nil
	}
	var weeks []WeeklyMetric
	if err := json.Unmarshal(raw, &weeks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if weeks == nil {
		return Series{}, nil
	}
	return Series(weeks), nil
}

func decodeLegacy(text string) (Series, error) {
	if len(bytes.TrimSpace([]byte(text))) == 0 {
		return Series{}, nil
	}
	var entries []legacyMetric
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, fmt.Errorf("%w: legacy text: %v", ErrMalformed, err)
	}
	out := make(Series, 0, len(entries))
	for _, e := range entries {
		out = append(out, WeeklyMetric{
			Label:            e.Name,
			CumulativeVolume: e.Volume,
			ProgressPercent:  e.Progress,
			CutVolume:        e.Cut,
			FillVolume:       e.Fill,
		})
	}
	return out, nil
}

// EncodeLegacy renders the series in the legacy text encoding. It exists for
// exercising readers of older documents.
func EncodeLegacy(s Series) (string, error) {
	entries := make([]legacyMetric, 0, len(s))
	for _, m := range s {
		entries = append(entries, legacyMetric{
			Name:     m.Label,
			Volume:   m.CumulativeVolume,
			Progress: m.ProgressPercent,
			Cut:      m.CutVolume,
			Fill:     m.FillVolume,
		})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode legacy metrics: %w", err)
	}
	return string(data), nil
}
