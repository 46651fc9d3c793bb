package metrics

import (
	"math"
	"strconv"
)

// Latest returns the newest metric, or the zero placeholder when the series is empty.
func (s Series) Latest() WeeklyMetric {
	if len(s) == 0 {
		return WeeklyMetric{}
	}
	return s[len(s)-1]
}

// Previous returns the second-newest metric and whether it exists.
func (s Series) Previous() (WeeklyMetric, bool) {
	if len(s) < 2 {
		return WeeklyMetric{}, false
	}
	return s[len(s)-2], true
}

// ProgressDelta returns the week-over-week progress change, or 0 with fewer than two entries.
func (s Series) ProgressDelta() float64 {
	prev, ok := s.Previous()
	if !ok {
		return 0
	}
	return s.Latest().ProgressPercent - prev.ProgressPercent
}

// NetCutFill returns the earthwork balance of the newest entry.
func (s Series) NetCutFill() float64 {
	latest := s.Latest()
	return latest.CutVolume - latest.FillVolume
}

// Summarize returns the templated site report for the series.
func (s Series) Summarize() string {
	return Summarize(s)
}

// Anomalies reports entries whose progress or cumulative volume decreases relative to
// the entry before them. The series is not modified.
func (s Series) Anomalies() []Anomaly {
	var out []Anomaly
	for i := 1; i < len(s); i++ {
		if s[i].ProgressPercent < s[i-1].ProgressPercent {
			out = append(out, Anomaly{Index: i, Label: s[i].Label, Field: "progress_percent"})
		}
		if s[i].CumulativeVolume < s[i-1].CumulativeVolume {
			out = append(out, Anomaly{Index: i, Label: s[i].Label, Field: "cumulative_volume"})
		}
	}
	return out
}

// NewView derives every display figure for the series.
func NewView(s Series) View {
	return View{
		Latest:        s.Latest(),
		Weeks:         len(s),
		ProgressDelta: s.ProgressDelta(),
		NetCutFill:    s.NetCutFill(),
		Summary:       Summarize(s),
	}
}

// FormatDelta renders a progress delta rounded to one decimal place, with an explicit sign.
func FormatDelta(delta float64) string {
	rounded := math.Round(delta*10) / 10
	if rounded == 0 {
		// avoid "-0.0"
		rounded = 0
	}
	text := strconv.FormatFloat(rounded, 'f', 1, 64)
	if rounded >= 0 {
		return "+" + text
	}
	return text
}

// FormatNumber renders a figure in its shortest exact form (12, 2100, 12.5).
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
