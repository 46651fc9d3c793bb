package metrics

// WeeklyMetric is one survey observation. Insertion order is chronological order.
type WeeklyMetric struct {
	Label            string  `json:"label"`
	CumulativeVolume float64 `json:"cumulative_volume"`
	ProgressPercent  float64 `json:"progress_percent"`
	CutVolume        float64 `json:"cut_volume"`
	FillVolume       float64 `json:"fill_volume"`
}

// Series is an ordered sequence of weekly metrics, oldest first.
type Series []WeeklyMetric

// View bundles the derived display figures for a series.
type View struct {
	Latest        WeeklyMetric `json:"latest"`
	Weeks         int          `json:"weeks"`
	ProgressDelta float64      `json:"progress_delta"`
	NetCutFill    float64      `json:"net_cut_fill"`
	Summary       string       `json:"summary"`
}

// Anomaly flags an entry that breaks the expected non-decreasing ordering.
type Anomaly struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Field string `json:"field"`
}
