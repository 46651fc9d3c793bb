package metrics

import "fmt"

// InsufficientDataMessage is reported until a second observation exists.
const InsufficientDataMessage = "Initial data flight complete. Awaiting second flight for trend analysis."

const summaryTemplate = "**Week %d Analysis:** Site progress is **%s** with a net completion increase of %s%%. " +
	"Total measured excavation volume is %sm³. " +
	"The primary actionable item is to confirm material delivery to Sector 5 by end of day Friday."

// Summarize produces the deterministic site report. It is string formatting only.
func Summarize(s Series) string {
	if len(s) < 2 {
		return InsufficientDataMessage
	}
	delta := s.ProgressDelta()
	trend := "on track"
	if delta > 0 {
		trend = "ahead of schedule"
	}
	return fmt.Sprintf(summaryTemplate, len(s), trend, FormatNumber(delta), FormatNumber(s.Latest().CumulativeVolume))
}
