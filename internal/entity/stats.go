package entity

import "time"

type (
	// SourceCounts buckets responses by channel. Unrecognized counts sources
	// this build does not know about.
	SourceCounts struct {
		Digital        int `json:"digital"`
		PhysicalUpload int `json:"physical_upload"`
		Unrecognized   int `json:"unrecognized,omitempty"`
	}

	DateRange struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}

	// Stats is computed from a response set on every load and never stored.
	Stats struct {
		TotalResponses int          `json:"totalResponses"`
		Sources        SourceCounts `json:"sources"`
		QuestionCount  int          `json:"questionCount"`
		CompletionRate int          `json:"completionRate"`
		DateRange      DateRange    `json:"dateRange"`
	}
)

// ComputeStats aggregates responses. It returns nil for an empty set.
// QuestionCount is taken from the first response only.
func ComputeStats(responses []Response) *Stats {
	if len(responses) == 0 {
		return nil
	}

	stats := &Stats{
		TotalResponses: len(responses),
		QuestionCount:  len(responses[0].Answers),
		CompletionRate: 100,
		DateRange: DateRange{
			Start: responses[0].SubmittedAt,
			End:   responses[0].SubmittedAt,
		},
	}

	for _, r := range responses {
		switch r.Source {
		case SourceDigital:
			stats.Sources.Digital++
		case SourcePhysicalUpload:
			stats.Sources.PhysicalUpload++
		default:
			stats.Sources.Unrecognized++
		}

		if r.SubmittedAt.Before(stats.DateRange.Start) {
			stats.DateRange.Start = r.SubmittedAt
		}
		if r.SubmittedAt.After(stats.DateRange.End) {
			stats.DateRange.End = r.SubmittedAt
		}
	}

	return stats
}
