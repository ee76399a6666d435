package batch

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"
)

// Summary aggregates the results of an Execute call.
type Summary struct {
	// BatchID identifies the Execute call in logs.
	BatchID string
	// Total is the number of submitted operations.
	Total      int
	Successful int
	Failed     int
	// SuccessRate is Successful over the number of recorded results, 0 when there are none.
	SuccessRate float64
	// Duration is the wall-clock time of the whole Execute call.
	Duration time.Duration
	// Results are in completion order, not input order.
	Results []Result
	// Rollback lists the rollback attempts made after a rejected batch, in the order they
	// were made. It is empty unless rollback ran.
	Rollback []RollbackAttempt
}

// summarize builds a Summary from results recorded so far.
func summarize(batchID string, total int, results []Result, duration time.Duration) Summary {
	successful := lo.CountBy(results, func(r Result) bool { return r.Success })
	s := Summary{
		BatchID:    batchID,
		Total:      total,
		Successful: successful,
		Failed:     len(results) - successful,
		Duration:   duration,
		Results:    results,
	}
	if len(results) > 0 {
		s.SuccessRate = float64(successful) / float64(len(results))
	}

	return s
}

// DurationMs returns Duration in milliseconds.
func (s Summary) DurationMs() int64 {
	return s.Duration.Milliseconds()
}

// MarshalJSON implements json.Marshaler. Duration is written in milliseconds.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		BatchID     string            `json:"batchId"`
		Total       int               `json:"total"`
		Successful  int               `json:"successful"`
		Failed      int               `json:"failed"`
		SuccessRate float64           `json:"successRate"`
		Duration    int64             `json:"duration"`
		Results     []Result          `json:"results"`
		Rollback    []RollbackAttempt `json:"rollback,omitempty"`
	}{
		BatchID:     s.BatchID,
		Total:       s.Total,
		Successful:  s.Successful,
		Failed:      s.Failed,
		SuccessRate: s.SuccessRate,
		Duration:    s.DurationMs(),
		Results:     s.Results,
		Rollback:    s.Rollback,
	})
}
