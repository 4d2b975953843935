package models

// TypeStatistics aggregates approval outcomes for one request type.
// AvgApprovalSeconds is computed over the approved subset only: the mean
// elapsed time between a step's creation and its approval.
type TypeStatistics struct {
	RequestType        RequestType `json:"request_type"`
	Pending            int64       `json:"pending"`
	Approved           int64       `json:"approved"`
	Rejected           int64       `json:"rejected"`
	Escalated          int64       `json:"escalated"`
	AvgApprovalSeconds float64     `json:"avg_approval_seconds"`
}

// Total returns the row count across all statuses for the type.
func (s *TypeStatistics) Total() int64 {
	return s.Pending + s.Approved + s.Rejected + s.Escalated
}

// StatisticsReport is the read-only projection returned by the statistics
// query: per-type aggregates in a stable order plus grand totals.
type StatisticsReport struct {
	ByType        []*TypeStatistics `json:"by_type"`
	TotalPending  int64             `json:"total_pending"`
	TotalApproved int64             `json:"total_approved"`
	TotalRejected int64             `json:"total_rejected"`
}
