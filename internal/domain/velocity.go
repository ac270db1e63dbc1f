package domain

// WindowMetrics holds the per-account activity counters for one rolling
// window. Unique counts come from probabilistic cardinality estimators
// and are approximate.
type WindowMetrics struct {
	TransactionCount int64   `json:"transaction_count"`
	TotalAmount      float64 `json:"total_amount"`
	UniqueMerchants  int64   `json:"unique_merchants"`
	UniqueLocations  int64   `json:"unique_locations"`
}

// VelocityMetrics aggregates the three fixed windows the velocity counter
// maintains per account.
type VelocityMetrics struct {
	Last5Minutes WindowMetrics `json:"last_5m"`
	LastHour     WindowMetrics `json:"last_1h"`
	LastDay      WindowMetrics `json:"last_24h"`
}

// EmptyVelocityMetrics is the all-zero sentinel representing no signal.
func EmptyVelocityMetrics() VelocityMetrics {
	return VelocityMetrics{}
}

// IsEmpty returns true if no window recorded any activity.
func (v VelocityMetrics) IsEmpty() bool {
	return v.Last5Minutes.TransactionCount == 0 &&
		v.LastHour.TransactionCount == 0 &&
		v.LastDay.TransactionCount == 0
}
