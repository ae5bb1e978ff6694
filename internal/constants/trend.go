package constants

// Trend is the direction a venue's queue moved with its latest update.
type Trend string

const (
	// TrendIncreasing means the latest queue length is strictly greater than the previous one
	TrendIncreasing Trend = "increasing"
	// TrendDecreasing means the latest queue length is strictly smaller than the previous one
	TrendDecreasing Trend = "decreasing"
	// TrendStable means the queue length did not change
	TrendStable Trend = "stable"
)
