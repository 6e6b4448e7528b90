package chat

// Estimator approximates token counts for context window budgeting.
// Estimates only need to be monotonic with text length, not exact.
type Estimator interface {
	Estimate(text string) int
}

// CharEstimator divides byte length by a fixed chars-per-token ratio,
// rounding up. The default ratio of 4 matches common English tokenizers
// closely enough for threshold checks.
type CharEstimator struct {
	CharsPerToken int
}

func (e CharEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	ratio := e.CharsPerToken
	if ratio <= 0 {
		ratio = 4
	}
	return (len(text) + ratio - 1) / ratio
}

// EstimateTokens applies the default estimator.
func EstimateTokens(text string) int {
	return CharEstimator{}.Estimate(text)
}
