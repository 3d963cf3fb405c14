package agent

// Usage holds normalized token and price counters for a single model call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// Prices are in Currency units. Providers that expose no pricing leave
	// these at zero; the models package fills them from its pricing table.
	PromptPrice     float64
	CompletionPrice float64
	TotalPrice      float64
	Currency        string
}

// UsageAccumulator merges per-call Usage values into a running total.
//
// It has a single-writer contract: exactly one goroutine (the reasoning loop
// that owns it) calls Add. Counters only ever increase.
type UsageAccumulator struct {
	total Usage
	seen  bool
}

// NewUsageAccumulator returns an empty accumulator.
func NewUsageAccumulator() *UsageAccumulator {
	return &UsageAccumulator{}
}

// Add merges u into the running total. Nil is ignored.
func (a *UsageAccumulator) Add(u *Usage) {
	if u == nil {
		return
	}
	if !a.seen {
		a.total.Currency = u.Currency
		a.seen = true
	}
	a.total.PromptTokens += u.PromptTokens
	a.total.CompletionTokens += u.CompletionTokens
	a.total.TotalTokens += u.TotalTokens
	a.total.PromptPrice += u.PromptPrice
	a.total.CompletionPrice += u.CompletionPrice
	a.total.TotalPrice += u.TotalPrice
}

// Total returns a copy of the accumulated usage.
func (a *UsageAccumulator) Total() Usage {
	return a.total
}

// Seen reports whether any usage has been recorded.
func (a *UsageAccumulator) Seen() bool {
	return a.seen
}
