package contextwindow

import "github.com/nodalmind/memoria/internal/scoring"

// taskWindowSizes maps a task type to its preferred window capacity
// (spec.md §4.11 adaptWindow resize table).
var taskWindowSizes = map[string]int{
	"coding":       15,
	"conversation": 10,
	"analysis":     20,
	"creative":     8,
}

// AdaptWindow resizes user's window for taskType and tokenBudget, and
// returns the C6 weight set adapted for priority (spec.md §4.11
// adaptWindow). priority selects which scoring component to emphasize:
// "recency", "importance", "access", or "relevance"; any other value
// leaves the weights at their defaults.
func (m *Manager) AdaptWindow(user, taskType, priority string, tokenBudget int) (scoring.Weights, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.window(user)
	if size, ok := taskWindowSizes[taskType]; ok {
		w.MaxSize = size
	}
	if tokenBudget > 0 {
		w.MaxTokens = tokenBudget
	}

	signals := scoring.AdaptSignals{
		IsRecent:    priority == "recency",
		IsImportant: priority == "importance",
		IsFrequent:  priority == "access",
		IsRelevant:  priority == "relevance",
	}
	return scoring.AdaptWeights(scoring.DefaultWeights(), signals)
}
