package insights

import (
	"sort"

	"github.com/aristath/dealdesk/internal/domain"
)

// DefaultMaxInsights is the number of insights shown when the caller has no preference
const DefaultMaxInsights = 5

// Rank orders insights by priority (high, medium, low) and keeps at most
// maxInsights of them. The sort is stable: insights of equal priority keep
// their evaluation order. The input slice is not modified.
func Rank(insights []domain.Insight, maxInsights int) []domain.Insight {
	if maxInsights <= 0 || len(insights) == 0 {
		return []domain.Insight{}
	}

	ranked := make([]domain.Insight, len(insights))
	copy(ranked, insights)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority.Weight() > ranked[j].Priority.Weight()
	})

	if len(ranked) > maxInsights {
		ranked = ranked[:maxInsights]
	}
	return ranked
}
