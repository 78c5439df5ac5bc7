package scoring

import (
	"sort"

	"myGreenInsight/domain"
)

// pushHistory appends the previous value of a score to its history and
// keeps only the newest domain.MaxScoreHistory entries.
func pushHistory(history []domain.ScoreHistoryEntry, prev domain.ScoreHistoryEntry) []domain.ScoreHistoryEntry {
	out := make([]domain.ScoreHistoryEntry, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, prev)
	return capHistory(out)
}

func capHistory(history []domain.ScoreHistoryEntry) []domain.ScoreHistoryEntry {
	if len(history) <= domain.MaxScoreHistory {
		return history
	}

	// oldest first, so the overflow sits at the front
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CalculatedAt.Before(history[j].CalculatedAt)
	})

	toDrop := len(history) - domain.MaxScoreHistory
	return history[toDrop:]
}
