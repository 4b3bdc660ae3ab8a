package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/studybuddy/internal/model"
)

// Export builds the full history document: aggregates plus up to limit attempts.
func (s *Store) Export(limit int) (model.HistoryExport, error) {
	var out model.HistoryExport
	var err error

	if out.Stats, err = s.Stats(); err != nil {
		return out, fmt.Errorf("stats: %w", err)
	}
	if out.ByDifficulty, err = s.StatsByDifficulty(); err != nil {
		return out, fmt.Errorf("stats by difficulty: %w", err)
	}
	if out.Distribution, err = s.ScoreDistribution(); err != nil {
		return out, fmt.Errorf("score distribution: %w", err)
	}
	if limit <= 0 {
		limit = out.Stats.TotalQuizzes
	}
	if limit > 0 {
		if out.Attempts, err = s.History(limit); err != nil {
			return out, fmt.Errorf("history: %w", err)
		}
	}
	out.GeneratedAt = time.Now().UTC()
	return out, nil
}
