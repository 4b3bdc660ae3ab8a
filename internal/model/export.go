package model

import "time"

// HistoryExport is the top-level JSON structure for the export command.
type HistoryExport struct {
	GeneratedAt  time.Time         `json:"generated_at"`
	Stats        PerformanceStats  `json:"stats"`
	ByDifficulty []DifficultyStats `json:"by_difficulty"`
	Distribution []ScoreBucket     `json:"distribution"`
	Attempts     []QuizAttempt     `json:"attempts"`
}
