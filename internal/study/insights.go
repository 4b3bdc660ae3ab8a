package study

import (
	"time"

	"github.com/pavelanni/studybuddy/internal/model"
)

// Trend describes how the latest attempts compare to the overall average.
type Trend string

const (
	TrendUnknown   Trend = "unknown"
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

const (
	trendWindow    = 3
	stableMargin   = 5.0
	streakDuration = 7 * 24 * time.Hour
)

// Insights are the derived figures shown on the progress dashboard.
type Insights struct {
	Trend            Trend
	RecentAverage    float64
	QuestionsTotal   int
	QuestionsCorrect int
	Accuracy         float64
	Strongest        *model.DifficultyStats
	Weakest          *model.DifficultyStats
	LastWeekCount    int
}

// Analyze derives dashboard insights. history must be newest first.
func Analyze(history []model.QuizAttempt, stats model.PerformanceStats, byDifficulty []model.DifficultyStats, now time.Time) Insights {
	in := Insights{Trend: TrendUnknown}

	if len(history) >= trendWindow {
		var sum float64
		for _, a := range history[:trendWindow] {
			sum += a.Percentage
		}
		in.RecentAverage = sum / trendWindow
		switch {
		case in.RecentAverage > stats.AverageScore:
			in.Trend = TrendImproving
		case in.RecentAverage >= stats.AverageScore-stableMargin:
			in.Trend = TrendStable
		default:
			in.Trend = TrendDeclining
		}
	}

	weekAgo := now.Add(-streakDuration)
	for _, a := range history {
		in.QuestionsTotal += a.TotalQuestions
		in.QuestionsCorrect += a.Score
		if a.Timestamp.After(weekAgo) {
			in.LastWeekCount++
		}
	}
	in.Accuracy = model.Percentage(in.QuestionsCorrect, in.QuestionsTotal)

	for i := range byDifficulty {
		d := &byDifficulty[i]
		if in.Strongest == nil || d.AverageScore > in.Strongest.AverageScore {
			in.Strongest = d
		}
		if in.Weakest == nil || d.AverageScore < in.Weakest.AverageScore {
			in.Weakest = d
		}
	}
	// A single level is not compared against itself.
	if len(byDifficulty) < 2 {
		in.Weakest = nil
	}

	return in
}
