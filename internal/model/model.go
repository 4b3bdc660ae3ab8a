package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Difficulty represents the study level a request is pitched at.
type Difficulty string

const (
	DifficultyEasy         Difficulty = "Easy"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// Difficulties returns all levels in display order.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyIntermediate, DifficultyAdvanced}
}

// ParseDifficulty maps a case-insensitive level name to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range Difficulties() {
		if strings.EqualFold(strings.TrimSpace(s), string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q (want Easy, Intermediate or Advanced)", s)
}

// Rank orders difficulties from 1 (Easy) to 3 (Advanced). Unknown values rank last.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyIntermediate:
		return 2
	case DifficultyAdvanced:
		return 3
	}
	return 4
}

// Lower returns the level name in lower case, as used inside prompts.
func (d Difficulty) Lower() string {
	return strings.ToLower(string(d))
}

// ContentType names one of the generation operations.
type ContentType string

const (
	ContentExplain    ContentType = "explain"
	ContentSummarize  ContentType = "summarize"
	ContentQuiz       ContentType = "quiz"
	ContentFlashcards ContentType = "flashcards"
	ContentKeyPoints  ContentType = "keypoints"
)

// GenerationRequest describes a single user action. Quantity only applies to quizzes and flashcards.
type GenerationRequest struct {
	ContentType ContentType
	Subject     string
	Difficulty  Difficulty
	Quantity    int
}

// QuizItem is one multiple-choice question as produced by the model.
type QuizItem struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation"`

	// Ungradable is set when CorrectAnswer does not name one of the options.
	Ungradable bool `json:"-"`
}

// Labels returns the option labels in display order.
func (q QuizItem) Labels() []string {
	labels := make([]string, 0, len(q.Options))
	for k := range q.Options {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

// HasOption reports whether label is one of the item's options.
func (q QuizItem) HasOption(label string) bool {
	_, ok := q.Options[label]
	return ok
}

// IsCorrect reports whether label is the right answer. Ungradable items are never correct.
func (q QuizItem) IsCorrect(label string) bool {
	if q.Ungradable || label == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(label), strings.TrimSpace(q.CorrectAnswer))
}

// Flashcard is a front/back study card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// MaxTopicLength bounds the topic stored with a quiz attempt, in characters.
const MaxTopicLength = 100

// QuizAttempt is a persisted quiz submission.
type QuizAttempt struct {
	ID             int64      `json:"id"`
	Topic          string     `json:"topic"`
	Difficulty     Difficulty `json:"difficulty"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"total_questions"`
	Percentage     float64    `json:"percentage"`
	Timestamp      time.Time  `json:"timestamp"`
}

// NewQuizAttempt builds an attempt with a truncated topic and computed percentage.
// The timestamp is left for the store to assign.
func NewQuizAttempt(topic string, difficulty Difficulty, score, total int) QuizAttempt {
	if strings.TrimSpace(topic) == "" {
		topic = "Quiz"
	}
	return QuizAttempt{
		Topic:          TruncateRunes(topic, MaxTopicLength),
		Difficulty:     difficulty,
		Score:          score,
		TotalQuestions: total,
		Percentage:     Percentage(score, total),
	}
}

// Percentage returns 100*score/total, or 0 when total is not positive.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) * 100 / float64(total)
}

// TruncateRunes cuts s to at most n characters without splitting a UTF-8 sequence.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// PerformanceStats aggregates every stored attempt.
type PerformanceStats struct {
	TotalQuizzes int     `json:"total_quizzes"`
	AverageScore float64 `json:"average_score"`
	BestScore    float64 `json:"best_score"`
	LowestScore  float64 `json:"lowest_score"`
}

// DifficultyStats is the average percentage for one difficulty level.
type DifficultyStats struct {
	Difficulty   Difficulty `json:"difficulty"`
	AverageScore float64    `json:"average_score"`
	QuizCount    int        `json:"quiz_count"`
}

// ScoreCategory buckets a percentage for the dashboard.
type ScoreCategory string

const (
	CategoryExcellent   ScoreCategory = "Excellent"
	CategoryGood        ScoreCategory = "Good"
	CategoryNeedsReview ScoreCategory = "Needs Review"
)

// CategoryFor returns the bucket a percentage falls into.
func CategoryFor(percentage float64) ScoreCategory {
	switch {
	case percentage >= 90:
		return CategoryExcellent
	case percentage >= 70:
		return CategoryGood
	}
	return CategoryNeedsReview
}

// ScoreBucket counts attempts in one category.
type ScoreBucket struct {
	Category ScoreCategory `json:"category"`
	Count    int           `json:"count"`
}

// TrendPoint is a single (percentage, time) sample.
type TrendPoint struct {
	Percentage float64   `json:"percentage"`
	Timestamp  time.Time `json:"timestamp"`
}

// AppConfig holds runtime parameters for the web UI set via CLI flags.
type AppConfig struct {
	DefaultDifficulty Difficulty
	LLMTimeout        time.Duration // 0 means no deadline beyond the request's
	HistoryLimit      int
	TrendLimit        int
	MaxUploadBytes    int64
	BasePath          string // URL prefix when served behind a reverse proxy
	SecureCookies     bool
}
