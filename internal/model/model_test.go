package model

import (
	"math"
	"strings"
	"testing"
)

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    Difficulty
		wantErr bool
	}{
		{"Easy", DifficultyEasy, false},
		{"intermediate", DifficultyIntermediate, false},
		{" ADVANCED ", DifficultyAdvanced, false},
		{"medium", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDifficulty(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDifficulty(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDifficulty(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, total int
		want         float64
	}{
		{3, 5, 60},
		{1, 3, 33.333},
		{0, 0, 0},
		{5, 0, 0},
		{4, 4, 100},
	}
	for _, tt := range tests {
		got := Percentage(tt.score, tt.total)
		if math.Abs(got-tt.want) > 0.01 {
			t.Errorf("Percentage(%d, %d) = %.3f, want %.3f", tt.score, tt.total, got, tt.want)
		}
	}
}

func TestNewQuizAttempt(t *testing.T) {
	long := strings.Repeat("ф", 150)
	a := NewQuizAttempt(long, DifficultyIntermediate, 3, 5)
	if n := len([]rune(a.Topic)); n != MaxTopicLength {
		t.Errorf("topic length = %d runes, want %d", n, MaxTopicLength)
	}
	if a.Percentage != 60 {
		t.Errorf("percentage = %v, want 60", a.Percentage)
	}

	empty := NewQuizAttempt("  ", DifficultyEasy, 0, 0)
	if empty.Topic != "Quiz" {
		t.Errorf("empty topic = %q, want 'Quiz'", empty.Topic)
	}
	if empty.Percentage != 0 {
		t.Errorf("percentage with zero total = %v, want 0", empty.Percentage)
	}
}

func TestQuizItemIsCorrect(t *testing.T) {
	item := QuizItem{
		Question:      "2+2?",
		Options:       map[string]string{"D": "5", "A": "4", "C": "3", "B": "22"},
		CorrectAnswer: "A",
	}
	if got := strings.Join(item.Labels(), ""); got != "ABCD" {
		t.Errorf("Labels() = %q, want ABCD", got)
	}
	if !item.IsCorrect("A") {
		t.Error("A should be correct")
	}
	if item.IsCorrect("B") || item.IsCorrect("") {
		t.Error("B and empty answer should be incorrect")
	}

	item.Ungradable = true
	if item.IsCorrect("A") {
		t.Error("ungradable item must never be correct")
	}
}

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		pct  float64
		want ScoreCategory
	}{
		{100, CategoryExcellent},
		{90, CategoryExcellent},
		{89.9, CategoryGood},
		{70, CategoryGood},
		{69.99, CategoryNeedsReview},
		{0, CategoryNeedsReview},
	}
	for _, tt := range tests {
		if got := CategoryFor(tt.pct); got != tt.want {
			t.Errorf("CategoryFor(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}
