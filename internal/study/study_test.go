package study

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pavelanni/studybuddy/internal/llm"
	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/store"
)

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func quizResponse(correct ...string) string {
	var sb strings.Builder
	sb.WriteString("```json\n[\n")
	for i, c := range correct {
		if i > 0 {
			sb.WriteString(",\n")
		}
		fmt.Fprintf(&sb, `{"question": "Question %d?", "options": {"A": "a%d", "B": "b%d", "C": "c%d", "D": "d%d"}, "correct_answer": %q, "explanation": "because %d"}`,
			i+1, i, i, i, i, c, i)
	}
	sb.WriteString("\n]\n```")
	return sb.String()
}

func TestTextOperations(t *testing.T) {
	ops := map[string]func(*Service) (string, error){
		"explain": func(s *Service) (string, error) {
			return s.Explain(context.Background(), "Gravity", model.DifficultyEasy)
		},
		"summarize": func(s *Service) (string, error) {
			return s.Summarize(context.Background(), "Gravity pulls.", model.DifficultyEasy)
		},
		"keypoints": func(s *Service) (string, error) {
			return s.KeyPoints(context.Background(), "Gravity pulls.", model.DifficultyEasy)
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{response: "  **Gravity** is an attraction.\n"}
			out, err := op(New(gen))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != gen.response {
				t.Errorf("plain text should be returned unmodified, got %q", out)
			}
			if len(gen.prompts) != 1 {
				t.Errorf("expected one generation call, got %d", len(gen.prompts))
			}
		})
	}
}

func TestGenerationFailure(t *testing.T) {
	cause := &llm.GenerationError{Model: "m", Err: errors.New("quota exceeded")}
	svc := New(&fakeGenerator{err: cause})

	_, err := svc.Explain(context.Background(), "Gravity", model.DifficultyEasy)
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *Failure, got %T", err)
	}
	if f.Op != model.ContentExplain {
		t.Errorf("Op = %q", f.Op)
	}
	if !strings.HasPrefix(f.Message, "Error generating explanation: ") {
		t.Errorf("Message = %q", f.Message)
	}
	var genErr *llm.GenerationError
	if !errors.As(err, &genErr) {
		t.Error("failure should wrap the generation error")
	}

	items, err := svc.Quiz(context.Background(), "Gravity", model.DifficultyEasy, 5)
	if !errors.As(err, &f) || f.Op != model.ContentQuiz {
		t.Errorf("expected quiz failure, got %v", err)
	}
	if items != nil {
		t.Errorf("expected no items, got %v", items)
	}

	_, err = svc.Flashcards(context.Background(), "Gravity", model.DifficultyEasy, 5)
	if !errors.As(err, &f) || !strings.HasPrefix(f.Message, "Error generating flashcards") {
		t.Errorf("expected flashcard failure, got %v", err)
	}
}

func TestStructuredEmptyIsNotFailure(t *testing.T) {
	svc := New(&fakeGenerator{response: "I cannot produce a quiz on that."})

	items, err := svc.Quiz(context.Background(), "x", model.DifficultyEasy, 5)
	if err != nil {
		t.Fatalf("empty result should not be an error: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", items)
	}

	cards, err := svc.Flashcards(context.Background(), "x", model.DifficultyEasy, 5)
	if err != nil || len(cards) != 0 {
		t.Errorf("Flashcards = (%v, %v), want empty and nil", cards, err)
	}
}

func TestStructuredMalformedIsRecoverable(t *testing.T) {
	svc := New(&fakeGenerator{response: `[{"front": "ATP", "back": "energy",}]`})

	cards, err := svc.Flashcards(context.Background(), "ATP", model.DifficultyEasy, 1)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	var f *Failure
	if !errors.As(err, &f) || f.Op != model.ContentFlashcards {
		t.Errorf("expected flashcard failure, got %v", err)
	}
	if cards != nil {
		t.Errorf("expected no cards, got %v", cards)
	}
}

func TestFlashcards(t *testing.T) {
	gen := &fakeGenerator{response: "Here you go:\n" + `[{"front": "ATP", "back": "Energy currency"}, {"front": "NADPH", "back": "Electron carrier"}]`}
	cards, err := New(gen).Flashcards(context.Background(), "Cell energy", model.DifficultyAdvanced, 2)
	if err != nil {
		t.Fatalf("Flashcards: %v", err)
	}
	want := []model.Flashcard{{Front: "ATP", Back: "Energy currency"}, {Front: "NADPH", Back: "Electron carrier"}}
	if len(cards) != len(want) {
		t.Fatalf("got %d cards, want %d", len(cards), len(want))
	}
	for i := range want {
		if cards[i] != want[i] {
			t.Errorf("card %d = %+v, want %+v", i, cards[i], want[i])
		}
	}
	if !strings.Contains(gen.prompts[0], "Create 2 flashcards about: Cell energy") {
		t.Error("prompt should request two flashcards")
	}
}

func TestValidateQuiz(t *testing.T) {
	items := ValidateQuiz([]model.QuizItem{
		{Question: "ok", Options: map[string]string{"A": "1", "B": "2"}, CorrectAnswer: "B"},
		{Question: "lower", Options: map[string]string{"A": "1", "B": "2"}, CorrectAnswer: " a "},
		{Question: "missing", Options: map[string]string{"A": "1", "B": "2"}},
		{Question: "unknown", Options: map[string]string{"A": "1", "B": "2"}, CorrectAnswer: "E"},
		{Question: "no options", CorrectAnswer: "A"},
		{Question: "lower keys", Options: map[string]string{"a": "x", "b": "y", "c": "z", "d": "w"}, CorrectAnswer: "a"},
		{Question: "colliding keys", Options: map[string]string{"A": "upper", "a": "lower", " b ": "2"}, CorrectAnswer: "b"},
	})

	wantUngradable := []bool{false, false, true, true, true, false, false}
	for i, want := range wantUngradable {
		if items[i].Ungradable != want {
			t.Errorf("item %d (%s) ungradable = %v, want %v", i, items[i].Question, items[i].Ungradable, want)
		}
	}
	if items[1].CorrectAnswer != "A" {
		t.Errorf("label should be normalized, got %q", items[1].CorrectAnswer)
	}

	lower := items[5]
	if got := lower.Labels(); !reflect.DeepEqual(got, []string{"A", "B", "C", "D"}) {
		t.Errorf("option labels = %v, want upper-cased", got)
	}
	if lower.CorrectAnswer != "A" || lower.Options["A"] != "x" {
		t.Errorf("lower-case item not normalized: %+v", lower)
	}
	if !lower.IsCorrect("A") || Grade([]model.QuizItem{lower}, []string{"A"}).Correct != 1 {
		t.Error("lower-case item should be gradable")
	}

	merged := items[6]
	if len(merged.Options) != 2 || merged.Options["A"] != "upper" || merged.Options["B"] != "2" {
		t.Errorf("colliding labels merged wrongly: %v", merged.Options)
	}
}

func TestQuizLowerCaseLabels(t *testing.T) {
	gen := &fakeGenerator{response: `[{"question": "q", "options": {"a": "x", "b": "y", "c": "z", "d": "w"}, "correct_answer": "a", "explanation": "e"}]`}
	items, err := New(gen).Quiz(context.Background(), "Letters", model.DifficultyEasy, 1)
	if err != nil {
		t.Fatalf("Quiz: %v", err)
	}
	if len(items) != 1 || items[0].Ungradable {
		t.Fatalf("expected one gradable item, got %+v", items)
	}
	if got := Grade(items, []string{"A"}); got.Correct != 1 {
		t.Errorf("Grade = %+v, want 1 correct", got)
	}
}

func TestGrade(t *testing.T) {
	items := ValidateQuiz([]model.QuizItem{
		{Options: map[string]string{"A": "", "B": ""}, CorrectAnswer: "A"},
		{Options: map[string]string{"A": "", "B": ""}, CorrectAnswer: "Z"},
		{Options: map[string]string{"A": "", "B": ""}, CorrectAnswer: "B"},
	})

	tests := []struct {
		name    string
		answers []string
		want    int
	}{
		{"all answered", []string{"A", "Z", "B"}, 2},
		{"missing answers", []string{"A"}, 1},
		{"none", nil, 0},
		{"extra answers ignored", []string{"A", "A", "B", "C"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Grade(items, tt.answers)
			if got.Correct != tt.want || got.Total != 3 {
				t.Errorf("Grade = %+v, want %d/3", got, tt.want)
			}
		})
	}

	if p := Grade(nil, nil).Percentage(); p != 0 {
		t.Errorf("empty quiz percentage = %v, want 0", p)
	}
}

func TestQuizEndToEnd(t *testing.T) {
	gen := &fakeGenerator{response: quizResponse("A", "A", "C", "D", "B")}
	svc := New(gen)

	items, err := svc.Quiz(context.Background(), "Photosynthesis", model.DifficultyIntermediate, 5)
	if err != nil {
		t.Fatalf("Quiz: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	for i, it := range items {
		if len(it.Options) != 4 {
			t.Errorf("item %d has %d options, want 4", i, len(it.Options))
		}
		if !strings.Contains("ABCD", it.CorrectAnswer) || it.CorrectAnswer == "" || it.Ungradable {
			t.Errorf("item %d correct answer %q not gradable", i, it.CorrectAnswer)
		}
	}
	if !strings.Contains(gen.prompts[0], "Difficulty level: Intermediate") {
		t.Error("prompt should carry the difficulty")
	}

	score := Grade(items, []string{"A", "B", "C", "D", "A"})
	if score.Correct != 3 {
		t.Errorf("score = %d, want 3", score.Correct)
	}
	if score.Percentage() != 60.0 {
		t.Errorf("percentage = %v, want 60.0", score.Percentage())
	}

	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer s.Close()

	topic := "Photosynthesis " + strings.Repeat("x", 200)
	saved, err := s.SaveResult(topic, model.DifficultyIntermediate, score.Correct, score.Total)
	if err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if len([]rune(saved.Topic)) > model.MaxTopicLength {
		t.Errorf("stored topic is %d characters", len([]rune(saved.Topic)))
	}
	if saved.Percentage != 60.0 {
		t.Errorf("stored percentage = %v", saved.Percentage)
	}

	history, err := s.History(0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Score != 3 || history[0].TotalQuestions != 5 {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestReview(t *testing.T) {
	items := []model.QuizItem{
		{Question: "q1", Options: map[string]string{"A": "yes", "B": "no"}, CorrectAnswer: "A"},
		{Question: "q2", Options: map[string]string{"A": "yes", "B": "no"}, CorrectAnswer: "A"},
	}
	got := Review(items, []string{"B"})
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Correct || got[0].AnswerText != "no" || got[0].CorrectText != "yes" {
		t.Errorf("unexpected first result: %+v", got[0])
	}
	if got[1].Answer != "" || got[1].Correct {
		t.Errorf("unanswered question should be incorrect: %+v", got[1])
	}
}

func TestAnalyze(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	history := []model.QuizAttempt{
		{Score: 5, TotalQuestions: 5, Percentage: 100, Timestamp: now.Add(-time.Hour)},
		{Score: 4, TotalQuestions: 5, Percentage: 80, Timestamp: now.Add(-48 * time.Hour)},
		{Score: 3, TotalQuestions: 5, Percentage: 60, Timestamp: now.Add(-10 * 24 * time.Hour)},
		{Score: 2, TotalQuestions: 5, Percentage: 40, Timestamp: now.Add(-20 * 24 * time.Hour)},
	}
	stats := model.PerformanceStats{TotalQuizzes: 4, AverageScore: 70, BestScore: 100, LowestScore: 40}
	byDiff := []model.DifficultyStats{
		{Difficulty: model.DifficultyEasy, AverageScore: 90, QuizCount: 2},
		{Difficulty: model.DifficultyAdvanced, AverageScore: 50, QuizCount: 2},
	}

	in := Analyze(history, stats, byDiff, now)
	if in.Trend != TrendImproving {
		t.Errorf("Trend = %q, want improving", in.Trend)
	}
	if in.RecentAverage != 80 {
		t.Errorf("RecentAverage = %v, want 80", in.RecentAverage)
	}
	if in.QuestionsTotal != 20 || in.QuestionsCorrect != 14 || in.Accuracy != 70 {
		t.Errorf("unexpected totals: %+v", in)
	}
	if in.LastWeekCount != 2 {
		t.Errorf("LastWeekCount = %d, want 2", in.LastWeekCount)
	}
	if in.Strongest == nil || in.Strongest.Difficulty != model.DifficultyEasy {
		t.Errorf("Strongest = %+v", in.Strongest)
	}
	if in.Weakest == nil || in.Weakest.Difficulty != model.DifficultyAdvanced {
		t.Errorf("Weakest = %+v", in.Weakest)
	}

	t.Run("trend thresholds", func(t *testing.T) {
		tests := []struct {
			avg  float64
			want Trend
		}{
			{79, TrendImproving},
			{80, TrendStable},
			{85, TrendStable},
			{85.1, TrendDeclining},
		}
		for _, tt := range tests {
			got := Analyze(history, model.PerformanceStats{AverageScore: tt.avg}, nil, now).Trend
			if got != tt.want {
				t.Errorf("overall %.1f: Trend = %q, want %q", tt.avg, got, tt.want)
			}
		}
	})

	t.Run("too little data", func(t *testing.T) {
		in := Analyze(history[:2], stats, byDiff[:1], now)
		if in.Trend != TrendUnknown {
			t.Errorf("Trend = %q, want unknown", in.Trend)
		}
		if in.Weakest != nil {
			t.Error("Weakest should be nil with a single difficulty")
		}
	})
}
