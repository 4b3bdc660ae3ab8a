// Package study composes prompt building, generation and response parsing into
// the five study operations.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pavelanni/studybuddy/internal/llm"
	"github.com/pavelanni/studybuddy/internal/llm/prompts"
	"github.com/pavelanni/studybuddy/internal/model"
)

// ErrMalformedPayload is wrapped by failures where the response held a JSON
// array span that did not decode.
var ErrMalformedPayload = errors.New("malformed structured payload")

// Generator produces raw model text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Failure is the only error type returned by Service operations. Message is
// safe to show to the end user.
type Failure struct {
	Op      model.ContentType
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

var failurePrefixes = map[model.ContentType]string{
	model.ContentExplain:    "Error generating explanation",
	model.ContentSummarize:  "Error generating summary",
	model.ContentKeyPoints:  "Error extracting key points",
	model.ContentQuiz:       "Error generating quiz",
	model.ContentFlashcards: "Error generating flashcards",
}

func fail(op model.ContentType, err error) *Failure {
	return &Failure{
		Op:      op,
		Message: fmt.Sprintf("%s: %v", failurePrefixes[op], err),
		Err:     err,
	}
}

// Service runs study operations against a Generator.
type Service struct {
	gen Generator
}

// New creates a Service.
func New(gen Generator) *Service {
	return &Service{gen: gen}
}

// Explain returns a level-appropriate explanation of topic.
func (s *Service) Explain(ctx context.Context, topic string, d model.Difficulty) (string, error) {
	return s.text(ctx, model.ContentExplain, prompts.Explain(topic, d))
}

// Summarize returns a summary of content.
func (s *Service) Summarize(ctx context.Context, content string, d model.Difficulty) (string, error) {
	return s.text(ctx, model.ContentSummarize, prompts.Summarize(content, d))
}

// KeyPoints returns a numbered list of key points from content.
func (s *Service) KeyPoints(ctx context.Context, content string, d model.Difficulty) (string, error) {
	return s.text(ctx, model.ContentKeyPoints, prompts.KeyPoints(content, d))
}

// Quiz generates n multiple-choice questions. An empty slice with a nil error
// means the model answered but nothing usable could be extracted.
func (s *Service) Quiz(ctx context.Context, topic string, d model.Difficulty, n int) ([]model.QuizItem, error) {
	items, err := structured[model.QuizItem](ctx, s.gen, model.ContentQuiz, prompts.Quiz(topic, d, n))
	if err != nil {
		return nil, err
	}
	return ValidateQuiz(items), nil
}

// Flashcards generates n flashcards. Empty results are not errors, as for Quiz.
func (s *Service) Flashcards(ctx context.Context, topic string, d model.Difficulty, n int) ([]model.Flashcard, error) {
	return structured[model.Flashcard](ctx, s.gen, model.ContentFlashcards, prompts.Flashcards(topic, d, n))
}

func (s *Service) text(ctx context.Context, op model.ContentType, prompt string) (string, error) {
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		slog.Error("generation failed", "op", op, "error", err)
		return "", fail(op, err)
	}
	return out, nil
}

func structured[T any](ctx context.Context, gen Generator, op model.ContentType, prompt string) ([]T, error) {
	raw, err := gen.Generate(ctx, prompt)
	if err != nil {
		slog.Error("generation failed", "op", op, "error", err)
		return nil, fail(op, err)
	}

	items, status, err := llm.DecodeList[T](raw)
	switch status {
	case llm.ParseEmpty:
		return []T{}, nil
	case llm.ParseFailed:
		return nil, fail(op, fmt.Errorf("%w: %v", ErrMalformedPayload, err))
	}
	slog.Debug("parsed structured response", "op", op, "items", len(items))
	return items, nil
}

// ValidateQuiz normalizes answer labels and marks items whose correct answer is
// not one of their options as ungradable.
func ValidateQuiz(items []model.QuizItem) []model.QuizItem {
	for i := range items {
		items[i].Options = normalizeOptions(items[i].Options)
		label := normalizeLabel(items[i].CorrectAnswer)
		if items[i].HasOption(label) {
			items[i].CorrectAnswer = label
			continue
		}
		slog.Warn("quiz item has no matching correct answer",
			"index", i,
			"correct_answer", items[i].CorrectAnswer,
			"options", len(items[i].Options),
		)
		items[i].Ungradable = true
	}
	return items
}

func normalizeLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}

// normalizeOptions upper-cases option labels. When two labels collide the
// one that sorts first keeps its text.
func normalizeOptions(opts map[string]string) map[string]string {
	if len(opts) == 0 {
		return opts
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(opts))
	for _, k := range keys {
		label := normalizeLabel(k)
		if _, dup := out[label]; dup {
			slog.Warn("duplicate quiz option label", "label", label)
			continue
		}
		out[label] = opts[k]
	}
	return out
}
