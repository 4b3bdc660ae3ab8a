package study

import (
	"github.com/pavelanni/studybuddy/internal/model"
)

// Score is the outcome of grading one quiz submission.
type Score struct {
	Correct int
	Total   int
}

// Percentage returns the score as a percentage of the total.
func (s Score) Percentage() float64 {
	return model.Percentage(s.Correct, s.Total)
}

// Grade compares answers to items position by position. Missing answers and
// ungradable items count as incorrect.
func Grade(items []model.QuizItem, answers []string) Score {
	score := Score{Total: len(items)}
	for i, item := range items {
		if i < len(answers) && item.IsCorrect(answers[i]) {
			score.Correct++
		}
	}
	return score
}

// QuestionResult is the per-question view shown after a submission.
type QuestionResult struct {
	Number      int
	Item        model.QuizItem
	Answer      string
	AnswerText  string
	CorrectText string
	Correct     bool
}

// Review pairs each item with the submitted answer for display.
func Review(items []model.QuizItem, answers []string) []QuestionResult {
	results := make([]QuestionResult, 0, len(items))
	for i, item := range items {
		var answer string
		if i < len(answers) {
			answer = answers[i]
		}
		results = append(results, QuestionResult{
			Number:      i + 1,
			Item:        item,
			Answer:      answer,
			AnswerText:  item.Options[answer],
			CorrectText: item.Options[item.CorrectAnswer],
			Correct:     item.IsCorrect(answer),
		})
	}
	return results
}
