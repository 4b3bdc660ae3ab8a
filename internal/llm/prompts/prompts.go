package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/pavelanni/studybuddy/internal/model"
)

// MaxContentChars is the character budget for source text embedded in summary
// and key-point prompts.
const MaxContentChars = 8000

// DefaultQuantity is used when a quiz or flashcard request asks for no items.
const DefaultQuantity = 5

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("prompts").ParseFS(templateFS, "templates/*.tmpl"))

var explainInstructions = map[model.Difficulty]string{
	model.DifficultyEasy:         "Explain this topic in very simple terms, as if teaching a beginner or high school student. Use everyday examples and avoid technical jargon.",
	model.DifficultyIntermediate: "Explain this topic with moderate depth, suitable for an undergraduate student. Include key concepts and some technical details.",
	model.DifficultyAdvanced:     "Provide a comprehensive, detailed explanation suitable for advanced students or professionals. Include technical terminology, nuances, and advanced concepts.",
}

var summaryGuides = map[model.Difficulty]string{
	model.DifficultyEasy:         "brief (3-5 bullet points)",
	model.DifficultyIntermediate: "moderate (5-8 key points)",
	model.DifficultyAdvanced:     "comprehensive (8-10 detailed points)",
}

var keyPointGuides = map[model.Difficulty]string{
	model.DifficultyEasy:         "5-7",
	model.DifficultyIntermediate: "7-10",
	model.DifficultyAdvanced:     "10-15",
}

// Data holds template data shared by all prompt templates.
type Data struct {
	Subject     string
	Difficulty  model.Difficulty
	Level       string
	Instruction string
	Guide       string
	Quantity    int
}

// Explain builds the explanation prompt. The topic is embedded whole.
func Explain(topic string, d model.Difficulty) string {
	return render("explain.tmpl", Data{
		Subject:     topic,
		Difficulty:  d,
		Level:       d.Lower(),
		Instruction: pick(explainInstructions, d),
	})
}

// Summarize builds the summary prompt over content truncated to MaxContentChars.
func Summarize(content string, d model.Difficulty) string {
	return render("summarize.tmpl", Data{
		Subject:    model.TruncateRunes(content, MaxContentChars),
		Difficulty: d,
		Level:      d.Lower(),
		Guide:      pick(summaryGuides, d),
	})
}

// KeyPoints builds the key-point extraction prompt over content truncated to MaxContentChars.
func KeyPoints(content string, d model.Difficulty) string {
	return render("keypoints.tmpl", Data{
		Subject:    model.TruncateRunes(content, MaxContentChars),
		Difficulty: d,
		Level:      d.Lower(),
		Guide:      pick(keyPointGuides, d),
	})
}

// Quiz builds the multiple-choice quiz prompt asking for a bare JSON array.
func Quiz(topic string, d model.Difficulty, n int) string {
	return render("quiz.tmpl", Data{
		Subject:    topic,
		Difficulty: d,
		Level:      d.Lower(),
		Quantity:   quantity(n),
	})
}

// Flashcards builds the flashcard prompt asking for a bare JSON array.
func Flashcards(topic string, d model.Difficulty, n int) string {
	return render("flashcards.tmpl", Data{
		Subject:    topic,
		Difficulty: d,
		Level:      d.Lower(),
		Quantity:   quantity(n),
	})
}

// Build dispatches a request to the matching prompt builder.
func Build(req model.GenerationRequest) (string, error) {
	switch req.ContentType {
	case model.ContentExplain:
		return Explain(req.Subject, req.Difficulty), nil
	case model.ContentSummarize:
		return Summarize(req.Subject, req.Difficulty), nil
	case model.ContentKeyPoints:
		return KeyPoints(req.Subject, req.Difficulty), nil
	case model.ContentQuiz:
		return Quiz(req.Subject, req.Difficulty, req.Quantity), nil
	case model.ContentFlashcards:
		return Flashcards(req.Subject, req.Difficulty, req.Quantity), nil
	}
	return "", fmt.Errorf("unknown content type %q", req.ContentType)
}

func render(name string, data Data) string {
	var buf bytes.Buffer
	// Templates are parsed at init and only reference fields of Data.
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		panic(fmt.Sprintf("prompts: execute %s: %v", name, err))
	}
	return buf.String()
}

// pick falls back to the intermediate wording for levels outside the fixed set.
func pick(m map[model.Difficulty]string, d model.Difficulty) string {
	if s, ok := m[d]; ok {
		return s
	}
	return m[model.DifficultyIntermediate]
}

func quantity(n int) int {
	if n <= 0 {
		return DefaultQuantity
	}
	return n
}
