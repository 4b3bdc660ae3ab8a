package handler

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	appI18n "github.com/pavelanni/studybuddy/internal/i18n"
	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/study"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index.html", "text.html", "quiz.html", "result.html", "flashcards.html", "progress.html"}

// pages maps a page file to its template set, each parsed together with the layout.
var pages = parsePages()

func parsePages() map[string]*template.Template {
	out := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		out[name] = template.Must(template.New(name).
			Funcs(templateFuncs(context.Background(), "")).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return out
}

func templateFuncs(ctx context.Context, basePath string) template.FuncMap {
	return template.FuncMap{
		"t": func(id string) string { return appI18n.T(ctx, id) },
		"td": func(id string, kv ...any) string {
			data := make(map[string]any, len(kv)/2)
			for i := 0; i+1 < len(kv); i += 2 {
				data[fmt.Sprint(kv[i])] = kv[i+1]
			}
			return appI18n.Td(ctx, id, data)
		},
		"tp":       func(id string, n int) string { return appI18n.Tp(ctx, id, n) },
		"pct":      func(f float64) string { return fmt.Sprintf("%.1f", f) },
		"inc":      func(i int) int { return i + 1 },
		"path":     func(p string) string { return basePath + p },
		"date":     func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
		"ago":      humanize.Time,
		"markdown": renderMarkdown,
		"category": func(f float64) string {
			return string(model.CategoryFor(f))
		},
	}
}

type formState struct {
	Topic      string
	Difficulty model.Difficulty
	Count      int
}

type progressView struct {
	Stats        model.PerformanceStats
	ScoreRange   float64
	ByDifficulty []model.DifficultyStats
	Distribution []model.ScoreBucket
	History      []model.QuizAttempt
	Trend        []model.TrendPoint // oldest first
	Sparkline    string
	Insights     study.Insights
}

const (
	sparkWidth  = 300.0
	sparkHeight = 60.0
)

// newProgressView assembles the dashboard. recent comes from the store newest first.
func newProgressView(stats model.PerformanceStats, byDifficulty []model.DifficultyStats, dist []model.ScoreBucket,
	history []model.QuizAttempt, recent []model.TrendPoint, now time.Time) *progressView {
	trend := make([]model.TrendPoint, len(recent))
	for i, p := range recent {
		trend[len(recent)-1-i] = p
	}
	return &progressView{
		Stats:        stats,
		ScoreRange:   stats.BestScore - stats.LowestScore,
		ByDifficulty: byDifficulty,
		Distribution: dist,
		History:      history,
		Trend:        trend,
		Sparkline:    sparkline(trend),
		Insights:     study.Analyze(history, stats, byDifficulty, now),
	}
}

// sparkline returns SVG polyline points for percentages in [0, 100].
func sparkline(trend []model.TrendPoint) string {
	if len(trend) == 0 {
		return ""
	}
	step := 0.0
	if len(trend) > 1 {
		step = sparkWidth / float64(len(trend)-1)
	}
	points := make([]string, len(trend))
	for i, p := range trend {
		x := step * float64(i)
		if len(trend) == 1 {
			x = sparkWidth / 2
		}
		y := sparkHeight - min(max(p.Percentage, 0), 100)/100*sparkHeight
		points[i] = fmt.Sprintf("%.1f,%.1f", x, y)
	}
	return strings.Join(points, " ")
}

// pageData is the single view model shared by all pages.
type pageData struct {
	CSRFToken    string
	Difficulties []model.Difficulty
	Form         formState

	Warning string
	Heading string
	Text    string

	QuizID  string
	Items   []model.QuizItem
	Results []study.QuestionResult
	Score   study.Score

	Cards []model.Flashcard

	Progress *progressView
}

func (h *Handler) newPage(r *http.Request, form formState) pageData {
	return pageData{
		CSRFToken:    csrfTokenFromContext(r.Context()),
		Difficulties: model.Difficulties(),
		Form:         form,
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	base, ok := pages[page]
	if !ok {
		http.Error(w, "unknown page "+page, http.StatusInternalServerError)
		return
	}
	tmpl, err := base.Clone()
	if err != nil {
		slog.Error("clone template", "page", page, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	tmpl.Funcs(templateFuncs(r.Context(), h.config.BasePath))

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("render error", "page", page, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func withCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

func csrfTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
