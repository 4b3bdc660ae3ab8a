package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appI18n "github.com/pavelanni/studybuddy/internal/i18n"
	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/pdftext"
	"github.com/pavelanni/studybuddy/internal/store"
	"github.com/pavelanni/studybuddy/internal/study"
)

const (
	minCount     = 3
	maxCount     = 10
	defaultCount = 5

	defaultMaxUploadBytes = 20 << 20
)

var timeNow = time.Now

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc          *study.Service
	store        *store.Store
	config       model.AppConfig
	quizzes      *quizBook
	passwordHash []byte
}

// New creates a new Handler. A non-empty password enables basic auth on every route.
func New(svc *study.Service, s *store.Store, cfg model.AppConfig, password string) (*Handler, error) {
	if cfg.DefaultDifficulty == "" {
		cfg.DefaultDifficulty = model.DifficultyIntermediate
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	cfg.BasePath = strings.TrimRight(cfg.BasePath, "/")

	h := &Handler{svc: svc, store: s, config: cfg, quizzes: newQuizBook()}
	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash ui password: %w", err)
		}
		h.passwordHash = hash
	}
	return h, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(h.passwordMiddleware)
		r.Use(h.limitBody)
		r.Use(h.csrfMiddleware)

		r.Get("/", h.handleIndex)
		r.Post("/explain", h.handleExplain)
		r.Post("/summarize", h.handleSummarize)
		r.Post("/keypoints", h.handleKeyPoints)
		r.Post("/quiz", h.handleQuiz)
		r.Post("/quiz/{quizID}/submit", h.handleSubmit)
		r.Post("/flashcards", h.handleFlashcards)
		r.Get("/progress", h.handleProgress)
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	form := formState{Difficulty: h.config.DefaultDifficulty, Count: defaultCount}
	h.render(w, r, http.StatusOK, "index.html", h.newPage(r, form))
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	h.handleText(w, r, "HeadingExplain", h.svc.Explain)
}

func (h *Handler) handleSummarize(w http.ResponseWriter, r *http.Request) {
	h.handleText(w, r, "HeadingSummarize", h.svc.Summarize)
}

func (h *Handler) handleKeyPoints(w http.ResponseWriter, r *http.Request) {
	h.handleText(w, r, "HeadingKeyPoints", h.svc.KeyPoints)
}

type textOp func(ctx context.Context, subject string, d model.Difficulty) (string, error)

func (h *Handler) handleText(w http.ResponseWriter, r *http.Request, heading string, op textOp) {
	form, subject, ok := h.readStudyForm(w, r, "text.html")
	if !ok {
		return
	}

	ctx, cancel := h.llmContext(r.Context())
	defer cancel()

	page := h.newPage(r, form)
	text, err := op(ctx, subject, form.Difficulty)
	if err != nil {
		h.generationFailed(w, r, "text.html", page, err)
		return
	}
	page.Heading = appI18n.T(r.Context(), heading)
	page.Text = text
	h.render(w, r, http.StatusOK, "text.html", page)
}

func (h *Handler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	form, subject, ok := h.readStudyForm(w, r, "quiz.html")
	if !ok {
		return
	}

	ctx, cancel := h.llmContext(r.Context())
	defer cancel()

	page := h.newPage(r, form)
	items, err := h.svc.Quiz(ctx, subject, form.Difficulty, form.Count)
	if err != nil || len(items) == 0 {
		h.generationFailed(w, r, "quiz.html", page, err)
		return
	}

	id := h.quizzes.Put(activeQuiz{Topic: subject, Difficulty: form.Difficulty, Items: items})
	slog.Info("quiz generated", "quiz_id", id, "questions", len(items), "difficulty", form.Difficulty)

	page.QuizID = id.String()
	page.Items = items
	h.render(w, r, http.StatusOK, "quiz.html", page)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	form := formState{Difficulty: h.config.DefaultDifficulty, Count: defaultCount}

	id, err := uuid.Parse(chi.URLParam(r, "quizID"))
	if err != nil {
		http.Error(w, "invalid quiz ID", http.StatusBadRequest)
		return
	}
	quiz, ok := h.quizzes.Take(id)
	if !ok {
		page := h.newPage(r, form)
		page.Warning = appI18n.T(r.Context(), "QuizExpired")
		h.render(w, r, http.StatusNotFound, "index.html", page)
		return
	}

	answers := make([]string, len(quiz.Items))
	for i := range quiz.Items {
		answers[i] = strings.ToUpper(strings.TrimSpace(r.FormValue(fmt.Sprintf("q%d", i))))
	}
	score := study.Grade(quiz.Items, answers)

	form.Difficulty = quiz.Difficulty
	page := h.newPage(r, form)

	attempt, err := h.store.SaveResult(quiz.Topic, quiz.Difficulty, score.Correct, score.Total)
	if err != nil {
		slog.Error("failed to save quiz result", "quiz_id", id, "error", err)
		page.Warning = appI18n.T(r.Context(), "ResultNotSaved")
	} else {
		slog.Info("quiz submitted", "quiz_id", id, "attempt_id", attempt.ID, "score", score.Correct, "total", score.Total)
	}
	page.Results = study.Review(quiz.Items, answers)
	page.Score = score
	h.render(w, r, http.StatusOK, "result.html", page)
}

func (h *Handler) handleFlashcards(w http.ResponseWriter, r *http.Request) {
	form, subject, ok := h.readStudyForm(w, r, "flashcards.html")
	if !ok {
		return
	}

	ctx, cancel := h.llmContext(r.Context())
	defer cancel()

	page := h.newPage(r, form)
	cards, err := h.svc.Flashcards(ctx, subject, form.Difficulty, form.Count)
	if err != nil || len(cards) == 0 {
		h.generationFailed(w, r, "flashcards.html", page, err)
		return
	}
	page.Cards = cards
	h.render(w, r, http.StatusOK, "flashcards.html", page)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.History(h.config.HistoryLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats, err := h.store.Stats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	byDifficulty, err := h.store.StatsByDifficulty()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dist, err := h.store.ScoreDistribution()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	trend, err := h.store.RecentTrend(h.config.TrendLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	page := h.newPage(r, formState{Difficulty: h.config.DefaultDifficulty, Count: defaultCount})
	page.Progress = newProgressView(stats, byDifficulty, dist, history, trend, timeNow())
	h.render(w, r, http.StatusOK, "progress.html", page)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Count(); err != nil {
		slog.Error("health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

// readStudyForm parses the shared study form and resolves the subject. An
// uploaded PDF takes precedence over the topic text. On false the response has
// already been written.
func (h *Handler) readStudyForm(w http.ResponseWriter, r *http.Request, page string) (formState, string, bool) {
	form := formState{
		Topic:      r.FormValue("topic"),
		Difficulty: h.config.DefaultDifficulty,
		Count:      parseCount(r.FormValue("count")),
	}
	if d, err := model.ParseDifficulty(r.FormValue("difficulty")); err == nil {
		form.Difficulty = d
	}

	subject := strings.TrimSpace(form.Topic)
	pdfText, uploaded, err := h.readUpload(r)
	if err != nil {
		http.Error(w, "invalid upload: "+err.Error(), http.StatusBadRequest)
		return form, "", false
	}
	if uploaded {
		if pdftext.IsError(pdfText) {
			data := h.newPage(r, form)
			data.Warning = appI18n.T(r.Context(), "PDFUnreadable")
			h.render(w, r, http.StatusUnprocessableEntity, page, data)
			return form, "", false
		}
		if pdfText != "" {
			subject = pdfText
		}
	}

	if subject == "" {
		data := h.newPage(r, form)
		data.Warning = appI18n.T(r.Context(), "MissingSubject")
		h.render(w, r, http.StatusBadRequest, page, data)
		return form, "", false
	}
	return form, subject, true
}

func (h *Handler) readUpload(r *http.Request) (string, bool, error) {
	file, header, err := r.FormFile("pdf")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer file.Close()

	if header.Size == 0 {
		return "", false, nil
	}
	slog.Info("pdf uploaded", "filename", header.Filename, "size", header.Size)
	return pdftext.Extract(file, header.Size), true, nil
}

func (h *Handler) generationFailed(w http.ResponseWriter, r *http.Request, page string, data pageData, err error) {
	status := http.StatusOK
	if err != nil {
		slog.Warn("study operation failed", "path", r.URL.Path, "error", err)
		status = http.StatusBadGateway
	} else {
		slog.Warn("study operation returned no items", "path", r.URL.Path)
	}
	data.Warning = appI18n.T(r.Context(), "GenerationFailed")
	h.render(w, r, status, page, data)
}

func (h *Handler) llmContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.config.LLMTimeout > 0 {
		return context.WithTimeout(ctx, h.config.LLMTimeout)
	}
	return context.WithCancel(ctx)
}

// parseForm reads urlencoded and multipart bodies alike.
func (h *Handler) parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(h.config.MaxUploadBytes)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

func (h *Handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			// Room for the non-file fields on top of the document itself.
			r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes+1<<20)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath == "" {
		return "/"
	}
	return h.config.BasePath + "/"
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultCount
	}
	return min(max(n, minCount), maxCount)
}
