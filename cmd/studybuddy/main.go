package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/studybuddy/internal/config"
	"github.com/pavelanni/studybuddy/internal/handler"
	appI18n "github.com/pavelanni/studybuddy/internal/i18n"
	"github.com/pavelanni/studybuddy/internal/llm"
	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/store"
	"github.com/pavelanni/studybuddy/internal/study"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			slog.Error("startup aborted", "error", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "studybuddy",
		Short:        "AI study assistant: explanations, summaries, quizzes and flashcards",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(
		serve,
		textCmd("explain", "Explain a concept at the chosen level", (*study.Service).Explain),
		textCmd("summarize", "Summarize a text or PDF", (*study.Service).Summarize),
		textCmd("keypoints", "Extract key points from a text or PDF", (*study.Service).KeyPoints),
		quizCmd(),
		flashcardsCmd(),
		statsCmd(),
		historyCmd(),
		exportCmd(),
	)

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `studybuddy --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the study web UI",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "en", "Default UI language (en, ru)")
	f.String("ui-password", "", "Protect the UI with this password (HTTP basic auth)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /study)")
	f.Bool("secure-cookies", false, "Set Secure flag on cookies (enable behind HTTPS)")
	f.Bool("check-llm", true, "Verify the LLM endpoint before serving")
	f.Int("history-limit", store.DefaultHistoryLimit, "Quizzes shown on the progress dashboard")
	f.Int("trend-limit", store.DefaultTrendLimit, "Samples in the recent score trend")
	f.Int64("max-upload-mb", 20, "Maximum PDF upload size in megabytes")
	addLLMFlags(cmd)
	addDBFlag(cmd)
	addLogFlags(cmd)
	return cmd
}

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-url", llm.DefaultBaseURL, "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for the LLM (or set "+config.CredentialEnv+")")
	f.String("llm-model", llm.DefaultModel, "LLM model name")
	f.Duration("llm-timeout", 2*time.Minute, "Deadline for a single generation call (0 = none)")
	f.StringP("difficulty", "d", string(model.DifficultyIntermediate), "Difficulty level (Easy, Intermediate, Advanced)")
}

func addDBFlag(cmd *cobra.Command) {
	cmd.Flags().String("db", "studybuddy.db", "SQLite database path")
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags, .env file and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	config.LoadDotEnv()

	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("STUDYBUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("studybuddy")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/studybuddy")
	v.AddConfigPath("/etc/studybuddy")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// newService resolves the LLM configuration and builds the study pipeline.
func newService(v *viper.Viper) (*study.Service, *llm.Client, config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, cfg, err
	}
	client := llm.New(cfg.LLMURL, cfg.LLMKey, cfg.LLMModel)
	return study.New(client), client, cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	svc, client, cfg, err := newService(v)
	if err != nil {
		return err
	}

	if v.GetBool("check-llm") {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		err := client.Ping(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", cfg.LLMURL, "model", cfg.LLMModel)
	}

	db, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	appCfg := model.AppConfig{
		DefaultDifficulty: cfg.Difficulty,
		LLMTimeout:        cfg.LLMTimeout,
		HistoryLimit:      v.GetInt("history-limit"),
		TrendLimit:        v.GetInt("trend-limit"),
		MaxUploadBytes:    v.GetInt64("max-upload-mb") << 20,
		BasePath:          basePath,
		SecureCookies:     v.GetBool("secure-cookies"),
	}

	h, err := handler.New(svc, db, appCfg, v.GetString("ui-password"))
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, h.Routes)
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", cfg.LLMModel,
		"llm_url", cfg.LLMURL,
		"lang", lang,
		"difficulty", cfg.Difficulty,
		"db", cfg.Database,
		"base_path", basePath,
		"password", v.GetString("ui-password") != "",
	)
	return http.ListenAndServe(addr, r)
}
