package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pavelanni/studybuddy/internal/llm"
	"github.com/pavelanni/studybuddy/internal/model"
)

// CredentialEnv is the conventional environment variable holding the API key.
const CredentialEnv = "GEMINI_API_KEY"

// ConfigError reports configuration the process cannot start without.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Key, e.Reason)
}

// Config stores runtime configuration resolved from flags, environment and config file.
type Config struct {
	LLMURL     string
	LLMKey     string
	LLMModel   string
	LLMTimeout time.Duration
	Database   string
	Difficulty model.Difficulty
}

// LoadDotEnv reads a .env file into the environment if one exists.
// Variables already set are left untouched.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// Load resolves the generation settings from v. A missing API key is a
// *ConfigError.
func Load(v *viper.Viper) (Config, error) {
	_ = v.BindEnv("llm-key", "STUDYBUDDY_LLM_KEY", CredentialEnv)

	cfg := Config{
		LLMURL:     v.GetString("llm-url"),
		LLMKey:     strings.TrimSpace(v.GetString("llm-key")),
		LLMModel:   v.GetString("llm-model"),
		LLMTimeout: v.GetDuration("llm-timeout"),
		Database:   v.GetString("db"),
	}
	if cfg.LLMURL == "" {
		cfg.LLMURL = llm.DefaultBaseURL
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = llm.DefaultModel
	}
	if cfg.LLMKey == "" {
		return cfg, &ConfigError{
			Key:    "llm-key",
			Reason: "API key is required: set --llm-key, STUDYBUDDY_LLM_KEY or " + CredentialEnv,
		}
	}

	cfg.Difficulty = model.DifficultyIntermediate
	if d := v.GetString("difficulty"); d != "" {
		parsed, err := model.ParseDifficulty(d)
		if err != nil {
			return cfg, &ConfigError{Key: "difficulty", Reason: err.Error()}
		}
		cfg.Difficulty = parsed
	}
	return cfg, nil
}
