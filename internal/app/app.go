// Package app wires configuration, storage and the Gemini-backed services
// into a ready food log for the server and the command line.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"gwi.com/voice-calorie-log/internal/config"
	"gwi.com/voice-calorie-log/internal/core"
	"gwi.com/voice-calorie-log/internal/store"
	"gwi.com/voice-calorie-log/internal/voice"
)

type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Store   *store.SQLiteStore
	FoodLog *core.FoodLogService
}

func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := seedCredential(st, cfg.GeminiAPIKey); err != nil {
		st.Close()
		return nil, err
	}

	generator := core.NewGeminiGenerator(cfg.GeminiModel, cfg.GeminiBaseURL, logger)
	llm := core.NewLLMService(generator, logger)
	foodLog := core.NewFoodLogService(st, llm, cfg.ExtractionTimeout, logger)

	return &App{Config: cfg, Logger: logger, Store: st, FoodLog: foodLog}, nil
}

// seedCredential stores key when no credential has been saved yet.
func seedCredential(st *store.SQLiteStore, key string) error {
	if key == "" {
		return nil
	}
	_, ok, err := st.GetCredential()
	if err != nil {
		return fmt.Errorf("failed to read credential: %w", err)
	}
	if ok {
		return nil
	}
	return st.SetCredential(key)
}

// GeminiCapture returns a capture that transcribes uploaded audio with the
// stored credential.
func (a *App) GeminiCapture() *voice.Capture {
	rec := voice.NewGeminiRecognizer(a.FoodLog.CredentialKey, a.Config.SpeechLanguage, a.Logger)
	return voice.NewCapture(rec, a.Logger)
}

// TextCapture returns a capture that reads typed utterances, one per line.
func (a *App) TextCapture() *voice.Capture {
	return voice.NewCapture(voice.TextRecognizer{}, a.Logger)
}

func (a *App) Close() error {
	return a.Store.Close()
}
