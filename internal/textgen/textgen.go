package textgen

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Stone-IT-Cloud/dailyreport/internal/activityreport"
	"github.com/Stone-IT-Cloud/dailyreport/internal/config"
)

// Service is a text-generation backend that may hold resources.
type Service interface {
	activityreport.TextService
	io.Closer
}

type nopCloser struct{ activityreport.TextService }

func (nopCloser) Close() error { return nil }

// New builds the backend selected by cfg.Provider.
func New(ctx context.Context, cfg config.TextGenConfig, logger *slog.Logger) (Service, error) {
	switch cfg.Provider {
	case config.ProviderDeepSeek, config.ProviderOpenAI:
		chat, err := NewChat(ChatOptions{
			Name:    cfg.Provider,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return nopCloser{chat}, nil
	case config.ProviderGemini:
		gemini, err := NewGemini(ctx, GeminiOptions{
			Model:           cfg.Model,
			CredentialsFile: cfg.CredentialsFile,
			APIKey:          cfg.APIKey,
		})
		if err != nil {
			return nil, err
		}
		return gemini, nil
	default:
		return nil, fmt.Errorf("text generation provider %q is not supported", cfg.Provider)
	}
}
