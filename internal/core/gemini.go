package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultExtractionModelName = "gemini-2.0-flash"

// GeminiGenerator implements Generator with the Gemini API. Clients are
// created lazily per API key since the key lives in the store, not in config.
type GeminiGenerator struct {
	model   string
	baseURL string
	logger  *zap.Logger

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGeminiGenerator(model, baseURL string, logger *zap.Logger) *GeminiGenerator {
	if model == "" {
		model = defaultExtractionModelName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiGenerator{
		model:   model,
		baseURL: baseURL,
		logger:  logger,
		clients: make(map[string]*genai.Client),
	}
}

func (g *GeminiGenerator) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if g.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	// Only the current key is ever useful.
	clear(g.clients)
	g.clients[apiKey] = c
	return c, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, apiKey, prompt string) (string, error) {
	c, err := g.client(ctx, apiKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}

	resp, err := c.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		g.logger.Warn("Gemini generateContent failed", zap.String("model", g.model), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates in reply", ErrExtraction)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}
	return text.String(), nil
}
