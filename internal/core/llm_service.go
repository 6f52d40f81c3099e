package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	foodInstruction = "Extract the food name and weight in grams from the following text: \"%s\". " +
		"Respond with a JSON object like {\"food\": \"...\", \"weight\": ...}. " +
		"If you cannot determine the food or weight, respond with {\"error\": \"Could not parse\"}."

	calorieInstruction = "Extract the number of calories per 100 grams from the following text: \"%s\". " +
		"Respond with a JSON object like {\"calories\": ...}. " +
		"If you cannot determine the number of calories, respond with {\"error\": \"Could not parse\"}."
)

// Generator sends a single-turn prompt to a language model and returns the
// model's text reply. Transport failures wrap ErrTransport.
type Generator interface {
	Generate(ctx context.Context, apiKey, prompt string) (string, error)
}

type LLMService struct {
	generator Generator
	logger    *zap.Logger
}

func NewLLMService(generator Generator, logger *zap.Logger) *LLMService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMService{generator: generator, logger: logger}
}

func buildPrompt(instruction, transcript string) string {
	// Keep the quoted transcript from closing the instruction's quotes.
	transcript = strings.ReplaceAll(strings.TrimSpace(transcript), "\"", "'")
	return fmt.Sprintf(instruction, transcript)
}

func (s *LLMService) ExtractFood(ctx context.Context, apiKey, transcript string) (*FoodData, error) {
	text, err := s.generator.Generate(ctx, apiKey, buildPrompt(foodInstruction, transcript))
	if err != nil {
		return nil, err
	}
	food, err := parseFoodReply(text)
	if err != nil {
		s.logger.Debug("Unusable food reply", zap.String("reply", text), zap.Error(err))
		return nil, err
	}
	return food, nil
}

func (s *LLMService) ExtractCalories(ctx context.Context, apiKey, transcript string) (*CalorieData, error) {
	text, err := s.generator.Generate(ctx, apiKey, buildPrompt(calorieInstruction, transcript))
	if err != nil {
		return nil, err
	}
	calories, err := parseCalorieReply(text)
	if err != nil {
		s.logger.Debug("Unusable calorie reply", zap.String("reply", text), zap.Error(err))
		return nil, err
	}
	return calories, nil
}
