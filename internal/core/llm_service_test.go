package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generatorFunc adapts a function to Generator.
type generatorFunc func(ctx context.Context, apiKey, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, apiKey, prompt string) (string, error) {
	return f(ctx, apiKey, prompt)
}

func TestLLMService_ExtractFood(t *testing.T) {
	var gotKey, gotPrompt string
	svc := NewLLMService(generatorFunc(func(_ context.Context, apiKey, prompt string) (string, error) {
		gotKey, gotPrompt = apiKey, prompt
		return "```json\n{\"food\": \"Banana\", \"weight\": 120}\n```", nil
	}), nil)

	food, err := svc.ExtractFood(context.Background(), "key-1", `I ate 120 grams of "banana"`)
	require.NoError(t, err)

	assert.Equal(t, &FoodData{Food: "Banana", Weight: 120}, food)
	assert.Equal(t, "key-1", gotKey)
	assert.Contains(t, gotPrompt, `"I ate 120 grams of 'banana'"`)
	assert.Contains(t, gotPrompt, `{"food": "...", "weight": ...}`)
	assert.Contains(t, gotPrompt, `{"error": "Could not parse"}`)
}

func TestLLMService_ExtractCalories(t *testing.T) {
	var gotPrompt string
	svc := NewLLMService(generatorFunc(func(_ context.Context, _, prompt string) (string, error) {
		gotPrompt = prompt
		return `{"calories": 89}`, nil
	}), nil)

	cal, err := svc.ExtractCalories(context.Background(), "k", "eighty nine calories")
	require.NoError(t, err)
	assert.Equal(t, 89.0, cal.Calories)
	assert.Contains(t, gotPrompt, `{"calories": ...}`)
	assert.Contains(t, gotPrompt, "eighty nine calories")
}

func TestLLMService_PropagatesTransport(t *testing.T) {
	svc := NewLLMService(generatorFunc(func(context.Context, string, string) (string, error) {
		return "", errors.Join(ErrTransport, errors.New("503"))
	}), nil)

	_, err := svc.ExtractFood(context.Background(), "k", "x")
	assert.ErrorIs(t, err, ErrTransport)
	_, err = svc.ExtractCalories(context.Background(), "k", "x")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestLLMService_ModelError(t *testing.T) {
	svc := NewLLMService(generatorFunc(func(context.Context, string, string) (string, error) {
		return `{"error": "Could not parse"}`, nil
	}), nil)

	_, err := svc.ExtractFood(context.Background(), "k", "hmm")
	assert.ErrorIs(t, err, ErrExtraction)
}
