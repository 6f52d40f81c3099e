package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Upper bounds on what a reply may claim.
const (
	MaxWeightGrams     = 100_000 // 100 kg
	MaxCaloriesPer100g = 10_000
)

// FoodData is the validated {"food", "weight"} reply.
type FoodData struct {
	Food   string  `json:"food"`
	Weight float64 `json:"weight"` // grams
}

// CalorieData is the validated {"calories"} reply.
type CalorieData struct {
	Calories float64 `json:"calories"` // per 100 g
}

type rawReply struct {
	Food     *string  `json:"food"`
	Weight   *float64 `json:"weight"`
	Calories *float64 `json:"calories"`
	Error    *string  `json:"error"`
}

// stripCodeFence removes markdown fences the model tends to wrap JSON in.
func stripCodeFence(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func decodeReply(text string) (*rawReply, error) {
	cleaned := stripCodeFence(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrExtraction)
	}

	var reply rawReply
	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	if err := dec.Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrExtraction)
	}
	if reply.Error != nil {
		return nil, fmt.Errorf("%w: model reported %q", ErrExtraction, *reply.Error)
	}
	return &reply, nil
}

// parseFoodReply validates a reply against the {"food": string, "weight": number} shape.
func parseFoodReply(text string) (*FoodData, error) {
	reply, err := decodeReply(text)
	if err != nil {
		return nil, err
	}
	if reply.Food == nil || strings.TrimSpace(*reply.Food) == "" {
		return nil, fmt.Errorf("%w: missing food", ErrExtraction)
	}
	if reply.Weight == nil || *reply.Weight <= 0 {
		return nil, fmt.Errorf("%w: missing or non-positive weight", ErrExtraction)
	}
	if *reply.Weight > MaxWeightGrams {
		return nil, fmt.Errorf("%w: weight %v g exceeds %d g", ErrExtraction, *reply.Weight, MaxWeightGrams)
	}
	return &FoodData{Food: strings.TrimSpace(*reply.Food), Weight: *reply.Weight}, nil
}

// parseCalorieReply validates a reply against the {"calories": number} shape.
func parseCalorieReply(text string) (*CalorieData, error) {
	reply, err := decodeReply(text)
	if err != nil {
		return nil, err
	}
	if reply.Calories == nil || *reply.Calories <= 0 {
		return nil, fmt.Errorf("%w: missing or non-positive calories", ErrExtraction)
	}
	if *reply.Calories > MaxCaloriesPer100g {
		return nil, fmt.Errorf("%w: %v kcal per 100g exceeds %d", ErrExtraction, *reply.Calories, MaxCaloriesPer100g)
	}
	return &CalorieData{Calories: *reply.Calories}, nil
}
