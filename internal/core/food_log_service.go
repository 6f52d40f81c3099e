package core

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"gwi.com/voice-calorie-log/internal/render"
	"gwi.com/voice-calorie-log/internal/store"
)

const defaultExtractionTimeout = 30 * time.Second

// Store is the persistence port of the food log.
type Store interface {
	GetCredential() (string, bool, error)
	SetCredential(value string) error
	GetDensityTable() (map[string]float64, error)
	ListFoods() ([]store.Food, error)
	SetDensity(name string, caloriesPer100g float64) (bool, error)
	GetLog(dateKey string) ([]store.LogEntry, error)
	AppendEntry(dateKey string, entry *store.LogEntry) error
	RemoveEntry(dateKey, id string) (bool, error)
}

// Extractor turns transcripts into structured data.
type Extractor interface {
	ExtractFood(ctx context.Context, apiKey, transcript string) (*FoodData, error)
	ExtractCalories(ctx context.Context, apiKey, transcript string) (*CalorieData, error)
}

type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseExtracting      Phase = "extracting"
	PhaseAwaitingDensity Phase = "awaiting_density"
)

// PendingFood is an extracted food whose density is not known yet.
type PendingFood struct {
	Food   string  `json:"food"`
	Weight float64 `json:"weight"`
	Input  string  `json:"input"` // calories-per-100g field, possibly dictated
}

type Status struct {
	Phase   Phase        `json:"phase"`
	Pending *PendingFood `json:"pending,omitempty"`
}

type OutcomeStatus string

const (
	OutcomeLogged       OutcomeStatus = "logged"
	OutcomeNeedsDensity OutcomeStatus = "needs_density"
)

type Outcome struct {
	Status  OutcomeStatus   `json:"status"`
	Entry   *store.LogEntry `json:"entry,omitempty"`
	Pending *PendingFood    `json:"pending,omitempty"`
}

// CaloriesFor computes the calories of weight grams at density kcal/100 g.
// Results that are not finite or do not fit an int32 are ErrValidation.
func CaloriesFor(weight, density float64) (int, error) {
	kcal := math.Round(weight / 100 * density)
	if math.IsNaN(kcal) || math.IsInf(kcal, 0) || kcal < 0 || kcal > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %vg at %v kcal/100g is out of range", ErrValidation, weight, density)
	}
	return int(kcal), nil
}

// FoodLogService runs the voice interaction workflow. All state lives here
// and every transition happens under mu; only the extraction call runs
// without the lock.
type FoodLogService struct {
	store     Store
	extractor Extractor
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time

	mu      sync.Mutex
	phase   Phase
	pending *PendingFood
	gen     uint64 // bumped by every extraction start and abort
	cancel  context.CancelFunc
}

func NewFoodLogService(st Store, ex Extractor, timeout time.Duration, logger *zap.Logger) *FoodLogService {
	if timeout <= 0 {
		timeout = defaultExtractionTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FoodLogService{
		store:     st,
		extractor: ex,
		logger:    logger,
		timeout:   timeout,
		now:       time.Now,
		phase:     PhaseIdle,
	}
}

func (s *FoodLogService) State() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Phase: s.phase, Pending: s.pendingCopyLocked()}
}

func (s *FoodLogService) Pending() (*PendingFood, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pendingCopyLocked()
	return p, p != nil
}

func (s *FoodLogService) pendingCopyLocked() *PendingFood {
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

// Credential gate

func (s *FoodLogService) HasCredential() (bool, error) {
	key, ok, err := s.store.GetCredential()
	if err != nil {
		return false, err
	}
	return ok && key != "", nil
}

func (s *FoodLogService) SetCredential(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: API key cannot be empty", ErrValidation)
	}
	return s.store.SetCredential(key)
}

// CredentialKey returns the stored credential or ErrCredentialMissing.
func (s *FoodLogService) CredentialKey() (string, error) {
	key, ok, err := s.store.GetCredential()
	if err != nil {
		return "", err
	}
	if !ok || key == "" {
		return "", ErrCredentialMissing
	}
	return key, nil
}

// Extraction slot

// startExtractionLocked cancels any outstanding extraction and claims the
// slot for a new one.
func (s *FoodLogService) startExtractionLocked(parent context.Context) (context.Context, uint64, context.CancelFunc) {
	s.abortExtractionLocked()
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	s.gen++
	s.cancel = cancel
	s.phase = PhaseExtracting
	return ctx, s.gen, cancel
}

func (s *FoodLogService) abortExtractionLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.gen++
	s.settlePhaseLocked()
	s.logger.Debug("Outstanding extraction cancelled")
}

// finishExtractionLocked releases the slot if gen still owns it.
func (s *FoodLogService) finishExtractionLocked(gen uint64) bool {
	if gen != s.gen {
		return false
	}
	s.cancel = nil
	s.settlePhaseLocked()
	return true
}

func (s *FoodLogService) settlePhaseLocked() {
	if s.pending != nil {
		s.phase = PhaseAwaitingDensity
	} else {
		s.phase = PhaseIdle
	}
}

// Main flow

// HandleTranscript extracts a food and weight from transcript and either
// logs it or opens the density prompt for an unknown food.
func (s *FoodLogService) HandleTranscript(ctx context.Context, transcript string) (*Outcome, error) {
	transcript = strings.TrimSpace(transcript)

	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		return nil, ErrPromptOpen
	}
	if transcript == "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: empty transcript", ErrExtraction)
	}
	key, err := s.CredentialKey()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	extractCtx, gen, cancel := s.startExtractionLocked(ctx)
	s.mu.Unlock()
	defer cancel()

	food, err := s.extractor.ExtractFood(extractCtx, key, transcript)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finishExtractionLocked(gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		s.logger.Warn("Food extraction failed", zap.Error(err))
		return nil, err
	}

	table, err := s.store.GetDensityTable()
	if err != nil {
		return nil, fmt.Errorf("failed to load food densities: %w", err)
	}

	if density, ok := table[store.NormalizeFoodName(food.Food)]; ok {
		entry, err := s.commitLocked(food.Food, food.Weight, density)
		if err != nil {
			return nil, err
		}
		return &Outcome{Status: OutcomeLogged, Entry: entry}, nil
	}

	s.pending = &PendingFood{Food: food.Food, Weight: food.Weight}
	s.phase = PhaseAwaitingDensity
	s.logger.Info("Unknown food, awaiting calories per 100g", zap.String("food", food.Food), zap.Float64("weight", food.Weight))
	return &Outcome{Status: OutcomeNeedsDensity, Pending: s.pendingCopyLocked()}, nil
}

func (s *FoodLogService) commitLocked(food string, weight, density float64) (*store.LogEntry, error) {
	calories, err := CaloriesFor(weight, density)
	if err != nil {
		return nil, err
	}
	entry := &store.LogEntry{
		Food:     food,
		Weight:   weight,
		Calories: calories,
	}
	if err := s.store.AppendEntry(store.DateKey(s.now()), entry); err != nil {
		return nil, fmt.Errorf("failed to log food: %w", err)
	}
	s.logger.Info("Food logged",
		zap.String("id", entry.ID),
		zap.String("food", entry.Food),
		zap.Float64("weight", entry.Weight),
		zap.Int("calories", entry.Calories))
	return entry, nil
}

// Density prompt

func (s *FoodLogService) SetPendingInput(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return ErrNoPending
	}
	s.pending.Input = value
	return nil
}

// DictateCalories runs the calorie-only extraction on transcript and
// overwrites the prompt's input field with the result. It never commits.
func (s *FoodLogService) DictateCalories(ctx context.Context, transcript string) (int, error) {
	s.mu.Lock()
	if s.pending == nil {
		s.mu.Unlock()
		return 0, ErrNoPending
	}
	key, err := s.CredentialKey()
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	extractCtx, gen, cancel := s.startExtractionLocked(ctx)
	s.mu.Unlock()
	defer cancel()

	calories, err := s.extractor.ExtractCalories(extractCtx, key, strings.TrimSpace(transcript))

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finishExtractionLocked(gen) {
		return 0, ErrSuperseded
	}
	if err != nil {
		s.logger.Warn("Calorie extraction failed", zap.Error(err))
		return 0, err
	}
	if s.pending == nil {
		return 0, ErrNoPending
	}

	rounded := math.Round(calories.Calories)
	if rounded <= 0 || rounded > MaxCaloriesPer100g {
		return 0, fmt.Errorf("%w: %v kcal per 100g is out of range", ErrExtraction, calories.Calories)
	}
	value := int(rounded)
	s.pending.Input = strconv.Itoa(value)
	return value, nil
}

func parseDensityInput(input string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || value <= 0 || value > MaxCaloriesPer100g {
		return 0, fmt.Errorf("%w, got %q", ErrBadCalories, input)
	}
	return value, nil
}

// Confirm learns the pending food's density from input (or the prompt's
// input field when input is blank) and logs the entry. Invalid input keeps
// the prompt open.
func (s *FoodLogService) Confirm(input string) (*store.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return nil, ErrNoPending
	}
	if strings.TrimSpace(input) == "" {
		input = s.pending.Input
	}
	density, err := parseDensityInput(input)
	if err != nil {
		return nil, err
	}

	s.abortExtractionLocked()
	pending := s.pending

	if _, err := s.store.SetDensity(pending.Food, float64(density)); err != nil {
		return nil, fmt.Errorf("failed to save food density: %w", err)
	}
	entry, err := s.commitLocked(pending.Food, pending.Weight, float64(density))
	if err != nil {
		return nil, err
	}

	s.pending = nil
	s.phase = PhaseIdle
	return entry, nil
}

// Cancel discards the pending food without logging or learning anything.
func (s *FoodLogService) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return ErrNoPending
	}
	s.logger.Info("Unknown food discarded", zap.String("food", s.pending.Food))
	s.pending = nil
	s.abortExtractionLocked()
	s.phase = PhaseIdle
	return nil
}

// Log

func (s *FoodLogService) Today() (render.View, error) {
	entries, err := s.store.GetLog(store.DateKey(s.now()))
	if err != nil {
		return render.View{}, fmt.Errorf("failed to load today's log: %w", err)
	}
	return render.Project(entries), nil
}

// Delete removes one of today's entries and returns the refreshed view.
func (s *FoodLogService) Delete(id string) (render.View, error) {
	s.mu.Lock()
	removed, err := s.store.RemoveEntry(store.DateKey(s.now()), id)
	s.mu.Unlock()
	if err != nil {
		return render.View{}, err
	}
	if !removed {
		return render.View{}, ErrEntryNotFound
	}
	s.logger.Info("Log entry deleted", zap.String("id", id))
	return s.Today()
}

func (s *FoodLogService) Foods() ([]store.Food, error) {
	return s.store.ListFoods()
}
