package patterns

import (
	"context"
	"fmt"
	"strings"

	"github.com/kdimtricp/budgetmanager/internal/models"
	"go.uber.org/zap"
)

// Store persists supplier patterns. GetBestPattern returns (nil, nil) when no
// pattern exists for the exact supplier name.
type Store interface {
	SavePattern(ctx context.Context, pattern *models.SupplierPattern) error
	GetBestPattern(ctx context.Context, supplierName string) (*models.SupplierPattern, error)
	UpdatePatternScore(ctx context.Context, id string, successRate float64, learningSessions int) error
}

// OutcomeScorer computes the next success rate of a pattern after a reviewed
// extraction. corrected is true when the reviewer changed the supplier.
type OutcomeScorer func(current float64, sessions int, corrected bool) float64

// RunningMean treats a confirmed extraction as 1 and a corrected one as 0.
func RunningMean(current float64, sessions int, corrected bool) float64 {
	if sessions < 1 {
		sessions = 1
	}
	outcome := 1.0
	if corrected {
		outcome = 0
	}
	return (current*float64(sessions) + outcome) / float64(sessions+1)
}

type Config struct {
	CacheSize int
	Scorer    OutcomeScorer
}

type Service struct {
	store  Store
	cache  *Cache
	scorer OutcomeScorer
	logger *zap.Logger
}

func NewService(store Store, config Config, logger *zap.Logger) *Service {
	if config.CacheSize == 0 {
		config.CacheSize = 256
	}
	if config.Scorer == nil {
		config.Scorer = RunningMean
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		cache:  NewCache(config.CacheSize),
		scorer: config.Scorer,
		logger: logger,
	}
}

func (s *Service) SavePattern(ctx context.Context, pattern *models.SupplierPattern) error {
	if err := s.store.SavePattern(ctx, pattern); err != nil {
		return fmt.Errorf("saving supplier pattern: %w", err)
	}
	// the stored row may not be the best one for this name any more
	s.cache.Delete(pattern.SupplierName)
	return nil
}

// GetPattern returns the highest success-rate pattern for an exact supplier
// name, or nil when the supplier is unseen.
func (s *Service) GetPattern(ctx context.Context, supplierName string) (*models.SupplierPattern, error) {
	supplierName = strings.TrimSpace(supplierName)
	if supplierName == "" {
		return nil, nil
	}
	if p, ok := s.cache.Get(supplierName); ok {
		return p, nil
	}

	p, err := s.store.GetBestPattern(ctx, supplierName)
	if err != nil {
		return nil, fmt.Errorf("loading supplier pattern: %w", err)
	}
	if p != nil {
		s.cache.Set(supplierName, p)
	}
	return p, nil
}

// FindPattern returns the first stored pattern among names, tried in order.
func (s *Service) FindPattern(ctx context.Context, names ...string) (*models.SupplierPattern, error) {
	for _, name := range names {
		p, err := s.GetPattern(ctx, name)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, nil
}

// Learn analyzes raw text and stores a new pattern. Patterns that could not
// name a supplier are returned unsaved with an empty ID.
func (s *Service) Learn(ctx context.Context, rawText string, corrections Corrections) (*models.SupplierPattern, error) {
	detected := AnalyzeText(rawText)
	pattern := GenerateSupplierPattern(detected, corrections)

	if pattern.SupplierName == models.UnknownSupplier {
		s.logger.Debug("no supplier recognised, pattern not stored",
			zap.Int("lines", detected.TotalLines))
		return pattern, nil
	}

	if err := s.SavePattern(ctx, pattern); err != nil {
		return nil, err
	}

	s.logger.Info("learned supplier pattern",
		zap.String("supplier", pattern.SupplierName),
		zap.Int("confidence", pattern.Confidence),
		zap.Int("strategies", len(pattern.Strategies)))
	return pattern, nil
}

// LearnIfUnseen reuses an existing pattern for supplierName or learns one from
// rawText. An empty supplierName falls back to the best ranked candidate in
// rawText. The boolean reports whether a new pattern was stored.
func (s *Service) LearnIfUnseen(ctx context.Context, rawText, supplierName string) (*models.SupplierPattern, bool, error) {
	corrections := Corrections{DetectedSupplierName: strings.TrimSpace(supplierName)}
	lookup := corrections.DetectedSupplierName
	if lookup == "" {
		if ranked := RankCandidates(AnalyzeText(rawText).SupplierNames); len(ranked) > 0 {
			lookup = ranked[0].Text
		}
	}

	existing, err := s.GetPattern(ctx, lookup)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	p, err := s.Learn(ctx, rawText, corrections)
	if err != nil {
		return nil, false, err
	}
	return p, p.ID != "", nil
}

// RecordOutcome feeds a review result back into the supplier's best pattern.
func (s *Service) RecordOutcome(ctx context.Context, supplierName string, corrected bool) error {
	p, err := s.GetPattern(ctx, supplierName)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}

	rate := s.scorer(p.SuccessRate, p.LearningSessions, corrected)
	if rate < 0 {
		rate = 0
	} else if rate > 1 {
		rate = 1
	}
	sessions := p.LearningSessions + 1

	if err := s.store.UpdatePatternScore(ctx, p.ID, rate, sessions); err != nil {
		return fmt.Errorf("updating supplier pattern score: %w", err)
	}

	// another row for this supplier may rank higher now
	s.cache.Delete(p.SupplierName)

	s.logger.Debug("recorded pattern outcome",
		zap.String("supplier", p.SupplierName),
		zap.Bool("corrected", corrected),
		zap.Float64("success_rate", rate))
	return nil
}
