// Package budgetsync keeps project consumed budgets in line with the sum of
// their invoice positions.
package budgetsync

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/kdimtricp/budgetmanager/internal/metrics"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Recomputer recalculates one project's consumed budget and reports a
// correction when the stored value was off.
type Recomputer interface {
	RecomputeConsumedBudget(ctx context.Context, projectID string) (*database.BudgetCorrection, error)
}

type Service struct {
	ledger  Recomputer
	touched *cache.Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService tracks touched projects for ttl after their last touch.
func NewService(ledger Recomputer, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:  ledger,
		touched: cache.New(ttl, ttl*2),
		metrics: m,
		logger:  logger,
	}
}

// Touch marks projects as changed.
func (s *Service) Touch(projectIDs ...string) {
	for _, id := range projectIDs {
		if id != "" {
			s.touched.SetDefault(id, struct{}{})
		}
	}
}

// Touched lists the tracked project IDs in sorted order.
func (s *Service) Touched() []string {
	items := s.touched.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SyncOnce recomputes every touched project. A failing project is logged and
// skipped; deleted projects stop being tracked.
func (s *Service) SyncOnce(ctx context.Context) []database.BudgetCorrection {
	var corrections []database.BudgetCorrection

	for _, id := range s.Touched() {
		if ctx.Err() != nil {
			break
		}
		c, err := s.ledger.RecomputeConsumedBudget(ctx, id)
		if errors.Is(err, database.ErrProjectNotFound) {
			s.touched.Delete(id)
			continue
		}
		if err != nil {
			s.logger.Warn("budget sync failed", zap.String("project_id", id), zap.Error(err))
			continue
		}
		if c == nil {
			continue
		}

		s.metrics.RecordBudgetCorrection()
		s.logger.Warn("corrected consumed budget",
			zap.String("project_id", id),
			zap.String("before", c.Before.StringFixed(2)),
			zap.String("after", c.After.StringFixed(2)))
		corrections = append(corrections, *c)
	}
	return corrections
}

// Run syncs every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("budget sync started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("budget sync stopped")
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}
