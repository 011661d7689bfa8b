// Package scheduler keeps watched symbols and macro series warm so dashboard
// requests rarely pay the full pipeline latency.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"EquityLens/internal/domain/models"
	"EquityLens/internal/usecase"
	applogger "EquityLens/pkg/logger"
)

// Scheduler drives periodic refreshes through the aggregator.
type Scheduler struct {
	cron    *cron.Cron
	agg     *usecase.Aggregator
	symbols []string
	l       *applogger.Logger
}

func New(agg *usecase.Aggregator, symbols []string, l *applogger.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		agg:     agg,
		symbols: symbols,
		l:       l,
	}
}

// Register installs the symbol and economic refresh jobs. Either schedule
// may be empty to disable that job.
func (s *Scheduler) Register(symbolSchedule, economicSchedule string) error {
	if symbolSchedule != "" {
		if _, err := s.cron.AddFunc(symbolSchedule, s.refreshSymbols); err != nil {
			return fmt.Errorf("register symbol refresh: %w", err)
		}
	}
	if economicSchedule != "" {
		if _, err := s.cron.AddFunc(economicSchedule, s.refreshEconomic); err != nil {
			return fmt.Errorf("register economic refresh: %w", err)
		}
	}
	return nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	if s.l != nil {
		s.l.Info("scheduler started",
			applogger.Strings("watched_symbols", s.symbols))
	}
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	if s.l != nil {
		s.l.Info("scheduler stopped")
	}
}

// refreshSymbols walks the watch list sequentially. Sequential on purpose:
// the pipeline already fans out per category, and hammering every provider
// for the whole list at once trips their rate limits.
func (s *Scheduler) refreshSymbols() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	for _, symbol := range s.symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		start := time.Now()
		_, err := s.agg.Refresh(ctx, &models.RefreshRequest{Symbol: symbol})
		if err != nil {
			if s.l != nil {
				s.l.Warn("scheduled symbol refresh failed",
					applogger.String("symbol", symbol),
					applogger.Error(err))
			}
			continue
		}
		if s.l != nil {
			s.l.Debug("scheduled symbol refresh ok",
				applogger.String("symbol", symbol),
				applogger.Duration("duration_ms", time.Since(start)))
		}
	}
}

func (s *Scheduler) refreshEconomic() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, id := range s.agg.EconomicSeries() {
		if err := s.agg.RefreshEconomic(ctx, id); err != nil {
			if s.l != nil {
				s.l.Warn("scheduled series refresh failed",
					applogger.String("series", id),
					applogger.Error(err))
			}
		}
	}
}
