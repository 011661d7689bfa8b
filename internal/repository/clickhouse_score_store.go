package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"EquityLens/internal/domain/models"
	pkgch "EquityLens/pkg/clickhouse"
	applogger "EquityLens/pkg/logger"
)

// CHScoreStore implements ScoreHistory backed by ClickHouse. Every completed
// composite score is appended as one row; the contribution breakdown is
// stored as JSON so weight revisions can be replayed offline.
type CHScoreStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHScoreStore(ch *pkgch.Client) *CHScoreStore {
	return &CHScoreStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHScoreStore) SetLogger(l *applogger.Logger) { s.l = l }

// Schema returns the idempotent DDL for the score history table.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.score_history (
            symbol          LowCardinality(String),
            as_of           DateTime64(3, 'UTC'),
            composite       Float64,
            recommendation  LowCardinality(String),
            weights_version LowCardinality(String),
            contributions   String,
            recorded_at     DateTime64(3, 'UTC') DEFAULT now64(3)
        )
        ENGINE = MergeTree()
        PARTITION BY toYYYYMM(as_of)
        ORDER BY (symbol, as_of)
    `, database),
	}
}

func (s *CHScoreStore) Record(ctx context.Context, score *models.InvestmentScore) error {
	start := time.Now()
	contributions, err := json.Marshal(score.Contributions)
	if err != nil {
		return fmt.Errorf("marshal contributions: %w", err)
	}

	const q = `
        INSERT INTO score_history
            (symbol, as_of, composite, recommendation, weights_version, contributions)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	if _, err := s.db.ExecContext(ctx, q,
		score.Symbol, score.AsOf, score.Composite,
		score.Recommendation, score.WeightsVersion, string(contributions),
	); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse score insert error",
				applogger.String("symbol", score.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert score: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse score insert ok",
			applogger.String("symbol", score.Symbol),
			applogger.Float64("composite", score.Composite),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// Latest returns the most recent stored score per symbol, newest first.
func (s *CHScoreStore) Latest(ctx context.Context, symbol string, limit int) ([]models.InvestmentScore, error) {
	const q = `
        SELECT symbol, as_of, composite, recommendation, weights_version, contributions
        FROM score_history
        WHERE symbol = ?
        ORDER BY as_of DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse score query error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	out := make([]models.InvestmentScore, 0, limit)
	for rows.Next() {
		var sc models.InvestmentScore
		var contributions string
		if err := rows.Scan(&sc.Symbol, &sc.AsOf, &sc.Composite, &sc.Recommendation, &sc.WeightsVersion, &contributions); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if contributions != "" {
			if err := json.Unmarshal([]byte(contributions), &sc.Contributions); err != nil {
				return nil, fmt.Errorf("unmarshal contributions: %w", err)
			}
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHScoreStore) Close() error { return nil }
