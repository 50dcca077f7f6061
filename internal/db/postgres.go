package db

import (
	"context"
	_ "embed"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawgrid/crocomine-agent/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for game statistics")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema migrations
func (s *PostgresStore) InitSchema() error {
	if _, err := s.pool.Exec(context.Background(), schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}
	log.Println("Game statistics schema initialized")
	return nil
}

// SaveGameResult persists one finished grid.
func (s *PostgresStore) SaveGameResult(ctx context.Context, result models.GameResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	sql := `
		INSERT INTO game_results (id, grid_name, status, moves, duration_ms)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := s.pool.Exec(ctx, sql, result.ID, result.GridName, string(result.Status), result.Moves, result.DurationMS)
	if err != nil {
		return fmt.Errorf("failed to insert game result: %v", err)
	}
	return nil
}

// LoadStats aggregates the win/loss record across every persisted grid.
func (s *PostgresStore) LoadStats(ctx context.Context) (models.AggregateStats, error) {
	sql := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'GG'),
			COUNT(*) FILTER (WHERE status = 'KO'),
			COALESCE(SUM(moves), 0),
			COALESCE(SUM(duration_ms), 0)
		FROM game_results;
	`
	var stats models.AggregateStats
	err := s.pool.QueryRow(ctx, sql).Scan(&stats.Wins, &stats.Losses, &stats.TotalMoves, &stats.TotalDuration)
	if err != nil {
		return models.AggregateStats{}, fmt.Errorf("failed to load stats: %v", err)
	}
	return stats, nil
}
