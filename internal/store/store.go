package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/crypto-factory/internal/config"
	"github.com/rickgao/crypto-factory/internal/model"
)

// Store wraps the feature_store connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect creates the connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies the connection is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Init creates the feature_store schema. Hypertable conversion is
// attempted but a plain PostgreSQL server is acceptable.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE"); err != nil {
		s.logger.Warn("timescaledb extension unavailable, using plain postgres", "err", err)
	}

	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create feature_store: %w", err)
	}

	if _, err := s.pool.Exec(ctx,
		`SELECT create_hypertable('feature_store', 'timestamp',
			if_not_exists => TRUE,
			chunk_time_interval => INTERVAL '1 day')`); err != nil {
		s.logger.Warn("running without hypertable", "err", err)
	}

	for _, idx := range []string{
		`CREATE INDEX IF NOT EXISTS idx_symbol_time
			ON feature_store (symbol, timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_close_price
			ON feature_store (close) WHERE close IS NOT NULL`,
	} {
		if _, err := s.pool.Exec(ctx, idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	s.logger.Info("feature_store initialized")
	return nil
}

// createTableSQL and upsertSQL are derived from model.ValueColumns so
// the schema, the upsert, and the row type cannot drift apart.
var (
	createTableSQL = buildCreateTableSQL()
	upsertSQL      = buildUpsertSQL()
)

func buildCreateTableSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS feature_store (\n")
	b.WriteString("\ttimestamp TIMESTAMPTZ NOT NULL,\n")
	b.WriteString("\tsymbol TEXT NOT NULL,\n")
	for _, col := range model.ValueColumns {
		fmt.Fprintf(&b, "\t%s DOUBLE PRECISION,\n", col)
	}
	b.WriteString("\tPRIMARY KEY (timestamp, symbol)\n)")
	return b.String()
}

func buildUpsertSQL() string {
	cols := append([]string{"timestamp", "symbol"}, model.ValueColumns...)

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	updates := make([]string, 0, len(model.ValueColumns))
	for _, col := range model.ValueColumns {
		updates = append(updates, fmt.Sprintf("%s=EXCLUDED.%s", col, col))
	}

	return fmt.Sprintf(
		"INSERT INTO feature_store (%s) VALUES (%s) ON CONFLICT (timestamp, symbol) DO UPDATE SET %s",
		strings.Join(cols, ","),
		strings.Join(placeholders, ","),
		strings.Join(updates, ","),
	)
}

// upsertArgs builds the argument list for one row. Fields the row
// lacks become NULL.
func upsertArgs(row model.FeatureRow) []any {
	args := make([]any, 0, len(model.ValueColumns)+2)
	args = append(args, row.Timestamp, row.Symbol)
	for _, col := range model.ValueColumns {
		if v, ok := row.Fields[col]; ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}
	return args
}

// Upsert writes one feature row, replacing any existing row for the
// same (timestamp, symbol).
func (s *Store) Upsert(ctx context.Context, row model.FeatureRow) error {
	if _, err := s.pool.Exec(ctx, upsertSQL, upsertArgs(row)...); err != nil {
		return fmt.Errorf("upsert feature row: %w", err)
	}
	return nil
}

// Latest returns the most recent rows for a symbol, newest first.
func (s *Store) Latest(ctx context.Context, symbol string, limit int) ([]model.FeatureRow, error) {
	cols := append([]string{"timestamp", "symbol"}, model.ValueColumns...)
	query := fmt.Sprintf(
		"SELECT %s FROM feature_store WHERE symbol = $1 ORDER BY timestamp DESC LIMIT $2",
		strings.Join(cols, ","),
	)

	rows, err := s.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest rows: %w", err)
	}
	defer rows.Close()

	var out []model.FeatureRow
	for rows.Next() {
		var (
			ts  time.Time
			sym string
		)
		vals := make([]*float64, len(model.ValueColumns))
		dest := make([]any, 0, len(model.ValueColumns)+2)
		dest = append(dest, &ts, &sym)
		for i := range vals {
			dest = append(dest, &vals[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}

		row := model.NewFeatureRow(ts, sym)
		for i, col := range model.ValueColumns {
			if vals[i] != nil {
				row.Fields[col] = *vals[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}
	return out, nil
}

// RowCount returns the total number of stored rows.
func (s *Store) RowCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM feature_store").Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return count, nil
}
