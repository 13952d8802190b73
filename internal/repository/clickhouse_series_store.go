package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
	pkgch "BandView/pkg/clickhouse"
	applogger "BandView/pkg/logger"
)

// DefaultMaxBars bounds how much history one ClickHouse read returns.
const DefaultMaxBars = 50000

// CHSeriesStore implements SeriesStore backed by ClickHouse rt_candles_<tf> tables.
type CHSeriesStore struct {
	ch      *pkgch.Client
	db      *sql.DB
	maxBars int
	l       *applogger.Logger
}

func NewCHSeriesStore(ch *pkgch.Client, maxBars int) *CHSeriesStore {
	if maxBars <= 0 {
		maxBars = DefaultMaxBars
	}
	return &CHSeriesStore{ch: ch, db: ch.DB(), maxBars: maxBars}
}

// SetLogger injects a structured logger.
func (s *CHSeriesStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init creates the database and candle tables when missing.
func (s *CHSeriesStore) Init(ctx context.Context) error {
	db := s.ch.Database()
	if db == "" {
		db = "bandview"
	}
	stmts := []string{"CREATE DATABASE IF NOT EXISTS " + db}
	for _, tf := range []domrepo.Timeframe{domrepo.TF1s, domrepo.TF1m, domrepo.TF5m, domrepo.TF1d} {
		table, err := s.tableForTF(tf)
		if err != nil {
			return err
		}
		stmts = append(stmts, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            bucket DateTime64(3),
            symbol LowCardinality(String),
            open Float64,
            high Float64,
            low Float64,
            close Float64,
            vol Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, bucket)`, table))
	}
	return s.ch.InitSchema(ctx, stmts)
}

// Series returns the latest maxBars candles for symbol in ascending time order.
func (s *CHSeriesStore) Series(ctx context.Context, symbol string, tf domrepo.Timeframe) ([]models.OHLCV, error) {
	start := time.Now()
	table, err := s.tableForTF(tf)
	if err != nil {
		return nil, err
	}
	const qtpl = `
        SELECT bucket, open, high, low, close, vol
        FROM %s
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, table)
	rows, err := s.db.QueryContext(ctx, q, symbol, s.maxBars)
	if err != nil {
		s.logErr("clickhouse series query error", table, symbol, tf, err)
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.OHLCV, 0, 1024)
	for rows.Next() {
		var (
			bucket time.Time
			bar    models.OHLCV
		)
		if err := rows.Scan(&bucket, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			s.logErr("clickhouse series scan error", table, symbol, tf, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		bar.Time = bucket.UnixMilli()
		out = append(out, bar)
	}
	if err := rows.Err(); err != nil {
		s.logErr("clickhouse series rows error", table, symbol, tf, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s %s", domrepo.ErrSeriesNotFound, symbol, tf)
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse series ok",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHSeriesStore) logErr(msg, table, symbol string, tf domrepo.Timeframe, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Error(err),
	)
}

func (s *CHSeriesStore) tableForTF(tf domrepo.Timeframe) (string, error) {
	db := s.ch.Database()
	if db == "" {
		db = "bandview"
	}
	switch tf {
	case domrepo.TF1s, domrepo.TF1m, domrepo.TF5m, domrepo.TF1d:
		return fmt.Sprintf("%s.rt_candles_%s", db, tf), nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}
