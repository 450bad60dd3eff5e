package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"AShareSentinel/internal/model"
)

// SQLiteStore persists everything to a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so API reads do not block run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS market_bars (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume REAL    NOT NULL,
			amount REAL    NOT NULL,
			source TEXT    NOT NULL,
			PRIMARY KEY (symbol, ts, source)
		)`,

		`CREATE TABLE IF NOT EXISTS news_items (
			id          TEXT PRIMARY KEY,
			symbol      TEXT    NOT NULL,
			ts          INTEGER NOT NULL,
			title       TEXT    NOT NULL,
			url         TEXT    NOT NULL,
			source      TEXT    NOT NULL,
			sentiment   REAL    NOT NULL,
			relevance   REAL    NOT NULL,
			url_hash    TEXT    NOT NULL,
			hour_bucket TEXT    NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_news_url_hour ON news_items(url_hash, hour_bucket)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id                TEXT PRIMARY KEY,
			symbol            TEXT    NOT NULL,
			ts                INTEGER NOT NULL,
			trade_date        TEXT    NOT NULL,
			action            TEXT    NOT NULL,
			entry             REAL,
			stop_loss         REAL,
			take_profit       REAL,
			confidence        REAL    NOT NULL,
			score             REAL    NOT NULL,
			reasons           TEXT    NOT NULL,
			evidence_urls     TEXT    NOT NULL,
			position_size_pct REAL    NOT NULL,
			low_confidence    INTEGER NOT NULL,
			created_at        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_date ON signals(trade_date)`,

		`CREATE TABLE IF NOT EXISTS risk_states (
			date          TEXT PRIMARY KEY,
			equity        REAL    NOT NULL,
			peak_equity   REAL    NOT NULL,
			drawdown      REAL    NOT NULL,
			allow_new_buy INTEGER NOT NULL,
			created_at    INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS audit_logs (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			ts      INTEGER NOT NULL,
			event   TEXT    NOT NULL,
			payload TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_logs(ts)`,
	}

	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("exec %q: %w", st[:40], err)
		}
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveBars(ctx context.Context, bars []model.MarketBar) error {
	if len(bars) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO market_bars
			(symbol, ts, open, high, low, close, volume, amount, source)
			VALUES (?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, b := range bars {
			if _, err := stmt.ExecContext(ctx,
				b.Symbol, b.Time.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume, b.Amount, b.Source,
			); err != nil {
				return fmt.Errorf("save bar %s %s: %w", b.Symbol, model.DayKey(b.Time), err)
			}
		}
		return nil
	})
}

// SaveNewsItems inserts items, ignoring any whose id or (url, hour) already exists.
func (s *SQLiteStore) SaveNewsItems(ctx context.Context, items []model.NewsItem) error {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO news_items
			(id, symbol, ts, title, url, source, sentiment, relevance, url_hash, hour_bucket, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, it := range items {
			if _, err := stmt.ExecContext(ctx,
				it.ID, it.Symbol, it.Time.Unix(), it.Title, it.URL, it.Source,
				it.Sentiment, it.Relevance, it.URLHash(), it.HourBucket(), now,
			); err != nil {
				return fmt.Errorf("save news %s: %w", it.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) SaveSignals(ctx context.Context, signals []model.TradeSignal) error {
	if len(signals) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO signals
			(id, symbol, ts, trade_date, action, entry, stop_loss, take_profit,
			 confidence, score, reasons, evidence_urls, position_size_pct, low_confidence, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, sig := range signals {
			reasons, err := json.Marshal(nonNil(sig.Reasons))
			if err != nil {
				return err
			}
			urls, err := json.Marshal(nonNil(sig.EvidenceURLs))
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx,
				sig.ID, sig.Symbol, sig.Time.UnixNano(), model.DayKey(sig.Time), sig.Action.String(),
				sig.Entry.Ptr(), sig.StopLoss.Ptr(), sig.TakeProfit.Ptr(),
				sig.Confidence, sig.Score, string(reasons), string(urls),
				sig.PositionSizePct, boolInt(sig.LowConfidence), now,
			); err != nil {
				return fmt.Errorf("save signal %s: %w", sig.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) SaveRiskState(ctx context.Context, rs model.RiskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO risk_states
		(date, equity, peak_equity, drawdown, allow_new_buy, created_at)
		VALUES (?,?,?,?,?,?)`,
		model.DayKey(rs.Date), rs.Equity, rs.PeakEquity, rs.Drawdown,
		boolInt(rs.AllowNewBuy), s.now().Unix(),
	)
	return err
}

func (s *SQLiteStore) LatestRiskState(ctx context.Context) (*model.RiskState, error) {
	var (
		day   string
		rs    model.RiskState
		allow int
	)
	err := s.db.QueryRowContext(ctx, `SELECT date, equity, peak_equity, drawdown, allow_new_buy
		FROM risk_states ORDER BY date DESC LIMIT 1`).
		Scan(&day, &rs.Equity, &rs.PeakEquity, &rs.Drawdown, &allow)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rs.Date, err = time.Parse("2006-01-02", day); err != nil {
		return nil, fmt.Errorf("parse risk state date %q: %w", day, err)
	}
	rs.AllowNewBuy = allow != 0
	return &rs, nil
}

// LogEvent appends an audit row with payload encoded as JSON.
func (s *SQLiteStore) LogEvent(ctx context.Context, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `INSERT INTO audit_logs (ts, event, payload) VALUES (?,?,?)`,
		s.now().UnixNano(), event, string(data))
	return err
}

// RecentEvents returns up to limit audit rows, oldest first.
func (s *SQLiteStore) RecentEvents(ctx context.Context, limit int) ([]AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, ts, event, payload FROM
		(SELECT id, ts, event, payload FROM audit_logs ORDER BY id DESC LIMIT ?) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var (
			e  AuditEvent
			ts int64
		)
		if err := rows.Scan(&e.ID, &ts, &e.Event, &e.Payload); err != nil {
			return nil, err
		}
		e.Time = time.Unix(0, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

const signalColumns = `id, symbol, ts, action, entry, stop_loss, take_profit,
	confidence, score, reasons, evidence_urls, position_size_pct, low_confidence`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(r rowScanner) (model.TradeSignal, error) {
	var (
		sig               model.TradeSignal
		ts                int64
		action            string
		entry, stop, take sql.NullFloat64
		reasons, urls     string
		low               int
	)
	if err := r.Scan(&sig.ID, &sig.Symbol, &ts, &action, &entry, &stop, &take,
		&sig.Confidence, &sig.Score, &reasons, &urls, &sig.PositionSizePct, &low); err != nil {
		return sig, err
	}
	a, err := model.ParseSignalAction(action)
	if err != nil {
		return sig, err
	}
	if err := json.Unmarshal([]byte(reasons), &sig.Reasons); err != nil {
		return sig, fmt.Errorf("decode reasons: %w", err)
	}
	if err := json.Unmarshal([]byte(urls), &sig.EvidenceURLs); err != nil {
		return sig, fmt.Errorf("decode evidence urls: %w", err)
	}
	sig.Time = time.Unix(0, ts)
	sig.Action = a
	sig.Entry = model.OptFloat{V: entry.Float64, Valid: entry.Valid}
	sig.StopLoss = model.OptFloat{V: stop.Float64, Valid: stop.Valid}
	sig.TakeProfit = model.OptFloat{V: take.Float64, Valid: take.Valid}
	sig.LowConfidence = low != 0
	return sig, nil
}

// SignalsByDate returns the signals of one trade date in time order.
func (s *SQLiteStore) SignalsByDate(ctx context.Context, day time.Time) ([]model.TradeSignal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE trade_date = ? ORDER BY ts ASC, rowid ASC`,
		model.DayKey(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TradeSignal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SignalByID(ctx context.Context, id string) (*model.TradeSignal, error) {
	sig, err := scanSignal(s.db.QueryRowContext(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

// BarsBetween returns stored bars of symbol with start <= ts <= end, ascending.
func (s *SQLiteStore) BarsBetween(ctx context.Context, symbol string, start, end time.Time) ([]model.MarketBar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, ts, open, high, low, close, volume, amount, source
		FROM market_bars WHERE symbol = ? AND ts BETWEEN ? AND ? ORDER BY ts ASC`,
		symbol, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MarketBar
	for rows.Next() {
		var (
			b  model.MarketBar
			ts int64
		)
		if err := rows.Scan(&b.Symbol, &ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Amount, &b.Source); err != nil {
			return nil, err
		}
		b.Time = time.Unix(ts, 0)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	log.Info().Msg("closing sqlite store")
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
