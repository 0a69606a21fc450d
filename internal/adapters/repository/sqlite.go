package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/events"
	"github.com/shxuryaaz/BlackSwan-Credit-system/internal/domain/model"
)

const defaultHistoryLimit = 50

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes writes; SQLite allows one writer at a time
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so score reads don't block ingest writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS issuer (
			id     TEXT PRIMARY KEY,
			name   TEXT NOT NULL,
			ticker TEXT,
			sector TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS feature_snapshot (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			issuer_id    TEXT NOT NULL,
			ts           INTEGER NOT NULL,
			feature_name TEXT NOT NULL,
			value        REAL,
			source       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feature_issuer_name_ts
			ON feature_snapshot(issuer_id, feature_name, ts)`,

		`CREATE TABLE IF NOT EXISTS event (
			id           TEXT PRIMARY KEY,
			issuer_id    TEXT NOT NULL,
			ts           INTEGER NOT NULL,
			type         TEXT NOT NULL,
			sentiment    REAL,
			weight       REAL,
			decay_factor REAL NOT NULL DEFAULT 1.0,
			headline     TEXT,
			url          TEXT,
			source       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_issuer_ts ON event(issuer_id, ts)`,

		`CREATE TABLE IF NOT EXISTS macro (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			ts     INTEGER NOT NULL,
			key    TEXT NOT NULL,
			value  REAL,
			source TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_macro_key_ts ON macro(key, ts)`,

		`CREATE TABLE IF NOT EXISTS score (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			issuer_id     TEXT NOT NULL,
			ts            INTEGER NOT NULL,
			score         REAL NOT NULL,
			bucket        TEXT NOT NULL,
			base          REAL,
			market        REAL,
			event_delta   REAL,
			macro_adj     REAL,
			model_version TEXT,
			explanation   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_score_issuer_ts ON score(issuer_id, ts)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// CreateIssuer registers a new issuer.
func (s *SQLiteStore) CreateIssuer(ctx context.Context, issuer Issuer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO issuer (id, name, ticker, sector) VALUES (?, ?, ?, ?)`,
		issuer.ID, issuer.Name, issuer.Ticker, issuer.Sector,
	)
	if err != nil {
		return fmt.Errorf("insert issuer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicateIssuer
	}
	return nil
}

// GetIssuer looks up one issuer by id.
func (s *SQLiteStore) GetIssuer(ctx context.Context, id string) (Issuer, error) {
	var issuer Issuer
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(ticker, ''), COALESCE(sector, '') FROM issuer WHERE id = ?`, id,
	).Scan(&issuer.ID, &issuer.Name, &issuer.Ticker, &issuer.Sector)
	if err == sql.ErrNoRows {
		return Issuer{}, ErrIssuerNotFound
	}
	if err != nil {
		return Issuer{}, fmt.Errorf("select issuer: %w", err)
	}
	return issuer, nil
}

// ListIssuers returns all issuers ordered by id.
func (s *SQLiteStore) ListIssuers(ctx context.Context) ([]Issuer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(ticker, ''), COALESCE(sector, '') FROM issuer ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select issuers: %w", err)
	}
	defer rows.Close()

	var issuers []Issuer
	for rows.Next() {
		var issuer Issuer
		if err := rows.Scan(&issuer.ID, &issuer.Name, &issuer.Ticker, &issuer.Sector); err != nil {
			return nil, fmt.Errorf("scan issuer: %w", err)
		}
		issuers = append(issuers, issuer)
	}
	return issuers, rows.Err()
}

// RecordFeature appends one feature snapshot.
func (s *SQLiteStore) RecordFeature(ctx context.Context, fv model.FeatureValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feature_snapshot (issuer_id, ts, feature_name, value, source) VALUES (?, ?, ?, ?, ?)`,
		fv.IssuerID, fv.ObservedAt.UnixNano(), fv.Name, fv.Value, fv.Source,
	)
	if err != nil {
		return fmt.Errorf("insert feature: %w", err)
	}
	return nil
}

// LatestFeatures returns the newest value per feature name out of the
// given whitelist.
func (s *SQLiteStore) LatestFeatures(ctx context.Context, issuerID string, names []string) (map[string]float64, error) {
	if len(names) == 0 {
		return map[string]float64{}, nil
	}

	placeholders := strings.Repeat("?,", len(names))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(`
		SELECT f.feature_name, f.value
		FROM feature_snapshot f
		WHERE f.issuer_id = ?
		AND f.feature_name IN (%s)
		AND f.ts = (
			SELECT MAX(s.ts)
			FROM feature_snapshot s
			WHERE s.issuer_id = f.issuer_id
			AND s.feature_name = f.feature_name
		)`, placeholders)

	args := make([]any, 0, len(names)+1)
	args = append(args, issuerID)
	for _, name := range names {
		args = append(args, name)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select latest features: %w", err)
	}
	defer rows.Close()

	features := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features[name] = value
	}
	return features, rows.Err()
}

// RecordEvent appends one event; the id doubles as the dedupe key.
func (s *SQLiteStore) RecordEvent(ctx context.Context, ev model.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO event (id, issuer_id, ts, type, sentiment, weight, decay_factor, headline, url, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.IssuerID, ev.OccurredAt.UnixNano(), ev.Type, ev.Sentiment, ev.Weight,
		ev.DecayFactor, ev.Headline, ev.URL, ev.Source,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

// ActiveEvents returns the issuer's events inside the window with decay
// above the floor, newest first.
func (s *SQLiteStore) ActiveEvents(ctx context.Context, issuerID string, since time.Time, decayFloor float64) ([]model.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, issuer_id, ts, type, COALESCE(sentiment, 0), COALESCE(weight, 0), decay_factor,
		        COALESCE(headline, ''), COALESCE(url, ''), COALESCE(source, '')
		 FROM event
		 WHERE issuer_id = ? AND ts >= ? AND decay_factor > ?
		 ORDER BY ts DESC`,
		issuerID, since.UnixNano(), decayFloor,
	)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	var out []model.EventRecord
	for rows.Next() {
		var ev model.EventRecord
		var ts int64
		if err := rows.Scan(&ev.ID, &ev.IssuerID, &ts, &ev.Type, &ev.Sentiment, &ev.Weight,
			&ev.DecayFactor, &ev.Headline, &ev.URL, &ev.Source); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.OccurredAt = time.Unix(0, ts).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

// RefreshDecay re-derives decay factors from event age. A factor is only
// ever lowered, honoring the monotonic-decrease contract even if the
// clock moves backwards between runs.
func (s *SQLiteStore) RefreshDecay(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, decay_factor FROM event WHERE decay_factor > 0`)
	if err != nil {
		return 0, fmt.Errorf("select events for decay: %w", err)
	}

	type update struct {
		id    string
		decay float64
	}
	var updates []update
	for rows.Next() {
		var id string
		var ts int64
		var current float64
		if err := rows.Scan(&id, &ts, &current); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan event decay: %w", err)
		}
		computed := events.Decay(now.Sub(time.Unix(0, ts)), window)
		if computed < current {
			updates = append(updates, update{id: id, decay: computed})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate events for decay: %w", err)
	}
	rows.Close()

	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin decay tx: %w", err)
	}
	for _, u := range updates {
		if _, err := tx.ExecContext(ctx,
			`UPDATE event SET decay_factor = ? WHERE id = ?`, u.decay, u.id); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("update decay: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit decay tx: %w", err)
	}
	return int64(len(updates)), nil
}

// RecordMacro appends one macro indicator observation.
func (s *SQLiteStore) RecordMacro(ctx context.Context, mi model.MacroIndicator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO macro (ts, key, value, source) VALUES (?, ?, ?, ?)`,
		mi.ObservedAt.UnixNano(), mi.Key, mi.Value, mi.Source,
	)
	if err != nil {
		return fmt.Errorf("insert macro: %w", err)
	}
	return nil
}

// LatestMacros returns the newest value per macro key.
func (s *SQLiteStore) LatestMacros(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.key, m.value
		FROM macro m
		WHERE m.ts = (SELECT MAX(s.ts) FROM macro s WHERE s.key = m.key)`)
	if err != nil {
		return nil, fmt.Errorf("select latest macros: %w", err)
	}
	defer rows.Close()

	macros := make(map[string]float64)
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan macro: %w", err)
		}
		macros[key] = value
	}
	return macros, rows.Err()
}

// AppendScore inserts one immutable score record.
func (s *SQLiteStore) AppendScore(ctx context.Context, result model.ScoreResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	explanation, err := json.Marshal(result.Explanation)
	if err != nil {
		return fmt.Errorf("marshal explanation: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO score (issuer_id, ts, score, bucket, base, market, event_delta, macro_adj, model_version, explanation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.IssuerID, result.ComputedAt.UnixNano(), result.Score, string(result.Bucket),
		result.Base, result.Market, result.EventDelta, result.MacroAdj,
		result.ModelVersion, string(explanation),
	)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

// LatestScore returns the most recent score record for an issuer.
func (s *SQLiteStore) LatestScore(ctx context.Context, issuerID string) (model.ScoreResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT issuer_id, ts, score, bucket, base, market, event_delta, macro_adj,
		        COALESCE(model_version, ''), COALESCE(explanation, '{}')
		 FROM score WHERE issuer_id = ? ORDER BY ts DESC, id DESC LIMIT 1`, issuerID)

	result, err := scanScore(row)
	if err == sql.ErrNoRows {
		return model.ScoreResult{}, ErrScoreNotFound
	}
	if err != nil {
		return model.ScoreResult{}, fmt.Errorf("select latest score: %w", err)
	}
	return result, nil
}

// ScoreHistory returns the issuer's score records, newest first.
func (s *SQLiteStore) ScoreHistory(ctx context.Context, issuerID string, limit int) ([]model.ScoreResult, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT issuer_id, ts, score, bucket, base, market, event_delta, macro_adj,
		        COALESCE(model_version, ''), COALESCE(explanation, '{}')
		 FROM score WHERE issuer_id = ? ORDER BY ts DESC, id DESC LIMIT ?`, issuerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select score history: %w", err)
	}
	defer rows.Close()

	var history []model.ScoreResult
	for rows.Next() {
		result, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		history = append(history, result)
	}
	return history, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScore(row rowScanner) (model.ScoreResult, error) {
	var result model.ScoreResult
	var ts int64
	var bucket, explanation string
	if err := row.Scan(&result.IssuerID, &ts, &result.Score, &bucket, &result.Base,
		&result.Market, &result.EventDelta, &result.MacroAdj, &result.ModelVersion, &explanation); err != nil {
		return model.ScoreResult{}, err
	}
	result.ComputedAt = time.Unix(0, ts).UTC()
	result.Bucket = model.Bucket(bucket)
	if err := json.Unmarshal([]byte(explanation), &result.Explanation); err != nil {
		// A malformed stored explanation degrades to empty rather than
		// failing the read.
		result.Explanation = model.Explanation{}
	}
	return result, nil
}
