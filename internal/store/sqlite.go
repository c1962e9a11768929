package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS admin_boundaries (
	pcode        TEXT NOT NULL,
	name         TEXT NOT NULL,
	admin_level  TEXT NOT NULL,
	parent_pcode TEXT,
	country_iso3 TEXT NOT NULL,
	geom         BLOB,
	loaded_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (country_iso3, admin_level, pcode)
);

CREATE INDEX IF NOT EXISTS idx_boundaries_parent ON admin_boundaries(parent_pcode);

CREATE TABLE IF NOT EXISTS datasets (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	type         TEXT NOT NULL,
	admin_level  TEXT NOT NULL,
	country_iso3 TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_datasets_country ON datasets(country_iso3);

CREATE TABLE IF NOT EXISTS dataset_rows (
	id           TEXT PRIMARY KEY,
	dataset_id   TEXT NOT NULL REFERENCES datasets(id),
	raw_pcode    TEXT,
	raw_name     TEXT,
	raw_value    REAL,
	raw_category TEXT
);

CREATE INDEX IF NOT EXISTS idx_dataset_rows_dataset ON dataset_rows(dataset_id);

CREATE TABLE IF NOT EXISTS configs (
	kind       TEXT NOT NULL,
	id         TEXT NOT NULL,
	blob       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (kind, id)
);

CREATE TABLE IF NOT EXISTS aligned_values (
	dataset_id TEXT NOT NULL REFERENCES datasets(id),
	pcode      TEXT NOT NULL,
	value      REAL,
	category   TEXT,
	strategy   TEXT NOT NULL,
	confidence REAL NOT NULL,
	applied_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (dataset_id, pcode)
);

CREATE TABLE IF NOT EXISTS instance_scores (
	instance_id TEXT NOT NULL,
	pcode       TEXT NOT NULL,
	key         TEXT NOT NULL,
	score       REAL NOT NULL,
	applied_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (instance_id, pcode, key)
);

CREATE INDEX IF NOT EXISTS idx_instance_scores_key ON instance_scores(instance_id, key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Boundaries(ctx context.Context, countryISO3 string, level model.AdminLevel) ([]model.BoundaryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pcode, name, admin_level, parent_pcode, country_iso3, geom
		 FROM admin_boundaries
		 WHERE country_iso3 = ? AND admin_level = ?
		 ORDER BY pcode`,
		countryISO3, string(level),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query boundaries")
	}
	defer rows.Close()

	var records []model.BoundaryRecord
	for rows.Next() {
		var b model.BoundaryRecord
		var parent sql.NullString
		if err := rows.Scan(&b.PCode, &b.Name, &b.Level, &parent, &b.CountryISO3, &b.Geom); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan boundary")
		}
		b.ParentPCode = parent.String
		records = append(records, b)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate boundaries")
}

func (s *SQLiteStore) InsertBoundaries(ctx context.Context, records []model.BoundaryRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert boundaries")
	}
	defer tx.Rollback()

	type setKey struct {
		country string
		level   model.AdminLevel
	}
	seen := make(map[setKey]bool)
	for i := range records {
		k := setKey{records[i].CountryISO3, records[i].Level}
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM admin_boundaries WHERE country_iso3 = ? AND admin_level = ?`,
			k.country, string(k.level),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: clear boundaries %s/%s", k.country, k.level)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO admin_boundaries (pcode, name, admin_level, parent_pcode, country_iso3, geom)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert boundary")
	}
	defer stmt.Close()

	var n int64
	for i := range records {
		b := &records[i]
		var parent any
		if b.ParentPCode != "" {
			parent = b.ParentPCode
		}
		if _, err := stmt.ExecContext(ctx, b.PCode, b.Name, string(b.Level), parent, b.CountryISO3, b.Geom); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert boundary %s", b.PCode)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert boundaries")
	}
	return n, nil
}

func (s *SQLiteStore) CreateDataset(ctx context.Context, d model.Dataset) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, name, type, admin_level, country_iso3) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, type = excluded.type,
		   admin_level = excluded.admin_level, country_iso3 = excluded.country_iso3`,
		d.ID, d.Name, string(d.Type), string(d.AdminLevel), d.CountryISO3,
	)
	return eris.Wrapf(err, "sqlite: create dataset %s", d.ID)
}

func (s *SQLiteStore) Dataset(ctx context.Context, datasetID string) (*model.Dataset, error) {
	var d model.Dataset
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, admin_level, country_iso3 FROM datasets WHERE id = ?`,
		datasetID,
	).Scan(&d.ID, &d.Name, &d.Type, &d.AdminLevel, &d.CountryISO3)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get dataset %s", datasetID)
	}
	return &d, nil
}

func (s *SQLiteStore) ListDatasets(ctx context.Context, countryISO3 string) ([]model.Dataset, error) {
	query := `SELECT id, name, type, admin_level, country_iso3 FROM datasets`
	var args []any
	if countryISO3 != "" {
		query += ` WHERE country_iso3 = ?`
		args = append(args, countryISO3)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list datasets")
	}
	defer rows.Close()

	var datasets []model.Dataset
	for rows.Next() {
		var d model.Dataset
		if err := rows.Scan(&d.ID, &d.Name, &d.Type, &d.AdminLevel, &d.CountryISO3); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset")
		}
		datasets = append(datasets, d)
	}
	return datasets, eris.Wrap(rows.Err(), "sqlite: list datasets iterate")
}

func (s *SQLiteStore) InsertRawRecords(ctx context.Context, datasetID string, records []model.RawRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert rows")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM dataset_rows WHERE dataset_id = ?`, datasetID,
	); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear rows for %s", datasetID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dataset_rows (id, dataset_id, raw_pcode, raw_name, raw_value, raw_category)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert row")
	}
	defer stmt.Close()

	var n int64
	for i := range records {
		r := &records[i]
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), datasetID, r.PCode, r.Name, r.Value, r.Category); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert row for %s", datasetID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert rows")
	}
	return n, nil
}

func (s *SQLiteStore) RawRecords(ctx context.Context, datasetID string) ([]model.RawRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT raw_pcode, raw_name, raw_value, raw_category
		 FROM dataset_rows WHERE dataset_id = ? ORDER BY id`,
		datasetID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query rows for %s", datasetID)
	}
	defer rows.Close()

	var records []model.RawRecord
	for rows.Next() {
		var r model.RawRecord
		if err := rows.Scan(&r.PCode, &r.Name, &r.Value, &r.Category); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan raw record")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate raw records")
}

func (s *SQLiteStore) GetConfig(ctx context.Context, kind ConfigKind, id string, out any) (bool, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM configs WHERE kind = ? AND id = ?`,
		string(kind), id,
	).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, eris.Wrapf(err, "sqlite: get config %s/%s", kind, id)
	}
	if err := json.Unmarshal([]byte(blob), out); err != nil {
		return false, eris.Wrapf(err, "sqlite: unmarshal config %s/%s", kind, id)
	}
	return true, nil
}

func (s *SQLiteStore) PutConfig(ctx context.Context, kind ConfigKind, id string, cfg any) error {
	blob, err := json.Marshal(cfg)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal config %s/%s", kind, id)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO configs (kind, id, blob, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (kind, id) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		string(kind), id, string(blob), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put config %s/%s", kind, id)
}

func (s *SQLiteStore) ApplyAlignment(ctx context.Context, datasetID string, results []model.MatchResult, boundaries []model.BoundaryRecord) (*model.AlignmentSummary, error) {
	plan, summary := planAlignment(results, boundaries)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin apply alignment")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM aligned_values WHERE dataset_id = ?`, datasetID,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: clear aligned values %s", datasetID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO aligned_values (dataset_id, pcode, value, category, strategy, confidence, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare insert aligned value")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, row := range plan {
		if _, err := stmt.ExecContext(ctx, datasetID, row.PCode, row.Value, row.Category, string(row.Strategy), row.Confidence, now); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert aligned value %s", row.PCode)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit apply alignment")
	}
	return &summary, nil
}

func (s *SQLiteStore) AlignedValues(ctx context.Context, datasetID string) ([]AlignedValue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pcode, value, category FROM aligned_values WHERE dataset_id = ? ORDER BY pcode`,
		datasetID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query aligned values %s", datasetID)
	}
	defer rows.Close()

	var values []AlignedValue
	for rows.Next() {
		var v AlignedValue
		if err := rows.Scan(&v.PCode, &v.Value, &v.Category); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan aligned value")
		}
		values = append(values, v)
	}
	return values, eris.Wrap(rows.Err(), "sqlite: iterate aligned values")
}

func (s *SQLiteStore) InstanceScores(ctx context.Context, instanceID string) ([]ScoreTriple, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pcode, key, score FROM instance_scores WHERE instance_id = ? ORDER BY pcode, key`,
		instanceID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query instance scores %s", instanceID)
	}
	defer rows.Close()

	var scores []ScoreTriple
	for rows.Next() {
		var sc ScoreTriple
		if err := rows.Scan(&sc.PCode, &sc.Key, &sc.Score); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan instance score")
		}
		scores = append(scores, sc)
	}
	return scores, eris.Wrap(rows.Err(), "sqlite: iterate instance scores")
}

func (s *SQLiteStore) ApplyScores(ctx context.Context, instanceID string, scores []ScoreTriple) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin apply scores")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO instance_scores (instance_id, pcode, key, score, applied_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (instance_id, pcode, key) DO UPDATE SET score = excluded.score, applied_at = excluded.applied_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare apply score")
	}
	defer stmt.Close()

	applied := 0
	now := time.Now().UTC()
	for _, sc := range scores {
		if _, err := stmt.ExecContext(ctx, instanceID, sc.PCode, sc.Key, sc.Score, now); err != nil {
			return applied, eris.Wrapf(err, "sqlite: apply score %s/%s", sc.PCode, sc.Key)
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return applied, eris.Wrap(err, "sqlite: commit apply scores")
	}
	return applied, nil
}
