package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/relief-analytics/vulnassess-cli/internal/db"
	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS admin_boundaries (
	pcode        TEXT NOT NULL,
	name         TEXT NOT NULL,
	admin_level  TEXT NOT NULL,
	parent_pcode TEXT,
	country_iso3 TEXT NOT NULL,
	geom         BYTEA,
	loaded_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (country_iso3, admin_level, pcode)
);

CREATE INDEX IF NOT EXISTS idx_boundaries_parent ON admin_boundaries(parent_pcode);

CREATE TABLE IF NOT EXISTS datasets (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	type         TEXT NOT NULL,
	admin_level  TEXT NOT NULL,
	country_iso3 TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_datasets_country ON datasets(country_iso3);

CREATE TABLE IF NOT EXISTS dataset_rows (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	dataset_id   TEXT NOT NULL REFERENCES datasets(id),
	raw_pcode    TEXT,
	raw_name     TEXT,
	raw_value    DOUBLE PRECISION,
	raw_category TEXT
);

CREATE INDEX IF NOT EXISTS idx_dataset_rows_dataset ON dataset_rows(dataset_id);

CREATE TABLE IF NOT EXISTS configs (
	kind       TEXT NOT NULL,
	id         TEXT NOT NULL,
	blob       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, id)
);

CREATE TABLE IF NOT EXISTS aligned_values (
	dataset_id TEXT NOT NULL REFERENCES datasets(id),
	pcode      TEXT NOT NULL,
	value      DOUBLE PRECISION,
	category   TEXT,
	strategy   TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (dataset_id, pcode)
);

CREATE TABLE IF NOT EXISTS instance_scores (
	instance_id TEXT NOT NULL,
	pcode       TEXT NOT NULL,
	key         TEXT NOT NULL,
	score       DOUBLE PRECISION NOT NULL,
	applied_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (instance_id, pcode, key)
);

CREATE INDEX IF NOT EXISTS idx_instance_scores_key ON instance_scores(instance_id, key);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Boundaries(ctx context.Context, countryISO3 string, level model.AdminLevel) ([]model.BoundaryRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT pcode, name, admin_level, parent_pcode, country_iso3, geom
		 FROM admin_boundaries
		 WHERE country_iso3 = $1 AND admin_level = $2
		 ORDER BY pcode`,
		countryISO3, string(level),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query boundaries")
	}
	defer rows.Close()

	var records []model.BoundaryRecord
	for rows.Next() {
		var b model.BoundaryRecord
		var parent *string
		if err := rows.Scan(&b.PCode, &b.Name, &b.Level, &parent, &b.CountryISO3, &b.Geom); err != nil {
			return nil, eris.Wrap(err, "postgres: scan boundary")
		}
		if parent != nil {
			b.ParentPCode = *parent
		}
		records = append(records, b)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate boundaries")
}

// InsertBoundaries replaces each affected country+level boundary set and bulk
// loads the new records over the COPY protocol. Reloading the same set is a
// clean replace, not an accumulation.
func (s *PostgresStore) InsertBoundaries(ctx context.Context, records []model.BoundaryRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

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
		_, err := s.pool.Exec(ctx,
			`DELETE FROM admin_boundaries WHERE country_iso3 = $1 AND admin_level = $2`,
			k.country, string(k.level),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: clear boundaries %s/%s", k.country, k.level)
		}
	}

	copyRows := make([][]any, 0, len(records))
	for i := range records {
		b := &records[i]
		var parent *string
		if b.ParentPCode != "" {
			parent = &b.ParentPCode
		}
		copyRows = append(copyRows, []any{b.PCode, b.Name, string(b.Level), parent, b.CountryISO3, b.Geom})
	}

	n, err := db.CopyFrom(ctx, s.pool, "admin_boundaries",
		[]string{"pcode", "name", "admin_level", "parent_pcode", "country_iso3", "geom"}, copyRows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: copy boundaries")
	}
	return n, nil
}

func (s *PostgresStore) CreateDataset(ctx context.Context, d model.Dataset) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO datasets (id, name, type, admin_level, country_iso3) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = $2, type = $3, admin_level = $4, country_iso3 = $5`,
		d.ID, d.Name, string(d.Type), string(d.AdminLevel), d.CountryISO3,
	)
	return eris.Wrapf(err, "postgres: create dataset %s", d.ID)
}

func (s *PostgresStore) Dataset(ctx context.Context, datasetID string) (*model.Dataset, error) {
	var d model.Dataset
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, type, admin_level, country_iso3 FROM datasets WHERE id = $1`,
		datasetID,
	).Scan(&d.ID, &d.Name, &d.Type, &d.AdminLevel, &d.CountryISO3)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get dataset %s", datasetID)
	}
	return &d, nil
}

func (s *PostgresStore) ListDatasets(ctx context.Context, countryISO3 string) ([]model.Dataset, error) {
	query := `SELECT id, name, type, admin_level, country_iso3 FROM datasets`
	args := []any{}
	if countryISO3 != "" {
		query += ` WHERE country_iso3 = $1`
		args = append(args, countryISO3)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list datasets")
	}
	defer rows.Close()

	var datasets []model.Dataset
	for rows.Next() {
		var d model.Dataset
		if err := rows.Scan(&d.ID, &d.Name, &d.Type, &d.AdminLevel, &d.CountryISO3); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dataset")
		}
		datasets = append(datasets, d)
	}
	return datasets, eris.Wrap(rows.Err(), "postgres: list datasets iterate")
}

// InsertRawRecords replaces the raw rows for a dataset with a fresh import.
func (s *PostgresStore) InsertRawRecords(ctx context.Context, datasetID string, records []model.RawRecord) (int64, error) {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM dataset_rows WHERE dataset_id = $1`, datasetID,
	); err != nil {
		return 0, eris.Wrapf(err, "postgres: clear rows for %s", datasetID)
	}

	copyRows := make([][]any, 0, len(records))
	for i := range records {
		r := &records[i]
		copyRows = append(copyRows, []any{uuid.New().String(), datasetID, r.PCode, r.Name, r.Value, r.Category})
	}
	n, err := db.CopyFrom(ctx, s.pool, "dataset_rows",
		[]string{"id", "dataset_id", "raw_pcode", "raw_name", "raw_value", "raw_category"}, copyRows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: copy rows for %s", datasetID)
	}
	return n, nil
}

func (s *PostgresStore) RawRecords(ctx context.Context, datasetID string) ([]model.RawRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT raw_pcode, raw_name, raw_value, raw_category
		 FROM dataset_rows WHERE dataset_id = $1 ORDER BY id`,
		datasetID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query rows for %s", datasetID)
	}
	defer rows.Close()

	var records []model.RawRecord
	for rows.Next() {
		var r model.RawRecord
		if err := rows.Scan(&r.PCode, &r.Name, &r.Value, &r.Category); err != nil {
			return nil, eris.Wrap(err, "postgres: scan raw record")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate raw records")
}

func (s *PostgresStore) GetConfig(ctx context.Context, kind ConfigKind, id string, out any) (bool, error) {
	var blob []byte
	err := s.pool.QueryRow(ctx,
		`SELECT blob FROM configs WHERE kind = $1 AND id = $2`,
		string(kind), id,
	).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, eris.Wrapf(err, "postgres: get config %s/%s", kind, id)
	}
	if err := json.Unmarshal(blob, out); err != nil {
		return false, eris.Wrapf(err, "postgres: unmarshal config %s/%s", kind, id)
	}
	return true, nil
}

func (s *PostgresStore) PutConfig(ctx context.Context, kind ConfigKind, id string, cfg any) error {
	blob, err := json.Marshal(cfg)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal config %s/%s", kind, id)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO configs (kind, id, blob, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (kind, id) DO UPDATE SET blob = $3, updated_at = $4`,
		string(kind), id, blob, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put config %s/%s", kind, id)
}

// ApplyAlignment replaces the aligned values for a dataset with the matched
// rows from this run. Re-applying identical results yields identical stored
// rows.
func (s *PostgresStore) ApplyAlignment(ctx context.Context, datasetID string, results []model.MatchResult, boundaries []model.BoundaryRecord) (*model.AlignmentSummary, error) {
	plan, summary := planAlignment(results, boundaries)

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM aligned_values WHERE dataset_id = $1`, datasetID,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: clear aligned values %s", datasetID)
	}

	copyRows := make([][]any, 0, len(plan))
	now := time.Now().UTC()
	for _, row := range plan {
		copyRows = append(copyRows, []any{datasetID, row.PCode, row.Value, row.Category, string(row.Strategy), row.Confidence, now})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "aligned_values",
		[]string{"dataset_id", "pcode", "value", "category", "strategy", "confidence", "applied_at"}, copyRows); err != nil {
		return nil, eris.Wrapf(err, "postgres: copy aligned values %s", datasetID)
	}
	return &summary, nil
}

func (s *PostgresStore) AlignedValues(ctx context.Context, datasetID string) ([]AlignedValue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT pcode, value, category FROM aligned_values WHERE dataset_id = $1 ORDER BY pcode`,
		datasetID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query aligned values %s", datasetID)
	}
	defer rows.Close()

	var values []AlignedValue
	for rows.Next() {
		var v AlignedValue
		if err := rows.Scan(&v.PCode, &v.Value, &v.Category); err != nil {
			return nil, eris.Wrap(err, "postgres: scan aligned value")
		}
		values = append(values, v)
	}
	return values, eris.Wrap(rows.Err(), "postgres: iterate aligned values")
}

func (s *PostgresStore) InstanceScores(ctx context.Context, instanceID string) ([]ScoreTriple, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT pcode, key, score FROM instance_scores WHERE instance_id = $1 ORDER BY pcode, key`,
		instanceID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query instance scores %s", instanceID)
	}
	defer rows.Close()

	var scores []ScoreTriple
	for rows.Next() {
		var sc ScoreTriple
		if err := rows.Scan(&sc.PCode, &sc.Key, &sc.Score); err != nil {
			return nil, eris.Wrap(err, "postgres: scan instance score")
		}
		scores = append(scores, sc)
	}
	return scores, eris.Wrap(rows.Err(), "postgres: iterate instance scores")
}

func (s *PostgresStore) ApplyScores(ctx context.Context, instanceID string, scores []ScoreTriple) (int, error) {
	applied := 0
	for _, sc := range scores {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO instance_scores (instance_id, pcode, key, score, applied_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (instance_id, pcode, key) DO UPDATE SET score = $4, applied_at = $5`,
			instanceID, sc.PCode, sc.Key, sc.Score, time.Now().UTC(),
		)
		if err != nil {
			return applied, eris.Wrapf(err, "postgres: apply score %s/%s", sc.PCode, sc.Key)
		}
		applied++
	}
	return applied, nil
}
