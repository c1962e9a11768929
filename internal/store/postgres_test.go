package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgres_Boundaries(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	parent := "PH01"
	mock.ExpectQuery(`SELECT pcode, name, admin_level, parent_pcode, country_iso3, geom`).
		WithArgs("PHL", "ADM2").
		WillReturnRows(pgxmock.NewRows([]string{"pcode", "name", "admin_level", "parent_pcode", "country_iso3", "geom"}).
			AddRow("PH0101", "Adams", model.ADM2, &parent, "PHL", []byte{0x01}).
			AddRow("PH0102", "Bacarra", model.ADM2, (*string)(nil), "PHL", []byte(nil)))

	got, err := s.Boundaries(context.Background(), "PHL", model.ADM2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "PH01", got[0].ParentPCode)
	assert.Equal(t, "", got[1].ParentPCode)
	assert.False(t, got[1].HasGeometry())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertBoundaries_ClearsThenCopies(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM admin_boundaries`).
		WithArgs("PHL", "ADM2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"admin_boundaries"},
		[]string{"pcode", "name", "admin_level", "parent_pcode", "country_iso3", "geom"}).
		WillReturnResult(2)

	n, err := s.InsertBoundaries(context.Background(), testBoundaries()[:2])
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertBoundaries_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.InsertBoundaries(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetConfig_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cfg := model.DefaultMatchingConfig()
	blob, err := json.Marshal(cfg)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT blob FROM configs`).
		WithArgs("matching", "default").
		WillReturnRows(pgxmock.NewRows([]string{"blob"}).AddRow(blob))

	var got model.MatchingConfig
	found, err := s.GetConfig(context.Background(), ConfigMatching, "default", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, cfg, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetConfig_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT blob FROM configs`).
		WithArgs("rollup", "nope").
		WillReturnRows(pgxmock.NewRows([]string{"blob"}))

	var got map[string]any
	found, err := s.GetConfig(context.Background(), ConfigRollup, "nope", &got)
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutConfig(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO configs`).
		WithArgs("scoring", "poverty-rate", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.PutConfig(context.Background(), ConfigScoring, "poverty-rate", map[string]any{"method": "percentile"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ApplyAlignment(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM aligned_values`).
		WithArgs("ds").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"aligned_values"},
		[]string{"dataset_id", "pcode", "value", "category", "strategy", "confidence", "applied_at"}).
		WillReturnResult(1)

	results := []model.MatchResult{
		{Record: &model.RawRecord{PCode: strPtr("PH0101"), Value: f64Ptr(1)}, MatchedCode: "PH0101", Strategy: model.StrategyExact, Status: model.StatusMatched, Confidence: 1.0},
		{Record: &model.RawRecord{Name: strPtr("Nowhere")}, Strategy: model.StrategyNone, Status: model.StatusUnmatched},
	}
	summary, err := s.ApplyAlignment(context.Background(), "ds", results, testBoundaries())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Applied)
	assert.Equal(t, 1, summary.SkippedUnmatched)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ApplyScores(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO instance_scores`).
		WithArgs("inst-1", "PH0101", "poverty-rate", 4.0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := s.ApplyScores(context.Background(), "inst-1", []ScoreTriple{{PCode: "PH0101", Key: "poverty-rate", Score: 4}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
