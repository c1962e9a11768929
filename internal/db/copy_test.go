package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"pcode", "name"}
	mock.ExpectCopyFrom(pgx.Identifier{"admin_boundaries"}, cols).WillReturnResult(2)

	n, err := CopyFrom(context.Background(), mock, "admin_boundaries", cols, [][]any{
		{"PH0101", "Adams"},
		{"PH0102", "Bacarra"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_EmptyRowsSkipsCopy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := CopyFrom(context.Background(), mock, "admin_boundaries", []string{"pcode"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"admin_boundaries"}, []string{"pcode"}).
		WillReturnError(assert.AnError)

	_, err = CopyFrom(context.Background(), mock, "admin_boundaries", []string{"pcode"}, [][]any{{"PH0101"}})
	assert.Error(t, err)
}
