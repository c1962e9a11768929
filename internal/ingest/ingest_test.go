package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

func TestColumnMapping_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mapping ColumnMapping
		dsType  model.DatasetType
		wantErr bool
	}{
		{"numeric ok", ColumnMapping{PCode: "adm2_pcode", Value: "poverty"}, model.DatasetNumeric, false},
		{"categorical ok", ColumnMapping{Name: "adm2_name", Category: "risk"}, model.DatasetCategorical, false},
		{"no key column", ColumnMapping{Value: "poverty"}, model.DatasetNumeric, true},
		{"numeric without value", ColumnMapping{PCode: "adm2_pcode"}, model.DatasetNumeric, true},
		{"categorical without category", ColumnMapping{PCode: "adm2_pcode"}, model.DatasetCategorical, true},
		{"unknown type", ColumnMapping{PCode: "adm2_pcode", Value: "v"}, model.DatasetType("bogus"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mapping.Validate(tt.dsType)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildRecords(t *testing.T) {
	header := []string{"ADM2_PCODE", "ADM2_EN", "Poverty", "Risk"}
	rows := [][]string{
		{"PH0101", "Adams", "12.5", "high"},
		{"PH0102", "Bacarra", "", "low"},
		{"", "Badoc", "not-a-number", ""},
		{"PH0104"}, // short row
	}
	mapping := ColumnMapping{PCode: "adm2_pcode", Name: "adm2_en", Value: "poverty", Category: "risk"}

	records, err := BuildRecords(header, rows, mapping)
	require.NoError(t, err)
	require.Len(t, records, 4)

	require.NotNil(t, records[0].PCode)
	assert.Equal(t, "PH0101", *records[0].PCode)
	require.NotNil(t, records[0].Value)
	assert.Equal(t, 12.5, *records[0].Value)

	assert.Nil(t, records[1].Value)
	require.NotNil(t, records[1].Category)
	assert.Equal(t, "low", *records[1].Category)

	// Unparseable numbers become nil, never zero.
	assert.Nil(t, records[2].PCode)
	assert.Nil(t, records[2].Value)
	require.NotNil(t, records[2].Name)

	assert.Nil(t, records[3].Name)
	assert.Nil(t, records[3].Value)
}

func TestBuildRecords_ThousandsSeparator(t *testing.T) {
	header := []string{"pcode", "pop"}
	rows := [][]string{{"PH0101", "1,234,567"}}

	records, err := BuildRecords(header, rows, ColumnMapping{PCode: "pcode", Value: "pop"})
	require.NoError(t, err)
	require.NotNil(t, records[0].Value)
	assert.Equal(t, 1234567.0, *records[0].Value)
}

func TestBuildRecords_MissingColumn(t *testing.T) {
	header := []string{"pcode", "value"}

	_, err := BuildRecords(header, nil, ColumnMapping{PCode: "pcode", Value: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestParseCSV(t *testing.T) {
	input := "pcode, name ,value\nPH0101, Adams ,12.5\nPH0102,Bacarra,8\n"

	header, rows, err := ParseCSV(strings.NewReader(input), CSVOptions{TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"pcode", "name", "value"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"PH0101", "Adams", "12.5"}, rows[0])
}

func TestParseCSV_Empty(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader(""), CSVOptions{})
	assert.Error(t, err)
}

func TestLoadFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "ADM2_PCODE,Poverty\nPH0101,12.5\nPH0102,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := LoadFile(path, ColumnMapping{PCode: "adm2_pcode", Value: "poverty"}, model.DatasetNumeric)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, records[0].Value)
	assert.Equal(t, 12.5, *records[0].Value)
	assert.Nil(t, records[1].Value)
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	_, err := LoadFile("data.parquet", ColumnMapping{PCode: "pcode", Value: "v"}, model.DatasetNumeric)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
