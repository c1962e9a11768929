// Package ingest parses tabular dataset exports (CSV, XLSX) into raw records
// for alignment. Cell content is never coerced: an empty or unparseable cell
// becomes a nil field on the record and is dealt with downstream.
package ingest

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// ColumnMapping names the source columns carrying each record field, matched
// case-insensitively against the header row. Empty entries mean the source
// has no such column.
type ColumnMapping struct {
	PCode    string `json:"pcode_column" yaml:"pcode_column"`
	Name     string `json:"name_column" yaml:"name_column"`
	Value    string `json:"value_column" yaml:"value_column"`
	Category string `json:"category_column" yaml:"category_column"`
}

// Validate checks the mapping can produce alignable records.
func (m ColumnMapping) Validate(dsType model.DatasetType) error {
	if m.PCode == "" && m.Name == "" {
		return eris.New("ingest: mapping needs a pcode or name column")
	}
	switch dsType {
	case model.DatasetNumeric:
		if m.Value == "" {
			return eris.New("ingest: numeric dataset needs a value column")
		}
	case model.DatasetCategorical:
		if m.Category == "" {
			return eris.New("ingest: categorical dataset needs a category column")
		}
	default:
		return eris.Errorf("ingest: unknown dataset type %q", dsType)
	}
	return nil
}

// LoadFile reads a CSV or XLSX file and maps its rows to raw records. The
// format is picked by file extension.
func LoadFile(path string, mapping ColumnMapping, dsType model.DatasetType) ([]model.RawRecord, error) {
	if err := mapping.Validate(dsType); err != nil {
		return nil, err
	}

	var header []string
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		header, rows, err = ReadCSV(path, CSVOptions{TrimSpace: true})
	case ".xlsx":
		header, rows, err = ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return BuildRecords(header, rows, mapping)
}

// BuildRecords maps tabular rows to raw records using the column mapping.
// Rows shorter than the header are padded with empty cells; a cell that is
// empty or fails to parse yields a nil field rather than an error.
func BuildRecords(header []string, rows [][]string, mapping ColumnMapping) ([]model.RawRecord, error) {
	pcodeIdx := columnIndex(header, mapping.PCode)
	nameIdx := columnIndex(header, mapping.Name)
	valueIdx := columnIndex(header, mapping.Value)
	categoryIdx := columnIndex(header, mapping.Category)

	if mapping.PCode != "" && pcodeIdx < 0 {
		return nil, eris.Errorf("ingest: pcode column %q not in header", mapping.PCode)
	}
	if mapping.Name != "" && nameIdx < 0 {
		return nil, eris.Errorf("ingest: name column %q not in header", mapping.Name)
	}
	if mapping.Value != "" && valueIdx < 0 {
		return nil, eris.Errorf("ingest: value column %q not in header", mapping.Value)
	}
	if mapping.Category != "" && categoryIdx < 0 {
		return nil, eris.Errorf("ingest: category column %q not in header", mapping.Category)
	}

	records := make([]model.RawRecord, 0, len(rows))
	for _, row := range rows {
		var r model.RawRecord
		if s := cellAt(row, pcodeIdx); s != "" {
			r.PCode = &s
		}
		if s := cellAt(row, nameIdx); s != "" {
			r.Name = &s
		}
		if s := cellAt(row, valueIdx); s != "" {
			if v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
				r.Value = &v
			}
		}
		if s := cellAt(row, categoryIdx); s != "" {
			r.Category = &s
		}
		records = append(records, r)
	}
	return records, nil
}

func columnIndex(header []string, name string) int {
	if name == "" {
		return -1
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
