package model

// DatasetType distinguishes numeric from categorical datasets.
type DatasetType string

const (
	DatasetNumeric     DatasetType = "numeric"
	DatasetCategorical DatasetType = "categorical"
)

// Dataset describes one ingested dataset awaiting alignment and scoring.
type Dataset struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        DatasetType `json:"type"`
	AdminLevel  AdminLevel  `json:"admin_level"`
	CountryISO3 string      `json:"country_iso3"`
}

// RawRecord is one dataset row as produced by ingestion. Fields are pointers
// because source files routinely omit any of them; this core never mutates a
// RawRecord.
type RawRecord struct {
	PCode    *string  `json:"raw_pcode,omitempty"`
	Name     *string  `json:"raw_name,omitempty"`
	Value    *float64 `json:"raw_value,omitempty"`
	Category *string  `json:"raw_category,omitempty"`
}

// HasKey reports whether the record carries at least one non-empty location
// identifier.
func (r *RawRecord) HasKey() bool {
	if r.PCode != nil && *r.PCode != "" {
		return true
	}
	return r.Name != nil && *r.Name != ""
}

// HasValue reports whether the record carries a usable value (numeric or
// categorical).
func (r *RawRecord) HasValue() bool {
	if r.Value != nil {
		return true
	}
	return r.Category != nil && *r.Category != ""
}
