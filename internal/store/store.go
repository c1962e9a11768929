// Package store persists boundary reference data, raw dataset rows,
// user-authored configuration blobs, and applied scores. The analytical core
// never talks to storage directly; it consumes data the store hands it and
// returns results the caller applies through the store.
package store

import (
	"context"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// ConfigKind namespaces configuration blobs.
type ConfigKind string

const (
	ConfigMatching ConfigKind = "matching"
	ConfigScoring  ConfigKind = "scoring"
	ConfigCategory ConfigKind = "category"
	ConfigRollup   ConfigKind = "rollup"
)

// ScoreTriple is one finalized score for the apply sink: a location pcode,
// the scored key (dataset id or category key), and the score.
type ScoreTriple struct {
	PCode string  `json:"pcode"`
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

// AlignedValue is one applied dataset value keyed by canonical pcode, as
// read back for scoring.
type AlignedValue struct {
	PCode    string   `json:"pcode"`
	Value    *float64 `json:"value,omitempty"`
	Category *string  `json:"category,omitempty"`
}

// Store is the persistence interface for the alignment and scoring
// pipeline. Apply operations are idempotent: the same inputs and config
// produce the same stored rows, so the caller can serialize at-most-one
// concurrent apply per dataset without this layer enforcing it.
type Store interface {
	// Boundary reference
	Boundaries(ctx context.Context, countryISO3 string, level model.AdminLevel) ([]model.BoundaryRecord, error)
	InsertBoundaries(ctx context.Context, records []model.BoundaryRecord) (int64, error)

	// Datasets and raw rows
	CreateDataset(ctx context.Context, d model.Dataset) error
	Dataset(ctx context.Context, datasetID string) (*model.Dataset, error)
	ListDatasets(ctx context.Context, countryISO3 string) ([]model.Dataset, error)
	InsertRawRecords(ctx context.Context, datasetID string, records []model.RawRecord) (int64, error)
	RawRecords(ctx context.Context, datasetID string) ([]model.RawRecord, error)

	// Configuration blobs, JSON-shaped, keyed by kind and id
	GetConfig(ctx context.Context, kind ConfigKind, id string, out any) (bool, error)
	PutConfig(ctx context.Context, kind ConfigKind, id string, cfg any) error

	// Apply sinks and their read-back views
	ApplyAlignment(ctx context.Context, datasetID string, results []model.MatchResult, boundaries []model.BoundaryRecord) (*model.AlignmentSummary, error)
	AlignedValues(ctx context.Context, datasetID string) ([]AlignedValue, error)
	ApplyScores(ctx context.Context, instanceID string, scores []ScoreTriple) (int, error)
	InstanceScores(ctx context.Context, instanceID string) ([]ScoreTriple, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
