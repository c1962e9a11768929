package model

// MatchStrategy identifies which alignment strategy produced a match.
type MatchStrategy string

const (
	StrategyExact      MatchStrategy = "exact"
	StrategyFuzzyPCode MatchStrategy = "fuzzy_pcode"
	StrategyName       MatchStrategy = "name"
	StrategyFuzzyName  MatchStrategy = "fuzzy_name"
	StrategyParentCode MatchStrategy = "parent_code"
	StrategyPrefix     MatchStrategy = "prefix"
	StrategyNone       MatchStrategy = "none"
)

// MatchStatus is the outcome of aligning one raw record.
type MatchStatus string

const (
	StatusMatched   MatchStatus = "matched"
	StatusUnmatched MatchStatus = "unmatched"
)

// MatchResult links a raw record to a canonical boundary. Confidence is set
// only when Status is matched.
type MatchResult struct {
	Record      *RawRecord    `json:"-"`
	MatchedCode string        `json:"matched_code,omitempty"`
	MatchedName string        `json:"matched_name,omitempty"`
	Strategy    MatchStrategy `json:"strategy"`
	Status      MatchStatus   `json:"status"`
	Confidence  float64       `json:"confidence,omitempty"`
}

// MatchingConfig toggles alignment strategies. FuzzyThreshold applies to both
// fuzzy strategies and must be within [0,1].
type MatchingConfig struct {
	UseExact       bool    `json:"use_exact"`
	UseFuzzyPCode  bool    `json:"use_fuzzy_pcode"`
	UseName        bool    `json:"use_name"`
	UseFuzzyName   bool    `json:"use_fuzzy_name"`
	UseParentCode  bool    `json:"use_parent_code"`
	UsePrefix      bool    `json:"use_prefix"`
	FuzzyThreshold float64 `json:"fuzzy_threshold"`
}

// DefaultMatchingConfig enables every strategy with the threshold the
// alignment UI ships with.
func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		UseExact:       true,
		UseFuzzyPCode:  true,
		UseName:        true,
		UseFuzzyName:   true,
		UseParentCode:  true,
		UsePrefix:      true,
		FuzzyThreshold: 0.85,
	}
}

// HealthMetrics are derived alignment quality metrics for one dataset batch.
// A nil metric means it was not computable (zero rows); metrics are never
// persisted as authoritative state.
type HealthMetrics struct {
	AlignmentRate *float64 `json:"alignment_rate"`
	Coverage      *float64 `json:"coverage"`
	Completeness  *float64 `json:"completeness"`
	Uniqueness    *float64 `json:"uniqueness"`
	TotalRows     int      `json:"total_rows"`
	MatchedRows   int      `json:"matched_rows"`
	UnmatchedRows int      `json:"unmatched_rows"`
}

// AlignmentSummary reports the outcome of an apply run. Skip counters are
// named so callers can surface partial failures without aborting the batch.
type AlignmentSummary struct {
	Applied           int  `json:"applied"`
	SkippedUnmatched  int  `json:"skipped_unmatched"`
	SkippedNoGeometry int  `json:"skipped_no_geometry"`
	SkippedNoValue    int  `json:"skipped_no_value"`
	ReferenceMissing  bool `json:"reference_missing,omitempty"`
}
