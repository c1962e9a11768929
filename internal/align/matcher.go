// Package align links raw dataset rows to canonical administrative
// boundaries and derives alignment quality metrics.
package align

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/relief-analytics/vulnassess-cli/internal/boundary"
	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// Heuristic confidences for the structural strategies. These are policy
// constants, not true similarities.
const (
	parentCodeConfidence = 0.7
	prefixConfidence     = 0.6
)

// fuzzyCandidate is one boundary prepared for similarity comparison.
type fuzzyCandidate struct {
	code     string
	normName string
	rec      *model.BoundaryRecord
}

// Matcher applies the enabled strategies in fixed priority order against one
// boundary index. Construct once per batch; Match is safe for concurrent use.
type Matcher struct {
	cfg        model.MatchingConfig
	idx        *boundary.Index
	candidates []fuzzyCandidate // sorted by code for deterministic tie-breaks
}

// NewMatcher builds a Matcher over the given index. A nil or empty index is
// legal: every record then resolves to unmatched/none (reference data
// unavailable is a result-level condition, not an error).
func NewMatcher(cfg model.MatchingConfig, idx *boundary.Index) *Matcher {
	m := &Matcher{cfg: cfg, idx: idx}
	if idx == nil || idx.Len() == 0 {
		return m
	}

	codes := idx.Codes()
	m.candidates = make([]fuzzyCandidate, 0, len(codes))
	for _, code := range codes {
		rec := idx.ByCode(code)
		m.candidates = append(m.candidates, fuzzyCandidate{
			code:     code,
			normName: boundary.NormalizeName(rec.Name),
			rec:      rec,
		})
	}
	sort.Slice(m.candidates, func(i, j int) bool { return m.candidates[i].code < m.candidates[j].code })
	return m
}

// ReferenceAvailable reports whether the matcher has any boundaries to match
// against.
func (m *Matcher) ReferenceAvailable() bool {
	return len(m.candidates) > 0
}

// Match aligns one raw record. Strategies run in fixed priority order and the
// first success wins. Matching is pure: same record, config, and index always
// yield the same result.
func (m *Matcher) Match(rec *model.RawRecord) model.MatchResult {
	result := model.MatchResult{
		Record:   rec,
		Strategy: model.StrategyNone,
		Status:   model.StatusUnmatched,
	}

	if rec == nil || !rec.HasKey() || !m.ReferenceAvailable() {
		return result
	}

	rawCode := ""
	if rec.PCode != nil {
		rawCode = boundary.NormalizeCode(*rec.PCode)
	}
	rawName := ""
	if rec.Name != nil {
		rawName = *rec.Name
	}

	if m.cfg.UseExact && rawCode != "" {
		if b := m.idx.ByCode(rawCode); b != nil {
			return matched(rec, b, model.StrategyExact, 1.0)
		}
	}

	if m.cfg.UseFuzzyPCode && rawCode != "" {
		if b, sim := m.bestFuzzyCode(rawCode); b != nil {
			return matched(rec, b, model.StrategyFuzzyPCode, sim)
		}
	}

	if m.cfg.UseName && rawName != "" {
		if b := m.idx.ByNormalizedName(rawName); b != nil {
			return matched(rec, b, model.StrategyName, 1.0)
		}
	}

	if m.cfg.UseFuzzyName && rawName != "" {
		if b, sim := m.bestFuzzyName(rawName); b != nil {
			return matched(rec, b, model.StrategyFuzzyName, sim)
		}
	}

	if m.cfg.UseParentCode && rawCode != "" {
		if b := m.byParentCode(rawCode); b != nil {
			return matched(rec, b, model.StrategyParentCode, parentCodeConfidence)
		}
	}

	if m.cfg.UsePrefix && rawCode != "" {
		if b := m.idx.ByPrefix(rawCode); b != nil {
			ratio := float64(len(b.PCode)) / float64(len(rawCode))
			return matched(rec, b, model.StrategyPrefix, prefixConfidence*ratio)
		}
	}

	return result
}

// bestFuzzyCode returns the highest-similarity candidate code at or above
// the threshold. Ties go to the lexicographically smallest code: candidates
// are sorted and only a strictly better similarity replaces the best.
func (m *Matcher) bestFuzzyCode(rawCode string) (*model.BoundaryRecord, float64) {
	var best *model.BoundaryRecord
	bestSim := 0.0
	for i := range m.candidates {
		sim := levenshtein.Similarity(rawCode, m.candidates[i].code, nil)
		if sim >= m.cfg.FuzzyThreshold && sim > bestSim {
			best = m.candidates[i].rec
			bestSim = sim
		}
	}
	return best, bestSim
}

// bestFuzzyName mirrors bestFuzzyCode over normalized names.
func (m *Matcher) bestFuzzyName(rawName string) (*model.BoundaryRecord, float64) {
	norm := boundary.NormalizeName(rawName)
	if norm == "" {
		return nil, 0
	}

	var best *model.BoundaryRecord
	bestSim := 0.0
	for i := range m.candidates {
		if m.candidates[i].normName == "" {
			continue
		}
		sim := levenshtein.Similarity(norm, m.candidates[i].normName, nil)
		if sim >= m.cfg.FuzzyThreshold && sim > bestSim {
			best = m.candidates[i].rec
			bestSim = sim
		}
	}
	return best, bestSim
}

// byParentCode truncates trailing structural suffixes from the raw pcode and
// searches the resulting parent's children for the most plausible match: the
// child sharing the longest common prefix with the raw code, smallest code
// on ties.
func (m *Matcher) byParentCode(rawCode string) *model.BoundaryRecord {
	for _, parent := range parentCandidates(rawCode) {
		children := m.idx.ChildrenOf(parent)
		if len(children) == 0 {
			continue
		}
		if len(children) == 1 {
			return children[0]
		}

		var best *model.BoundaryRecord
		bestShared := -1
		for _, child := range children {
			shared := commonPrefixLen(rawCode, child.PCode)
			if shared > bestShared || (shared == bestShared && best != nil && child.PCode < best.PCode) {
				best = child
				bestShared = shared
			}
		}
		return best
	}
	return nil
}

// parentCandidates derives possible parent pcodes from a raw code by
// stripping a trailing zero block, then progressively shorter suffixes.
// Population pcodes like BD100409 encode the parent (BD1004) plus a local
// suffix (09); boundary exports often pad levels with 000 blocks instead.
func parentCandidates(code string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(c string) {
		if len(c) >= 3 && c != code && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	for _, block := range []string{"0000", "000"} {
		if strings.HasSuffix(code, block) {
			add(strings.TrimSuffix(code, block))
		}
	}
	if len(code) > 2 {
		add(code[:len(code)-2])
	}
	if len(code) > 3 {
		add(code[:len(code)-3])
	}
	return out
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func matched(rec *model.RawRecord, b *model.BoundaryRecord, strategy model.MatchStrategy, confidence float64) model.MatchResult {
	return model.MatchResult{
		Record:      rec,
		MatchedCode: b.PCode,
		MatchedName: b.Name,
		Strategy:    strategy,
		Status:      model.StatusMatched,
		Confidence:  confidence,
	}
}
