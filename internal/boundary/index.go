// Package boundary builds read-only lookup structures over a canonical
// administrative-boundary reference set and loads that set from COD-AB
// shapefiles.
package boundary

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// Index holds immutable lookup structures over one admin level's boundary
// records. Safe to share across concurrent matcher calls after construction.
type Index struct {
	records  []model.BoundaryRecord
	byCode   map[string]*model.BoundaryRecord
	byName   map[string]*model.BoundaryRecord
	byParent map[string][]*model.BoundaryRecord
	codes    []string // sorted, for deterministic candidate iteration
}

// NewIndex builds an Index from a level's boundary records. Later duplicates
// of a pcode or normalized name are ignored.
func NewIndex(records []model.BoundaryRecord) *Index {
	idx := &Index{
		records:  records,
		byCode:   make(map[string]*model.BoundaryRecord, len(records)),
		byName:   make(map[string]*model.BoundaryRecord, len(records)),
		byParent: make(map[string][]*model.BoundaryRecord),
	}

	for i := range records {
		rec := &records[i]

		code := NormalizeCode(rec.PCode)
		if code == "" {
			continue
		}
		if _, dup := idx.byCode[code]; !dup {
			idx.byCode[code] = rec
			idx.codes = append(idx.codes, code)
		}

		if name := NormalizeName(rec.Name); name != "" {
			if _, dup := idx.byName[name]; !dup {
				idx.byName[name] = rec
			}
		}

		if parent := NormalizeCode(rec.ParentPCode); parent != "" {
			idx.byParent[parent] = append(idx.byParent[parent], rec)
		}
	}

	sort.Strings(idx.codes)
	return idx
}

// Len returns the number of indexed boundary codes.
func (idx *Index) Len() int {
	return len(idx.codes)
}

// Codes returns all indexed pcodes in lexicographic order. Callers must not
// mutate the returned slice.
func (idx *Index) Codes() []string {
	return idx.codes
}

// ByCode returns the boundary with the given pcode, after code
// normalization. Nil when absent.
func (idx *Index) ByCode(code string) *model.BoundaryRecord {
	return idx.byCode[NormalizeCode(code)]
}

// ByNormalizedName returns the boundary whose normalized name equals the
// normalized input. Nil when absent.
func (idx *Index) ByNormalizedName(name string) *model.BoundaryRecord {
	return idx.byName[NormalizeName(name)]
}

// ByPrefix returns the boundary with the longest pcode that is a prefix of
// the given code. Nil when no indexed code is a prefix.
func (idx *Index) ByPrefix(code string) *model.BoundaryRecord {
	code = NormalizeCode(code)
	if code == "" {
		return nil
	}

	var best *model.BoundaryRecord
	bestLen := 0
	for _, c := range idx.codes {
		if len(c) > bestLen && len(c) <= len(code) && strings.HasPrefix(code, c) {
			best = idx.byCode[c]
			bestLen = len(c)
		}
	}
	return best
}

// ChildrenOf returns the boundaries whose parent pcode equals the given
// code. The returned slice is shared; callers must not mutate it.
func (idx *Index) ChildrenOf(parentCode string) []*model.BoundaryRecord {
	return idx.byParent[NormalizeCode(parentCode)]
}

// NormalizeCode trims and uppercases a pcode.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var nameFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName lowercases a boundary name, folds diacritics, and strips all
// non-alphanumeric characters.
func NormalizeName(name string) string {
	folded, _, err := transform.String(nameFolder, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
