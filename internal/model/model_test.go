package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(v float64) *float64 { return &v }

func TestAdminLevel_Depth(t *testing.T) {
	cases := []struct {
		level AdminLevel
		want  int
	}{
		{ADM0, 0},
		{ADM1, 1},
		{ADM2, 2},
		{ADM3, 3},
		{ADM4, 4},
		{AdminLevel("ADM9"), -1},
		{AdminLevel(""), -1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.level.Depth(), "level %q", tc.level)
	}
}

func TestAdminLevel_Parent(t *testing.T) {
	assert.Equal(t, ADM3, ADM4.Parent())
	assert.Equal(t, ADM2, ADM3.Parent())
	assert.Equal(t, ADM1, ADM2.Parent())
	assert.Equal(t, ADM0, ADM1.Parent())
	assert.Equal(t, ADM0, ADM0.Parent())
}

func TestBoundaryRecord_HasGeometry(t *testing.T) {
	b := BoundaryRecord{PCode: "PH0101"}
	assert.False(t, b.HasGeometry())

	b.Geom = []byte{0x01}
	assert.True(t, b.HasGeometry())
}

func TestRawRecord_HasKey(t *testing.T) {
	assert.False(t, (&RawRecord{}).HasKey())
	assert.False(t, (&RawRecord{PCode: strPtr(""), Name: strPtr("")}).HasKey())
	assert.True(t, (&RawRecord{PCode: strPtr("PH0101")}).HasKey())
	assert.True(t, (&RawRecord{Name: strPtr("Adams")}).HasKey())
}

func TestRawRecord_HasValue(t *testing.T) {
	assert.False(t, (&RawRecord{}).HasValue())
	assert.False(t, (&RawRecord{Category: strPtr("")}).HasValue())
	assert.True(t, (&RawRecord{Value: f64Ptr(0)}).HasValue()) // zero is a value
	assert.True(t, (&RawRecord{Category: strPtr("high")}).HasValue())
}

func TestScoreRange_Span(t *testing.T) {
	assert.Equal(t, 5, ScoreRange{Min: 1, Max: 5}.Span())
	assert.Equal(t, 10, ScoreRange{Min: 1, Max: 10}.Span())
}

func TestDefaultMatchingConfig(t *testing.T) {
	cfg := DefaultMatchingConfig()

	assert.True(t, cfg.UseExact)
	assert.True(t, cfg.UseFuzzyPCode)
	assert.True(t, cfg.UseName)
	assert.True(t, cfg.UseFuzzyName)
	assert.True(t, cfg.UseParentCode)
	assert.True(t, cfg.UsePrefix)
	assert.InDelta(t, 0.85, cfg.FuzzyThreshold, 0.0001)
}
