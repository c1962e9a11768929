package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestArena(t *testing.T) *Arena {
	t.Helper()

	a := NewArena()
	nodes := []Node{
		{ID: "exposure", Label: "Exposure", Kind: KindPillar},
		{ID: "flood", Label: "Flood", Kind: KindTheme, ParentID: "exposure"},
		{ID: "riverine", Label: "Riverine", Kind: KindSubtheme, ParentID: "flood"},
		{ID: "flood-depth", Label: "Flood depth", Kind: KindDataset, ParentID: "riverine"},
		{ID: "flood-extent", Label: "Flood extent", Kind: KindDataset, ParentID: "riverine"},
		{ID: "drought", Label: "Drought", Kind: KindTheme, ParentID: "exposure"},
		{ID: "spi", Label: "SPI", Kind: KindDataset, ParentID: "drought"},
		{ID: "sensitivity", Label: "Sensitivity", Kind: KindPillar},
	}
	for _, n := range nodes {
		require.NoError(t, a.Add(n))
	}
	return a
}

func TestArena_AddAndLookup(t *testing.T) {
	a := buildTestArena(t)

	assert.Equal(t, 8, a.Len())

	n := a.Node("flood")
	require.NotNil(t, n)
	assert.Equal(t, KindTheme, n.Kind)
	assert.Equal(t, "exposure", n.ParentID)

	assert.Nil(t, a.Node("missing"))
}

func TestArena_AddRejectsDuplicates(t *testing.T) {
	a := buildTestArena(t)

	err := a.Add(Node{ID: "flood", Label: "Again", Kind: KindTheme, ParentID: "exposure"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestArena_AddRejectsDanglingParent(t *testing.T) {
	a := NewArena()

	err := a.Add(Node{ID: "orphan", Kind: KindTheme, ParentID: "nowhere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown parent")
}

func TestArena_AddRejectsEmptyID(t *testing.T) {
	a := NewArena()
	assert.Error(t, a.Add(Node{Kind: KindPillar}))
}

func TestArena_AddPillarParentRules(t *testing.T) {
	a := buildTestArena(t)

	err := a.Add(Node{ID: "bad-pillar", Kind: KindPillar, ParentID: "exposure"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not have a parent")

	err = a.Add(Node{ID: "bad-theme", Kind: KindTheme})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must have a parent")
}

func TestArena_ParentAndChildren(t *testing.T) {
	a := buildTestArena(t)

	p := a.Parent("riverine")
	require.NotNil(t, p)
	assert.Equal(t, "flood", p.ID)

	assert.Nil(t, a.Parent("exposure")) // pillar
	assert.Nil(t, a.Parent("missing"))

	children := a.Children("exposure")
	require.Len(t, children, 2)
	assert.Equal(t, "flood", children[0].ID)
	assert.Equal(t, "drought", children[1].ID)

	assert.Empty(t, a.Children("spi"))
}

func TestArena_Pillars(t *testing.T) {
	a := buildTestArena(t)

	pillars := a.Pillars()
	require.Len(t, pillars, 2)
	assert.Equal(t, "exposure", pillars[0].ID)
	assert.Equal(t, "sensitivity", pillars[1].ID)
}

func TestArena_Path(t *testing.T) {
	a := buildTestArena(t)

	assert.Equal(t, "exposure/flood/riverine/flood-depth", a.Path("flood-depth"))
	assert.Equal(t, "exposure", a.Path("exposure"))
	assert.Equal(t, "", a.Path("missing"))
}

func TestArena_DatasetIDsUnder(t *testing.T) {
	a := buildTestArena(t)

	assert.Equal(t, []string{"flood-depth", "flood-extent", "spi"}, a.DatasetIDsUnder("exposure"))
	assert.Equal(t, []string{"flood-depth", "flood-extent"}, a.DatasetIDsUnder("riverine"))
	assert.Equal(t, []string{"spi"}, a.DatasetIDsUnder("spi"))
	assert.Empty(t, a.DatasetIDsUnder("sensitivity"))
	assert.Empty(t, a.DatasetIDsUnder("missing"))
}

func TestArena_Validate(t *testing.T) {
	a := buildTestArena(t)
	require.NoError(t, a.Validate())
}

func TestArena_ValidateDetectsCycle(t *testing.T) {
	// Cycles cannot enter through Add; splice one in directly the way a bad
	// deserialization would.
	a := buildTestArena(t)
	a.nodes["exposure"].ParentID = "riverine"

	err := a.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestArena_ValidateDetectsDanglingParent(t *testing.T) {
	a := buildTestArena(t)
	a.nodes["drought"].ParentID = "vanished"

	err := a.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown parent")
}
