package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

func newTestDeduplicator() *Deduplicator {
	return NewDeduplicator(DefaultMergeThreshold, logging.NewNopLogger())
}

func siblingFixture() map[common.NodeID]*Node {
	return map[common.NodeID]*Node{
		"electronics": {
			ID: "electronics", Title: "Electronics", Path: "Electronics",
			Depth: 1, ProductCount: 10, Source: SourceCatalog,
		},
		"electronics-accessory": {
			ID: "electronics-accessory", Title: "Accessory",
			Path: "Electronics > Accessory", Depth: 2,
			ParentID: "electronics", ProductCount: 3, Source: SourceCatalog,
		},
		"electronics-accessories": {
			ID: "electronics-accessories", Title: "Accessories",
			Path: "Electronics > Accessories", Depth: 2,
			ParentID: "electronics", ProductCount: 7, Source: SourceCatalog,
		},
	}
}

func TestMerge_PluralSiblings(t *testing.T) {
	// Accessory (3 products) merges into Accessories (7): the higher-count
	// sibling survives and absorbs the loser's count.
	nodes := siblingFixture()

	out, report := newTestDeduplicator().Merge(nodes)

	require.Len(t, out, 2)
	require.Len(t, report.Merges, 1)

	m := report.Merges[0]
	assert.Equal(t, common.NodeID("electronics-accessories"), m.Survivor)
	assert.Equal(t, common.NodeID("electronics-accessory"), m.Loser)
	assert.Equal(t, "plural", m.Rule)
	assert.InDelta(t, 0.95, m.Score, 1e-9)

	survivor := out["electronics-accessories"]
	require.NotNil(t, survivor)
	assert.Equal(t, "Accessories", survivor.Title)
	assert.Equal(t, 10, survivor.ProductCount)

	assert.Equal(t, common.NodeID("electronics-accessories"),
		report.Resolve("electronics-accessory"))
	assert.Equal(t, common.NodeID("electronics"), report.Resolve("electronics"))
}

func TestMerge_InputNotMutated(t *testing.T) {
	nodes := siblingFixture()

	_, _ = newTestDeduplicator().Merge(nodes)

	require.Len(t, nodes, 3)
	assert.Equal(t, 3, nodes["electronics-accessory"].ProductCount)
	assert.Equal(t, 7, nodes["electronics-accessories"].ProductCount)
}

func TestMerge_Idempotent(t *testing.T) {
	once, firstReport := newTestDeduplicator().Merge(siblingFixture())
	require.NotEmpty(t, firstReport.Merges)

	twice, secondReport := newTestDeduplicator().Merge(once)
	assert.Empty(t, secondReport.Merges)
	assert.Equal(t, len(once), len(twice))
	for id, n := range once {
		assert.Equal(t, n.ProductCount, twice[id].ProductCount)
	}
}

func TestMerge_Deterministic(t *testing.T) {
	a, ra := newTestDeduplicator().Merge(siblingFixture())
	b, rb := newTestDeduplicator().Merge(siblingFixture())

	assert.Equal(t, ra.Merges, rb.Merges)
	require.Equal(t, len(a), len(b))
	for id, n := range a {
		assert.Equal(t, n.ProductCount, b[id].ProductCount)
		assert.Equal(t, n.Title, b[id].Title)
	}
}

func TestMerge_DifferentParentsNeverMerge(t *testing.T) {
	// Identical titles under different parents are distinct categories.
	nodes := map[common.NodeID]*Node{
		"men":         {ID: "men", Title: "Men", Depth: 1, ProductCount: 2},
		"women":       {ID: "women", Title: "Women", Depth: 1, ProductCount: 2},
		"men-shoes":   {ID: "men-shoes", Title: "Shoes", Depth: 2, ParentID: "men", ProductCount: 2},
		"women-shoes": {ID: "women-shoes", Title: "Shoes", Depth: 2, ParentID: "women", ProductCount: 2},
	}

	out, report := newTestDeduplicator().Merge(nodes)
	assert.Empty(t, report.Merges)
	assert.Len(t, out, 4)
}

func TestMerge_ThresholdIsStrict(t *testing.T) {
	// A score exactly at the threshold must not trigger a merge.
	nodes := map[common.NodeID]*Node{
		"a": {ID: "a", Title: "Gadget", Depth: 1, ProductCount: 1},
		"b": {ID: "b", Title: "Widget", Depth: 1, ProductCount: 1},
	}
	d := NewDeduplicator(0.95, logging.NewNopLogger())
	d.rules = []SimilarityRule{{
		Name:  "fixed",
		Score: 0.95,
		Match: func(a, b string) bool { return true },
	}}

	out, report := d.Merge(nodes)
	assert.Empty(t, report.Merges)
	assert.Len(t, out, 2)
}

func TestMerge_TieBreakByTitle(t *testing.T) {
	// Equal counts: the lexicographically smaller title survives.
	nodes := map[common.NodeID]*Node{
		"home-garden":     {ID: "home-garden", Title: "Home & Garden", Depth: 1, ProductCount: 5},
		"home-and-garden": {ID: "home-and-garden", Title: "Home and Garden", Depth: 1, ProductCount: 5},
	}

	out, report := newTestDeduplicator().Merge(nodes)
	require.Len(t, report.Merges, 1)
	assert.Equal(t, common.NodeID("home-garden"), report.Merges[0].Survivor)
	assert.Equal(t, 10, out["home-garden"].ProductCount)
}

func TestMerge_ReparentsChildren(t *testing.T) {
	nodes := siblingFixture()
	nodes["electronics-accessory-cables"] = &Node{
		ID: "electronics-accessory-cables", Title: "Cables",
		Path: "Electronics > Accessory > Cables", Depth: 3,
		ParentID: "electronics-accessory", ProductCount: 1, Source: SourceCatalog,
	}

	out, _ := newTestDeduplicator().Merge(nodes)

	child := out["electronics-accessory-cables"]
	require.NotNil(t, child)
	assert.Equal(t, common.NodeID("electronics-accessories"), child.ParentID)
	require.NoError(t, ValidateForest(out))
}

func TestMerge_SourceUpgradeAndMetadata(t *testing.T) {
	nodes := map[common.NodeID]*Node{
		"battery": {
			ID: "battery", Title: "Battery", Depth: 1,
			ProductCount: 2, Source: SourceCatalog,
			Metadata: common.Metadata{"origin": "feed-a"},
		},
		"batteries": {
			ID: "batteries", Title: "Batteries", Depth: 1,
			ProductCount: 8, Source: SourceStandard,
			Metadata: common.Metadata{"origin": "feed-b", "reviewed": "true"},
		},
	}

	out, report := newTestDeduplicator().Merge(nodes)
	require.Len(t, report.Merges, 1)

	survivor := out["batteries"]
	require.NotNil(t, survivor)
	assert.Equal(t, SourceHybrid, survivor.Source)
	// Survivor keeps its own values and absorbs only the keys it lacks.
	assert.Equal(t, "feed-b", survivor.Metadata["origin"])
	assert.Equal(t, "true", survivor.Metadata["reviewed"])
}

func TestMerge_TransitiveChainConservesCounts(t *testing.T) {
	// Three mutually similar siblings collapse onto one terminal survivor.
	nodes := map[common.NodeID]*Node{
		"tv":          {ID: "tv", Title: "TV", Depth: 1, ProductCount: 1},
		"tvs":         {ID: "tvs", Title: "TVs", Depth: 1, ProductCount: 2},
		"televisions": {ID: "televisions", Title: "Televisions", Depth: 1, ProductCount: 9},
	}

	out, report := newTestDeduplicator().Merge(nodes)

	require.Len(t, out, 1)
	var survivor *Node
	for _, n := range out {
		survivor = n
	}
	assert.Equal(t, 12, survivor.ProductCount)

	// Every merged-away id resolves to the one terminal survivor.
	for id := range nodes {
		assert.Equal(t, survivor.ID, report.Resolve(id))
	}
}
