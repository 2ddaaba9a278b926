package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/catalog"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

func newTestBuilder() *Builder {
	return NewBuilder(logging.NewNopLogger())
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"angle brackets", "Electronics > Phones > Smartphones", []string{"Electronics", "Phones", "Smartphones"}},
		{"slashes", "Electronics/Phones/Smartphones", []string{"Electronics", "Phones", "Smartphones"}},
		{"pipes", "Electronics|Phones", []string{"Electronics", "Phones"}},
		{"mixed delimiters", "Electronics > Phones/Smartphones", []string{"Electronics", "Phones", "Smartphones"}},
		{"repeated whitespace", "Home   Goods >  Kitchen ", []string{"Home Goods", "Kitchen"}},
		{"empty segments dropped", "Electronics >> Phones", []string{"Electronics", "Phones"}},
		{"empty string", "", nil},
		{"only delimiters", " > / | ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitPath(tt.raw))
		})
	}
}

func TestDeriveNodeID(t *testing.T) {
	tests := []struct {
		segments []string
		want     common.NodeID
	}{
		{[]string{"Electronics"}, "electronics"},
		{[]string{"Electronics", "Phones"}, "electronics-phones"},
		{[]string{"Home & Garden"}, "home-garden"},
		{[]string{"T-Shirts"}, "t-shirts"},
		{[]string{"Café Supplies"}, "café-supplies"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveNodeID(tt.segments))
	}
}

func TestHumanizeTitle(t *testing.T) {
	assert.Equal(t, "Feature Phones", HumanizeTitle("feature phones"))
	assert.Equal(t, "T Shirts", HumanizeTitle("t-shirts"))
	assert.Equal(t, "Home Goods", HumanizeTitle("home_goods"))
}

func TestBuild_TreeShapeAndCounts(t *testing.T) {
	// Spec scenario: two sibling leaves under Electronics > Phones produce
	// exactly 4 nodes with the shared ancestors counting both products.
	products := []catalog.Product{
		{ID: "p1", CategoryPath: "Electronics > Phones > Smartphones"},
		{ID: "p2", CategoryPath: "Electronics > Phones > Feature Phones"},
	}

	res, err := newTestBuilder().Build(products)
	require.NoError(t, err)
	require.Len(t, res.Nodes, 4)

	electronics := res.Nodes["electronics"]
	phones := res.Nodes["electronics-phones"]
	smart := res.Nodes["electronics-phones-smartphones"]
	feature := res.Nodes["electronics-phones-feature-phones"]
	require.NotNil(t, electronics)
	require.NotNil(t, phones)
	require.NotNil(t, smart)
	require.NotNil(t, feature)

	assert.Equal(t, 2, electronics.ProductCount)
	assert.Equal(t, 2, phones.ProductCount)
	assert.Equal(t, 1, smart.ProductCount)
	assert.Equal(t, 1, feature.ProductCount)

	assert.Equal(t, 1, electronics.Depth)
	assert.Equal(t, 2, phones.Depth)
	assert.Equal(t, 3, smart.Depth)
	assert.Equal(t, common.NodeID(""), electronics.ParentID)
	assert.Equal(t, electronics.ID, phones.ParentID)
	assert.Equal(t, phones.ID, smart.ParentID)

	// Products are assigned to their deepest node only.
	assert.Equal(t, 1, res.DirectCount(smart.ID))
	assert.Equal(t, 0, res.DirectCount(phones.ID))
}

func TestBuild_FallbackToStandardPath(t *testing.T) {
	products := []catalog.Product{
		{ID: "p1", StandardPath: "Apparel / Shirts"},
	}
	res, err := newTestBuilder().Build(products)
	require.NoError(t, err)
	require.Len(t, res.Nodes, 2)
	assert.Equal(t, SourceStandard, res.Nodes["apparel"].Source)
	assert.Equal(t, SourceStandard, res.Nodes["apparel-shirts"].Source)
}

func TestBuild_UnassignedProducts(t *testing.T) {
	products := []catalog.Product{
		{ID: "p1", CategoryPath: " > / "},
		{ID: "p2"},
		{ID: "p3", CategoryPath: "Electronics"},
	}
	res, err := newTestBuilder().Build(products)
	require.NoError(t, err)
	assert.ElementsMatch(t, []common.ProductID{"p1", "p2"}, res.Unassigned)
	assert.Equal(t, 1, res.Nodes["electronics"].ProductCount)
}

func TestBuild_IDDeterminism(t *testing.T) {
	products := []catalog.Product{
		{ID: "p1", CategoryPath: "Electronics > Phones"},
		{ID: "p2", CategoryPath: "Electronics/Audio"},
		{ID: "p3", CategoryPath: "Garden | Tools"},
	}
	a, err := newTestBuilder().Build(products)
	require.NoError(t, err)
	b, err := newTestBuilder().Build(products)
	require.NoError(t, err)

	require.Equal(t, len(a.Nodes), len(b.Nodes))
	for id, n := range a.Nodes {
		other, ok := b.Nodes[id]
		require.True(t, ok, "node %s missing on rebuild", id)
		assert.Equal(t, n.Path, other.Path)
		assert.Equal(t, n.Depth, other.Depth)
		assert.Equal(t, n.ParentID, other.ParentID)
		assert.Equal(t, n.ProductCount, other.ProductCount)
	}
}

func TestBuild_CountConservation(t *testing.T) {
	products := []catalog.Product{
		{ID: "p1", CategoryPath: "A > B > C"},
		{ID: "p2", CategoryPath: "A > B"},
		{ID: "p3", CategoryPath: "A > B > C"},
		{ID: "p4", CategoryPath: "A > D"},
		{ID: "p5", CategoryPath: "A"},
	}
	res, err := newTestBuilder().Build(products)
	require.NoError(t, err)

	for id, n := range res.Nodes {
		sum := res.DirectCount(id)
		for _, child := range Children(res.Nodes, id) {
			sum += res.Nodes[child].ProductCount
		}
		assert.Equal(t, n.ProductCount, sum, "count conservation violated at %s", id)
	}
}

func TestValidateForest_DanglingParent(t *testing.T) {
	nodes := map[common.NodeID]*Node{
		"orphan": {ID: "orphan", Depth: 2, ParentID: "missing"},
	}
	err := ValidateForest(nodes)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTaxonomyDanglingParent))
}

func TestValidateForest_Cycle(t *testing.T) {
	nodes := map[common.NodeID]*Node{
		"a": {ID: "a", Depth: 2, ParentID: "b"},
		"b": {ID: "b", Depth: 2, ParentID: "a"},
	}
	err := ValidateForest(nodes)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTaxonomyCycleDetected))
}

func TestNodesByDepthAscending(t *testing.T) {
	nodes := map[common.NodeID]*Node{
		"a-b-c": {ID: "a-b-c", Depth: 3, ParentID: "a-b"},
		"a":     {ID: "a", Depth: 1},
		"a-b":   {ID: "a-b", Depth: 2, ParentID: "a"},
	}
	ordered := NodesByDepthAscending(nodes)
	require.Len(t, ordered, 3)
	assert.Equal(t, common.NodeID("a"), ordered[0].ID)
	assert.Equal(t, common.NodeID("a-b"), ordered[1].ID)
	assert.Equal(t, common.NodeID("a-b-c"), ordered[2].ID)
}
