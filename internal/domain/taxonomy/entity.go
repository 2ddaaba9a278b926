// Package taxonomy implements the category-taxonomy bounded context: building
// a tree of category nodes from raw product category-path strings, and merging
// near-duplicate sibling categories without corrupting counts or parent/child
// relationships.  All business rules that concern the taxonomy tree live here;
// persistence is handled by separate repository adapters.
package taxonomy

import (
	"sort"

	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// SourceTag records which input taxonomy a node originated from.
type SourceTag string

const (
	// SourceCatalog marks nodes built from the merchant-defined category path.
	SourceCatalog SourceTag = "catalog"

	// SourceStandard marks nodes built from the standardized fallback taxonomy.
	SourceStandard SourceTag = "standardized-taxonomy"

	// SourceHybrid marks a node that survived a merge of nodes with differing
	// source tags.
	SourceHybrid SourceTag = "hybrid"
)

// Node is a single entry in the taxonomy tree (a category).
//
// Identity: ID is derived deterministically from the node's normalized path,
// so rebuilding the taxonomy from the same products yields the same ids.
//
// Invariant: the parent/child relation over a node set forms a forest of
// rooted trees — no cycles, and every non-root node's parent must exist in
// the same set before the set is considered resolvable.
type Node struct {
	ID common.NodeID `json:"id"`

	// Title is the humanized display name of the deepest path segment.
	Title string `json:"title"`

	// Path is the full normalized category path ("Electronics > Phones").
	Path string `json:"path"`

	// Depth is 1-based: a root node has depth 1.
	Depth int `json:"depth"`

	// ParentID is empty for depth-1 nodes.
	ParentID common.NodeID `json:"parent_id,omitempty"`

	// ProductCount is the node's direct product assignments plus all
	// descendant nodes' direct assignments (count conservation under rollup).
	ProductCount int `json:"product_count"`

	// Source records which input taxonomy produced the node; merges of
	// differently-sourced nodes upgrade it to SourceHybrid.
	Source SourceTag `json:"source"`

	// Metadata is an open bag for auxiliary attributes; during a merge the
	// survivor absorbs any key it lacks from the merged-away node.
	Metadata common.Metadata `json:"metadata,omitempty"`
}

// IsRoot reports whether the node sits at the top of its tree.
func (n *Node) IsRoot() bool {
	return n.ParentID == ""
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Metadata != nil {
		c.Metadata = make(common.Metadata, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// ValidateForest checks the structural invariant of a node set: every
// non-root parent reference resolves within the set, and following parent
// links never cycles.  A dangling parent is a structural error (distinct from
// the skip-level issues around unassignable products) and callers must not
// run count propagation or rollup over an invalid set.
func ValidateForest(nodes map[common.NodeID]*Node) error {
	for id, n := range nodes {
		if n.ParentID == "" {
			continue
		}
		if _, ok := nodes[n.ParentID]; !ok {
			return errors.New(errors.ErrCodeTaxonomyDanglingParent,
				"node references a parent absent from the node set").
				WithDetail("node=" + string(id) + " parent=" + string(n.ParentID))
		}
	}
	// Cycle check: a parent chain longer than the node count must revisit.
	for id := range nodes {
		steps := 0
		for cur := nodes[id]; cur.ParentID != ""; cur = nodes[cur.ParentID] {
			steps++
			if steps > len(nodes) {
				return errors.New(errors.ErrCodeTaxonomyCycleDetected,
					"parent chain contains a cycle").
					WithDetail("node=" + string(id))
			}
		}
	}
	return nil
}

// SortedIDs returns the node ids in lexicographic order.  Deterministic
// iteration order is a correctness requirement for reproducible merges and
// stable persistence output.
func SortedIDs(nodes map[common.NodeID]*Node) []common.NodeID {
	ids := make([]common.NodeID, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NodesByDepthAscending returns the nodes ordered by depth, then id.  Storage
// layers that enforce parent-before-child referential integrity must write
// nodes in this order.
func NodesByDepthAscending(nodes map[common.NodeID]*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Children returns the ids of the direct children of parent, sorted.
func Children(nodes map[common.NodeID]*Node, parent common.NodeID) []common.NodeID {
	var out []common.NodeID
	for id, n := range nodes {
		if n.ParentID == parent {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
