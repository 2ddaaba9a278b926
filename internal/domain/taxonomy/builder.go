package taxonomy

import (
	"strings"
	"unicode"

	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/types/catalog"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// PathSeparator is the canonical segment separator used in normalized path
// strings.  Input paths may arrive with ">", "/" or "|" delimiters in any
// mixture; normalization collapses them all to this one.
const PathSeparator = " > "

// ─────────────────────────────────────────────────────────────────────────────
// Path normalization and id derivation
// ─────────────────────────────────────────────────────────────────────────────

// SplitPath normalizes a raw category-path string and returns its ordered
// segments.  Any of the delimiters ">", "/", "|" (optionally surrounded by
// whitespace) separate segments; repeated whitespace inside a segment is
// collapsed and segments are trimmed.  Empty segments are dropped.
func SplitPath(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '>' || r == '/' || r == '|'
	})
	segments := make([]string, 0, len(fields))
	for _, f := range fields {
		seg := strings.Join(strings.Fields(f), " ")
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// NormalizePath returns the canonical path string for a raw category path:
// segments joined by PathSeparator.  Returns "" when no usable segment
// remains.
func NormalizePath(raw string) string {
	return strings.Join(SplitPath(raw), PathSeparator)
}

// DeriveNodeID computes the stable node id for the given path segments:
// the joined sub-path lower-cased with every run of non-alphanumeric
// characters collapsed to a single "-" and leading/trailing "-" stripped.
// Same path ⇒ same id, which is what makes re-imports idempotent.
func DeriveNodeID(segments []string) common.NodeID {
	joined := strings.ToLower(strings.Join(segments, " "))
	var sb strings.Builder
	sb.Grow(len(joined))
	lastDash := true // suppress a leading dash
	for _, r := range joined {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			sb.WriteByte('-')
			lastDash = true
		}
	}
	return common.NodeID(strings.TrimRight(sb.String(), "-"))
}

// HumanizeTitle converts a path segment into a display title: separator
// characters become spaces and each word is capitalized.
func HumanizeTitle(segment string) string {
	words := strings.FieldsFunc(segment, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// ─────────────────────────────────────────────────────────────────────────────
// Builder
// ─────────────────────────────────────────────────────────────────────────────

// BuildResult is the output of one taxonomy construction pass.
type BuildResult struct {
	// Nodes is the arena of all created nodes keyed by id.
	Nodes map[common.NodeID]*Node

	// Assignments maps each node id to the set of products assigned to it.
	// A product is assigned only to its single deepest resolved node, never
	// to intermediate ancestors.
	Assignments map[common.NodeID]map[common.ProductID]struct{}

	// Unassigned lists products whose category paths were empty after
	// normalization.  This is a skip, not an error; callers report the count.
	Unassigned []common.ProductID
}

// DirectCount returns the number of products assigned directly to the node.
func (r *BuildResult) DirectCount(id common.NodeID) int {
	return len(r.Assignments[id])
}

// Builder turns raw product records into a taxonomy forest.  It keeps no
// state between Build calls; every invocation works on fresh accumulators so
// repeated pipeline runs cannot observe each other.
type Builder struct {
	log logging.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(log logging.Logger) *Builder {
	return &Builder{log: log.Named("taxonomy.builder")}
}

// Build constructs the taxonomy forest for the given products and propagates
// product counts upward.  The primary category path wins; the standardized
// fallback path is used only when the primary is unusable.  Products with no
// usable path at all are recorded in Unassigned.
func (b *Builder) Build(products []catalog.Product) (*BuildResult, error) {
	res := &BuildResult{
		Nodes:       make(map[common.NodeID]*Node),
		Assignments: make(map[common.NodeID]map[common.ProductID]struct{}),
	}

	for i := range products {
		p := &products[i]
		segments, source := b.pickPath(p)
		if len(segments) == 0 {
			res.Unassigned = append(res.Unassigned, p.ID)
			continue
		}
		leaf := b.ensurePath(res.Nodes, segments, source)
		set, ok := res.Assignments[leaf]
		if !ok {
			set = make(map[common.ProductID]struct{})
			res.Assignments[leaf] = set
		}
		set[p.ID] = struct{}{}
	}

	if err := b.propagateCounts(res); err != nil {
		return nil, err
	}

	b.log.Info("taxonomy built",
		logging.Int("nodes", len(res.Nodes)),
		logging.Int("products", len(products)),
		logging.Int("unassigned", len(res.Unassigned)),
	)
	return res, nil
}

// pickPath selects the product's primary category path, falling back to the
// standardized taxonomy string, and returns its normalized segments together
// with the matching source tag.
func (b *Builder) pickPath(p *catalog.Product) ([]string, SourceTag) {
	if segs := SplitPath(p.CategoryPath); len(segs) > 0 {
		return segs, SourceCatalog
	}
	if segs := SplitPath(p.StandardPath); len(segs) > 0 {
		return segs, SourceStandard
	}
	return nil, ""
}

// ensurePath walks the segments left to right, creating any missing node for
// each accumulated prefix, and returns the id of the deepest node.
func (b *Builder) ensurePath(nodes map[common.NodeID]*Node, segments []string, source SourceTag) common.NodeID {
	var parent common.NodeID
	var leaf common.NodeID
	for depth := 1; depth <= len(segments); depth++ {
		prefix := segments[:depth]
		id := DeriveNodeID(prefix)
		if _, exists := nodes[id]; !exists {
			nodes[id] = &Node{
				ID:       id,
				Title:    HumanizeTitle(segments[depth-1]),
				Path:     strings.Join(prefix, PathSeparator),
				Depth:    depth,
				ParentID: parent,
				Source:   source,
			}
		}
		parent = id
		leaf = id
	}
	return leaf
}

// propagateCounts adds each node's direct assignment count to itself and to
// every ancestor, as an explicit iterative walk over the arena.  Each product
// is assigned to exactly one leaf node, so simple upward summation cannot
// double count.  Propagation refuses to run over a structurally invalid
// forest (dangling parent or cycle).
func (b *Builder) propagateCounts(res *BuildResult) error {
	if err := ValidateForest(res.Nodes); err != nil {
		return err
	}
	for _, id := range SortedIDs(res.Nodes) {
		direct := len(res.Assignments[id])
		if direct == 0 {
			continue
		}
		for cur := res.Nodes[id]; ; cur = res.Nodes[cur.ParentID] {
			cur.ProductCount += direct
			if cur.ParentID == "" {
				break
			}
		}
	}
	return nil
}
