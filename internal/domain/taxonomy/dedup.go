package taxonomy

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// DefaultMergeThreshold is the similarity score a sibling pair must exceed to
// be scheduled for merge.
const DefaultMergeThreshold = 0.85

// Merge records one applied loser→survivor decision.
type Merge struct {
	Survivor common.NodeID `json:"survivor"`
	Loser    common.NodeID `json:"loser"`
	Score    float64       `json:"score"`
	Rule     string        `json:"rule"`
}

// MergeReport summarizes one deduplication pass.
type MergeReport struct {
	// Merges lists every applied merge in deterministic order.
	Merges []Merge

	// Remap maps each merged-away node id to its terminal surviving node id
	// (survivor chains already collapsed).  Callers use it to re-attribute
	// product assignments and metric records keyed by merged-away ids.
	Remap map[common.NodeID]common.NodeID

	// Chains counts losers whose direct survivor was itself merged away in
	// the same pass — the transitive-similarity ambiguity the pairwise
	// algorithm cannot resolve consistently.  Surfaced via logging as a
	// data-quality signal, never silently special-cased.
	Chains int
}

// Resolve returns the terminal surviving id for the given node id, which is
// the id itself when the node was not merged away.
func (r *MergeReport) Resolve(id common.NodeID) common.NodeID {
	if s, ok := r.Remap[id]; ok {
		return s
	}
	return id
}

// Deduplicator merges near-duplicate sibling categories.  Only same-depth,
// same-parent nodes are candidates: identical titles under different parents
// are legitimately distinct categories, so cross-branch merges are never
// proposed.
type Deduplicator struct {
	rules     []SimilarityRule
	threshold float64
	log       logging.Logger
}

// NewDeduplicator constructs a Deduplicator with the default rule table.
// A non-positive threshold falls back to DefaultMergeThreshold.
func NewDeduplicator(threshold float64, log logging.Logger) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultMergeThreshold
	}
	return &Deduplicator{
		rules:     DefaultSimilarityRules(),
		threshold: threshold,
		log:       log.Named("taxonomy.dedup"),
	}
}

// candidate is one scheduled pairwise merge before application.
type candidate struct {
	survivor *Node
	loser    *Node
	score    float64
	rule     string
}

// Merge deduplicates the node set and returns the new (smaller or equal) set
// plus a report.  The input map is not mutated; surviving nodes are cloned
// before modification so counts of nodes not involved in a merge are never
// touched.  Given identical input the output is identical across runs: pair
// enumeration is id-ordered and the survivor tie-break (strictly larger
// product count, then lexicographically smaller title) is deterministic.
func (d *Deduplicator) Merge(nodes map[common.NodeID]*Node) (map[common.NodeID]*Node, *MergeReport) {
	out := make(map[common.NodeID]*Node, len(nodes))
	for id, n := range nodes {
		out[id] = n.Clone()
	}

	candidates := d.schedule(out)
	report := &MergeReport{Remap: make(map[common.NodeID]common.NodeID)}

	// Apply pairwise decisions independently, in deterministic order.  A node
	// may win one pair and lose another (transitive chains); each loser's
	// survivor is resolved through the remap so counts land on the terminal
	// node and conservation holds.
	for _, c := range candidates {
		loserID := c.loser.ID
		if _, gone := report.Remap[loserID]; gone {
			// Already merged away by an earlier pair this pass.
			continue
		}
		survivorID := report.Resolve(c.survivor.ID)
		if survivorID == loserID {
			continue
		}
		if survivorID != c.survivor.ID {
			report.Chains++
			d.log.Warn("transitive merge chain",
				logging.String("loser", string(loserID)),
				logging.String("scheduled_survivor", string(c.survivor.ID)),
				logging.String("merge_chain", string(survivorID)),
			)
		}

		survivor := out[survivorID]
		loser := out[loserID]
		d.apply(out, survivor, loser)
		delete(out, loserID)

		report.Remap[loserID] = survivorID
		report.Merges = append(report.Merges, Merge{
			Survivor: survivorID,
			Loser:    loserID,
			Score:    c.score,
			Rule:     c.rule,
		})
	}

	// Collapse remap so every entry points at a terminal survivor.
	for id := range report.Remap {
		cur := report.Remap[id]
		for {
			next, ok := report.Remap[cur]
			if !ok {
				break
			}
			cur = next
		}
		report.Remap[id] = cur
	}

	d.log.Info("deduplication complete",
		logging.Int("nodes_in", len(nodes)),
		logging.Int("nodes_out", len(out)),
		logging.Int("merges", len(report.Merges)),
		logging.Int("chains", report.Chains),
	)
	return out, report
}

// schedule enumerates same-parent, same-depth pairs in id order, scores each
// unordered pair, and returns those strictly above the threshold with the
// survivor decided.
func (d *Deduplicator) schedule(nodes map[common.NodeID]*Node) []candidate {
	groups := make(map[string][]*Node)
	for _, id := range SortedIDs(nodes) {
		n := nodes[id]
		key := string(n.ParentID) + "\x00" + strconv.Itoa(n.Depth)
		groups[key] = append(groups[key], n)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var candidates []candidate
	for _, k := range keys {
		siblings := groups[k]
		for i := 0; i < len(siblings); i++ {
			for j := i + 1; j < len(siblings); j++ {
				score, rule := TitleSimilarity(d.rules, siblings[i].Title, siblings[j].Title)
				if score <= d.threshold {
					continue
				}
				survivor, loser := pickSurvivor(siblings[i], siblings[j])
				candidates = append(candidates, candidate{
					survivor: survivor,
					loser:    loser,
					score:    score,
					rule:     rule,
				})
			}
		}
	}
	return candidates
}

// pickSurvivor applies the deterministic tie-break: the node with the
// strictly larger product count wins; on an exact tie the lexicographically
// smaller title wins, so repeated runs always agree.
func pickSurvivor(a, b *Node) (survivor, loser *Node) {
	switch {
	case a.ProductCount > b.ProductCount:
		return a, b
	case b.ProductCount > a.ProductCount:
		return b, a
	case strings.Compare(a.Title, b.Title) <= 0:
		return a, b
	default:
		return b, a
	}
}

// apply folds loser into survivor: counts are summed, metadata fields the
// survivor lacks are copied over, differing source tags upgrade the survivor
// to hybrid, and every child of the loser is reparented onto the survivor.
func (d *Deduplicator) apply(nodes map[common.NodeID]*Node, survivor, loser *Node) {
	survivor.ProductCount += loser.ProductCount

	for k, v := range loser.Metadata {
		if survivor.Metadata == nil {
			survivor.Metadata = make(common.Metadata)
		}
		if _, exists := survivor.Metadata[k]; !exists {
			survivor.Metadata[k] = v
		}
	}

	if survivor.Source != loser.Source {
		survivor.Source = SourceHybrid
	}

	for _, childID := range Children(nodes, loser.ID) {
		nodes[childID].ParentID = survivor.ID
	}
}
