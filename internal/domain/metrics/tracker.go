package metrics

// MatchTracker counts how many metric records could be attributed to a
// taxonomy node.  Unresolvable records are dropped from aggregation, never
// fatal; the tracker is the caller's signal for how lossy the drop was.
type MatchTracker struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

// Observe records the attribution outcome for one record.
func (t *MatchTracker) Observe(matched bool) {
	t.Total++
	if matched {
		t.Matched++
	} else {
		t.Unmatched++
	}
}

// MatchRate returns matched/total in [0,1], 1 for an empty tracker.
func (t *MatchTracker) MatchRate() float64 {
	if t.Total == 0 {
		return 1
	}
	return float64(t.Matched) / float64(t.Total)
}
