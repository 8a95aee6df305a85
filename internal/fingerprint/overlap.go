package fingerprint

// MatchThreshold is the minimum overlap score for two structural
// fingerprints to be considered the same plan set. Inclusive.
const MatchThreshold = 0.60

// OverlapScore computes the weighted fraction of matching structural entries
// between two fingerprints. Entries are keyed by (page number, sheet number);
// a nil sheet number is a distinct identity, never a wildcard. Weight is 1.0
// for sheet-numbered entries and 0.5 otherwise.
//
//	matched = Σ min(weightA, weightB) over keys in both
//	total   = Σ max(weightA, weightB) over the union of keys
//	score   = matched / total
//
// Either input empty yields 0.0.
func OverlapScore(a, b Fingerprint) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	weightsA := weightSet(a)
	weightsB := weightSet(b)

	matched := 0.0
	total := 0.0
	for key, wa := range weightsA {
		if wb, ok := weightsB[key]; ok {
			matched += min(wa, wb)
			total += max(wa, wb)
		} else {
			total += wa
		}
	}
	for key, wb := range weightsB {
		if _, ok := weightsA[key]; !ok {
			total += wb
		}
	}

	if total == 0 {
		return 0.0
	}
	return matched / total
}

// Match reports whether two fingerprints overlap at or above the threshold.
func Match(a, b Fingerprint) bool {
	return OverlapScore(a, b) >= MatchThreshold
}

func weightSet(fp Fingerprint) map[Pair]float64 {
	set := make(map[Pair]float64, len(fp))
	for _, p := range fp {
		set[p] = p.Weight()
	}
	return set
}
