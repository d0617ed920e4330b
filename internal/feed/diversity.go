package feed

// Diversity passes over the ranked feed. A run of more than maxRun
// consecutive items sharing an author (or a content kind) gets broken up:
// the excess items are deferred, then re-inserted at the first position
// that keeps every run under the limit. Deferred author-run items keep
// only the penalty fraction of their score; chronological feeds are
// never reordered.

func applyAuthorDiversity(items []Item, maxRun int, penalty float64) []Item {
	if maxRun <= 0 || len(items) == 0 {
		return items
	}
	sameAuthor := func(a, b Item) bool { return a.Candidate.AuthorID == b.Candidate.AuthorID }

	result := make([]Item, 0, len(items))
	var deferred []Item
	for _, it := range items {
		if tailRun(result, it, maxRun, sameAuthor) >= maxRun {
			if it.Breakdown != nil {
				b := *it.Breakdown
				b.Final *= penalty
				it.Breakdown = &b
			}
			deferred = append(deferred, it)
			continue
		}
		result = append(result, it)
	}

	for _, d := range deferred {
		pos := -1
		for i := range result {
			if inWindow(result, i, maxRun, d, sameAuthor) {
				continue
			}
			// Deferred items slot in only where their penalized score
			// still competes with the neighborhood.
			if finalScore(d) < finalScore(result[i])*penalty {
				continue
			}
			pos = i
			break
		}
		result = insertAt(result, pos, d)
	}
	return result
}

func applyTypeDiversity(items []Item, maxRun int) []Item {
	if maxRun <= 0 || len(items) == 0 {
		return items
	}
	sameKind := func(a, b Item) bool { return a.Candidate.Kind == b.Candidate.Kind }

	result := make([]Item, 0, len(items))
	var deferred []Item
	for _, it := range items {
		if tailRun(result, it, maxRun, sameKind) >= maxRun {
			deferred = append(deferred, it)
			continue
		}
		result = append(result, it)
	}

	for _, d := range deferred {
		pos := -1
		for i := range result {
			if inWindow(result, i, maxRun, d, sameKind) {
				continue
			}
			pos = i
			break
		}
		result = insertAt(result, pos, d)
	}
	return result
}

// tailRun counts how many trailing items of result match it, up to maxRun.
func tailRun(result []Item, it Item, maxRun int, same func(a, b Item) bool) int {
	n := 0
	for i := len(result) - 1; i >= 0 && n < maxRun; i-- {
		if !same(result[i], it) {
			break
		}
		n++
	}
	return n
}

// inWindow reports whether any item within maxRun positions of index i
// matches d, which would recreate the run an insertion is meant to break.
func inWindow(result []Item, i, maxRun int, d Item, same func(a, b Item) bool) bool {
	lo := i - maxRun + 1
	if lo < 0 {
		lo = 0
	}
	hi := i + maxRun
	if hi > len(result) {
		hi = len(result)
	}
	for j := lo; j < hi; j++ {
		if same(result[j], d) {
			return true
		}
	}
	return false
}

// insertAt places d at index pos, or appends when pos is negative.
func insertAt(result []Item, pos int, d Item) []Item {
	if pos < 0 {
		return append(result, d)
	}
	result = append(result, Item{})
	copy(result[pos+1:], result[pos:])
	result[pos] = d
	return result
}

func finalScore(it Item) float64 {
	if it.Breakdown == nil {
		return 0
	}
	return it.Breakdown.Final
}
