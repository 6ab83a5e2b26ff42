package feed

// Dedupe removes repeated reviews by id, keeping the first occurrence so the
// earlier phase wins. Order is otherwise preserved.
func Dedupe(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0:0]
	for _, c := range candidates {
		if _, ok := seen[c.Review.ID]; ok {
			continue
		}
		seen[c.Review.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Assemble dedupes the pooled candidates, shuffles the whole pool, and
// slices out the requested page. No padding happens when the pool is short;
// the page is simply smaller.
func Assemble(rng Rand, candidates []Candidate, skip, limit int) []Candidate {
	pool := Dedupe(candidates)
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if skip >= len(pool) {
		return []Candidate{}
	}
	end := skip + limit
	if end > len(pool) {
		end = len(pool)
	}
	return pool[skip:end]
}
