package scout

import "filmseek/movie"

// dedupeByTitle removes records whose normalized title was already
// seen, keeping first-seen order. Title is the key at this stage
// because canonical URLs may not yet be resolved for every candidate;
// cross-source merging dedupes by URL later. Idempotent.
func dedupeByTitle(records []movie.Record) []movie.Record {
	seen := make(map[string]bool, len(records))
	var out []movie.Record
	for _, r := range records {
		key := r.TitleKey()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
