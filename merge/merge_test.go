package merge

import (
	"io"
	"log/slog"
	"testing"

	"filmseek/movie"
	"filmseek/workflow"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordsPrimaryFirst(t *testing.T) {
	primary := []movie.Record{
		{Title: "RRR (2022)", CanonicalURL: "http://a", Source: movie.SourceSearch},
	}
	external := []movie.Record{
		{Title: "Magadheera (2009)", CanonicalURL: "http://b", Source: movie.SourceExternal},
	}

	merged := Records(primary, external, discard())
	if len(merged) != 2 {
		t.Fatalf("got %d records, want 2", len(merged))
	}
	if merged[0].Source != movie.SourceSearch || merged[1].Source != movie.SourceExternal {
		t.Errorf("order = %q, %q", merged[0].Source, merged[1].Source)
	}
}

func TestRecordsDropsDuplicateURLs(t *testing.T) {
	primary := []movie.Record{
		{Title: "RRR (2022)", CanonicalURL: "http://a", Source: movie.SourceSearch},
	}
	external := []movie.Record{
		{Title: "RRR different title", CanonicalURL: "http://a", Source: movie.SourceExternal},
		{Title: "RRR (2022)", CanonicalURL: "http://a\n", Source: movie.SourceExternal},
	}

	merged := Records(primary, external, discard())
	if len(merged) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(merged), merged)
	}
	if merged[0].Source != movie.SourceSearch {
		t.Errorf("primary version must win: %+v", merged[0])
	}
}

func TestRecordsPairwiseDistinctURLs(t *testing.T) {
	primary := []movie.Record{
		{Title: "A", CanonicalURL: "http://a"},
		{Title: "A again", CanonicalURL: "http://a"},
		{Title: "B", CanonicalURL: "http://b"},
	}
	external := []movie.Record{
		{Title: "B ext", CanonicalURL: "http://b"},
		{Title: "C", CanonicalURL: "http://c"},
		{Title: "C again", CanonicalURL: " http://c "},
	}

	merged := Records(primary, external, discard())
	seen := make(map[string]bool)
	for _, r := range merged {
		key := r.Key()
		if seen[key] {
			t.Errorf("duplicate canonical url in output: %q", key)
		}
		seen[key] = true
	}
	if len(merged) != 3 {
		t.Errorf("got %d records, want 3", len(merged))
	}
}

func TestRecordsSkipsEmptyPrimaryURL(t *testing.T) {
	primary := []movie.Record{
		{Title: "No URL"},
		{Title: "Has URL", CanonicalURL: "http://a"},
	}
	merged := Records(primary, nil, discard())
	if len(merged) != 1 || merged[0].CanonicalURL != "http://a" {
		t.Fatalf("merged = %+v", merged)
	}
}

func TestRecordsFallbackURLByTitle(t *testing.T) {
	external := []movie.Record{
		{Title: "Baahubali 2 The Conclusion", Source: movie.SourceExternal},
	}
	merged := Records(nil, external, discard())
	if len(merged) != 1 {
		t.Fatalf("got %d records, want 1", len(merged))
	}
	if merged[0].CanonicalURL == "" {
		t.Error("fallback url was not applied")
	}
}

func TestRecordsSkipsUnresolvableExternal(t *testing.T) {
	external := []movie.Record{
		{Title: "Totally Unknown Movie", Source: movie.SourceExternal},
	}
	merged := Records(nil, external, discard())
	if len(merged) != 0 {
		t.Fatalf("got %d records, want 0: %+v", len(merged), merged)
	}
}

func TestRecordsNestedPayloadShape(t *testing.T) {
	// Endpoint wraps the record list one level deep; the workflow
	// normalizer flattens it before the merger sees it.
	body := `[{"results":[{"title":"X","url":"http://a"}]}]`
	external := workflow.Normalize([]byte(body))

	merged := Records(nil, external, discard())
	if len(merged) != 1 {
		t.Fatalf("got %d records, want 1", len(merged))
	}
	if merged[0].CanonicalURL != "http://a" {
		t.Errorf("canonical = %q, want http://a", merged[0].CanonicalURL)
	}
}
