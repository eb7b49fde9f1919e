package extract

import "testing"

func TestMatches(t *testing.T) {
	cases := []struct {
		text  string
		query string
		want  bool
	}{
		// Direct token match.
		{"RRR (2022) BRRip Telugu Movie", "rrr", true},
		{"Batman Begins", "batman", true},
		// A shared 3-char prefix is not enough to let "Grrrland" match
		// "rrr", and no token boundary contains the query.
		{"Grrrland Show", "rrr", false},
		// Multi-token query as a consecutive sequence.
		{"The Dark Knight Rises", "dark knight", true},
		// Any single query token.
		{"The Dark Tower", "dark knight", true},
		// Prefix tier.
		{"Batman Begins", "batmen", true},
		{"Superman Returns", "batman", false},
		// Case folding.
		{"AVENGERS ENDGAME", "avengers", true},
		// Degenerate inputs.
		{"", "batman", false},
		{"Batman Begins", "", false},
		{"Batman Begins", "   ", false},
	}
	for _, c := range cases {
		if got := Matches(c.text, c.query); got != c.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", c.text, c.query, got, c.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("RRR (2022) BRRip-Telugu Movie")
	want := []string{"rrr", "2022", "brrip", "telugu", "movie"}
	if len(got) != len(want) {
		t.Fatalf("tokenize returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}
