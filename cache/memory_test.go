package cache

import (
	"testing"
	"time"

	"filmseek/movie"
)

func TestMemoryHitAndMiss(t *testing.T) {
	m := NewMemory(8, time.Minute)

	if _, ok := m.Get("rrr", 10); ok {
		t.Fatal("empty cache reported a hit")
	}

	records := []movie.Record{{Title: "RRR (2022)", CanonicalURL: "http://a"}}
	m.Set("rrr", 10, records)

	got, ok := m.Get("rrr", 10)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if len(got) != 1 || got[0].Title != "RRR (2022)" {
		t.Errorf("got %+v", got)
	}
}

func TestMemoryKeyIncludesLimit(t *testing.T) {
	m := NewMemory(8, time.Minute)
	m.Set("rrr", 10, []movie.Record{{Title: "X"}})

	if _, ok := m.Get("rrr", 5); ok {
		t.Error("different limit must be a distinct key")
	}
}

func TestMemoryKeyNormalizesQuery(t *testing.T) {
	m := NewMemory(8, time.Minute)
	m.Set("  RRR  ", 10, []movie.Record{{Title: "X"}})

	if _, ok := m.Get("rrr", 10); !ok {
		t.Error("query casing and padding must not fragment keys")
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(8, 20*time.Millisecond)
	m.Set("rrr", 10, []movie.Record{{Title: "X"}})

	time.Sleep(50 * time.Millisecond)
	if _, ok := m.Get("rrr", 10); ok {
		t.Error("entry survived past its ttl")
	}
}

func TestMemoryPurge(t *testing.T) {
	m := NewMemory(8, time.Minute)
	m.Set("a", 1, nil)
	m.Set("b", 2, nil)
	if m.Len() != 2 {
		t.Fatalf("len = %d, want 2", m.Len())
	}
	m.Purge()
	if m.Len() != 0 {
		t.Errorf("len = %d after purge, want 0", m.Len())
	}
}
