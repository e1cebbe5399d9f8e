package memory

import "testing"

func TestVectorStoreSearchRanksByRelevance(t *testing.T) {
	s := NewVectorStore()
	s.Add("1", "the quick brown fox jumps over the lazy dog", nil)
	s.Add("2", "completely unrelated text about cooking pasta", nil)
	s.Add("3", "a quick fox runs through the forest", []string{"fox"})

	results := s.Search("quick fox", 5)
	if len(results) == 0 {
		t.Fatal("expected at least one match")
	}
	if results[0].ID != "3" && results[0].ID != "1" {
		t.Fatalf("expected fox-related entry ranked first, got %s", results[0].ID)
	}
	for _, r := range results {
		if r.ID == "2" {
			t.Fatalf("expected unrelated entry filtered by score threshold, got %+v", r)
		}
	}
}

func TestVectorStoreEvictsOldestAtCapacity(t *testing.T) {
	s := NewVectorStore()
	s.Add("first", "marker content one", nil)
	for i := 0; i < MaxMemories; i++ {
		s.Add("x", "filler", nil)
	}
	if len(s.memories) != MaxMemories {
		t.Fatalf("expected store capped at %d, got %d", MaxMemories, len(s.memories))
	}
	for _, m := range s.memories {
		if m.ID == "first" {
			t.Fatal("expected oldest entry evicted")
		}
	}
}

func TestVectorStoreEmptyQueryReturnsNoResults(t *testing.T) {
	s := NewVectorStore()
	s.Add("1", "some content", nil)
	if results := s.Search("", 5); results != nil {
		t.Fatalf("expected nil results for empty query, got %v", results)
	}
}
