package memory

import (
	"context"
	"path/filepath"
	"testing"
)

func TestLocalStoreSubstringSearch(t *testing.T) {
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "house_facts.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	facts := []string{
		"The basement has no insulation on the north wall",
		"Kitchen pipes run along the exterior wall",
		"Attic was re-insulated in 2024",
	}
	for _, f := range facts {
		if err := s.StoreFact(ctx, f); err != nil {
			t.Fatalf("store %q: %v", f, err)
		}
	}

	got, err := s.SearchFacts(ctx, "Basement pipes")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// Matches any query word, case-insensitive; newest first.
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(got), got)
	}
	if got[0] != facts[1] || got[1] != facts[0] {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestLocalStoreRejectsEmptyFact(t *testing.T) {
	s, _ := NewLocalStore("")
	if err := s.StoreFact(context.Background(), "   "); err == nil {
		t.Error("expected error for empty fact")
	}
}

func TestLocalStorePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "house_facts.json")
	ctx := context.Background()

	s, _ := NewLocalStore(path)
	if err := s.StoreFact(ctx, "The crawl space vents freeze shut in winter"); err != nil {
		t.Fatalf("store: %v", err)
	}

	reloaded, err := NewLocalStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, _ := reloaded.SearchFacts(ctx, "crawl")
	if len(got) != 1 {
		t.Errorf("fact lost across reload: %v", got)
	}
}
