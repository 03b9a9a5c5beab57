package knowledge

import (
	"strings"
	"testing"
)

const designDoc = `# World Overview

The game is set in a drowned kingdom where tides reshape the map every
in-game day. Players navigate by reading water levels.

# Characters

## The Cartographer

An old mapmaker who sells tide charts. She speaks in riddles and keeps
a pet heron.

# Combat

Combat is turn-based. Water depth modifies movement range and weapon
effectiveness. Spears work in shallows, nets in deep water.
`

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(Config{ChunkSize: 400})
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestAddAndSearch(t *testing.T) {
	idx := newTestIndex(t)

	ids, err := idx.AddDocument("design.md", designDoc)
	if err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if len(ids) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(ids))
	}

	hits, err := idx.Search("tide charts mapmaker", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected search hits")
	}
	if !strings.Contains(hits[0].Content, "Cartographer") && !strings.Contains(hits[0].Content, "tide charts") {
		t.Errorf("top hit content = %q", hits[0].Content)
	}
	if hits[0].Document != "design.md" {
		t.Errorf("Document = %q", hits[0].Document)
	}
}

func TestSearchDocumentFilters(t *testing.T) {
	idx := newTestIndex(t)

	if _, err := idx.AddDocument("combat.md", "# Rules\n\nSpears beat nets in shallow water."); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if _, err := idx.AddDocument("lore.md", "# History\n\nThe spear of the first king is lost."); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}

	hits, err := idx.SearchDocument("spear", "combat.md", 5)
	if err != nil {
		t.Fatalf("SearchDocument failed: %v", err)
	}
	for _, h := range hits {
		if h.Document != "combat.md" {
			t.Errorf("hit from wrong document: %q", h.Document)
		}
	}
	if len(hits) == 0 {
		t.Error("expected hits in combat.md")
	}
}

func TestRemoveDocument(t *testing.T) {
	idx := newTestIndex(t)

	if _, err := idx.AddDocument("temp.md", "# Scratch\n\nEphemeral placeholder notes about dragons."); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if err := idx.RemoveDocument("temp.md"); err != nil {
		t.Fatalf("RemoveDocument failed: %v", err)
	}

	hits, err := idx.Search("dragons", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits after removal, got %d", len(hits))
	}
}

func TestEmptyDocument(t *testing.T) {
	idx := newTestIndex(t)

	ids, err := idx.AddDocument("empty.md", "   \n\n")
	if err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no chunks for empty document, got %d", len(ids))
	}
}

func TestSplitSections(t *testing.T) {
	// "Characters" has no body of its own and produces no section.
	sections := splitSections(designDoc)
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	if sections[0].title != "World Overview" {
		t.Errorf("first section title = %q", sections[0].title)
	}
	if sections[1].title != "The Cartographer" {
		t.Errorf("unexpected section title %q", sections[1].title)
	}
}

func TestSplitSectionsPreamble(t *testing.T) {
	sections := splitSections("intro text\n\n# First\n\nbody")
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].title != "" {
		t.Errorf("preamble should have empty title, got %q", sections[0].title)
	}
}

func TestChunkTextRespectsSize(t *testing.T) {
	long := strings.Repeat("word ", 500) // ~2500 chars, one paragraph
	chunks := chunkText(long, 400)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 400 {
			t.Errorf("chunk %d length %d exceeds limit", i, len(c))
		}
	}
}

func TestChunkTextKeepsParagraphsTogether(t *testing.T) {
	text := "short one.\n\nshort two."
	chunks := chunkText(text, 400)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "short one.") || !strings.Contains(chunks[0], "short two.") {
		t.Errorf("chunk = %q", chunks[0])
	}
}
