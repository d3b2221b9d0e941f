package services

import (
	"strings"
	"testing"
)

func TestChunkPagesEmptyInput(t *testing.T) {
	s := NewSegmenter(1000, 200)

	if got := s.ChunkPages(nil); len(got) != 0 {
		t.Errorf("expected no chunks for nil pages, got %d", len(got))
	}
	if got := s.ChunkPages([]string{"", "   ", "\n\t"}); len(got) != 0 {
		t.Errorf("expected no chunks for blank pages, got %d", len(got))
	}
}

func TestChunkPagesWindowAndOverlap(t *testing.T) {
	s := NewSegmenter(1000, 200)

	// A 1500-char page followed by a blank page: two windows,
	// [0,1000) and [800,1500), nothing from the blank page.
	page := strings.Repeat("a", 1500)
	chunks := s.ChunkPages([]string{page, ""})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Text) != 1000 {
		t.Errorf("expected first chunk of 1000 chars, got %d", len(chunks[0].Text))
	}
	if len(chunks[1].Text) != 700 {
		t.Errorf("expected second chunk of 700 chars, got %d", len(chunks[1].Text))
	}
	for i, c := range chunks {
		if c.PageNumber != 1 {
			t.Errorf("chunk %d: expected page 1, got %d", i, c.PageNumber)
		}
	}
}

func TestChunkPagesOverlapContent(t *testing.T) {
	s := NewSegmenter(100, 20)

	// 150 distinct characters so the shared region is verifiable.
	var sb strings.Builder
	for i := 0; i < 150; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	chunks := s.ChunkPages([]string{sb.String()})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	tailOfFirst := chunks[0].Text[len(chunks[0].Text)-20:]
	if !strings.HasPrefix(chunks[1].Text, tailOfFirst) {
		t.Errorf("expected second chunk to start with the 20-char overlap")
	}
}

func TestChunkPagesShortTailMergesIntoPreviousChunk(t *testing.T) {
	s := NewSegmenter(1000, 200)

	// After the first window the remaining 300 chars are under a third of
	// the chunk size, so they join the previous chunk.
	page := strings.Repeat("a", 1000) + strings.Repeat("b", 100)
	chunks := s.ChunkPages([]string{page})

	if len(chunks) != 1 {
		t.Fatalf("expected tail merged into a single chunk, got %d chunks", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Text, strings.Repeat("b", 100)) {
		t.Errorf("expected merged tail at end of chunk")
	}
}

func TestChunkPagesShortPageStandsAlone(t *testing.T) {
	s := NewSegmenter(1000, 200)

	// A short page never merges into a chunk from a different page.
	chunks := s.ChunkPages([]string{strings.Repeat("a", 1000), strings.Repeat("b", 50)})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].PageNumber != 2 {
		t.Errorf("expected second chunk on page 2, got %d", chunks[1].PageNumber)
	}
	if chunks[1].Text != strings.Repeat("b", 50) {
		t.Errorf("expected short page kept as its own chunk")
	}
}

func TestChunkPagesPageNumbersAreOrdered(t *testing.T) {
	s := NewSegmenter(1000, 200)

	chunks := s.ChunkPages([]string{"", "page two text", "", "page four text"})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].PageNumber != 2 || chunks[1].PageNumber != 4 {
		t.Errorf("expected pages 2 and 4, got %d and %d", chunks[0].PageNumber, chunks[1].PageNumber)
	}
	for i, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("chunk %d has empty text", i)
		}
	}
}
