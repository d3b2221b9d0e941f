package services

import (
	"strings"

	"pdf-study-platform/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Segmenter turns page-level text into overlapping fixed-size chunks with
// page-number metadata.
type Segmenter struct {
	chunkSize int
	overlap   int
}

func NewSegmenter(chunkSize, overlap int) *Segmenter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 5
		}
	}
	return &Segmenter{chunkSize: chunkSize, overlap: overlap}
}

// ChunkPages walks each page's text in a sliding window of chunkSize
// characters, stepping chunkSize-overlap. A short page tail (under a third
// of the chunk size) is appended to the previous chunk from the same page
// instead of becoming its own fragment. Blank pages are skipped; page
// numbers are 1-indexed; no returned chunk has empty text. Empty or
// all-blank input yields an empty slice, which callers must treat as a
// document with no extractable content.
func (s *Segmenter) ChunkPages(pages []string) []models.Chunk {
	var chunks []models.Chunk

	for pageIdx, pageText := range pages {
		if strings.TrimSpace(pageText) == "" {
			continue
		}

		pageNumber := pageIdx + 1
		runes := []rune(pageText)
		start := 0

		for start < len(runes) {
			remaining := len(runes) - start
			if remaining < s.chunkSize/3 && len(chunks) > 0 && chunks[len(chunks)-1].PageNumber == pageNumber {
				tail := strings.TrimSpace(string(runes[start:]))
				if tail != "" {
					chunks[len(chunks)-1].Text += " " + tail
				}
				break
			}

			end := start + s.chunkSize
			if end > len(runes) {
				end = len(runes)
			}

			window := strings.TrimSpace(string(runes[start:end]))
			if window != "" {
				chunks = append(chunks, models.Chunk{
					Text:       window,
					PageNumber: pageNumber,
				})
			}

			if end == len(runes) {
				break
			}

			next := end - s.overlap
			if next <= start {
				// Forward progress even with degenerate overlap settings.
				next = start + 1
			}
			start = next
		}
	}

	return chunks
}
