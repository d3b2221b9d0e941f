package index

import (
	"math"
	"testing"
)

func TestNewFlatDimensionMismatch(t *testing.T) {
	_, err := NewFlat([][]float32{{1, 2}, {1, 2, 3}})
	if err == nil {
		t.Fatal("expected construction error for mismatched dimensions")
	}
}

func TestNewFlatEmpty(t *testing.T) {
	f, err := NewFlat(nil)
	if err != nil {
		t.Fatalf("empty build failed: %v", err)
	}
	if f.Size() != 0 {
		t.Fatalf("expected size 0, got %d", f.Size())
	}

	results, err := f.Search([]float32{1, 2}, 5)
	if err != nil {
		t.Fatalf("search on empty index failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result set, got %d", len(results))
	}
}

func TestSearchOrdering(t *testing.T) {
	f, err := NewFlat([][]float32{
		{10, 0}, // d=100
		{1, 0},  // d=1
		{3, 0},  // d=9
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	results, err := f.Search([]float32{0, 0}, 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	wantPositions := []int{1, 2, 0}
	for i, want := range wantPositions {
		if results[i].Position != want {
			t.Errorf("result %d: got position %d, want %d", i, results[i].Position, want)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("results not ordered ascending at %d", i)
		}
	}
}

func TestSearchTiesStable(t *testing.T) {
	// Equidistant vectors must keep insertion order.
	f, err := NewFlat([][]float32{
		{0, 1},
		{1, 0},
		{0, -1},
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	results, err := f.Search([]float32{0, 0}, 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	for i, n := range results {
		if n.Position != i {
			t.Errorf("tie broken unstably: result %d has position %d", i, n.Position)
		}
	}
}

func TestSearchClampsK(t *testing.T) {
	f, err := NewFlat([][]float32{{1}, {2}, {3}})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	results, err := f.Search([]float32{0}, 1000)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results with clamped k, got %d", len(results))
	}
}

func TestSearchQueryDimensionMismatch(t *testing.T) {
	f, _ := NewFlat([][]float32{{1, 2}})
	if _, err := f.Search([]float32{1}, 1); err == nil {
		t.Fatal("expected error for query dimension mismatch")
	}
}

func TestScoreMonotonicBounded(t *testing.T) {
	distances := []float32{0, 0.5, 1, 2, 100, 1e6}
	prev := math.Inf(1)
	for _, d := range distances {
		s := Score(d)
		if s <= 0 || s > 1 {
			t.Errorf("Score(%v) = %v out of (0,1]", d, s)
		}
		if s >= prev {
			t.Errorf("Score(%v) = %v not strictly decreasing", d, s)
		}
		prev = s
	}
	if Score(0) != 1 {
		t.Errorf("Score(0) = %v, want 1", Score(0))
	}
}
