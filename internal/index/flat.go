package index

import (
	"fmt"
	"sort"
)

// Flat is an exact nearest-neighbor index over float32 vectors using squared
// Euclidean (L2) distance. Per-document corpora are small (tens to low
// thousands of chunks), so exact search is preferred over approximate
// structures. The index is immutable after construction; rebuilding a
// document's index means constructing a new Flat.
type Flat struct {
	dim     int
	vectors [][]float32
}

// Neighbor is one search hit. Position is the vector's insertion index.
type Neighbor struct {
	Position int
	Distance float32
}

// NewFlat builds an index from the given vectors. All vectors must share one
// dimensionality; a mismatch is a construction error. An empty slice yields a
// valid empty index.
func NewFlat(vectors [][]float32) (*Flat, error) {
	f := &Flat{}
	if len(vectors) == 0 {
		return f, nil
	}

	f.dim = len(vectors[0])
	if f.dim == 0 {
		return nil, fmt.Errorf("vector 0 has zero dimension")
	}
	for i, v := range vectors {
		if len(v) != f.dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), f.dim)
		}
	}

	f.vectors = vectors
	return f, nil
}

// Size returns the number of indexed vectors.
func (f *Flat) Size() int {
	return len(f.vectors)
}

// Dimension returns the vector dimensionality, 0 for an empty index.
func (f *Flat) Dimension() int {
	return f.dim
}

// Search returns the k nearest vectors to query, ordered ascending by
// distance with ties broken by insertion order. k is clamped to the index
// size; an empty index returns an empty result rather than an error.
func (f *Flat) Search(query []float32, k int) ([]Neighbor, error) {
	if len(f.vectors) == 0 {
		return []Neighbor{}, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), f.dim)
	}
	if k > len(f.vectors) {
		k = len(f.vectors)
	}
	if k <= 0 {
		return []Neighbor{}, nil
	}

	neighbors := make([]Neighbor, len(f.vectors))
	for i, v := range f.vectors {
		neighbors[i] = Neighbor{Position: i, Distance: l2Squared(query, v)}
	}

	sort.SliceStable(neighbors, func(a, b int) bool {
		return neighbors[a].Distance < neighbors[b].Distance
	})

	return neighbors[:k], nil
}

// Score converts an L2 distance to a similarity score in (0,1], higher is
// more similar. Strictly decreasing in distance.
func Score(distance float32) float64 {
	return 1.0 / (1.0 + float64(distance))
}

func l2Squared(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
