// Package vecindex provides an exact nearest-neighbour index over dense
// float32 vectors using squared Euclidean distance.
package vecindex

import (
	"fmt"
	"sort"
)

// Match is a single search result. Ref is the insertion position of the
// matched vector.
type Match struct {
	Ref      int
	Distance float32
}

// Flat is an immutable brute-force index. A nil *Flat behaves as an empty
// index. It is safe for concurrent queries.
type Flat struct {
	dim     int
	vectors [][]float32
}

// Build copies vectors into a new index. All vectors must share one
// dimension. Building from zero vectors yields an empty index.
func Build(vectors [][]float32) (*Flat, error) {
	if len(vectors) == 0 {
		return &Flat{}, nil
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("vecindex: zero-dimension vector")
	}
	cp := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vecindex: vector %d has dimension %d, want %d", i, len(v), dim)
		}
		cp[i] = append([]float32(nil), v...)
	}
	return &Flat{dim: dim, vectors: cp}, nil
}

func (f *Flat) Len() int {
	if f == nil {
		return 0
	}
	return len(f.vectors)
}

func (f *Flat) Dimension() int {
	if f == nil {
		return 0
	}
	return f.dim
}

// Query returns the min(k, Len) closest vectors ordered by ascending
// distance, ties broken by insertion order.
func (f *Flat) Query(query []float32, k int) ([]Match, error) {
	if f.Len() == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("vecindex: query has dimension %d, want %d", len(query), f.dim)
	}

	results := make([]Match, len(f.vectors))
	for i, v := range f.vectors {
		results[i] = Match{Ref: i, Distance: SquaredL2(query, v)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// SquaredL2 returns the squared Euclidean distance between equal-length
// vectors.
func SquaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}
