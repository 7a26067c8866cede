package embedding

import "sort"

// SparseVector is a weighted-term representation: only non-zero
// (index, weight) pairs are kept, as parallel arrays. Raw embedder
// output may contain duplicate indices when two terms hash to the
// same slot; Normalize produces the store-ready form.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// IsEmpty reports whether the vector carries no terms.
func (v SparseVector) IsEmpty() bool {
	return len(v.Indices) == 0
}

// Normalize merges duplicate indices by summing their weights and
// returns a vector whose indices are unique and strictly increasing.
func (v SparseVector) Normalize() SparseVector {
	if v.IsEmpty() {
		return SparseVector{}
	}

	merged := make(map[uint32]float32, len(v.Indices))
	for i, idx := range v.Indices {
		merged[idx] += v.Values[i]
	}

	indices := make([]uint32, 0, len(merged))
	for idx := range merged {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		values[i] = merged[idx]
	}
	return SparseVector{Indices: indices, Values: values}
}
