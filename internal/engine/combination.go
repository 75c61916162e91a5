package engine

import "sort"

// boundSlack keeps rounding in the suffix sums from pruning a subtree that
// holds a strictly better subset.
const boundSlack = 1e-6

// candidate is a subset of the sorted pool together with its unused capacity.
type candidate struct {
	lengths   []float64
	remaining float64
}

// combinationSearch holds the fixed inputs of one bounded backtracking run.
type combinationSearch struct {
	lengths   []float64 // Sorted descending
	suffix    []float64 // suffix[i] = sum of lengths[i:] plus one kerf each
	capacity  float64
	kerf      float64
	minOffcut float64
}

// SelectBarContents picks the subset of pool that leaves the least unused
// capacity on a single bar. Each chosen length costs its own length plus one
// kerf, and a length is only added while consumed+length+kerf <= capacity.
//
// Lengths are tried largest first, include before exclude. The first subset
// reaching a given remainder wins, so the result is deterministic for a given
// multiset of lengths. A branch stops extending once its remainder drops
// below minOffcut. An empty result means no single length fits.
func SelectBarContents(pool []float64, capacity, kerf, minOffcut float64) []float64 {
	if len(pool) == 0 {
		return nil
	}

	lengths := append([]float64(nil), pool...)
	sort.Sort(sort.Reverse(sort.Float64Slice(lengths)))

	suffix := make([]float64, len(lengths)+1)
	for i := len(lengths) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + lengths[i] + kerf
	}

	s := combinationSearch{
		lengths:   lengths,
		suffix:    suffix,
		capacity:  capacity,
		kerf:      kerf,
		minOffcut: minOffcut,
	}
	best := s.visit(0, make([]float64, 0, len(lengths)), 0, candidate{remaining: capacity})
	return best.lengths
}

// visit explores the subtree rooted at index with the given partial subset and
// returns the best candidate known after it, starting from best.
func (s *combinationSearch) visit(index int, current []float64, consumed float64, best candidate) candidate {
	remaining := s.capacity - consumed
	if len(current) > 0 && remaining < best.remaining {
		best = candidate{
			lengths:   append([]float64(nil), current...),
			remaining: remaining,
		}
	}

	if index == len(s.lengths) || remaining < s.minOffcut {
		return best
	}

	// Nothing beats an exact fit, and even taking every remaining length
	// cannot beat the best remainder.
	if best.remaining <= 0 || remaining-s.suffix[index] >= best.remaining+boundSlack {
		return best
	}

	length := s.lengths[index]
	if consumed+length+s.kerf <= s.capacity {
		best = s.visit(index+1, append(current, length), consumed+(length+s.kerf), best)
	}

	// Skipping a length also skips its duplicates: a subset using a later copy
	// instead was already visited through the earlier one.
	next := index + 1
	for next < len(s.lengths) && s.lengths[next] == length {
		next++
	}
	return s.visit(next, current, consumed, best)
}
