// Package stats holds the pure measurement functions applied to accumulated
// per-agent arrays each step: a rank-weighted concentration index, a binned
// mutual information estimate, and top-share helpers. All functions are
// stateless and side-effect free.
package stats

import (
	"math"
	"sort"
)

// Concentration returns a Gini-style inequality index over a non-negative
// sequence: 0 for perfect equality, approaching 1 as a single entry holds
// everything. An empty sequence or a non-positive total is defined as 0 —
// "no data yet" reads as "no inequality" rather than as undefined.
func Concentration(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var total, weighted float64
	for i, v := range sorted {
		total += v
		weighted += float64(i+1) * v
	}
	if total <= 0 {
		return 0
	}

	fn := float64(n)
	return (2*weighted)/(fn*total) - (fn+1)/fn
}

// MutualInfo estimates I(effort; rewarded) in bits by partitioning [0,1) into
// equal-width effort bins, with the top edge clamped into the last bin.
//
// This is a population plug-in estimate, not a sample-corrected estimator: it
// is biased upward for small n, and that bias is part of the documented
// behavior. Zero-probability terms contribute 0 by the 0·log(0) convention.
// No samples, or bins < 1, yields 0.
func MutualInfo(effort []float64, rewarded []bool, bins int) float64 {
	n := len(effort)
	if n == 0 || bins < 1 {
		return 0
	}

	binTotal := make([]float64, bins)
	binHits := make([]float64, bins)
	rewardedCount := 0.0
	for i, e := range effort {
		b := int(e * float64(bins))
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		binTotal[b]++
		if rewarded[i] {
			binHits[b]++
			rewardedCount++
		}
	}

	fn := float64(n)
	marginal := [2]float64{1 - rewardedCount/fn, rewardedCount / fn}

	info := 0.0
	for b := 0; b < bins; b++ {
		if binTotal[b] == 0 {
			continue
		}
		pBin := binTotal[b] / fn
		conditional := [2]float64{
			(binTotal[b] - binHits[b]) / binTotal[b],
			binHits[b] / binTotal[b],
		}
		for r := 0; r < 2; r++ {
			if conditional[r] <= 0 || marginal[r] <= 0 {
				continue
			}
			info += pBin * conditional[r] * math.Log(conditional[r]/marginal[r])
		}
	}

	return info / math.Ln2
}

// TopShare returns the fraction of the total held by the k largest entries.
// k is clamped to [0, len(values)]; an empty or non-positive distribution
// yields 0.
func TopShare(values []float64, k int) float64 {
	n := len(values)
	if n == 0 || k <= 0 {
		return 0
	}
	if k > n {
		k = n
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	var total, top float64
	for i, v := range sorted {
		total += v
		if i < k {
			top += v
		}
	}
	if total <= 0 {
		return 0
	}
	return top / total
}

// TopDecileShare returns the share held by the top 10% of entries, always
// counting at least one entry.
func TopDecileShare(values []float64) float64 {
	k := len(values) / 10
	if k < 1 {
		k = 1
	}
	return TopShare(values, k)
}
