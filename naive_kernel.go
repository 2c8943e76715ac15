package subsetsum

import "math/bits"

// The naive kernels unroll the 14-bit node region of one packet: 32 base
// sums (one per 5-bit prefix from the sum table) each walked through all
// 512 assignments of the 9-bit suffix. The walk visits the suffixes in
// counting order using nine precomputed deltas, so every step is a single
// add indexed by the trailing zeros of the step counter, and a zero at any
// step flags the prefix for exact verification.

// suffixDeltas derives the nine walk deltas from the raw suffix values in
// the 41-entry sum table: delta i toggles element i on and every lower
// element off.
func suffixDeltas(sumChanges *[41]int64) [9]int64 {
	var d [9]int64
	var running int64
	for i := 0; i < 9; i++ {
		d[i] = sumChanges[32+i] - running
		running += sumChanges[32+i]
	}
	return d
}

// subsetSumNaive is the scalar kernel: one packet, one accumulator.
// Prefixes with a witnessed zero are appended to found; the count is
// returned.
func subsetSumNaive(sumChanges *[41]int64, inputSum int64, found *[32]uint8) int {
	d := suffixDeltas(sumChanges)

	n := 0
	for current := 0; current < 32; current++ {
		sum := inputSum + sumChanges[current]
		find := sum == 0
		for step := uint32(1); step < 512; step++ {
			sum += d[bits.TrailingZeros32(step)]
			if sum == 0 {
				find = true
			}
		}
		if find {
			found[n] = uint8(current)
			n++
		}
	}
	return n
}

// subsetSumNaivePair is the two-lane kernel: two packets advance through
// the same delta schedule in lockstep, the shape the SSE2/SSE4.1 variants
// use with two 64-bit sums packed in one 128-bit lane. Indices below 32
// belong to the first packet, 32 and above to the second.
func subsetSumNaivePair(sumChanges *[41]int64, inputSumA, inputSumB int64, found *[64]uint8) int {
	d := suffixDeltas(sumChanges)

	n := 0
	for current := 0; current < 32; current++ {
		sumA := inputSumA + sumChanges[current]
		sumB := inputSumB + sumChanges[current]
		findA := sumA == 0
		findB := sumB == 0
		for step := uint32(1); step < 512; step++ {
			delta := d[bits.TrailingZeros32(step)]
			sumA += delta
			sumB += delta
			if sumA == 0 {
				findA = true
			}
			if sumB == 0 {
				findB = true
			}
		}
		if findA {
			found[n] = uint8(current)
			n++
		}
		if findB {
			found[n] = uint8(current + 32)
			n++
		}
	}
	return n
}
