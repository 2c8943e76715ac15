package subsetsum

import (
	"sort"
)

// minMaxStep is one level of the producer's pruning table: the interval the
// residual partial sum must fall into for any completion of the remaining
// outside elements to reach zero.
type minMaxStep struct {
	minValue Int128
	maxValue Int128
}

// numberEntry pairs an element with its original position through sorting.
type numberEntry struct {
	value Int128
	order int
}

// rangeForRegion returns the envelope of sums reachable by subsets of the
// region: minVal accumulates the negatives, maxVal the positives. A region
// without negatives takes the smallest element as minimum; one without
// positives takes the largest as maximum (the region is sorted).
func rangeForRegion(entries []numberEntry) (minVal, maxVal Int128) {
	for _, e := range entries {
		switch e.value.Sign() {
		case -1:
			minVal = minVal.Add(e.value)
		case 1:
			maxVal = maxVal.Add(e.value)
		}
	}
	if minVal.IsZero() {
		minVal = entries[0].value
	}
	if maxVal.IsZero() {
		maxVal = entries[len(entries)-1].value
	}
	return minVal, maxVal
}

// smallestRangeRegion slides a window of regionSize over the sorted entries
// and returns the position whose reachable-sum envelope is tightest, with
// both envelope ends maintained incrementally as elements enter and leave.
// Ties resolve to the lowest position.
func smallestRangeRegion(entries []numberEntry, regionSize int) int {
	var minVal, maxVal Int128
	for i := 0; i < regionSize; i++ {
		switch entries[i].value.Sign() {
		case -1:
			minVal = minVal.Add(entries[i].value)
		case 1:
			maxVal = maxVal.Add(entries[i].value)
		}
	}
	if minVal.IsZero() {
		minVal = entries[0].value
	}
	if maxVal.IsZero() {
		maxVal = entries[regionSize-1].value
	}

	bestRange := maxVal.Sub(minVal)
	bestPos := 0
	for pos := 1; pos <= len(entries)-regionSize; pos++ {
		leaving := entries[pos-1].value
		entering := entries[pos+regionSize-1].value

		if leaving.Sign() < 0 {
			minVal = minVal.Sub(leaving)
		}
		if minVal.Sign() >= 0 {
			minVal = entries[pos].value
		}

		if entering.Sign() > 0 {
			if maxVal.Sign() > 0 {
				maxVal = maxVal.Add(entering)
			}
		} else if minVal.Sign() < 0 {
			minVal = minVal.Add(entering)
		}

		if maxVal.Sign() < 0 {
			maxVal = entering
		} else if leaving.Sign() > 0 {
			maxVal = maxVal.Sub(leaving)
		}

		if r := maxVal.Sub(minVal); r.Cmp(bestRange) < 0 {
			bestPos = pos
			bestRange = r
		}
	}
	return bestPos
}

// mergeEnvelope folds one more element into a subset-sum envelope. An
// envelope [sum of negatives, sum of positives] contains every subset sum
// of its elements, the empty subset included.
func mergeEnvelope(minVal, maxVal, v Int128) (Int128, Int128) {
	if v.Sign() < 0 {
		return minVal.Add(v), maxVal
	}
	return minVal, maxVal.Add(v)
}

// orderNumberRanges performs the two-ended merge over the elements outside
// the node window [startLeft+1, startRight). At each step it takes the
// outside element whose inclusion grows the envelope of the still-undecided
// elements less, and records the negated envelope as that level's gate: at
// level k the residual of the decided elements must lie inside minMax[k]
// for any completion by the undecided ones to reach zero. The envelope
// always contains zero, so the empty completion is never gated out.
func orderNumberRanges(startLeft, startRight int, entries []numberEntry,
	dest []Int128, orders []int, minMax []minMaxStep) {

	left := startLeft
	right := startRight
	n := len(entries)

	// start from the node window: those elements stay undecided at every
	// producer level
	var minVal, maxVal Int128
	for _, e := range entries[startLeft+1 : startRight] {
		minVal, maxVal = mergeEnvelope(minVal, maxVal, e.value)
	}

	for destPos := 0; left >= 0 || right < n; destPos++ {
		// the range which must match for this level
		minMax[destPos] = minMaxStep{minValue: maxVal.Neg(), maxValue: minVal.Neg()}

		switch {
		case left >= 0 && right < n:
			lv := entries[left].value
			rv := entries[right].value

			newMin1, newMax1 := mergeEnvelope(minVal, maxVal, lv)
			newMin2, newMax2 := mergeEnvelope(minVal, maxVal, rv)

			range1 := newMax1.Sub(newMin1)
			range2 := newMax2.Sub(newMin2)
			if range1.Cmp(range2) < 0 {
				// choose left
				dest[destPos] = lv
				orders[destPos] = entries[left].order
				left--
				minVal, maxVal = newMin1, newMax1
			} else {
				dest[destPos] = rv
				orders[destPos] = entries[right].order
				right++
				minVal, maxVal = newMin2, newMax2
			}

		case left >= 0:
			lv := entries[left].value
			minVal, maxVal = mergeEnvelope(minVal, maxVal, lv)
			dest[destPos] = lv
			orders[destPos] = entries[left].order
			left--

		default: // right < n
			rv := entries[right].value
			minVal, maxVal = mergeEnvelope(minVal, maxVal, rv)
			dest[destPos] = rv
			orders[destPos] = entries[right].order
			right++
		}
	}
}

// searchPlan is the preprocessor output for the hash method: the reordered
// node and main regions, the translation tables back to the original
// numbering, the per-level gates and the 8-bit prefix fan-out table.
type searchPlan struct {
	hashBits      int
	hashedNumbers int
	nodeBits      int

	nodeProblem []Int128
	nodeTrans   []int
	mainProblem []Int128
	mainTrans   []int
	minMax      []minMaxStep

	// prefixSumChanges[c] is the low-64 sum of the node-region prefix
	// elements selected by the 8-bit assignment c.
	prefixSumChanges [256]int64
}

// simdPrefixBits is the width of the node-region prefix every worker fans
// out per packet.
const simdPrefixBits = 8

// newSearchPlan derives the hash-method decomposition. numbers must have
// more than smallProblemThreshold elements.
func newSearchPlan(numbers []Int128, hashBits, hashedNumbers int) *searchPlan {
	n := len(numbers)

	// defaulting: derive the missing parameter, or take the preset
	switch {
	case hashedNumbers == 0 && hashBits != 0:
		if hashBits >= 3 {
			hashedNumbers = hashBits - 2
		} else {
			hashedNumbers = 1
		}
	case hashedNumbers != 0 && hashBits == 0:
		if hashedNumbers+simdPrefixBits > n-1 {
			hashedNumbers = n - 10
		}
		hashBits = hashedNumbers + 2
	case hashedNumbers == 0 && hashBits == 0:
		hashBits = 20
		hashedNumbers = 18
	}
	// again fix hashedNumbers
	if hashedNumbers+simdPrefixBits > n-1 {
		hashedNumbers = n - 10
	}

	nodeBits := simdPrefixBits + hashedNumbers

	entries := make([]numberEntry, n)
	for i, v := range numbers {
		entries[i] = numberEntry{value: v, order: i}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].value.Cmp(entries[j].value) < 0
	})

	// choose the node window, then the hashed window inside it
	nodePos := smallestRangeRegion(entries, nodeBits)
	hashedPos := smallestRangeRegion(entries[nodePos:nodePos+nodeBits], hashedNumbers) + nodePos

	p := &searchPlan{
		hashBits:      hashBits,
		hashedNumbers: hashedNumbers,
		nodeBits:      nodeBits,
		nodeProblem:   make([]Int128, 0, nodeBits),
		nodeTrans:     make([]int, 0, nodeBits),
		mainProblem:   make([]Int128, n-nodeBits),
		mainTrans:     make([]int, n-nodeBits),
		minMax:        make([]minMaxStep, n-nodeBits),
	}

	// prefix and unhashed node slots first, the hashed window last
	for i := nodePos; i < hashedPos; i++ {
		p.nodeProblem = append(p.nodeProblem, entries[i].value)
		p.nodeTrans = append(p.nodeTrans, entries[i].order)
	}
	for i := hashedPos + hashedNumbers; i < nodePos+nodeBits; i++ {
		p.nodeProblem = append(p.nodeProblem, entries[i].value)
		p.nodeTrans = append(p.nodeTrans, entries[i].order)
	}
	for i := hashedPos; i < hashedPos+hashedNumbers; i++ {
		p.nodeProblem = append(p.nodeProblem, entries[i].value)
		p.nodeTrans = append(p.nodeTrans, entries[i].order)
	}

	for c := 0; c < 256; c++ {
		var sum int64
		for x := 0; x < simdPrefixBits; x++ {
			if c&(1<<x) != 0 {
				sum += p.nodeProblem[x].Int64()
			}
		}
		p.prefixSumChanges[c] = sum
	}

	orderNumberRanges(nodePos-1, nodePos+nodeBits, entries,
		p.mainProblem, p.mainTrans, p.minMax)

	return p
}

// translateSubset maps a bitmask in the reordered numbering (main region in
// the low bits, node region above) back to the original input numbering.
func (p *searchPlan) translateSubset(subset Int128, n int) Int128 {
	var out Int128
	mainCount := n - p.nodeBits
	for i := 0; i < mainCount; i++ {
		if subset.Bit(uint(i)) {
			out = out.SetBit(uint(p.mainTrans[i]))
		}
	}
	for i := 0; i < p.nodeBits; i++ {
		if subset.Bit(uint(mainCount + i)) {
			out = out.SetBit(uint(p.nodeTrans[i]))
		}
	}
	return out
}
