package subsetsum

import (
	"github.com/sirupsen/logrus"

	intbits "github.com/tamirms/subsetsum/internal/bits"
	"github.com/tamirms/subsetsum/internal/ring"
)

// hashController drives the hash method: the preprocessor reorders the
// problem around the tightest node window, the producer prunes the main
// enumeration through the per-level gates, and workers resolve the node
// region through the node hash.
type hashController struct {
	controller

	useSubsets bool
	plan       *searchPlan
	nh         *nodeHash

	// workerSubsum reconstructs stored suffix sums from subset indices in
	// 8-bit chunks (256 entries per chunk). Built only in subset-storage
	// mode; the builder's 9-bit tables stay with the builder.
	workerSubsum []int64
}

func newHashController(problem Problem, totalWorkers, hashBits, hashedNumbers int,
	useSubsets bool, log logrus.FieldLogger) *hashController {

	hc := &hashController{useSubsets: useSubsets}
	hc.init(problem, totalWorkers, log)
	if len(hc.numbers) <= smallProblemThreshold {
		return hc
	}

	hc.plan = newSearchPlan(hc.numbers, hashBits, hashedNumbers)
	hc.nodeBits = hc.plan.nodeBits
	log.WithFields(logrus.Fields{
		"hashBits":   hc.plan.hashBits,
		"hashedNums": hc.plan.hashedNumbers,
	}).Info("node hash geometry")

	if useSubsets {
		hc.genWorkerSubsum()
	}
	return hc
}

// genWorkerSubsum builds the worker-side 8-bit-chunk tables over the hashed
// suffix, negated the same way as the builder's tables.
func (hc *hashController) genWorkerSubsum() {
	m := hc.plan.hashedNumbers
	chunks := (m + 7) >> 3
	hc.workerSubsum = make([]int64, chunks*256)

	for t := 0; t < chunks; t++ {
		numberPos := t * 8
		width := min(8, m-numberPos)
		size := 1 << width

		prevSubset := 0
		var sum int64
		for subset := 0; subset < size; subset++ {
			changes := prevSubset ^ subset
			for bitNum, bit := 0, 1; changes&bit != 0 && bitNum < width; bitNum, bit = bitNum+1, bit<<1 {
				if subset&bit != 0 {
					sum -= hc.plan.nodeProblem[simdPrefixBits+numberPos+bitNum].Int64()
				} else {
					sum += hc.plan.nodeProblem[simdPrefixBits+numberPos+bitNum].Int64()
				}
			}
			prevSubset = subset
			hc.workerSubsum[256*t+subset] = sum
		}
	}
}

// generateNodeHash builds the reverse index with the given thread count.
func (hc *hashController) generateNodeHash(threads int) error {
	if len(hc.numbers) <= smallProblemThreshold {
		return nil
	}
	suffix := make([]int64, hc.plan.hashedNumbers)
	for i := range suffix {
		suffix[i] = hc.plan.nodeProblem[simdPrefixBits+i].Int64()
	}
	nh, err := buildNodeHash(threads, hc.plan.hashedNumbers, hc.plan.hashBits,
		suffix, hc.useSubsets, hc.log)
	if err != nil {
		return err
	}
	hc.nh = nh
	return nil
}

func (hc *hashController) release() {
	if hc.nh != nil {
		hc.nh.release()
	}
}

func (hc *hashController) initWorkQueue(elems int) {
	hc.queue = ring.New(nodeSubsetSize, elems*3, hc.totalWorkers*10, hc.totalWorkers*10)
	hc.log.WithFields(logrus.Fields{
		"elems":     hc.queue.Cap(),
		"concurOps": hc.totalWorkers * 10,
	}).Info("work queue initialized")
}

// generateWork walks the main region depth-first, descending only while the
// running sum stays inside the level gate. Reaching level -1 emits a
// packet; backtracking toggles out the lowest run of set bits. Whole
// subtrees whose residual cannot be completed are never entered.
func (hc *hashController) generateWork() error {
	if len(hc.numbers) <= smallProblemThreshold {
		// problem too small to divide into nodes
		hc.solveSmallProblem()
		hc.queue.Close()
		return nil
	}

	mainCount := len(hc.numbers) - hc.nodeBits
	pusher := ring.NewDirectPush[NodeSubset](hc.queue, 0)
	packets := 0

	rangeIndex := mainCount - 1
	var subset, sum Int128
	for {
		for rangeIndex >= 0 &&
			sum.Cmp(hc.plan.minMax[rangeIndex].minValue) >= 0 &&
			sum.Cmp(hc.plan.minMax[rangeIndex].maxValue) <= 0 {
			rangeIndex--
		}

		if rangeIndex == -1 {
			if !pusher.Push(NodeSubset{Sum: sum.Int64(), Subset: subset}) {
				break // cancelled
			}
			packets++
			rangeIndex++
		}

		for rangeIndex < mainCount && subset.Bit(uint(rangeIndex)) {
			subset = subset.ClearBit(uint(rangeIndex))
			sum = sum.Sub(hc.plan.mainProblem[rangeIndex])
			rangeIndex++
		}
		if rangeIndex >= mainCount {
			break
		}
		subset = subset.SetBit(uint(rangeIndex))
		sum = sum.Add(hc.plan.mainProblem[rangeIndex])
	}

	packetsProduced.Add(float64(packets))
	err := pusher.Finish()
	hc.queue.Close()
	return err
}

// checkAndSendSolution verifies a probe hit in 128-bit arithmetic: the
// packet's exact main sum is reconstructed from the bitmap, the prefix
// elements of foundIndex are added, and every hashed-suffix subset in the
// matching bucket is retried. True zeros with a non-empty combined bitmap
// are translated to the original numbering and emitted.
func (hc *hashController) checkAndSendSolution(initialSubset Int128, foundIndex int) {
	n := len(hc.numbers)
	m := hc.plan.hashedNumbers
	mainCount := n - hc.nodeBits

	var indexSum Int128
	for i := 0; i < mainCount; i++ {
		if initialSubset.Bit(uint(i)) {
			indexSum = indexSum.Add(hc.plan.mainProblem[i])
		}
	}
	for x := 0; x < simdPrefixBits; x++ {
		if foundIndex&(1<<x) != 0 {
			indexSum = indexSum.Add(hc.plan.nodeProblem[x])
		}
	}

	hkey := intbits.FoldHash(indexSum.Int64(), uint(hc.plan.hashBits))
	entry := hc.nh.entries[hkey]
	if entry.Size == 0 {
		return
	}
	bucket := hc.nh.subsets[entry.Pos : entry.Pos+uint32(entry.Size)]
	for _, hashedSubset := range bucket {
		sum := indexSum
		for k := 0; k < m; k++ {
			if hashedSubset&(uint32(1)<<k) != 0 {
				sum = sum.Add(hc.plan.nodeProblem[simdPrefixBits+k])
			}
		}
		if !sum.IsZero() {
			continue
		}
		finalSolution := initialSubset.
			Or(Int128{Lo: uint64(foundIndex)}.Lsh(uint(mainCount))).
			Or(Int128{Lo: uint64(hashedSubset)}.Lsh(uint(n - m)))
		if !finalSolution.IsZero() {
			hc.putSolution(hc.plan.translateSubset(finalSolution, n))
		}
	}
}
