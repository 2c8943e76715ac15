package subsetsum

import (
	"github.com/sirupsen/logrus"

	"github.com/tamirms/subsetsum/internal/ring"
)

// naiveNodeBits is the node-region width of the naive method: a 5-bit
// prefix fanned out through the sum table plus a 9-bit suffix walked in
// counting order.
const naiveNodeBits = 14

// naiveController drives the naive method: the producer enumerates the
// whole main region in counting order, workers unroll all 2^14 node
// assignments per packet.
type naiveController struct {
	controller

	// naiveSumChanges packs 32 sums of the 5-bit node prefix followed by
	// the 9 raw suffix deltas. It is distinct from the hash method's
	// 256-entry prefix table and never shared with it.
	naiveSumChanges [41]int64
}

func newNaiveController(problem Problem, totalWorkers int, log logrus.FieldLogger) *naiveController {
	nc := &naiveController{}
	nc.init(problem, totalWorkers, log)
	n := len(nc.numbers)
	if n <= smallProblemThreshold {
		return nc
	}
	nc.nodeBits = naiveNodeBits
	for i := 0; i < 32; i++ {
		var sum int64
		for x := 0; x < 5; x++ {
			if i&(1<<x) != 0 {
				sum += nc.numbers[n-14+x].Int64()
			}
		}
		nc.naiveSumChanges[i] = sum
	}
	for i := 0; i < 9; i++ {
		nc.naiveSumChanges[32+i] = nc.numbers[n-9+i].Int64()
	}
	return nc
}

func (nc *naiveController) initWorkQueue(elems int) {
	nc.queue = ring.New(nodeSubsetSize, elems*3, nc.totalWorkers*3, nc.totalWorkers*3)
	nc.log.WithFields(logrus.Fields{
		"elems":     nc.queue.Cap(),
		"concurOps": nc.totalWorkers * 3,
	}).Info("work queue initialized")
}

// generateWork enumerates the 2^(N-14) main-region assignments in counting
// order, maintaining the low-64 running sum by the toggled elements, and
// pushes one packet per assignment. The main region is the low N-14
// positions of the original ordering; the naive method does not reorder.
func (nc *naiveController) generateWork() error {
	if len(nc.numbers) <= smallProblemThreshold {
		// problem too small to divide into nodes
		nc.solveSmallProblem()
		nc.queue.Close()
		return nil
	}

	maxSubset := Int128{}.SetBit(uint(len(nc.numbers) - naiveNodeBits))
	pusher := ring.NewDirectPush[NodeSubset](nc.queue, 0)
	var sum int64
	var prevSubset Int128
	packets := 0
	for subset := (Int128{}); subset != maxSubset; subset = subset.AddInt64(1) {
		changes := prevSubset.Xor(subset)
		for bitNum := uint(0); bitNum < 128 && changes.Bit(bitNum); bitNum++ {
			if subset.Bit(bitNum) {
				sum += nc.numbers[bitNum].Int64()
			} else {
				sum -= nc.numbers[bitNum].Int64()
			}
		}
		prevSubset = subset
		if !pusher.Push(NodeSubset{Sum: sum, Subset: subset}) {
			break // cancelled
		}
		packets++
	}
	packetsProduced.Add(float64(packets))
	err := pusher.Finish()
	nc.queue.Close()
	return err
}

// checkAndSendSolution verifies a kernel hit in 128-bit arithmetic. The
// kernel witnessed some 9-bit suffix of the packet reaching a zero low-64
// sum; all 512 suffixes are retried exactly and every true zero with a
// non-empty bitmap is emitted.
func (nc *naiveController) checkAndSendSolution(initialSubset Int128, foundIndex int) {
	n := len(nc.numbers)

	// reconstruct the exact main-region sum from the bitmap
	var findIndexSum Int128
	for i := 0; i < n-naiveNodeBits; i++ {
		if initialSubset.Bit(uint(i)) {
			findIndexSum = findIndexSum.Add(nc.numbers[i])
		}
	}
	for x := 0; x < 5; x++ {
		if foundIndex&(1<<x) != 0 {
			findIndexSum = findIndexSum.Add(nc.numbers[n-14+x])
		}
	}

	prevSubset := 0
	sum := findIndexSum
	for subset := 0; subset < 512; subset++ {
		changes := prevSubset ^ subset
		for bitNum, bit := 0, 1; changes&bit != 0 && bitNum < 9; bitNum, bit = bitNum+1, bit<<1 {
			if subset&bit != 0 {
				sum = sum.Add(nc.numbers[n-9+bitNum])
			} else {
				sum = sum.Sub(nc.numbers[n-9+bitNum])
			}
		}
		prevSubset = subset
		finalSubset := initialSubset.
			Or(Int128{Lo: uint64(subset)}.Lsh(uint(n - 9))).
			Or(Int128{Lo: uint64(foundIndex)}.Lsh(uint(n - 14)))
		if sum.IsZero() && !finalSubset.IsZero() {
			nc.putSolution(finalSubset)
		}
	}
}
