package subsetsum

import (
	"github.com/tamirms/subsetsum/internal/ring"
)

// naiveWorkerSpan is the pop span a naive CPU worker recommends for the
// work queue.
const naiveWorkerSpan = 8192

// naiveCPUWorker consumes packets and unrolls the node region through the
// scalar or paired kernel.
type naiveCPUWorker struct {
	ctrl   *naiveController
	kernel Kernel
}

func (w *naiveCPUWorker) run() error {
	if w.ctrl.problemSize() <= smallProblemThreshold {
		return nil
	}
	popper := ring.NewDirectPop[NodeSubset](w.ctrl.queue, naiveWorkerSpan)
	sumChanges := &w.ctrl.naiveSumChanges

	if w.kernel == KernelSSE2 || w.kernel == KernelSSE41 {
		err := w.runPaired(popper, sumChanges)
		if ferr := popper.Finish(); err == nil {
			err = ferr
		}
		return err
	}

	var node NodeSubset
	var found [32]uint8
	nodesCount := uint64(0)
	for popper.Pop(&node) {
		foundNum := subsetSumNaive(sumChanges, node.Sum, &found)
		// check and send if match
		for i := 0; i < foundNum; i++ {
			w.ctrl.checkAndSendSolution(node.Subset, int(found[i]))
		}
		nodesCount++
		if nodesCount&0xfff == 0 {
			w.ctrl.updateProgress(nodesCount, node.Subset)
			nodesCount = 0
		}
	}
	w.ctrl.updateProgress(nodesCount, node.Subset)
	return popper.Finish()
}

// runPaired feeds two packets per kernel pass; an odd tail runs with the
// second lane empty.
func (w *naiveCPUWorker) runPaired(popper *ring.DirectPop[NodeSubset], sumChanges *[41]int64) error {
	var node, node2 NodeSubset
	var found [64]uint8
	nodesCount := uint64(0)
	for popper.Pop(&node) {
		second := popper.Pop(&node2)
		sumB := int64(0)
		if second {
			sumB = node2.Sum
		}
		foundNum := subsetSumNaivePair(sumChanges, node.Sum, sumB, &found)
		// check and send if match
		for i := 0; i < foundNum; i++ {
			if found[i] < 32 {
				w.ctrl.checkAndSendSolution(node.Subset, int(found[i]))
			} else if second {
				w.ctrl.checkAndSendSolution(node2.Subset, int(found[i])-32)
			}
		}
		nodesCount++
		if second {
			nodesCount++
		}
		if nodesCount&0xffe == 0 {
			w.ctrl.updateProgress(nodesCount, node.Subset)
			nodesCount = 0
		}
	}
	w.ctrl.updateProgress(nodesCount, node.Subset)
	return nil
}
