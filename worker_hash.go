package subsetsum

import (
	intbits "github.com/tamirms/subsetsum/internal/bits"
	"github.com/tamirms/subsetsum/internal/ring"
)

// hashWorkerSpan is the pop span a hash CPU worker recommends for the work
// queue.
const hashWorkerSpan = 16384

// probeLists fans the packet sum out over the 256 prefix assignments and
// scans each candidate's bucket against the stored 64-bit sums. Matching
// prefix indices are appended to found; the count is returned.
func probeLists(sumChanges *[256]int64, hashBits int, entries []NodeHashEntry,
	lists []int64, inputSum int64, found *[256]uint8) int {

	n := 0
	for current := 0; current < 256; current++ {
		sum := inputSum + sumChanges[current]
		hkey := intbits.FoldHash(sum, uint(hashBits))
		e := entries[hkey]
		if e.Size == 0 {
			continue
		}
		bucket := lists[e.Pos : e.Pos+uint32(e.Size)]
		for _, stored := range bucket {
			if stored == sum {
				found[n] = uint8(current)
				n++
				break
			}
		}
	}
	return n
}

// The probeSubsets variants reconstruct each stored sum from its subset
// index through the worker's 8-bit-chunk tables; one function per chunk
// count keeps the reconstruction free of inner-loop branching.

func probeSubsets8(sumChanges *[256]int64, subsum []int64, hashBits int,
	entries []NodeHashEntry, subsets []uint32, inputSum int64, found *[256]uint8) int {

	n := 0
	for current := 0; current < 256; current++ {
		sum := inputSum + sumChanges[current]
		hkey := intbits.FoldHash(sum, uint(hashBits))
		e := entries[hkey]
		if e.Size == 0 {
			continue
		}
		bucket := subsets[e.Pos : e.Pos+uint32(e.Size)]
		for _, hs := range bucket {
			if subsum[hs] == sum {
				found[n] = uint8(current)
				n++
				break
			}
		}
	}
	return n
}

func probeSubsets16(sumChanges *[256]int64, subsum []int64, hashBits int,
	entries []NodeHashEntry, subsets []uint32, inputSum int64, found *[256]uint8) int {

	n := 0
	for current := 0; current < 256; current++ {
		sum := inputSum + sumChanges[current]
		hkey := intbits.FoldHash(sum, uint(hashBits))
		e := entries[hkey]
		if e.Size == 0 {
			continue
		}
		bucket := subsets[e.Pos : e.Pos+uint32(e.Size)]
		for _, hs := range bucket {
			if subsum[hs&0xff]+subsum[256+(hs>>8)] == sum {
				found[n] = uint8(current)
				n++
				break
			}
		}
	}
	return n
}

func probeSubsets24(sumChanges *[256]int64, subsum []int64, hashBits int,
	entries []NodeHashEntry, subsets []uint32, inputSum int64, found *[256]uint8) int {

	n := 0
	for current := 0; current < 256; current++ {
		sum := inputSum + sumChanges[current]
		hkey := intbits.FoldHash(sum, uint(hashBits))
		e := entries[hkey]
		if e.Size == 0 {
			continue
		}
		bucket := subsets[e.Pos : e.Pos+uint32(e.Size)]
		for _, hs := range bucket {
			if subsum[hs&0xff]+subsum[256+((hs>>8)&0xff)]+subsum[512+(hs>>16)] == sum {
				found[n] = uint8(current)
				n++
				break
			}
		}
	}
	return n
}

func probeSubsets32(sumChanges *[256]int64, subsum []int64, hashBits int,
	entries []NodeHashEntry, subsets []uint32, inputSum int64, found *[256]uint8) int {

	n := 0
	for current := 0; current < 256; current++ {
		sum := inputSum + sumChanges[current]
		hkey := intbits.FoldHash(sum, uint(hashBits))
		e := entries[hkey]
		if e.Size == 0 {
			continue
		}
		bucket := subsets[e.Pos : e.Pos+uint32(e.Size)]
		for _, hs := range bucket {
			if subsum[hs&0xff]+subsum[256+((hs>>8)&0xff)]+
				subsum[512+((hs>>16)&0xff)]+subsum[768+(hs>>24)] == sum {
				found[n] = uint8(current)
				n++
				break
			}
		}
	}
	return n
}

// hashCPUWorker consumes packets and resolves the node region through the
// node hash.
type hashCPUWorker struct {
	ctrl *hashController
}

func (w *hashCPUWorker) run() error {
	if w.ctrl.problemSize() <= smallProblemThreshold {
		return nil
	}
	hc := w.ctrl
	popper := ring.NewDirectPop[NodeSubset](hc.queue, hashWorkerSpan)

	probe := w.probeFunc()

	var node NodeSubset
	var found [256]uint8
	nodesCount := uint64(0)
	for popper.Pop(&node) {
		foundNum := probe(node.Sum, &found)
		// check and send if match
		for i := 0; i < foundNum; i++ {
			hc.checkAndSendSolution(node.Subset, int(found[i]))
		}
		nodesCount++
		if nodesCount&0xfff == 0 {
			hc.updateProgress(nodesCount, node.Subset)
			nodesCount = 0
		}
	}
	hc.updateProgress(nodesCount, node.Subset)
	return popper.Finish()
}

// probeFunc binds the tables into the probe variant for this controller's
// storage mode and suffix width.
func (w *hashCPUWorker) probeFunc() func(int64, *[256]uint8) int {
	hc := w.ctrl
	sumChanges := &hc.plan.prefixSumChanges
	hashBits := hc.plan.hashBits
	entries := hc.nh.entries

	if !hc.useSubsets {
		lists := hc.nh.lists
		return func(sum int64, found *[256]uint8) int {
			return probeLists(sumChanges, hashBits, entries, lists, sum, found)
		}
	}

	subsum := hc.workerSubsum
	subsets := hc.nh.subsets
	switch m := hc.plan.hashedNumbers; {
	case m <= 8:
		return func(sum int64, found *[256]uint8) int {
			return probeSubsets8(sumChanges, subsum, hashBits, entries, subsets, sum, found)
		}
	case m <= 16:
		return func(sum int64, found *[256]uint8) int {
			return probeSubsets16(sumChanges, subsum, hashBits, entries, subsets, sum, found)
		}
	case m <= 24:
		return func(sum int64, found *[256]uint8) int {
			return probeSubsets24(sumChanges, subsum, hashBits, entries, subsets, sum, found)
		}
	default:
		return func(sum int64, found *[256]uint8) int {
			return probeSubsets32(sumChanges, subsum, hashBits, entries, subsets, sum, found)
		}
	}
}
