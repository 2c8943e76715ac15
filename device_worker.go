package subsetsum

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/sirupsen/logrus"

	sserrors "github.com/tamirms/subsetsum/errors"
	"github.com/tamirms/subsetsum/internal/ring"
)

// deviceBatch is one lane of the double-buffered pipeline: the packets and
// the sums column extracted for the kernel.
type deviceBatch struct {
	nodes []NodeSubset
	sums  []int64
	n     int
}

func newDeviceBatch(workSize int) *deviceBatch {
	return &deviceBatch{
		nodes: make([]NodeSubset, workSize),
		sums:  make([]int64, workSize),
	}
}

// fill pops up to workSize packets into the batch. Zero means the queue
// drained.
func (b *deviceBatch) fill(popper *ring.DirectPop[NodeSubset]) {
	b.n = 0
	for b.n < len(b.nodes) {
		if !popper.Pop(&b.nodes[b.n]) {
			break
		}
		b.sums[b.n] = b.nodes[b.n].Sum
		b.n++
	}
}

// kernelResult carries one asynchronous kernel completion.
type kernelResult struct {
	founds []DeviceFound
	err    error
}

// runNaiveDevice drives one naive device: while a kernel runs on one lane,
// the other lane refills from the ring, so transfer and compute overlap.
func runNaiveDevice(nc *naiveController, dev NaiveDevice, wide64 bool, log logrus.FieldLogger) error {
	if nc.problemSize() <= smallProblemThreshold {
		return nil
	}
	if err := dev.InitNaive(&nc.naiveSumChanges, wide64); err != nil {
		return fmt.Errorf("device %s: %w", dev.Name(), err)
	}
	workSize := dev.WorkSize()
	log.WithFields(logrus.Fields{"device": dev.Name(), "workSize": workSize}).
		Info("naive device worker started")

	popper := ring.NewDirectPop[NodeSubset](nc.queue, workSize)
	lanes := [2]*deviceBatch{newDeviceBatch(workSize), newDeviceBatch(workSize)}

	var inflight chan kernelResult
	var inflightLane *deviceBatch
	next := 0
	for {
		lane := lanes[next]
		next ^= 1
		lane.fill(popper)

		if inflight != nil {
			r := <-inflight
			if r.err != nil {
				popper.Finish()
				return fmt.Errorf("device %s: %w", dev.Name(), r.err)
			}
			processNaiveFounds(nc, inflightLane, r.founds)
		}
		inflight = nil

		if lane.n == 0 {
			break
		}
		ch := make(chan kernelResult, 1)
		go func(b *deviceBatch) {
			founds, err := dev.RunNaive(b.sums[:b.n])
			ch <- kernelResult{founds: founds, err: err}
		}(lane)
		inflight = ch
		inflightLane = lane
	}
	return popper.Finish()
}

func processNaiveFounds(nc *naiveController, b *deviceBatch, founds []DeviceFound) {
	for _, f := range founds {
		if f.WorkIndex >= uint32(b.n) || f.FoundBits == 0 {
			continue
		}
		node := b.nodes[f.WorkIndex]
		for j := 0; j < 32; j++ {
			if f.FoundBits&(uint32(1)<<j) != 0 {
				nc.checkAndSendSolution(node.Subset, j)
			}
		}
	}
	nc.updateProgress(uint64(b.n), b.nodes[b.n-1].Subset)
}

// runHashDevice drives one hash device. When the tables exceed the device
// memory budget and grouping is enabled, the node hash is partitioned by
// the top group bits of the bucket key and each batch runs once per group
// with the group's sub-tables made resident in between.
func runHashDevice(hc *hashController, dev HashDevice, grouping bool, log logrus.FieldLogger) error {
	if hc.problemSize() <= smallProblemThreshold {
		return nil
	}
	if hc.useSubsets {
		return fmt.Errorf("device %s: subset-storage mode has no device kernel", dev.Name())
	}

	groupBits, err := hashGroupBits(hc, dev, grouping)
	if err != nil {
		return fmt.Errorf("device %s: %w", dev.Name(), err)
	}
	tables := DeviceHashTables{
		HashBits:   hc.plan.hashBits,
		SumChanges: &hc.plan.prefixSumChanges,
		Entries:    hc.nh.entries,
		Lists:      hc.nh.lists,
	}
	if err := dev.InitHash(tables, groupBits); err != nil {
		return fmt.Errorf("device %s: %w", dev.Name(), err)
	}
	groups := 1 << groupBits
	workSize := dev.WorkSize()
	log.WithFields(logrus.Fields{
		"device": dev.Name(), "workSize": workSize, "groups": groups,
	}).Info("hash device worker started")

	popper := ring.NewDirectPop[NodeSubset](hc.queue, workSize)
	lanes := [2]*deviceBatch{newDeviceBatch(workSize), newDeviceBatch(workSize)}

	runGroups := func(b *deviceBatch, ch chan kernelResult) {
		var all []DeviceFound
		for g := 0; g < groups; g++ {
			if err := dev.SelectGroup(g); err != nil {
				ch <- kernelResult{err: err}
				return
			}
			founds, err := dev.RunHash(b.sums[:b.n])
			if err != nil {
				ch <- kernelResult{err: err}
				return
			}
			all = append(all, founds...)
		}
		ch <- kernelResult{founds: all}
	}

	var inflight chan kernelResult
	var inflightLane *deviceBatch
	next := 0
	for {
		lane := lanes[next]
		next ^= 1
		lane.fill(popper)

		if inflight != nil {
			r := <-inflight
			if r.err != nil {
				popper.Finish()
				return fmt.Errorf("device %s: %w", dev.Name(), r.err)
			}
			processHashFounds(hc, inflightLane, r.founds)
		}
		inflight = nil

		if lane.n == 0 {
			break
		}
		ch := make(chan kernelResult, 1)
		go runGroups(lane, ch)
		inflight = ch
		inflightLane = lane
	}
	return popper.Finish()
}

func processHashFounds(hc *hashController, b *deviceBatch, founds []DeviceFound) {
	for _, f := range founds {
		if f.WorkIndex >= uint32(b.n) {
			continue
		}
		hc.checkAndSendSolution(b.nodes[f.WorkIndex].Subset, int(f.FoundBits))
	}
	hc.updateProgress(uint64(b.n), b.nodes[b.n-1].Subset)
}

// hashGroupBits sizes the hash partitioning for a device: zero when the
// tables fit the budget, otherwise the smallest power-of-two split that
// does. Without grouping an oversized table is a hard error.
func hashGroupBits(hc *hashController, dev HashDevice, grouping bool) (int, error) {
	var e NodeHashEntry
	tableBytes := (uint64(1) << hc.plan.hashBits) * uint64(unsafe.Sizeof(e))
	listBytes := uint64(len(hc.nh.lists)) * 8
	need := tableBytes + listBytes
	budget := dev.MemorySize()
	if budget == 0 || need <= budget {
		return 0, nil
	}
	if !grouping {
		return 0, sserrors.ErrDeviceMemory
	}
	g := bits.Len64((need - 1) / budget)
	if g >= hc.plan.hashBits {
		return 0, sserrors.ErrDeviceMemory
	}
	return g, nil
}
