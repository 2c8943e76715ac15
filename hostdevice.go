package subsetsum

import (
	"fmt"

	intbits "github.com/tamirms/subsetsum/internal/bits"
)

// HostDevice is a process-local accelerator running the search kernels on
// the host CPU through the device pipeline. It serves two purposes: the
// "CPU compute device" selection of the CLI, and a reference device for
// exercising the double-buffered streaming and hash-grouping paths.
type HostDevice struct {
	name     string
	workSize int
	memory   uint64

	// naive state
	sumChanges [41]int64

	// hash state
	tables    DeviceHashTables
	groupBits int
	group     int
}

// NewHostDevice creates a host device. A zero workSize selects 4096; a zero
// memory reports an unbounded table budget.
func NewHostDevice(workSize int, memory uint64) *HostDevice {
	if workSize <= 0 {
		workSize = 4096
	}
	return &HostDevice{
		name:     "host",
		workSize: workSize,
		memory:   memory,
	}
}

func (d *HostDevice) Name() string       { return d.name }
func (d *HostDevice) WorkSize() int      { return d.workSize }
func (d *HostDevice) MemorySize() uint64 { return d.memory }

// InitNaive records the sum table. The host kernel is 64-bit already, so
// wide64 changes nothing.
func (d *HostDevice) InitNaive(sumChanges *[41]int64, wide64 bool) error {
	d.sumChanges = *sumChanges
	return nil
}

// RunNaive searches one batch with the scalar kernel and folds the found
// prefix indices into per-packet bitmasks.
func (d *HostDevice) RunNaive(sums []int64) ([]DeviceFound, error) {
	var out []DeviceFound
	var found [32]uint8
	for i, sum := range sums {
		n := subsetSumNaive(&d.sumChanges, sum, &found)
		if n == 0 {
			continue
		}
		var mask uint32
		for _, idx := range found[:n] {
			mask |= uint32(1) << idx
		}
		out = append(out, DeviceFound{WorkIndex: uint32(i), FoundBits: mask})
	}
	return out, nil
}

// InitHash snapshots the table references and the partitioning.
func (d *HostDevice) InitHash(tables DeviceHashTables, groupBits int) error {
	if tables.Lists == nil {
		return fmt.Errorf("host device: hash lists required")
	}
	d.tables = tables
	d.groupBits = groupBits
	d.group = 0
	return nil
}

// SelectGroup makes one hash partition current.
func (d *HostDevice) SelectGroup(group int) error {
	if group < 0 || group >= 1<<d.groupBits {
		return fmt.Errorf("host device: group %d out of range", group)
	}
	d.group = group
	return nil
}

// RunHash probes the 256 prefix candidates of every packet against the
// resident group's buckets.
func (d *HostDevice) RunHash(sums []int64) ([]DeviceFound, error) {
	t := d.tables
	var out []DeviceFound

	groupShift := t.HashBits - d.groupBits
	for i, inputSum := range sums {
		for current := 0; current < 256; current++ {
			sum := inputSum + t.SumChanges[current]
			hkey := intbits.FoldHash(sum, uint(t.HashBits))
			if d.groupBits != 0 && int(hkey>>groupShift) != d.group {
				continue // bucket lives in another partition
			}
			e := t.Entries[hkey]
			if e.Size == 0 {
				continue
			}
			bucket := t.Lists[e.Pos : e.Pos+uint32(e.Size)]
			for _, stored := range bucket {
				if stored == sum {
					out = append(out, DeviceFound{WorkIndex: uint32(i), FoundBits: uint32(current)})
					break
				}
			}
		}
	}
	return out, nil
}
