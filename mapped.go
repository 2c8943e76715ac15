package subsetsum

import (
	"fmt"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
)

// The node-hash arrays scale with 2^hashBits and 2^hashedNumbers and can
// reach many GiB. They are backed by anonymous mappings so the pages are
// returned to the OS at release instead of lingering on the Go heap.

// mappedBuf owns one anonymous mapping.
type mappedBuf struct {
	m mmap.MMap
}

func (b *mappedBuf) release() error {
	if b == nil || b.m == nil {
		return nil
	}
	m := b.m
	b.m = nil
	return m.Unmap()
}

func mapAnon(size int) (mmap.MMap, error) {
	m, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("map %d bytes: %w", size, err)
	}
	return m, nil
}

func mapInt64s(n int) ([]int64, *mappedBuf, error) {
	if n == 0 {
		return nil, &mappedBuf{}, nil
	}
	m, err := mapAnon(8 * n)
	if err != nil {
		return nil, nil, err
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&m[0])), n), &mappedBuf{m: m}, nil
}

func mapUint32s(n int) ([]uint32, *mappedBuf, error) {
	if n == 0 {
		return nil, &mappedBuf{}, nil
	}
	m, err := mapAnon(4 * n)
	if err != nil {
		return nil, nil, err
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&m[0])), n), &mappedBuf{m: m}, nil
}

func mapHashEntries(n int) ([]NodeHashEntry, *mappedBuf, error) {
	if n == 0 {
		return nil, &mappedBuf{}, nil
	}
	var e NodeHashEntry
	m, err := mapAnon(int(unsafe.Sizeof(e)) * n)
	if err != nil {
		return nil, nil, err
	}
	return unsafe.Slice((*NodeHashEntry)(unsafe.Pointer(&m[0])), n), &mappedBuf{m: m}, nil
}
