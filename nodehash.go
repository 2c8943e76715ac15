package subsetsum

import (
	"math"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	sserrors "github.com/tamirms/subsetsum/errors"
	intbits "github.com/tamirms/subsetsum/internal/bits"
)

// NodeHashEntry is one bucket head: Pos indexes the linearised
// lists/subsets arrays, Size is the bucket length. A bucket longer than
// 65535 cannot be represented and fails the build.
type NodeHashEntry struct {
	Pos  uint32
	Size uint16
}

// subsumChunkBits is the chunk width of the builder's partial-sum tables:
// 9 bits keeps the top chunk at most 512 entries for hashedNumbers <= 36.
const subsumChunkBits = 9

// nodeHash is the reverse index over the hashed suffix: for any 64-bit
// residual, the bucket at its folded key lists every suffix assignment
// achieving it. Residuals are stored negated, so a worker-side candidate
// equal to a stored value means the combined low-64 sum is zero.
type nodeHash struct {
	hashBits      int
	hashedNumbers int
	useSubsets    bool

	entries []NodeHashEntry
	lists   []int64  // nil when useSubsets
	subsets []uint32

	subsumTbls []int64 // 512 entries per 9-bit chunk of the suffix

	maps     []*mappedBuf
	checksum uint64
}

// release unmaps the backing arrays.
func (h *nodeHash) release() {
	for _, m := range h.maps {
		_ = m.release()
	}
	h.entries, h.lists, h.subsets = nil, nil, nil
}

// residual computes the negated suffix sum of a hashed-suffix assignment
// from the chunk tables.
func (h *nodeHash) residual(subset uint32) int64 {
	t := h.subsumTbls
	switch {
	case h.hashedNumbers <= 9:
		return t[subset]
	case h.hashedNumbers <= 18:
		return t[subset&0x1ff] + t[512+(subset>>9)]
	case h.hashedNumbers <= 27:
		return t[subset&0x1ff] + t[512+((subset>>9)&0x1ff)] + t[1024+(subset>>18)]
	default:
		return t[subset&0x1ff] + t[512+((subset>>9)&0x1ff)] +
			t[1024+((subset>>18)&0x1ff)] + t[1536+(subset>>27)]
	}
}

// key folds a 64-bit sum into the table index.
func (h *nodeHash) key(sum int64) uint32 {
	return intbits.FoldHash(sum, uint(h.hashBits))
}

// tempHashEntry is a scratch linked-list node used during scatter.
type tempHashEntry struct {
	subset uint32
	next   uint32
}

const tempListNil = math.MaxUint32

// scatterBlockSize is the scratch allocation unit claimed by parallel
// scatter workers.
const scatterBlockSize = 4096

// hashBlockInfo records one hash-block's slot count and its final offset in
// the linearised layout.
type hashBlockInfo struct {
	Pos  uint32
	Size uint32
}

// buildNodeHash constructs the reverse index over the hashed suffix.
// nodeProblem holds the low-64 values of the suffix elements. The build is
// serial below twenty hashed numbers or with one thread, three-phase
// parallel otherwise.
func buildNodeHash(threads, hashedNumbers, hashBits int, nodeProblem []int64,
	useSubsets bool, log logrus.FieldLogger) (*nodeHash, error) {

	h := &nodeHash{
		hashBits:      hashBits,
		hashedNumbers: hashedNumbers,
		useSubsets:    useSubsets,
	}
	h.genSubsumTbls(nodeProblem)

	var err error
	if threads == 1 || hashedNumbers < 20 {
		err = h.buildSerial()
	} else {
		log.WithField("threads", threads).Info("using parallel node hash build")
		err = h.buildParallel(threads)
	}
	if err != nil {
		h.release()
		return nil, err
	}

	h.checksum = h.layoutChecksum()
	log.WithFields(logrus.Fields{
		"hashBits":   hashBits,
		"hashedNums": hashedNumbers,
		"checksum":   h.checksum,
	}).Info("node hash built")
	return h, nil
}

// genSubsumTbls builds the per-chunk partial-sum tables by a sweep in
// counting order: each entry is derived from its predecessor by subtracting
// or adding the suffix elements the increment toggles, which is several
// elements whenever the increment carries, not a single-element step.
// Sums are negated so matching a candidate means the totals cancel.
func (h *nodeHash) genSubsumTbls(nodeProblem []int64) {
	chunks := (h.hashedNumbers + subsumChunkBits - 1) / subsumChunkBits
	h.subsumTbls = make([]int64, chunks*512)

	for t := 0; t < chunks; t++ {
		numberPos := t * subsumChunkBits
		width := min(subsumChunkBits, h.hashedNumbers-numberPos)
		size := uint32(1) << width

		prevSubset := uint32(0)
		var sum int64
		for subset := uint32(0); subset < size; subset++ {
			changes := prevSubset ^ subset
			for bitNum, bit := 0, uint32(1); changes&bit != 0 && bitNum < width; bitNum, bit = bitNum+1, bit<<1 {
				if subset&bit != 0 {
					sum -= nodeProblem[numberPos+bitNum]
				} else {
					sum += nodeProblem[numberPos+bitNum]
				}
			}
			prevSubset = subset
			h.subsumTbls[512*t+int(subset)] = sum
		}
	}
}

// chainSubset appends subset to its bucket's scratch chain at slot listPos.
func chainSubset(entries []NodeHashEntry, tmp []tempHashEntry, hkey, subset, listPos uint32) error {
	e := &entries[hkey]
	if e.Size == 0 {
		e.Pos = listPos
		e.Size = 1
		tmp[listPos] = tempHashEntry{subset: subset, next: tempListNil}
		return nil
	}
	if e.Size == math.MaxUint16 {
		return sserrors.ErrHashBucketOverflow
	}
	next := e.Pos
	e.Size++
	e.Pos = listPos
	tmp[listPos] = tempHashEntry{subset: subset, next: next}
	return nil
}

// linearizeBucket drains one bucket's scratch chain in reverse, restoring
// insertion order, and repoints the bucket at its final slot range.
func linearizeBucket(e *NodeHashEntry, tmp []tempHashEntry, subsets []uint32, listPos uint32) uint32 {
	current := e.Pos
	for k := int(e.Size) - 1; k >= 0; k-- {
		subsets[listPos+uint32(k)] = tmp[current].subset
		current = tmp[current].next
	}
	e.Pos = listPos
	return listPos + uint32(e.Size)
}

func (h *nodeHash) buildSerial() error {
	hashedSubsets := uint32(1) << h.hashedNumbers
	nodeHashSize := 1 << h.hashBits

	entries, entriesMap, err := mapHashEntries(nodeHashSize)
	if err != nil {
		return err
	}
	h.entries = entries
	h.maps = append(h.maps, entriesMap)

	tmp := make([]tempHashEntry, hashedSubsets)
	listPos := uint32(0)
	for subset := uint32(0); subset < hashedSubsets; subset++ {
		sum := h.residual(subset)
		if err := chainSubset(entries, tmp, h.key(sum), subset, listPos); err != nil {
			return err
		}
		listPos++
	}

	subsets, subsetsMap, err := mapUint32s(int(hashedSubsets))
	if err != nil {
		return err
	}
	h.subsets = subsets
	h.maps = append(h.maps, subsetsMap)

	listPos = 0
	for i := range entries {
		if entries[i].Size == 0 {
			continue
		}
		listPos = linearizeBucket(&entries[i], tmp, subsets, listPos)
	}

	if h.useSubsets {
		return nil // subset indices are the payload; no value fill
	}

	lists, listsMap, err := mapInt64s(int(hashedSubsets))
	if err != nil {
		return err
	}
	h.lists = lists
	h.maps = append(h.maps, listsMap)
	for i, subset := range subsets {
		lists[i] = h.residual(subset)
	}
	return nil
}

// buildParallel runs the three-phase build: scatter into per-worker scratch
// blocks sharded by the top hash bit, compact hash-blocks into the final
// layout, then fill values. Each errgroup.Wait is the phase barrier; the
// coordinator prefix-sums the layout between scatter and compact.
func (h *nodeHash) buildParallel(threads int) error {
	threadBits := 0
	for v := 1; v < threads; v <<= 1 {
		threadBits++
	}
	subsetPartBits := min(h.hashedNumbers, threadBits+4)
	hashPartBits := min(h.hashBits, threadBits+4)
	const putSubsetParts = 2

	hashedSubsets := uint32(1) << h.hashedNumbers
	nodeHashSize := 1 << h.hashBits
	hashPartsNum := 1 << hashPartBits

	entries, entriesMap, err := mapHashEntries(nodeHashSize)
	if err != nil {
		return err
	}
	h.entries = entries
	h.maps = append(h.maps, entriesMap)

	tmp := make([]tempHashEntry, int(hashedSubsets)+putSubsetParts*scatterBlockSize)
	blocks := make([]hashBlockInfo, hashPartsNum)

	var scatterPart atomic.Int32
	var scatterCursor atomic.Uint32

	// phase 1: scatter
	var g errgroup.Group
	for w := 0; w < threads; w++ {
		g.Go(func() error {
			part := uint32(scatterPart.Add(1) - 1)
			if part >= putSubsetParts {
				return nil
			}
			return h.scatterShard(part, hashPartBits, entries, tmp, blocks, &scatterCursor)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// layout: prefix-sum the per-hash-block sizes
	listPos := uint32(0)
	for i := range blocks {
		blocks[i].Pos = listPos
		listPos += blocks[i].Size
	}

	subsets, subsetsMap, err := mapUint32s(int(hashedSubsets))
	if err != nil {
		return err
	}
	h.subsets = subsets
	h.maps = append(h.maps, subsetsMap)

	// phase 2: compact hash-blocks into the linearised layout
	var compactPart atomic.Int32
	var g2 errgroup.Group
	for w := 0; w < threads; w++ {
		g2.Go(func() error {
			for {
				part := int(compactPart.Add(1) - 1)
				if part >= hashPartsNum {
					return nil
				}
				hashStart := part << (h.hashBits - hashPartBits)
				hashEnd := (part + 1) << (h.hashBits - hashPartBits)
				pos := blocks[part].Pos
				for i := hashStart; i < hashEnd; i++ {
					if entries[i].Size == 0 {
						continue
					}
					pos = linearizeBucket(&entries[i], tmp, subsets, pos)
				}
			}
		})
	}
	if err := g2.Wait(); err != nil {
		return err
	}

	if h.useSubsets {
		return nil
	}

	lists, listsMap, err := mapInt64s(int(hashedSubsets))
	if err != nil {
		return err
	}
	h.lists = lists
	h.maps = append(h.maps, listsMap)

	// phase 3: fill values from the chunk tables
	subsetPartsNum := 1 << subsetPartBits
	var fillPart atomic.Int32
	var g3 errgroup.Group
	for w := 0; w < threads; w++ {
		g3.Go(func() error {
			for {
				part := int(fillPart.Add(1) - 1)
				if part >= subsetPartsNum {
					return nil
				}
				start := uint32(part) << (h.hashedNumbers - subsetPartBits)
				end := uint32(part+1) << (h.hashedNumbers - subsetPartBits)
				for i := start; i < end; i++ {
					lists[i] = h.residual(subsets[i])
				}
			}
		})
	}
	return g3.Wait()
}

// scatterShard scans the whole subset space and chains the subsets whose
// bucket falls in this worker's shard (selected by the top hash bit) into
// scratch blocks claimed off the shared cursor, tallying hash-block sizes
// for the layout pass.
func (h *nodeHash) scatterShard(part uint32, hashPartBits int, entries []NodeHashEntry,
	tmp []tempHashEntry, blocks []hashBlockInfo, cursor *atomic.Uint32) error {

	hashedSubsets := uint32(1) << h.hashedNumbers
	blockIDShift := uint(h.hashBits - hashPartBits)
	blockIDMask := uint32(1)<<(hashPartBits-1) - 1
	blockSizes := make([]uint32, 1<<(hashPartBits-1))

	lp := cursor.Add(scatterBlockSize) - scatterBlockSize
	lpx := uint32(0)
	for subset := uint32(0); subset < hashedSubsets; subset++ {
		sum := h.residual(subset)
		hkey := h.key(sum)
		if hkey>>(h.hashBits-1) != part {
			continue
		}
		if lpx == scatterBlockSize {
			lp = cursor.Add(scatterBlockSize) - scatterBlockSize
			lpx = 0
		}
		blockSizes[(hkey>>blockIDShift)&blockIDMask]++
		if err := chainSubset(entries, tmp, hkey, subset, lp+lpx); err != nil {
			return err
		}
		lpx++
	}

	shift := part << (hashPartBits - 1)
	for i, size := range blockSizes {
		blocks[shift+uint32(i)].Size = size
	}
	return nil
}

// layoutChecksum digests the linearised bucket layout. Serial and parallel
// builds of the same problem must agree bit for bit.
func (h *nodeHash) layoutChecksum() uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, e := range h.entries {
		putUint64LE(buf[:], uint64(e.Pos)|uint64(e.Size)<<32)
		_, _ = d.Write(buf[:])
	}
	for _, s := range h.subsets {
		putUint64LE(buf[:], uint64(s))
		_, _ = d.Write(buf[:4])
	}
	return d.Sum64()
}
