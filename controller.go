package subsetsum

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/tamirms/subsetsum/internal/ring"
)

// NodeSubset is a work packet: one assignment of the main region. Sum is
// the low 64 bits of the partial sum; Subset is the partial subset bitmap
// in the producer's numbering. The full 128-bit sum is reconstructed from
// the bitmap when a candidate survives the 64-bit match.
type NodeSubset struct {
	Sum    int64
	Subset Int128
}

// nodeSubsetSize is the ring cell size for NodeSubset.
const nodeSubsetSize = 24

// solutionQueueCap bounds the in-flight solutions between workers and the
// sink.
const solutionQueueCap = 20

// solutionQueue is a small bounded blocking FIFO of solution bitmasks with
// a cancelled flag that releases all waiters.
type solutionQueue struct {
	mu        sync.Mutex
	notFull   *sync.Cond
	notEmpty  *sync.Cond
	buf       []Int128
	head, n   int
	cancelled bool
}

func newSolutionQueue(capacity int) *solutionQueue {
	q := &solutionQueue{buf: make([]Int128, capacity)}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

func (q *solutionQueue) push(v Int128) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.n == len(q.buf) && !q.cancelled {
		q.notFull.Wait()
	}
	if q.cancelled {
		return false
	}
	q.buf[(q.head+q.n)%len(q.buf)] = v
	q.n++
	q.notEmpty.Signal()
	return true
}

func (q *solutionQueue) pop(v *Int128) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.n == 0 && !q.cancelled {
		q.notEmpty.Wait()
	}
	if q.n == 0 {
		return false
	}
	*v = q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	q.notFull.Signal()
	return true
}

func (q *solutionQueue) empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n == 0
}

func (q *solutionQueue) cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelled = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// searchController is the state shared by the producer, the workers and the
// sink of one solve: the problem, the work-packet ring, the solution queue
// and the progress accumulators.
type searchController interface {
	// generateWork runs the producer loop and closes the ring when the main
	// region is exhausted.
	generateWork() error
	// initWorkQueue sizes the packet ring from the aggregate recommended
	// worker capacity.
	initWorkQueue(elems int)

	workQueue() *ring.Queue
	putSolution(mask Int128)
	getSolution(mask *Int128) bool
	updateProgress(nodes uint64, lastSubset Int128)
	progressString() string
	finish()
	counts() (solutions, mNodes uint64, subMegas uint32)
	problemSize() int
}

// controller carries the method-independent parts of a searchController.
type controller struct {
	numbers      []Int128
	totalWorkers int
	nodeBits     int

	queue *ring.Queue
	sols  *solutionQueue

	progressMu      sync.Mutex
	pushed, taken   uint64
	mNodes          uint64
	subMegas        uint32
	progressMessage string

	finished atomic.Bool
	log      logrus.FieldLogger
}

// init prepares an embedded controller in place (the struct carries a
// mutex, so it is never copied).
func (c *controller) init(problem Problem, totalWorkers int, log logrus.FieldLogger) {
	c.numbers = make([]Int128, len(problem))
	copy(c.numbers, problem)
	c.totalWorkers = totalWorkers
	c.sols = newSolutionQueue(solutionQueueCap)
	c.log = log
}

func (c *controller) workQueue() *ring.Queue { return c.queue }

func (c *controller) problemSize() int { return len(c.numbers) }

// putSolution hands a translated solution bitmask to the sink.
func (c *controller) putSolution(mask Int128) {
	c.progressMu.Lock()
	c.pushed++
	c.progressMu.Unlock()
	solutionsFound.Inc()
	c.sols.push(mask)
}

// getSolution returns false once the controller is finished and every
// pushed solution has been taken.
func (c *controller) getSolution(mask *Int128) bool {
	c.progressMu.Lock()
	done := c.finished.Load() && c.taken == c.pushed
	c.progressMu.Unlock()
	if done {
		return false
	}
	if !c.sols.pop(mask) {
		return false
	}
	c.progressMu.Lock()
	c.taken++
	c.progressMu.Unlock()
	return true
}

// updateProgress folds a worker's node count into the shared accumulator
// and refreshes the last-seen main-region bitstring. The sub-mega counter
// carries into the mega counter at one million.
func (c *controller) updateProgress(nodes uint64, lastSubset Int128) {
	nodesSearched.Add(float64(nodes))

	c.progressMu.Lock()
	defer c.progressMu.Unlock()

	diffM := nodes / 1000000
	c.mNodes += diffM
	c.subMegas += uint32(nodes - diffM*1000000)
	if c.subMegas >= 1000000 {
		c.mNodes++
		c.subMegas -= 1000000
	}

	if c.nodeBits != 0 {
		// only if problem divides into nodes
		ctrlBits := len(c.numbers) - c.nodeBits
		var sb strings.Builder
		sb.Grow(ctrlBits)
		for i := 0; i < ctrlBits; i++ {
			if lastSubset.Bit(uint(i)) {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		c.progressMessage = sb.String()
	}
}

func (c *controller) progressString() string {
	c.progressMu.Lock()
	defer c.progressMu.Unlock()
	if c.mNodes != 0 {
		return fmt.Sprintf("Sols: %d. %d%06d Nodes. %s",
			c.pushed, c.mNodes, c.subMegas, c.progressMessage)
	}
	return fmt.Sprintf("Sols: %d. %d Nodes. %s",
		c.pushed, c.subMegas, c.progressMessage)
}

func (c *controller) counts() (uint64, uint64, uint32) {
	c.progressMu.Lock()
	defer c.progressMu.Unlock()
	return c.pushed, c.mNodes, c.subMegas
}

// finish marks the search complete. When no solutions are pending the sink
// is released immediately.
func (c *controller) finish() {
	c.finished.Store(true)
	if c.sols.empty() {
		c.sols.cancel()
	}
}

// smallProblemThreshold is the size at or below which the pipeline is
// skipped and the whole subset space is enumerated inline.
const smallProblemThreshold = 16

// solveSmallProblem enumerates every non-empty subset in counting order,
// maintaining the running sum by the elements each increment toggles.
func (c *controller) solveSmallProblem() {
	maxSubset := Int128{}.SetBit(uint(len(c.numbers)))
	var sum, prevSubset Int128
	nodes := uint64(0)
	for subset := (Int128{Lo: 1}); subset != maxSubset; subset = subset.AddInt64(1) {
		changes := prevSubset.Xor(subset)
		for bitNum := uint(0); bitNum < 128 && changes.Bit(bitNum); bitNum++ {
			if subset.Bit(bitNum) {
				sum = sum.Add(c.numbers[bitNum])
			} else {
				sum = sum.Sub(c.numbers[bitNum])
			}
		}
		prevSubset = subset
		nodes++
		if sum.IsZero() {
			c.putSolution(subset)
		}
	}
	c.updateProgress(nodes, prevSubset)
}
