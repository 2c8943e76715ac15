package subsetsum

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"io"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	sserrors "github.com/tamirms/subsetsum/errors"
	"github.com/tamirms/subsetsum/internal/int128"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func fromInt64s(vals ...int64) Problem {
	p := make(Problem, len(vals))
	for i, v := range vals {
		p[i] = int128.FromInt64(v)
	}
	return p
}

// bruteForce enumerates every non-empty subset in counting order and returns
// the zero-sum masks.
func bruteForce(problem Problem) map[Int128]bool {
	out := make(map[Int128]bool)
	maxSubset := Int128{}.SetBit(uint(len(problem)))
	var sum, prev Int128
	for subset := (Int128{Lo: 1}); subset != maxSubset; subset = subset.AddInt64(1) {
		changes := prev.Xor(subset)
		for bitNum := uint(0); bitNum < 128 && changes.Bit(bitNum); bitNum++ {
			if subset.Bit(bitNum) {
				sum = sum.Add(problem[bitNum])
			} else {
				sum = sum.Sub(problem[bitNum])
			}
		}
		prev = subset
		if sum.IsZero() {
			out[subset] = true
		}
	}
	return out
}

// solveCollect runs Solve and returns the emitted masks, requiring each
// mask exactly once.
func solveCollect(t *testing.T, problem Problem, opts ...SolveOption) map[Int128]bool {
	t.Helper()
	var masks []Int128
	opts = append([]SolveOption{WithLogger(testLogger()), WithThreads(4)}, opts...)
	res, err := Solve(context.Background(), problem, func(m Int128) error {
		masks = append(masks, m)
		return nil
	}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if res.Solutions != uint64(len(masks)) {
		t.Fatalf("result reports %d solutions, sink saw %d", res.Solutions, len(masks))
	}
	set := make(map[Int128]bool, len(masks))
	for _, m := range masks {
		if set[m] {
			t.Fatalf("mask %s emitted more than once", maskBits(m, len(problem)))
		}
		set[m] = true
	}
	return set
}

func requireSameSet(t *testing.T, problem Problem, got, want map[Int128]bool) {
	t.Helper()
	for m := range want {
		if !got[m] {
			t.Errorf("missing solution %s", maskBits(m, len(problem)))
		}
	}
	for m := range got {
		if !want[m] {
			t.Errorf("spurious solution %s", maskBits(m, len(problem)))
		}
	}
	if t.Failed() {
		t.FailNow()
	}
}

// verifySums re-checks every emitted mask in 128-bit arithmetic against the
// original ordering.
func verifySums(t *testing.T, problem Problem, masks map[Int128]bool) {
	t.Helper()
	for m := range masks {
		if m.IsZero() {
			t.Fatal("empty mask emitted")
		}
		if sum := problem.SubsetSum(m); !sum.IsZero() {
			t.Fatalf("mask %s sums to %s", maskBits(m, len(problem)), sum)
		}
	}
}

func TestSolvePair(t *testing.T) {
	problem := fromInt64s(1, -1)
	got := solveCollect(t, problem)
	want := map[Int128]bool{{Lo: 3}: true}
	requireSameSet(t, problem, got, want)
}

func TestSolveSmallLiteral(t *testing.T) {
	// N=7: every subset summing to zero, against brute force
	problem := fromInt64s(1, 2, 3, -6, 10, -4, -6)
	got := solveCollect(t, problem)
	want := bruteForce(problem)
	if len(want) == 0 {
		t.Fatal("oracle found no solutions; bad fixture")
	}
	requireSameSet(t, problem, got, want)
	verifySums(t, problem, got)
}

func TestSolveDuplicates(t *testing.T) {
	// every pairing of one +5 and one -5, plus the full set
	problem := fromInt64s(5, -5, 5, -5)
	got := solveCollect(t, problem)
	want := bruteForce(problem)
	pairs := 0
	for m := range want {
		if m.OnesCount() == 2 {
			pairs++
		}
	}
	if pairs != 4 {
		t.Fatalf("oracle found %d zero pairs, want 4", pairs)
	}
	requireSameSet(t, problem, got, want)
}

// The 22-element instance from the test corpus, large enough to exercise
// the full hash pipeline against the brute-force oracle.
var corpus22 = []int64{
	-3523805087071, -3041114903543, -2518887187661, -2182934400830,
	-2076288539929, -1904107257269, -1093340343144, -990750566727,
	-353777389662, -234393610880, 795253845080, 795584841371,
	1060951811712, 2399454418710, 2536102847117, 2750232230939,
	2752129257512, 2798685196216, 3431454064293, 3814474313166,
	3891551143317, 4353457012691,
}

func TestSolveCorpus22Hash(t *testing.T) {
	problem := fromInt64s(corpus22...)
	got := solveCollect(t, problem)
	want := bruteForce(problem)
	requireSameSet(t, problem, got, want)
	verifySums(t, problem, got)
}

func TestSolveCorpus22Naive(t *testing.T) {
	problem := fromInt64s(corpus22...)
	got := solveCollect(t, problem, WithNaiveMethod())
	want := bruteForce(problem)
	requireSameSet(t, problem, got, want)
}

func TestSolveCorpus22NaiveScalar(t *testing.T) {
	problem := fromInt64s(corpus22...)
	got := solveCollect(t, problem, WithNaiveMethod(), WithKernel(KernelStd))
	want := bruteForce(problem)
	requireSameSet(t, problem, got, want)
}

func TestSolveCorpus22HashSubsets(t *testing.T) {
	problem := fromInt64s(corpus22...)
	got := solveCollect(t, problem, WithHashSubsets())
	want := bruteForce(problem)
	requireSameSet(t, problem, got, want)
}

// randomProblem draws n elements in a band narrow enough that zero-sum
// subsets exist with useful probability.
func randomProblem(rng *rand.Rand, n int) Problem {
	p := make(Problem, 0, n)
	for len(p) < n {
		v := int64(rng.Uint64N(1 << 16))
		if rng.Uint64()&1 != 0 {
			v = -v
		}
		if v != 0 {
			p = append(p, int128.FromInt64(v))
		}
	}
	return p
}

func TestSolveRandomAgainstOracle(t *testing.T) {
	rng := newTestRNG(t)
	for iter := 0; iter < 8; iter++ {
		n := 2 + int(rng.UintN(21)) // N in [2, 22]
		problem := randomProblem(rng, n)
		want := bruteForce(problem)
		got := solveCollect(t, problem)
		requireSameSet(t, problem, got, want)
		verifySums(t, problem, got)
	}
}

func TestSolveRandomHashParams(t *testing.T) {
	rng := newTestRNG(t)
	problem := randomProblem(rng, 20)
	want := bruteForce(problem)

	got := solveCollect(t, problem, WithHashBits(14), WithHashedNumbers(9))
	requireSameSet(t, problem, got, want)

	got = solveCollect(t, problem, WithHashedNumbers(10), WithHashSubsets())
	requireSameSet(t, problem, got, want)
}

// TestSolveMethodEquivalence runs a 26-element instance, too big for the
// oracle to matter, through both methods and both worker kinds: the
// emitted sets must be identical.
func TestSolveMethodEquivalence(t *testing.T) {
	if testing.Short() {
		t.Skip("large instance")
	}
	rng := newTestRNG(t)
	problem := randomProblem(rng, 26)

	hash := solveCollect(t, problem)
	naive := solveCollect(t, problem, WithNaiveMethod())
	requireSameSet(t, problem, naive, hash)

	device := solveCollect(t, problem,
		WithDevices(NewHostDevice(512, 0)), WithDevicesOnly())
	requireSameSet(t, problem, device, hash)
	verifySums(t, problem, hash)
}

func TestSolveHostDeviceNaive(t *testing.T) {
	problem := fromInt64s(corpus22...)
	want := bruteForce(problem)
	got := solveCollect(t, problem, WithNaiveMethod(),
		WithDevices(NewHostDevice(256, 0)), WithDevicesOnly())
	requireSameSet(t, problem, got, want)
}

func TestSolveHostDeviceHashGrouping(t *testing.T) {
	problem := fromInt64s(corpus22...)
	want := bruteForce(problem)

	// a tight memory budget forces the hash into partitions
	dev := NewHostDevice(256, 8*1024)
	got := solveCollect(t, problem, WithHashGrouping(),
		WithDevices(dev), WithDevicesOnly())
	requireSameSet(t, problem, got, want)
}

func TestSolveDeviceMemoryTooSmall(t *testing.T) {
	problem := fromInt64s(corpus22...)
	_, err := Solve(context.Background(), problem, func(Int128) error { return nil },
		WithLogger(testLogger()), WithThreads(2),
		WithDevices(NewHostDevice(256, 8*1024)), WithDevicesOnly())
	if err == nil {
		t.Fatal("expected device memory error without grouping")
	}
}

func TestSolveMixedCPUAndDevice(t *testing.T) {
	problem := fromInt64s(corpus22...)
	want := bruteForce(problem)
	got := solveCollect(t, problem, WithDevices(NewHostDevice(128, 0)))
	requireSameSet(t, problem, got, want)
}

func TestSolveEmptyProblem(t *testing.T) {
	_, err := Solve(context.Background(), Problem{}, func(Int128) error { return nil },
		WithLogger(testLogger()))
	if err != sserrors.ErrEmptyProblem {
		t.Fatalf("err = %v, want ErrEmptyProblem", err)
	}
}

func TestSolveCancelled(t *testing.T) {
	rng := newTestRNG(t)
	problem := randomProblem(rng, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Solve(ctx, problem, func(Int128) error { return nil },
		WithLogger(testLogger()), WithThreads(2))
	if err == nil {
		t.Fatal("expected an error from a cancelled solve")
	}
}

func TestSolveProgressLine(t *testing.T) {
	problem := fromInt64s(corpus22...)
	var lines []string
	_ = solveCollect(t, problem, WithProgress(func(line string) {
		lines = append(lines, line)
	}))
	if len(lines) == 0 {
		t.Fatal("progress callback never invoked")
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "Sols: ") || !strings.Contains(line, "Nodes.") {
			t.Fatalf("malformed progress line %q", line)
		}
	}
}

func TestSolveSingleElement(t *testing.T) {
	problem := fromInt64s(7)
	got := solveCollect(t, problem)
	if len(got) != 0 {
		t.Fatalf("single nonzero element yielded %d solutions", len(got))
	}
}

func TestResultString(t *testing.T) {
	r := Result{Solutions: 3, MNodes: 2, SubMega: 42}
	if got := r.String(); got != "3 solutions after 2000042 nodes" {
		t.Fatalf("Result.String() = %q", got)
	}
	r = Result{Solutions: 1, SubMega: 9}
	if got := r.String(); got != "1 solutions after 9 nodes" {
		t.Fatalf("Result.String() = %q", got)
	}
}
