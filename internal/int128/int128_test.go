package int128

import (
	"encoding/binary"
	"hash/fnv"
	"math/big"
	"math/rand/v2"
	"testing"
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

func randInt128(rng *rand.Rand) Int128 {
	return Int128{Lo: rng.Uint64(), Hi: rng.Uint64()}
}

var two128 = new(big.Int).Lsh(big.NewInt(1), 128)

// toBig interprets x as a signed big.Int.
func toBig(x Int128) *big.Int {
	b := new(big.Int).SetUint64(x.Hi)
	b.Lsh(b, 64)
	b.Or(b, new(big.Int).SetUint64(x.Lo))
	if x.Hi&(1<<63) != 0 {
		b.Sub(b, two128)
	}
	return b
}

// fromBig reduces a big.Int into two's-complement Int128.
func fromBig(b *big.Int) Int128 {
	m := new(big.Int).Mod(b, two128)
	lo := new(big.Int).And(m, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(m, 64)
	return Int128{Lo: lo.Uint64(), Hi: hi.Uint64()}
}

func TestAddSubNegAgainstBig(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 20000

	for i := 0; i < iterations; i++ {
		x := randInt128(rng)
		y := randInt128(rng)

		if got, want := x.Add(y), fromBig(new(big.Int).Add(toBig(x), toBig(y))); got != want {
			t.Fatalf("iter %d: %v + %v = %v, want %v", i, x, y, got, want)
		}
		if got, want := x.Sub(y), fromBig(new(big.Int).Sub(toBig(x), toBig(y))); got != want {
			t.Fatalf("iter %d: %v - %v = %v, want %v", i, x, y, got, want)
		}
		if got, want := x.Neg(), fromBig(new(big.Int).Neg(toBig(x))); got != want {
			t.Fatalf("iter %d: -%v = %v, want %v", i, x, got, want)
		}
	}
}

func TestCmpAgainstBig(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 20000

	for i := 0; i < iterations; i++ {
		x := randInt128(rng)
		y := randInt128(rng)
		if got, want := x.Cmp(y), toBig(x).Cmp(toBig(y)); got != want {
			t.Fatalf("iter %d: Cmp(%v, %v)=%d, want %d", i, x, y, got, want)
		}
	}
}

func TestShiftEdgeCases(t *testing.T) {
	cases := []struct {
		x Int128
		n uint
	}{
		{Int128{Lo: 1}, 0},
		{Int128{Lo: 1}, 63},
		{Int128{Lo: 1}, 64},
		{Int128{Lo: 1}, 127},
		{Int128{Lo: 1}, 128},
		{Int128{Lo: 1}, 200},
		{FromInt64(-1), 0},
		{FromInt64(-1), 64},
		{FromInt64(-1), 127},
		{FromInt64(-1), 128},
		{FromInt64(-12345), 3},
		{Int128{Hi: 1 << 63}, 1},
		{Int128{Hi: 1 << 63}, 64},
		{Int128{Hi: 1 << 63}, 127},
	}
	for _, c := range cases {
		wantL := fromBig(new(big.Int).Lsh(toBig(c.x), c.n))
		if c.n >= 128 {
			wantL = Zero
		}
		if got := c.x.Lsh(c.n); got != wantL {
			t.Errorf("Lsh(%v, %d) = %v, want %v", c.x, c.n, got, wantL)
		}

		rn := c.n
		if rn > 127 {
			rn = 127 // big.Int Rsh of negative already sign-fills; clamp matches saturation
		}
		wantR := fromBig(new(big.Int).Rsh(toBig(c.x), rn))
		if c.n >= 128 {
			// saturated arithmetic shift keeps only the sign
			if c.x.Sign() < 0 {
				wantR = FromInt64(-1)
			} else {
				wantR = Zero
			}
		}
		if got := c.x.Rsh(c.n); got != wantR {
			t.Errorf("Rsh(%v, %d) = %v, want %v", c.x, c.n, got, wantR)
		}
	}
}

func TestShiftRandomAgainstBig(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 20000

	for i := 0; i < iterations; i++ {
		x := randInt128(rng)
		n := uint(rng.UintN(128))
		if got, want := x.Lsh(n), fromBig(new(big.Int).Lsh(toBig(x), n)); got != want {
			t.Fatalf("iter %d: Lsh(%v, %d) = %v, want %v", i, x, n, got, want)
		}
		if got, want := x.Rsh(n), fromBig(new(big.Int).Rsh(toBig(x), n)); got != want {
			t.Fatalf("iter %d: Rsh(%v, %d) = %v, want %v", i, x, n, got, want)
		}
	}
}

func TestStringParseRoundTrip(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 5000

	fixed := []Int128{
		Zero,
		One,
		FromInt64(-1),
		{Hi: 1 << 63},                      // MinInt128
		{Lo: ^uint64(0), Hi: 1<<63 - 1},    // MaxInt128
		FromInt64(-9223372036854775808),    // MinInt64
		FromUint64(18446744073709551615),   // MaxUint64
	}
	for _, x := range fixed {
		got, err := Parse(x.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", x.String(), err)
		}
		if got != x {
			t.Fatalf("round trip %v -> %q -> %v", x, x.String(), got)
		}
	}

	for i := 0; i < iterations; i++ {
		x := randInt128(rng)
		if got := x.String(); got != toBig(x).String() {
			t.Fatalf("iter %d: String(%x,%x) = %q, want %q", i, x.Hi, x.Lo, got, toBig(x).String())
		}
		got, err := Parse(x.String())
		if err != nil {
			t.Fatalf("iter %d: Parse(%q): %v", i, x.String(), err)
		}
		if got != x {
			t.Fatalf("iter %d: round trip mismatch", i)
		}
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{"", "+", "-", "abc", "12x", "--1", "++1",
		"170141183460469231731687303715884105728",  // 2^127
		"-170141183460469231731687303715884105729", // -(2^127)-1
		"999999999999999999999999999999999999999999"}
	for _, s := range bad {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q): expected error", s)
		}
	}

	// Extremes parse cleanly.
	good := []string{
		"170141183460469231731687303715884105727",
		"-170141183460469231731687303715884105728",
		"+42",
	}
	for _, s := range good {
		if _, err := Parse(s); err != nil {
			t.Errorf("Parse(%q): %v", s, err)
		}
	}
}

func TestBitHelpers(t *testing.T) {
	x := Zero
	for _, i := range []uint{0, 1, 63, 64, 100, 127} {
		x = x.SetBit(i)
		if !x.Bit(i) {
			t.Fatalf("bit %d not set", i)
		}
	}
	if x.OnesCount() != 6 {
		t.Fatalf("OnesCount = %d, want 6", x.OnesCount())
	}
	x = x.ClearBit(63)
	if x.Bit(63) {
		t.Fatal("bit 63 still set")
	}
	if got := One.Lsh(77).TrailingZeros(); got != 77 {
		t.Fatalf("TrailingZeros = %d, want 77", got)
	}
}
