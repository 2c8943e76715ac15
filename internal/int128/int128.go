// Package int128 provides a signed 128-bit integer with two's-complement
// semantics.
//
// The type covers exactly the operations the search engine needs: exact
// addition and subtraction of subset sums, bitmask manipulation, ordered
// comparison and decimal conversion for the problem/solution file formats.
// Shift behaviour is defined for every count in [0, 128) and saturates
// beyond that (left shifts produce zero, arithmetic right shifts produce
// the sign fill), so callers never hit the undefined shift-by-width cases
// native integers have.
package int128

import (
	"math/bits"
	"strings"

	sserrors "github.com/tamirms/subsetsum/errors"
)

// Int128 is a signed 128-bit integer. The zero value is the number zero.
type Int128 struct {
	Lo uint64 // low 64 bits
	Hi uint64 // high 64 bits, sign in bit 63
}

// Common constants.
var (
	Zero = Int128{}
	One  = Int128{Lo: 1}
)

// FromInt64 sign-extends v into an Int128.
func FromInt64(v int64) Int128 {
	var hi uint64
	if v < 0 {
		hi = ^uint64(0)
	}
	return Int128{Lo: uint64(v), Hi: hi}
}

// FromUint64 zero-extends v into an Int128.
func FromUint64(v uint64) Int128 {
	return Int128{Lo: v}
}

// Int64 truncates x to its low 64 bits.
func (x Int128) Int64() int64 {
	return int64(x.Lo)
}

// IsZero reports whether x == 0.
func (x Int128) IsZero() bool {
	return x.Lo == 0 && x.Hi == 0
}

// Sign returns -1, 0 or 1.
func (x Int128) Sign() int {
	if x.Lo == 0 && x.Hi == 0 {
		return 0
	}
	if x.Hi&(1<<63) != 0 {
		return -1
	}
	return 1
}

// Add returns x + y.
func (x Int128) Add(y Int128) Int128 {
	lo, carry := bits.Add64(x.Lo, y.Lo, 0)
	hi, _ := bits.Add64(x.Hi, y.Hi, carry)
	return Int128{Lo: lo, Hi: hi}
}

// Sub returns x - y.
func (x Int128) Sub(y Int128) Int128 {
	lo, borrow := bits.Sub64(x.Lo, y.Lo, 0)
	hi, _ := bits.Sub64(x.Hi, y.Hi, borrow)
	return Int128{Lo: lo, Hi: hi}
}

// Neg returns -x.
func (x Int128) Neg() Int128 {
	return Zero.Sub(x)
}

// AddInt64 returns x + v with v sign-extended.
func (x Int128) AddInt64(v int64) Int128 {
	return x.Add(FromInt64(v))
}

// And returns x & y.
func (x Int128) And(y Int128) Int128 {
	return Int128{Lo: x.Lo & y.Lo, Hi: x.Hi & y.Hi}
}

// Or returns x | y.
func (x Int128) Or(y Int128) Int128 {
	return Int128{Lo: x.Lo | y.Lo, Hi: x.Hi | y.Hi}
}

// Xor returns x ^ y.
func (x Int128) Xor(y Int128) Int128 {
	return Int128{Lo: x.Lo ^ y.Lo, Hi: x.Hi ^ y.Hi}
}

// Not returns ^x.
func (x Int128) Not() Int128 {
	return Int128{Lo: ^x.Lo, Hi: ^x.Hi}
}

// Lsh returns x << n. Counts of 128 or more yield zero.
func (x Int128) Lsh(n uint) Int128 {
	switch {
	case n == 0:
		return x
	case n < 64:
		return Int128{Lo: x.Lo << n, Hi: x.Hi<<n | x.Lo>>(64-n)}
	case n < 128:
		return Int128{Hi: x.Lo << (n - 64)}
	default:
		return Zero
	}
}

// Rsh returns x >> n as an arithmetic shift: vacated bits take the sign.
// Counts of 128 or more yield the full sign fill.
func (x Int128) Rsh(n uint) Int128 {
	sign := uint64(0)
	if x.Hi&(1<<63) != 0 {
		sign = ^uint64(0)
	}
	switch {
	case n == 0:
		return x
	case n < 64:
		return Int128{Lo: x.Lo>>n | x.Hi<<(64-n), Hi: x.Hi>>n | sign<<(64-n)}
	case n < 128:
		return Int128{Lo: x.Hi >> (n - 64), Hi: sign}
	default:
		return Int128{Lo: sign, Hi: sign}
	}
}

// Cmp compares x and y as signed values, returning -1, 0 or 1.
func (x Int128) Cmp(y Int128) int {
	// Flip the sign bit so unsigned comparison orders signed values.
	xh := x.Hi ^ (1 << 63)
	yh := y.Hi ^ (1 << 63)
	switch {
	case xh < yh:
		return -1
	case xh > yh:
		return 1
	case x.Lo < y.Lo:
		return -1
	case x.Lo > y.Lo:
		return 1
	}
	return 0
}

// Bit reports whether bit i (0-based from the least significant) is set.
func (x Int128) Bit(i uint) bool {
	if i < 64 {
		return x.Lo&(1<<i) != 0
	}
	return x.Hi&(1<<(i-64)) != 0
}

// SetBit returns x with bit i set.
func (x Int128) SetBit(i uint) Int128 {
	if i < 64 {
		x.Lo |= 1 << i
	} else {
		x.Hi |= 1 << (i - 64)
	}
	return x
}

// ClearBit returns x with bit i cleared.
func (x Int128) ClearBit(i uint) Int128 {
	if i < 64 {
		x.Lo &^= 1 << i
	} else {
		x.Hi &^= 1 << (i - 64)
	}
	return x
}

// OnesCount returns the number of set bits.
func (x Int128) OnesCount() int {
	return bits.OnesCount64(x.Lo) + bits.OnesCount64(x.Hi)
}

// TrailingZeros returns the number of trailing zero bits; 128 for zero.
func (x Int128) TrailingZeros() int {
	if x.Lo != 0 {
		return bits.TrailingZeros64(x.Lo)
	}
	return 64 + bits.TrailingZeros64(x.Hi)
}

// divmod10 divides the magnitude by 10, returning the quotient and remainder.
func divmod10(x Int128) (Int128, uint64) {
	hiQ := x.Hi / 10
	hiR := x.Hi % 10
	loQ, loR := bits.Div64(hiR, x.Lo, 10)
	return Int128{Lo: loQ, Hi: hiQ}, loR
}

// String formats x in signed decimal.
func (x Int128) String() string {
	if x.IsZero() {
		return "0"
	}
	neg := x.Sign() < 0
	mag := x
	if neg {
		mag = x.Neg()
	}
	var buf [41]byte
	i := len(buf)
	// The magnitude of MinInt128 negates to itself; treat it as unsigned,
	// which divmod10 already does.
	for !mag.IsZero() {
		var r uint64
		mag, r = divmod10(mag)
		i--
		buf[i] = byte('0' + r)
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Parse parses a signed decimal string into an Int128. Accepts an optional
// leading '+' or '-'. The value must fit in [-2^127, 2^127-1].
func Parse(s string) (Int128, error) {
	neg := false
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	} else if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if len(s) == 0 {
		return Zero, sserrors.ErrInt128Syntax
	}
	var mag Int128
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return Zero, sserrors.ErrInt128Syntax
		}
		// mag = mag*10 + d, checking unsigned 128-bit overflow.
		hi1, lo1 := bits.Mul64(mag.Lo, 10)
		hi2, carry2 := bits.Mul64(mag.Hi, 10)
		if hi2 != 0 {
			return Zero, sserrors.ErrInt128Range
		}
		hiSum, carry := bits.Add64(hi1, carry2, 0)
		if carry != 0 {
			return Zero, sserrors.ErrInt128Range
		}
		lo, c1 := bits.Add64(lo1, uint64(c-'0'), 0)
		hi, c2 := bits.Add64(hiSum, 0, c1)
		if c2 != 0 {
			return Zero, sserrors.ErrInt128Range
		}
		mag = Int128{Lo: lo, Hi: hi}
	}
	if neg {
		// Magnitude up to 2^127 allowed.
		if mag.Hi > 1<<63 || (mag.Hi == 1<<63 && mag.Lo != 0) {
			return Zero, sserrors.ErrInt128Range
		}
		return mag.Neg(), nil
	}
	if mag.Hi&(1<<63) != 0 {
		return Zero, sserrors.ErrInt128Range
	}
	return mag, nil
}
