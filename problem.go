package subsetsum

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/zeebo/xxh3"

	sserrors "github.com/tamirms/subsetsum/errors"
	"github.com/tamirms/subsetsum/internal/int128"
)

// Int128 is the element and bitmask type of the engine.
type Int128 = int128.Int128

// maxProblemSize is the largest supported element count; solution bitmasks
// must fit a single Int128.
const maxProblemSize = 128

// Problem is an ordered multiset of non-zero 128-bit integers. The position
// of each element is its identity: solution bitmasks refer to these
// positions. A Problem is immutable once validated.
type Problem []Int128

// Validate checks the structural input rules: non-empty, at most 128
// elements, no zero element, and neither per-sign cumulative sum may
// overflow 128 bits (which guarantees every subset sum and every difference
// of two subset sums is exact).
func (p Problem) Validate() error {
	if len(p) == 0 {
		return sserrors.ErrEmptyProblem
	}
	if len(p) > maxProblemSize {
		return sserrors.ErrProblemTooLarge
	}
	var psum, msum Int128
	for _, v := range p {
		switch v.Sign() {
		case 0:
			return sserrors.ErrZeroElement
		case 1:
			psum = psum.Add(v)
			if psum.Sign() <= 0 {
				return sserrors.ErrPositiveOverflow
			}
		case -1:
			msum = msum.Sub(v)
			if msum.Sign() <= 0 {
				return sserrors.ErrNegativeOverflow
			}
		}
	}
	return nil
}

// Fingerprint returns a 64-bit digest of the canonical element encoding,
// used to identify a problem instance in logs.
func (p Problem) Fingerprint() uint64 {
	buf := make([]byte, 0, len(p)*16)
	for _, v := range p {
		var b [16]byte
		putUint64LE(b[:8], v.Lo)
		putUint64LE(b[8:], v.Hi)
		buf = append(buf, b[:]...)
	}
	return xxh3.Hash(buf)
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// ParseProblem parses whitespace-separated signed decimal integers.
func ParseProblem(data string) (Problem, error) {
	var problem Problem
	sc := bufio.NewScanner(strings.NewReader(data))
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		v, err := int128.Parse(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", sc.Text(), err)
		}
		problem = append(problem, v)
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	return problem, nil
}

// LoadProblemFile reads a problem file and derives the solution file path:
// the last extension is replaced by ".sol", or ".sol" is appended when the
// name has none.
func LoadProblemFile(path string) (Problem, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", pkgerrors.Wrap(err, "open problem file")
	}
	defer f.Close()

	var problem Problem
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		v, err := int128.Parse(sc.Text())
		if err != nil {
			return nil, "", pkgerrors.Wrapf(err, "%s: parse %q", path, sc.Text())
		}
		problem = append(problem, v)
	}
	if err := sc.Err(); err != nil {
		return nil, "", pkgerrors.Wrap(err, "read problem file")
	}
	if err := problem.Validate(); err != nil {
		return nil, "", err
	}

	sol := path
	if dot := strings.LastIndexByte(path, '.'); dot > strings.LastIndexByte(path, '/') {
		sol = path[:dot]
	}
	return problem, sol + ".sol", nil
}

// SubsetSum returns the exact 128-bit sum of the elements selected by mask.
func (p Problem) SubsetSum(mask Int128) Int128 {
	var sum Int128
	for i, v := range p {
		if mask.Bit(uint(i)) {
			sum = sum.Add(v)
		}
	}
	return sum
}
