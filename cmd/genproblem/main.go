// Genproblem emits random subset-sum instances for benchmarking and
// testing. Instances are deterministic in the seed string, and a zero-sum
// subset can be planted so the solver always has something to find.
//
// Usage:
//
//	go run ./cmd/genproblem -n 32 -bits 48 -seed myseed -plant 6 > problem.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/spaolacci/murmur3"

	intbits "github.com/tamirms/subsetsum/internal/bits"
	"github.com/tamirms/subsetsum/internal/int128"
)

func main() {
	nFlag := flag.Int("n", 32, "number of elements")
	bitsFlag := flag.Int("bits", 48, "magnitude of elements in bits (1-126)")
	seedFlag := flag.String("seed", "subsetsum", "seed string")
	plantFlag := flag.Int("plant", 0, "plant a zero-sum subset of this size (0 = none)")
	outFlag := flag.String("o", "", "output file (default stdout)")
	flag.Parse()

	n := *nFlag
	magBits := *bitsFlag
	if n < 2 || n > 128 {
		fmt.Fprintln(os.Stderr, "element count must be in [2, 128]")
		os.Exit(1)
	}
	if magBits < 1 || magBits > 126 {
		fmt.Fprintln(os.Stderr, "bits must be in [1, 126]")
		os.Exit(1)
	}
	plant := *plantFlag
	if plant != 0 && (plant < 2 || plant > n) {
		fmt.Fprintln(os.Stderr, "planted subset size must be in [2, n]")
		os.Exit(1)
	}

	// derive the PCG state from the seed string
	s1, s2 := murmur3.Sum128([]byte(*seedFlag))
	rng := rand.New(rand.NewPCG(s1, s2))

	values := make([]int128.Int128, n)
	for i := range values {
		values[i] = randomValue(rng, magBits)
	}

	if plant != 0 {
		plantZeroSubset(rng, values, plant, magBits)
	}

	out := os.Stdout
	if *outFlag != "" {
		f, err := os.Create(*outFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	for _, v := range values {
		fmt.Fprintln(w, v)
	}
	w.Flush()
}

// randomValue draws a nonzero signed value of at most magBits magnitude.
func randomValue(rng *rand.Rand, magBits int) int128.Int128 {
	for {
		v := int128.Int128{Lo: rng.Uint64(), Hi: rng.Uint64()}
		switch {
		case magBits < 64:
			v = int128.Int128{Lo: v.Lo & (uint64(1)<<magBits - 1)}
		case magBits == 64:
			v.Hi = 0
		default:
			v.Hi &= uint64(1)<<(magBits-64) - 1
		}
		if rng.Uint64()&1 != 0 {
			v = v.Neg()
		}
		if !v.IsZero() {
			return v
		}
	}
}

// plantZeroSubset overwrites one element of a random size-element subset so
// the subset sums to zero.
func plantZeroSubset(rng *rand.Rand, values []int128.Int128, size, magBits int) {
	n := len(values)
	chosen := make(map[int]bool, size)
	for len(chosen) < size {
		chosen[int(intbits.FastRange32(rng.Uint64(), uint32(n)))] = true
	}
	indices := make([]int, 0, size)
	for idx := range chosen {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var sum int128.Int128
	for _, idx := range indices[1:] {
		sum = sum.Add(values[idx])
	}
	fix := sum.Neg()
	for fix.IsZero() {
		// the remainder already cancels; reroll one member
		values[indices[1]] = randomValue(rng, magBits)
		sum = int128.Int128{}
		for _, idx := range indices[1:] {
			sum = sum.Add(values[idx])
		}
		fix = sum.Neg()
	}
	values[indices[0]] = fix
}
