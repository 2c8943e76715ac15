package subsetsum

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSinkFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.sol")
	problem := fromInt64s(1, 2, -3, 5)

	sink, err := NewFileSink(path, problem, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(Int128{Lo: 0b0111}); err != nil { // 1+2-3
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Solution: 0\n0: 1\n1: 2\n2: -3\n"
	if string(data) != want {
		t.Fatalf("solution file:\n%q\nwant:\n%q", data, want)
	}
}

func TestFileSinkDropsBadSolution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.sol")
	problem := fromInt64s(1, 2, -3)

	sink, err := NewFileSink(path, problem, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	// mask sums to 3, not zero: reported, not written
	if err := sink.Write(Int128{Lo: 0b011}); err != nil {
		t.Fatal(err)
	}
	// the empty mask is never a solution
	if err := sink.Write(Int128{}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(Int128{Lo: 0b111}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if sink.Count() != 1 {
		t.Fatalf("Count = %d, want 1", sink.Count())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Solution: 0\n0: 1\n1: 2\n2: -3\n"
	if string(data) != want {
		t.Fatalf("solution file:\n%q", data)
	}
}

func TestFileSinkIndicesAscend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.sol")
	problem := fromInt64s(4, -4, 9, -9)

	sink, err := NewFileSink(path, problem, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(Int128{Lo: 0b1100}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(Int128{Lo: 0b0011}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	want := "Solution: 0\n2: 9\n3: -9\nSolution: 1\n0: 4\n1: -4\n"
	if string(data) != want {
		t.Fatalf("solution file:\n%q\nwant:\n%q", data, want)
	}
}
