package subsetsum

import (
	"bufio"
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FileSink appends accepted solutions to a .sol file in the format
//
//	Solution: <index starting at 0>
//	<originalIndex>: <decimal value>
//	...
//
// with element indices ascending. Each incoming bitmask is re-verified
// against the original problem before it is written; a mask that fails the
// check is reported and dropped, never written.
type FileSink struct {
	problem Problem
	f       *os.File
	w       *bufio.Writer
	index   uint64
	log     logrus.FieldLogger
}

// NewFileSink truncates path and prepares it for solutions.
func NewFileSink(path string, problem Problem, log logrus.FieldLogger) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create solution file")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FileSink{
		problem: problem,
		f:       f,
		w:       bufio.NewWriter(f),
		log:     log,
	}, nil
}

// Write verifies and appends one solution.
func (s *FileSink) Write(mask Int128) error {
	if sum := s.problem.SubsetSum(mask); !sum.IsZero() || mask.IsZero() {
		// solver sent an incorrect solution; report and drop
		s.log.WithFields(logrus.Fields{
			"index": s.index,
			"mask":  maskBits(mask, len(s.problem)),
		}).Error("solver sent incorrect solution")
		return nil
	}

	if _, err := fmt.Fprintf(s.w, "Solution: %d\n", s.index); err != nil {
		return pkgerrors.Wrap(err, "write solution")
	}
	for i := range s.problem {
		if mask.Bit(uint(i)) {
			if _, err := fmt.Fprintf(s.w, "%d: %s\n", i, s.problem[i]); err != nil {
				return pkgerrors.Wrap(err, "write solution")
			}
		}
	}
	s.index++
	return s.w.Flush()
}

// Count returns the number of solutions written.
func (s *FileSink) Count() uint64 { return s.index }

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return pkgerrors.Wrap(err, "flush solution file")
	}
	return pkgerrors.Wrap(s.f.Close(), "close solution file")
}

// maskBits renders a bitmask LSB-first over n elements.
func maskBits(mask Int128, n int) string {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		if mask.Bit(uint(i)) {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}
