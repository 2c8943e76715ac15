package subsetsum

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

// Kernel selects the CPU inner-loop implementation for the naive method.
type Kernel int

const (
	// KernelAuto probes CPU features and picks the widest supported kernel.
	KernelAuto Kernel = iota
	// KernelStd forces the scalar single-accumulator kernel.
	KernelStd
	// KernelSSE2 forces the two-lane kernel gated on SSE2.
	KernelSSE2
	// KernelSSE41 forces the two-lane kernel gated on SSE4.1.
	KernelSSE41
)

// SolveOption is a functional option for configuring a solve.
type SolveOption func(*solveConfig)

type solveConfig struct {
	threads        int
	naive          bool
	hashBits       int
	hashedNumbers  int
	hashSubsets    bool // store subset indices instead of sums (smaller, slower verify)
	kernel         Kernel
	devices        []Device
	devicesOnly    bool // no CPU workers; devices carry the whole search
	hashGrouping   bool
	wide64Device   bool
	logger         logrus.FieldLogger
	progressFn     func(string)
}

func defaultSolveConfig() *solveConfig {
	return &solveConfig{
		threads: runtime.NumCPU(),
		logger:  logrus.StandardLogger(),
	}
}

// WithThreads sets the CPU worker count. The node-hash builder reuses the
// same count for its short-lived build workers.
func WithThreads(n int) SolveOption {
	return func(c *solveConfig) {
		c.threads = n
	}
}

// WithNaiveMethod selects the naive search method instead of the default
// hash method.
func WithNaiveMethod() SolveOption {
	return func(c *solveConfig) {
		c.naive = true
	}
}

// WithHashBits sets the node hash table width in bits. Zero derives it from
// the hashed suffix width (or the default preset).
func WithHashBits(bits int) SolveOption {
	return func(c *solveConfig) {
		c.hashBits = bits
	}
}

// WithHashedNumbers sets the hashed suffix width. Zero derives it from the
// hash bits (or the default preset).
func WithHashedNumbers(m int) SolveOption {
	return func(c *solveConfig) {
		c.hashedNumbers = m
	}
}

// WithHashSubsets stores subset indices instead of 64-bit sums in the node
// hash, trading probe speed for memory.
func WithHashSubsets() SolveOption {
	return func(c *solveConfig) {
		c.hashSubsets = true
	}
}

// WithKernel forces a specific CPU kernel for the naive method.
func WithKernel(k Kernel) SolveOption {
	return func(c *solveConfig) {
		c.kernel = k
	}
}

// WithDevices adds accelerator devices to the worker pool.
func WithDevices(devices ...Device) SolveOption {
	return func(c *solveConfig) {
		c.devices = append(c.devices, devices...)
	}
}

// WithDevicesOnly disables the CPU workers; only the configured devices
// consume work packets.
func WithDevicesOnly() SolveOption {
	return func(c *solveConfig) {
		c.devicesOnly = true
	}
}

// WithHashGrouping partitions the node hash into groups on devices whose
// memory cannot hold it whole.
func WithHashGrouping() SolveOption {
	return func(c *solveConfig) {
		c.hashGrouping = true
	}
}

// With64BitDeviceKernel requests the 64-bit device kernel variant.
func With64BitDeviceKernel() SolveOption {
	return func(c *solveConfig) {
		c.wide64Device = true
	}
}

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(logger logrus.FieldLogger) SolveOption {
	return func(c *solveConfig) {
		c.logger = logger
	}
}

// WithProgress installs a callback invoked roughly every 100ms with the
// current progress line.
func WithProgress(fn func(string)) SolveOption {
	return func(c *solveConfig) {
		c.progressFn = fn
	}
}
