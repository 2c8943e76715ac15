//go:build amd64

package subsetsum

import (
	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sys/cpu"
)

// resolveKernel maps the requested kernel onto what the CPU supports. Auto
// takes the widest gate available; an explicit request is honoured as-is.
func resolveKernel(requested Kernel) Kernel {
	if requested != KernelAuto {
		return requested
	}
	if cpuid.CPU.Supports(cpuid.SSE4) || cpu.X86.HasSSE41 {
		return KernelSSE41
	}
	if cpu.X86.HasSSE2 {
		return KernelSSE2
	}
	return KernelStd
}

// cpuBrand names the CPU for the kernel-selection log line.
func cpuBrand() string {
	if name := cpuid.CPU.BrandName; name != "" {
		return name
	}
	return "unknown x86-64"
}
