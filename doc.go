// Package subsetsum implements a high-throughput search engine that finds
// every non-empty subset of a multiset of signed 128-bit integers summing
// to zero.
//
// The search uses a meet-in-the-middle decomposition: a single producer
// enumerates the "main" region of the problem and emits work packets, and a
// pool of CPU (and optional accelerator) workers enumerates the "node"
// region for each packet. In hash mode the node region splits further into
// an 8-bit prefix fanned out per packet and a hashed suffix resolved
// through a precomputed residual-sum reverse index.
//
// # Basic Usage
//
// Solving a problem:
//
//	problem, err := subsetsum.ParseProblem(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := subsetsum.Solve(ctx, problem, func(mask subsetsum.Int128) error {
//	    fmt.Println(mask)
//	    return nil
//	}, subsetsum.WithThreads(8))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d solutions\n", res.Solutions)
//
// Each emitted mask selects elements by their position in the original
// problem order; the selected elements sum to zero in exact 128-bit
// arithmetic.
//
// # Package Structure
//
// The implementation is organized as follows:
//
//   - Public API: solver.go (Solve, Result), problem.go (Problem, ParseProblem, LoadProblemFile)
//   - Configuration: options.go (SolveOption, With* functions)
//   - Preprocessing: preprocess.go (window selection, main-region ordering, gate tables)
//   - Node hash: nodehash.go (serial and three-phase parallel builders), mapped.go
//   - Producers/workers: naive.go, hash.go, worker_naive.go, worker_hash.go, naive_kernel.go
//   - Accelerators: device.go (Device interfaces), device_worker.go, hostdevice.go
//   - Plumbing: internal/ring (span-reservation MPMC queue), internal/int128, internal/bits
//   - Platform: kernel_amd64.go, kernel_other.go (CPU feature selection)
package subsetsum
