package subsetsum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	sserrors "github.com/tamirms/subsetsum/errors"
)

// Result summarises a completed solve.
type Result struct {
	// Solutions is the number of zero-sum subsets emitted.
	Solutions uint64
	// MNodes and SubMega split the searched node count: total nodes =
	// MNodes*1e6 + SubMega.
	MNodes  uint64
	SubMega uint32
	// Elapsed is the search wall time, excluding preprocessing.
	Elapsed time.Duration
	// NodeHashElapsed is the node-hash build time (hash method only).
	NodeHashElapsed time.Duration
}

// String formats the node count the way the progress line does.
func (r Result) String() string {
	if r.MNodes != 0 {
		return fmt.Sprintf("%d solutions after %d%06d nodes", r.Solutions, r.MNodes, r.SubMega)
	}
	return fmt.Sprintf("%d solutions after %d nodes", r.Solutions, r.SubMega)
}

func (k Kernel) String() string {
	switch k {
	case KernelStd:
		return "std"
	case KernelSSE2:
		return "sse2"
	case KernelSSE41:
		return "sse4.1"
	default:
		return "auto"
	}
}

// Solve finds every non-empty zero-sum subset of problem and passes each
// solution bitmask (in the original element order) to emit from a single
// sink goroutine. The set of solutions is deterministic; their order is
// not. Cancelling ctx aborts the search.
func Solve(ctx context.Context, problem Problem, emit func(Int128) error, opts ...SolveOption) (Result, error) {
	if err := problem.Validate(); err != nil {
		return Result{}, err
	}
	cfg := defaultSolveConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.threads <= 0 {
		return Result{}, sserrors.ErrThreadsRange
	}
	if cfg.hashBits < 0 || cfg.hashBits >= 64 {
		return Result{}, sserrors.ErrHashBitsRange
	}
	if cfg.hashedNumbers < 0 || cfg.hashedNumbers >= 64 {
		return Result{}, sserrors.ErrHashedNumsRange
	}

	log := cfg.logger
	cpuWorkers := cfg.threads
	if cfg.devicesOnly {
		cpuWorkers = 0
	}
	totalWorkers := cpuWorkers + len(cfg.devices)
	if totalWorkers == 0 {
		return Result{}, sserrors.ErrNoWorkers
	}

	log.WithFields(logrus.Fields{
		"size":        len(problem),
		"fingerprint": fmt.Sprintf("%016x", problem.Fingerprint()),
	}).Info("solving problem")

	var result Result

	// build the controller for the selected method
	var ctrl searchController
	var nc *naiveController
	var hc *hashController
	if cfg.naive {
		log.Info("using naive method")
		nc = newNaiveController(problem, totalWorkers, log)
		ctrl = nc
		for _, dev := range cfg.devices {
			if _, ok := dev.(NaiveDevice); !ok {
				return Result{}, fmt.Errorf("device %s does not support the naive method", dev.Name())
			}
		}
	} else {
		log.Info("using hash method")
		hc = newHashController(problem, totalWorkers, cfg.hashBits, cfg.hashedNumbers,
			cfg.hashSubsets, log)
		defer hc.release()
		for _, dev := range cfg.devices {
			if _, ok := dev.(HashDevice); !ok {
				return Result{}, fmt.Errorf("device %s does not support the hash method", dev.Name())
			}
		}

		nhStart := time.Now()
		if err := hc.generateNodeHash(cfg.threads); err != nil {
			return Result{}, err
		}
		result.NodeHashElapsed = time.Since(nhStart)
		if len(problem) > smallProblemThreshold {
			log.WithField("elapsed", result.NodeHashElapsed).Info("node hash generated")
		}
		ctrl = hc
	}

	kernel := resolveKernel(cfg.kernel)
	if cfg.naive && cpuWorkers > 0 {
		log.WithFields(logrus.Fields{"cpu": cpuBrand(), "kernel": kernel.String()}).
			Info("cpu kernel selected")
	}

	// size the ring from the aggregate recommended worker capacity
	queueElems := 0
	perWorker := hashWorkerSpan
	if cfg.naive {
		perWorker = naiveWorkerSpan
	}
	queueElems += cpuWorkers * perWorker
	for _, dev := range cfg.devices {
		queueElems += dev.WorkSize()
	}
	ctrl.initWorkQueue(queueElems)

	// a top-level cancel maps to ring cancel; producers and consumers
	// observe it at their next reservation
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			ctrl.workQueue().Cancel()
		case <-watchDone:
		}
	}()

	// sink: single goroutine draining the solution queue into emit
	sinkDone := make(chan error, 1)
	go func() {
		var mask Int128
		var emitErr error
		for ctrl.getSolution(&mask) {
			if emitErr == nil {
				emitErr = emit(mask)
			}
			// after an emit error keep draining so workers never block
		}
		sinkDone <- emitErr
	}()

	// progress reporter; the final line is emitted by the reporter itself so
	// the callback is never invoked from two goroutines
	progressDone := make(chan struct{})
	progressExited := make(chan struct{})
	if cfg.progressFn != nil {
		go func() {
			defer close(progressExited)
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					cfg.progressFn(ctrl.progressString())
				case <-progressDone:
					cfg.progressFn(ctrl.progressString())
					return
				}
			}
		}()
	}

	// worker pool; a failed worker cancels the ring so the producer and the
	// remaining workers unblock
	var g errgroup.Group
	worker := func(run func() error) func() error {
		return func() error {
			if err := run(); err != nil {
				ctrl.workQueue().Cancel()
				return err
			}
			return nil
		}
	}
	for i := 0; i < cpuWorkers; i++ {
		if cfg.naive {
			w := &naiveCPUWorker{ctrl: nc, kernel: kernel}
			g.Go(worker(w.run))
		} else {
			w := &hashCPUWorker{ctrl: hc}
			g.Go(worker(w.run))
		}
	}
	for _, dev := range cfg.devices {
		dev := dev
		if cfg.naive {
			g.Go(worker(func() error {
				return runNaiveDevice(nc, dev.(NaiveDevice), cfg.wide64Device, log)
			}))
		} else {
			g.Go(worker(func() error {
				return runHashDevice(hc, dev.(HashDevice), cfg.hashGrouping, log)
			}))
		}
	}

	// the producer runs on the calling goroutine and closes the ring when
	// the main region is exhausted
	start := time.Now()
	producerErr := ctrl.generateWork()
	workersErr := g.Wait()

	// teardown order: workers drained, then release the sink
	ctrl.finish()
	sinkErr := <-sinkDone
	if cfg.progressFn != nil {
		close(progressDone)
		<-progressExited
	}

	result.Solutions, result.MNodes, result.SubMega = ctrl.counts()
	result.Elapsed = time.Since(start)

	if err := errors.Join(producerErr, workersErr, sinkErr); err != nil {
		return result, err
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}
