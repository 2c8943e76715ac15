// Subsetsum finds every non-empty zero-sum subset of the integers in each
// given problem file, writing solutions next to the input with a .sol
// extension.
//
// Usage:
//
//	subsetsum [flags] problem.txt [problem2.txt ...]
//
// Problem files hold whitespace-separated decimal signed integers, each in
// [-2^127, 2^127-1]. The process exits 0 on success (including "no
// solutions") and 1 on any error; a bad input file aborts only that file
// and the remaining files still run.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tamirms/subsetsum"
)

type options struct {
	threadsNum   int
	naive        bool
	hashBits     int
	hashedNums   int
	hashSubset   bool
	useGPU       bool
	useOnlyGPU   bool
	useOnlyCPUCL bool
	hashGrouping bool
	use64BitCL   bool
	useStdCode   bool
	useSSE2      bool
	useSSE41     bool
	metricsAddr  string
	verbose      bool
}

func main() {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "subsetsum [flags] problemfile...",
		Short:         "find every zero-sum subset of a multiset of integers",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args)
		},
	}

	var fl *pflag.FlagSet = cmd.Flags()
	fl.IntVarP(&opts.threadsNum, "threadsNum", "T", 0, "number of threads")
	fl.BoolVarP(&opts.naive, "naive", "N", false, "use naive method")
	fl.IntVarP(&opts.hashBits, "hashBits", "S", 0, "set node hash bits")
	fl.IntVarP(&opts.hashedNums, "hashedNums", "h", 0, "set node hashed numbers")
	fl.BoolVarP(&opts.hashSubset, "hashSubset", "Y", false, "use only hash subsets")
	fl.BoolVarP(&opts.useGPU, "useGPU", "G", false, "use GPU")
	fl.BoolVarP(&opts.useOnlyGPU, "useOnlyGPU", "H", false, "use only GPU")
	fl.BoolVarP(&opts.useOnlyCPUCL, "useOnlyCPUCL", "P", false, "use only CPU compute device")
	fl.BoolVarP(&opts.hashGrouping, "hashGroupping", "X", false, "use hash groupping to accelerate on GPU")
	fl.BoolVar(&opts.use64BitCL, "use64BitCL", false, "use 64 bit code in device naive method")
	fl.BoolVar(&opts.useStdCode, "useStdCode", false, "do not use CPU extensions")
	fl.BoolVar(&opts.useSSE2, "useSSE2", false, "use SSE2 extensions")
	fl.BoolVar(&opts.useSSE41, "useSSE4.1", false, "use SSE4.1 extensions")
	fl.StringVar(&opts.metricsAddr, "metricsAddr", "", "serve Prometheus metrics on this address")
	fl.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")
	// -h is taken by --hashedNums; help stays reachable as --help
	cmd.PersistentFlags().Bool("help", false, "help for subsetsum")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error encountered:", err)
		os.Exit(1)
	}
}

func run(opts *options, files []string) error {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if opts.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(opts.metricsAddr, mux); err != nil {
				log.WithError(err).Warn("metrics server stopped")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	solveOpts, err := buildSolveOptions(opts, log)
	if err != nil {
		return err
	}

	failed := false
	for _, file := range files {
		if err := solveFile(ctx, file, solveOpts, log); err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Error encountered:", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

func buildSolveOptions(opts *options, log logrus.FieldLogger) ([]subsetsum.SolveOption, error) {
	var solveOpts []subsetsum.SolveOption
	solveOpts = append(solveOpts, subsetsum.WithLogger(log))

	if opts.threadsNum != 0 {
		solveOpts = append(solveOpts, subsetsum.WithThreads(opts.threadsNum))
	}
	if opts.naive {
		solveOpts = append(solveOpts, subsetsum.WithNaiveMethod())
	}
	if opts.hashBits != 0 {
		solveOpts = append(solveOpts, subsetsum.WithHashBits(opts.hashBits))
	}
	if opts.hashedNums != 0 {
		solveOpts = append(solveOpts, subsetsum.WithHashedNumbers(opts.hashedNums))
	}
	if opts.hashSubset {
		solveOpts = append(solveOpts, subsetsum.WithHashSubsets())
	}

	switch {
	case opts.useStdCode:
		solveOpts = append(solveOpts, subsetsum.WithKernel(subsetsum.KernelStd))
	case opts.useSSE2:
		solveOpts = append(solveOpts, subsetsum.WithKernel(subsetsum.KernelSSE2))
	case opts.useSSE41:
		solveOpts = append(solveOpts, subsetsum.WithKernel(subsetsum.KernelSSE41))
	}

	// device selection: GPU enumeration needs a platform runtime this build
	// does not link; the CPU compute device is always available
	if opts.useGPU || opts.useOnlyGPU {
		log.Warn("No accelerator devices found.")
		if opts.useOnlyGPU && !opts.useOnlyCPUCL {
			return nil, fmt.Errorf("no workers to solve problem")
		}
	}
	if opts.useOnlyCPUCL {
		solveOpts = append(solveOpts,
			subsetsum.WithDevices(subsetsum.NewHostDevice(0, 0)),
			subsetsum.WithDevicesOnly())
	}
	if opts.hashGrouping {
		solveOpts = append(solveOpts, subsetsum.WithHashGrouping())
	}
	if opts.use64BitCL {
		solveOpts = append(solveOpts, subsetsum.With64BitDeviceKernel())
	}
	return solveOpts, nil
}

func solveFile(ctx context.Context, file string, solveOpts []subsetsum.SolveOption, log logrus.FieldLogger) error {
	problem, solPath, err := subsetsum.LoadProblemFile(file)
	if err != nil {
		return err
	}

	sink, err := subsetsum.NewFileSink(solPath, problem, log)
	if err != nil {
		return err
	}

	opts := append([]subsetsum.SolveOption{}, solveOpts...)
	opts = append(opts, subsetsum.WithProgress(func(line string) {
		fmt.Printf("%s\r", line)
	}))

	totalStart := time.Now()
	res, solveErr := subsetsum.Solve(ctx, problem, sink.Write, opts...)
	closeErr := sink.Close()

	fmt.Printf("\nTime: %.3fs\nTotal Time: %.3fs\n",
		res.Elapsed.Seconds(), time.Since(totalStart).Seconds())
	if res.MNodes != 0 {
		fmt.Printf("\nFound %d solutions after %d%06d Nodes!\n",
			res.Solutions, res.MNodes, res.SubMega)
	} else {
		fmt.Printf("\nFound %d solutions after %d Nodes!\n",
			res.Solutions, res.SubMega)
	}
	if res.Solutions != 0 {
		fmt.Printf("Solutions available in %s\n", solPath)
	}

	if solveErr != nil {
		return solveErr
	}
	return closeErr
}
