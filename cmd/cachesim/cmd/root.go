// Package cmd provides the command-line interface of cachesim.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sarchlab/cachesim/config"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/simulation"
	"github.com/sarchlab/cachesim/tracefile"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// The environment variables that provide defaults for the flags.
const (
	EnvInstructionCache = "CACHESIM_ICACHE"
	EnvDataCaches       = "CACHESIM_DCACHE"
	EnvSeed             = "CACHESIM_SEED"
)

// autoRecordPath asks the recorder to pick a unique file name.
const autoRecordPath = "auto"

type options struct {
	icache      []string
	dcaches     []string
	seed        int64
	record      string
	monitor     bool
	monitorPort int
	browser     bool
	verbose     bool
	envFile     string
}

// NewRootCommand creates the cachesim command.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "cachesim [flags] <trace>",
		Short: "Cachesim replays a memory trace against a cache hierarchy.",
		Long: `Cachesim replays a memory trace against one instruction cache ` +
			`and up to three levels of data caches, and reports the hits, ` +
			`the misses and the memory traffic of every cache.

An instruction cache is given as blocks:words:assoc:R|L and a data cache as
level:blocks:words:assoc:R|L:B|T:A|N. Each line of the trace holds an address
and an access kind, such as "0x7fffed80 R".`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.applyEnv(cmd); err != nil {
				return err
			}

			return run(cmd, opts, args[0])
		},
	}

	flags := rootCmd.Flags()
	flags.StringArrayVarP(&opts.icache, "icache", "I", nil,
		"instruction cache, as blocks:words:assoc:R|L")
	flags.StringArrayVarP(&opts.dcaches, "dcache", "D", nil,
		"data cache, as level:blocks:words:assoc:R|L:B|T:A|N (repeatable)")
	flags.Int64Var(&opts.seed, "seed", cache.DefaultSeed,
		"seed of the random replacement policy")
	flags.StringVar(&opts.record, "record", "",
		"record every access into the SQLite database at the given path")
	flags.Lookup("record").NoOptDefVal = autoRecordPath
	flags.BoolVar(&opts.monitor, "monitor", false,
		"serve the live statistics over HTTP")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0,
		"port of the monitoring server, random if not set")
	flags.BoolVar(&opts.browser, "open-browser", false,
		"open the monitoring page in a browser")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"print every access and every skipped trace line")
	flags.StringVar(&opts.envFile, "env-file", ".env",
		"file that provides "+EnvInstructionCache+", "+EnvDataCaches+
			" and "+EnvSeed)

	return rootCmd
}

// Execute runs the command and exits with its status.
func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// applyEnv fills the flags that were not given from the environment.
func (o *options) applyEnv(cmd *cobra.Command) error {
	err := godotenv.Load(o.envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", o.envFile, err)
	}

	flags := cmd.Flags()

	if v, ok := os.LookupEnv(EnvInstructionCache); ok && !flags.Changed("icache") {
		o.icache = []string{v}
	}

	if v, ok := os.LookupEnv(EnvDataCaches); ok && !flags.Changed("dcache") {
		o.dcaches = nil
		for _, s := range strings.Split(v, ";") {
			if s = strings.TrimSpace(s); s != "" {
				o.dcaches = append(o.dcaches, s)
			}
		}
	}

	if v, ok := os.LookupEnv(EnvSeed); ok && !flags.Changed("seed") {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvSeed, v, err)
		}

		o.seed = seed
	}

	return nil
}

func (o *options) builder(logger *log.Logger) (simulation.Builder, error) {
	switch len(o.icache) {
	case 0:
		return simulation.Builder{}, errors.New("no I-cache parameters specified")
	case 1:
	default:
		return simulation.Builder{}, errors.New("duplicate I-cache parameters")
	}

	icache, err := config.ParseInstructionCache(o.icache[0])
	if err != nil {
		return simulation.Builder{}, err
	}

	b := simulation.MakeBuilder().
		WithInstructionCache(icache).
		WithSeed(o.seed)

	for _, s := range o.dcaches {
		dcache, err := config.ParseDataCache(s)
		if err != nil {
			return simulation.Builder{}, err
		}

		b = b.WithDataCache(dcache)
	}

	switch o.record {
	case "":
	case autoRecordPath:
		b = b.WithRecording("")
	default:
		b = b.WithRecording(o.record)
	}

	if o.monitor {
		b = b.WithMonitor().WithMonitorPort(o.monitorPort)
		if o.browser {
			b = b.WithBrowser()
		}
	}

	if o.verbose {
		b = b.WithHook(trace.NewLogTracer(logger)).WithLogger(logger)
	}

	return b, nil
}

func run(cmd *cobra.Command, opts *options, tracePath string) error {
	logger := log.New(cmd.ErrOrStderr(), "", 0)

	b, err := opts.builder(logger)
	if err != nil {
		return err
	}

	traceFile, err := os.Open(tracePath)
	if err != nil {
		return fmt.Errorf("could not open trace file: %w", err)
	}
	defer traceFile.Close()

	s, err := b.Build()
	if err != nil {
		return err
	}

	var src io.Reader = traceFile
	finishProgress := func() {}
	if m := s.GetMonitor(); m != nil {
		src, finishProgress, err = trackProgress(m, traceFile)
		if err != nil {
			return errors.Join(err, s.Terminate())
		}
	}

	reader := tracefile.NewReader(src)
	if opts.verbose {
		reader.WithLogger(logger)
		report.WriteConfig(cmd.ErrOrStderr(), configs(s))
	}

	runErr := s.Run(reader)
	finishProgress()

	if err := s.Terminate(); err != nil && runErr == nil {
		runErr = err
	}

	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	report.WriteStatistics(out, s.Snapshots())

	if len(s.DataCaches()) > 0 {
		memory := s.Memory()
		report.WriteMemoryTraffic(out, memory.Reads, memory.Writes)
	}

	return nil
}

func configs(s *simulation.Simulation) []cache.Config {
	var configs []cache.Config
	for _, c := range s.Caches() {
		configs = append(configs, c.Config())
	}

	return configs
}

// progressReader advances a progress bar with the bytes read from a trace.
type progressReader struct {
	r   io.Reader
	bar *monitoring.ProgressBar
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.bar.IncrementFinished(uint64(n))

	return n, err
}

// trackProgress shows the replay of f as a progress bar of the monitor. The
// returned func completes the bar.
func trackProgress(
	m *monitoring.Monitor,
	f *os.File,
) (io.Reader, func(), error) {
	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	bar := m.CreateProgressBar(f.Name(), uint64(info.Size()))
	finish := func() { m.CompleteProgressBar(bar) }

	return &progressReader{r: f, bar: bar}, finish, nil
}
