package simulation

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/rs/xid"
	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// Builder can be used to build a simulation.
type Builder struct {
	icache      *cache.Config
	dcaches     []cache.Config
	seed        int64
	randSource  cache.RandSource
	hooks       []hooking.Hook
	logger      *log.Logger
	recordOn    bool
	recordPath  string
	monitorOn   bool
	monitorPort int
	openBrowser bool
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		seed: cache.DefaultSeed,
	}
}

// WithInstructionCache sets the configuration of the instruction cache.
func (b Builder) WithInstructionCache(c cache.Config) Builder {
	c.Level = cache.LevelInstruction
	b.icache = &c

	return b
}

// WithDataCache adds a data cache. The level of the cache is taken from the
// configuration.
func (b Builder) WithDataCache(c cache.Config) Builder {
	dcaches := make([]cache.Config, len(b.dcaches), len(b.dcaches)+1)
	copy(dcaches, b.dcaches)
	b.dcaches = append(dcaches, c)

	return b
}

// WithSeed sets the seed of the random replacement policy.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithRandSource sets the random source shared by all the caches. It takes
// precedence over the seed.
func (b Builder) WithRandSource(src cache.RandSource) Builder {
	b.randSource = src
	return b
}

// WithHook attaches a hook to every cache.
func (b Builder) WithHook(h hooking.Hook) Builder {
	hooks := make([]hooking.Hook, len(b.hooks), len(b.hooks)+1)
	copy(hooks, b.hooks)
	b.hooks = append(hooks, h)

	return b
}

// WithLogger sets the logger that reports the traffic sent to the memory.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithRecording records every access into a SQLite database at the given
// path. An empty path lets the recorder pick a unique name.
func (b Builder) WithRecording(path string) Builder {
	b.recordOn = true
	b.recordPath = path

	return b
}

// WithMonitor starts a monitoring server for the simulation.
func (b Builder) WithMonitor() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithBrowser opens the monitoring page in a browser once the server is up.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

func (b Builder) parametersMustBeValid() error {
	if b.icache == nil {
		return errors.New("no I-cache parameters specified")
	}

	if !b.monitorOn && (b.monitorPort != 0 || b.openBrowser) {
		return errors.New(
			"monitor options cannot be set when monitoring is disabled")
	}

	return nil
}

// sortedDataCaches orders the data caches by level and checks that no level
// is duplicated or skipped.
func (b Builder) sortedDataCaches() ([]cache.Config, error) {
	dcaches := make([]cache.Config, len(b.dcaches))
	copy(dcaches, b.dcaches)

	sort.SliceStable(dcaches, func(i, j int) bool {
		return dcaches[i].Level < dcaches[j].Level
	})

	for i, c := range dcaches {
		if !c.Level.IsData() {
			return nil, fmt.Errorf("invalid D-cache level %d", int(c.Level))
		}

		if i > 0 && dcaches[i-1].Level == c.Level {
			return nil, fmt.Errorf("duplicate %s parameters", c.Level)
		}

		if c.Level != cache.DataLevel(i+1) {
			return nil, fmt.Errorf("%s specified, but not %s",
				c.Level, c.Level-1)
		}
	}

	return dcaches, nil
}

// Build validates the configurations and builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	if err := b.parametersMustBeValid(); err != nil {
		return nil, err
	}

	dcaches, err := b.sortedDataCaches()
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		id:     xid.New().String(),
		logger: b.logger,
	}
	s.resumed = sync.NewCond(&s.mu)

	src := b.randSource
	if src == nil {
		src = cache.NewRandSource(b.seed)
	}

	cacheBuilder := cache.MakeBuilder().WithRandSource(src)

	s.icache, err = cacheBuilder.
		WithConfig(*b.icache).
		Build(cache.LevelInstruction.String())
	if err != nil {
		return nil, err
	}

	for _, c := range dcaches {
		dcache, err := cacheBuilder.WithConfig(c).Build(c.Level.String())
		if err != nil {
			return nil, err
		}

		s.dataCaches = append(s.dataCaches, dcache)
	}

	url := ""
	if b.monitorOn {
		if url, err = b.startMonitor(s); err != nil {
			return nil, err
		}
	}

	// The recorder creates its file, so it goes last.
	if b.recordOn {
		if err := b.attachRecorder(s); err != nil {
			if s.monitor != nil {
				_ = s.monitor.StopServer()
			}

			return nil, err
		}
	}

	for _, h := range b.hooks {
		s.acceptHook(h)
	}

	if b.openBrowser {
		s.monitor.OpenBrowser(url)
	}

	return s, nil
}

func (b Builder) attachRecorder(s *Simulation) error {
	recordPath := b.recordPath
	if recordPath == "" {
		recordPath = "cachesim_" + s.ID()
	}

	recorder, err := datarecording.New(recordPath)
	if err != nil {
		return err
	}

	s.dataRecorder = recorder
	s.dbTracer = trace.NewDBTracer(recorder)
	s.acceptHook(s.dbTracer)

	return nil
}

func (b Builder) startMonitor(s *Simulation) (string, error) {
	s.monitor = monitoring.NewMonitor()
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterTarget(s)

	return s.monitor.StartServer()
}
