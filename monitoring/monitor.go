// Package monitoring turns a running simulation into a web server so that
// the caches can be watched and the replay paused from outside.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// A Target is the simulation watched by the monitor.
type Target interface {
	Pause()
	Continue()
	IsPaused() bool
	NumHandled() uint64
	Snapshots() []cache.Snapshot
	VisitCache(name string, fn func(c *cache.Comp)) bool
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	target     Target
	portNumber int
	server     *http.Server

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterTarget registers the simulation to monitor.
func (m *Monitor) RegisterTarget(t Target) {
	m.target = t
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// ProgressBars returns the bars that are not completed yet.
func (m *Monitor) ProgressBars() []*ProgressBar {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]*ProgressBar, len(m.progressBars))
	copy(bars, m.progressBars)

	return bars
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pause)
	r.HandleFunc("/api/continue", m.resume)
	r.HandleFunc("/api/status", m.status)
	r.HandleFunc("/api/list_caches", m.listCaches)
	r.HandleFunc("/api/cache/{name}", m.listCacheDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/stats", m.listStats)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{Handler: m.router()}
	go func() {
		err := m.server.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			dieOnErr(err)
		}
	}()

	return url, nil
}

// StopServer closes the listener of the server and every open connection.
func (m *Monitor) StopServer() error {
	if m.server == nil {
		return nil
	}

	return m.server.Close()
}

// OpenBrowser shows the page at url in the default browser.
func (m *Monitor) OpenBrowser(url string) {
	if err := browser.OpenURL(url + "/api/stats"); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open browser: %s\n", err)
	}
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.target.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) resume(w http.ResponseWriter, _ *http.Request) {
	m.target.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

type statusRsp struct {
	Paused  bool   `json:"paused"`
	Handled uint64 `json:"handled"`
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, statusRsp{
		Paused:  m.target.IsPaused(),
		Handled: m.target.NumHandled(),
	})
}

func (m *Monitor) listCaches(w http.ResponseWriter, _ *http.Request) {
	names := []string{}
	for _, s := range m.target.Snapshots() {
		names = append(names, s.Name)
	}

	writeJSON(w, names)
}

func (m *Monitor) listCacheDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	m.serializeCache(w, name, nil)
}

type fieldReq struct {
	CacheName string `json:"cache_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	m.serializeCache(w, req.CacheName, strings.Split(req.FieldName, "."))
}

func (m *Monitor) serializeCache(
	w http.ResponseWriter,
	name string,
	entryPoint []string,
) {
	var err error

	found := m.target.VisitCache(name, func(c *cache.Comp) {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(c)
		serializer.SetMaxDepth(1)

		if entryPoint != nil {
			if err = serializer.SetEntryPoint(entryPoint); err != nil {
				return
			}
		}

		buf := new(bytes.Buffer)
		if err = serializer.Serialize(buf); err != nil {
			return
		}

		_, err = w.Write(buf.Bytes())
	})

	if !found {
		w.WriteHeader(http.StatusNotFound)
		_, err = w.Write([]byte("Cache not found"))
		dieOnErr(err)

		return
	}

	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
	}
}

type statsRsp struct {
	Name         string  `json:"name"`
	Accesses     uint64  `json:"accesses"`
	Reads        uint64  `json:"reads"`
	Writes       uint64  `json:"writes"`
	Hits         uint64  `json:"hits"`
	WordsRead    uint64  `json:"words_read"`
	WordsWritten uint64  `json:"words_written"`
	Compulsory   uint64  `json:"compulsory_misses"`
	Conflict     uint64  `json:"conflict_misses"`
	Capacity     uint64  `json:"capacity_misses"`
	ReadMissRate float64 `json:"read_miss_rate"`
}

func (m *Monitor) listStats(w http.ResponseWriter, _ *http.Request) {
	rsp := []statsRsp{}

	for _, s := range m.target.Snapshots() {
		misses := s.Stats.Misses()
		rsp = append(rsp, statsRsp{
			Name:         s.Name,
			Accesses:     s.Stats.Accesses,
			Reads:        s.Stats.Reads,
			Writes:       s.Stats.Writes,
			Hits:         s.Stats.Hits(),
			WordsRead:    s.Stats.WordsRead,
			WordsWritten: s.Stats.WordsWritten,
			Compulsory:   misses.Compulsory,
			Conflict:     misses.Conflict,
			Capacity:     misses.Capacity,
			ReadMissRate: s.Stats.ReadMissRate(true),
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	bars := m.ProgressBars()
	rsp := make([]progressBarRsp, 0, len(bars))
	for _, b := range bars {
		rsp = append(rsp, b.rsp())
	}

	writeJSON(w, rsp)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
