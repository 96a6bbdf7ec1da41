// Package monitoring serves the state of a running harness over HTTP.
//
// The monitor never touches the unit from the HTTP goroutines. It registers
// itself as a hook on the harness and refreshes a snapshot after every step;
// handlers only read that snapshot.
package monitoring

import (
	"bytes"
	"encoding/json"
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
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/backendtb/harness"
	"github.com/sarchlab/backendtb/hooking"
	"github.com/sarchlab/backendtb/monitoring/web"
	"github.com/sarchlab/backendtb/unit"
)

// SignalValue is one signal in a snapshot.
type SignalValue struct {
	Name  string
	Value uint64
}

// Snapshot is the harness state after the latest step.
type Snapshot struct {
	Name          string
	Phase         string
	Time          uint64
	Cycle         uint64
	Steps         uint64
	Paused        bool
	Writebacks    int
	LastWriteback *harness.Observation
	Signals       []SignalValue
}

// Monitor can turn a harness run into a server and allows external
// monitoring and pausing of the run.
type Monitor struct {
	portNumber int
	harness    *harness.Harness
	probe      unit.Probe

	lock     sync.Mutex
	resume   *sync.Cond
	paused   bool
	snapshot Snapshot

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	runBar           *ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.resume = sync.NewCond(&m.lock)

	return m
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterHarness attaches the monitor to a harness. The probe provides the
// signal values of the snapshot and may be nil.
func (m *Monitor) RegisterHarness(h *harness.Harness, probe unit.Probe) {
	m.harness = h
	m.probe = probe

	h.AcceptHook(m)
	m.takeSnapshot()
}

// Func refreshes the snapshot and blocks steps while the monitor is paused.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case harness.HookPosBeforeStep:
		m.waitWhilePaused()
	case harness.HookPosAfterStep:
		m.takeSnapshot()
		m.advanceRunBar()
	case harness.HookPosWriteback:
		o := ctx.Item.(harness.Observation)

		m.lock.Lock()
		m.snapshot.Writebacks++
		m.snapshot.LastWriteback = &o
		m.lock.Unlock()
	case harness.HookPosPhaseChange:
		m.phaseChanged(ctx.Item.(harness.Phase))
		m.takeSnapshot()
	}
}

func (m *Monitor) phaseChanged(p harness.Phase) {
	switch p {
	case harness.PhaseRunning:
		m.runBar = m.CreateProgressBar("Run loop", uint64(m.harness.Budget()))
	case harness.PhaseDone:
		if m.runBar != nil {
			m.CompleteProgressBar(m.runBar)
			m.runBar = nil
		}

		m.Continue()
	}
}

func (m *Monitor) advanceRunBar() {
	if m.runBar != nil {
		m.runBar.IncrementFinished(1)
	}
}

func (m *Monitor) takeSnapshot() {
	h := m.harness

	var signals []SignalValue

	if m.probe != nil {
		for _, s := range m.probe.Signals() {
			v, err := m.probe.Value(s.Name)
			if err != nil {
				continue
			}

			signals = append(signals, SignalValue{Name: s.Name, Value: v})
		}
	}

	now := uint64(h.CurrentTime())

	m.lock.Lock()
	defer m.lock.Unlock()

	m.snapshot.Name = h.Name()
	m.snapshot.Phase = h.Phase().String()
	m.snapshot.Time = now
	m.snapshot.Cycle = now / 2
	m.snapshot.Steps = h.Steps()
	m.snapshot.Signals = signals
}

func (m *Monitor) waitWhilePaused() {
	m.lock.Lock()
	defer m.lock.Unlock()

	for m.paused {
		m.resume.Wait()
	}
}

// Pause makes the harness wait before its next step.
func (m *Monitor) Pause() {
	m.lock.Lock()
	m.paused = true
	m.lock.Unlock()
}

// Continue lets a paused harness step again.
func (m *Monitor) Continue() {
	m.lock.Lock()
	m.paused = false
	m.lock.Unlock()

	m.resume.Broadcast()
}

// Snapshot returns a copy of the latest snapshot.
func (m *Monitor) Snapshot() Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()

	s := m.snapshot
	s.Paused = m.paused
	s.Signals = append([]SignalValue(nil), m.snapshot.Signals...)

	return s
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := NewProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
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

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseHarness)
	r.HandleFunc("/api/continue", m.continueHarness)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/phase", m.phase)
	r.HandleFunc("/api/snapshot", m.listSnapshot)
	r.HandleFunc("/api/signal/{name}", m.signalValue)
	r.HandleFunc("/api/field/{path}", m.listFieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(web.Handler())

	return r
}

// StartServer starts the monitor as a web server and returns its address.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", errors.Wrap(err, "starting monitor")
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			log.Panic(err)
		}
	}()

	return url, nil
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer() error {
	if m.server == nil {
		return nil
	}

	return m.server.Close()
}

func (m *Monitor) pauseHarness(w http.ResponseWriter, _ *http.Request) {
	m.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueHarness(w http.ResponseWriter, _ *http.Request) {
	m.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	s := m.Snapshot()
	fmt.Fprintf(w, "{\"now\":%d,\"cycle\":%d}", s.Time, s.Cycle)
}

func (m *Monitor) phase(w http.ResponseWriter, _ *http.Request) {
	s := m.Snapshot()
	fmt.Fprintf(w, "{\"phase\":%q,\"paused\":%t}", s.Phase, s.Paused)
}

func (m *Monitor) listSnapshot(w http.ResponseWriter, _ *http.Request) {
	bytes, err := json.Marshal(m.Snapshot())
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) signalValue(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	for _, s := range m.Snapshot().Signals {
		if s.Name == name {
			fmt.Fprintf(w, "{\"name\":%q,\"value\":%d}", s.Name, s.Value)
			return
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Signal not found"))
	dieOnErr(err)
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	snapshot := m.Snapshot()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(1)

	err := serializer.SetEntryPoint(strings.Split(path, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bytes, err := json.Marshal(m.progressBars)
	m.progressBarsLock.Unlock()
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
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

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
