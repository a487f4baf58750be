// Package monitoring turns a translation engine into a web server so that its
// tables, counters and the hosting process can be inspected while it runs.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/segvm/mem/vm"
	"github.com/sarchlab/segvm/mem/vm/mmu"
	"github.com/sarchlab/segvm/monitoring/web"
	"github.com/sarchlab/segvm/sim"
)

// Monitor serves the state of one engine over HTTP. Every request that
// touches the engine holds the same lock, so translations from concurrent
// requests run one at a time.
type Monitor struct {
	lock        sync.Mutex
	engine      *mmu.Engine
	idGenerator sim.IDGenerator

	portNumber      int
	profileDuration time.Duration
	server          *http.Server

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor(engine *mmu.Engine) *Monitor {
	return &Monitor{
		engine:          engine,
		idGenerator:     sim.NewSequentialIDGenerator(),
		profileDuration: time.Second,
	}
}

// WithIDGenerator sets the generator of progress bar IDs.
func (m *Monitor) WithIDGenerator(g sim.IDGenerator) *Monitor {
	m.idGenerator = g
	return m
}

// WithPortNumber sets the port number of the monitor. Privileged ports and 0
// select a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		log.Printf("port %d is not allowed for the monitoring server, "+
			"using a random port instead", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// Lock blocks the HTTP handlers from touching the engine. Callers that use
// the engine while the server runs must hold it.
func (m *Monitor) Lock() {
	m.lock.Lock()
}

// Unlock releases the lock taken by Lock.
func (m *Monitor) Unlock() {
	m.lock.Unlock()
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.idGenerator.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

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

// Router returns the handler that serves the API and the dashboard.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/stats", m.stats).Methods(http.MethodGet)
	r.HandleFunc("/api/engine", m.engineDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/segment/{segment}", m.segment).Methods(http.MethodGet)
	r.HandleFunc("/api/translate/{address}", m.translate)
	r.HandleFunc("/api/frames", m.frames).Methods(http.MethodGet)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the port.
func (m *Monitor) StartServer() (int, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return 0, err
	}

	port := listener.Addr().(*net.TCPAddr).Port
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("monitoring %s with http://localhost:%d",
		m.engine.Name(), port)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panic(err)
		}
	}()

	return port, nil
}

// OpenInBrowser opens the dashboard served on the port.
func OpenInBrowser(port int) error {
	return browser.OpenURL(fmt.Sprintf("http://localhost:%d", port))
}

// Shutdown stops the server started by StartServer.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	stats := m.engine.Stats()
	m.lock.Unlock()

	writeJSON(w, http.StatusOK, stats)
}

func (m *Monitor) engineDetails(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.engine)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

type pageRsp struct {
	Page     uint16 `json:"page"`
	Location string `json:"location"`
}

type segmentRsp struct {
	Segment   uint16    `json:"segment"`
	Size      uint32    `json:"size"`
	PageTable string    `json:"page_table"`
	Pages     []pageRsp `json:"pages"`
}

func (m *Monitor) segment(w http.ResponseWriter, r *http.Request) {
	s, err := vm.ParseSegmentOffset(mux.Vars(r)["segment"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	size := m.engine.SegmentSize(s)
	rsp := segmentRsp{
		Segment:   uint16(s),
		Size:      uint32(size),
		PageTable: m.engine.SegmentLocation(s).String(),
		Pages:     []pageRsp{},
	}

	numPages := min((uint32(size)+vm.PageSize-1)/vm.PageSize, vm.MaxPageOffset+1)
	for p := uint32(0); p < numPages; p++ {
		loc, err := m.engine.PageLocation(s, vm.PageOffset(p))
		if err != nil {
			break
		}

		rsp.Pages = append(rsp.Pages, pageRsp{
			Page:     uint16(p),
			Location: loc.String(),
		})
	}

	writeJSON(w, http.StatusOK, rsp)
}

type translateRsp struct {
	Address  uint32  `json:"address"`
	Segment  uint16  `json:"segment"`
	Page     uint16  `json:"page"`
	Word     uint16  `json:"word"`
	Physical *uint32 `json:"physical,omitempty"`
	Error    string  `json:"error,omitempty"`
}

func (m *Monitor) translate(w http.ResponseWriter, r *http.Request) {
	va, err := vm.ParseVirtualAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rsp := translateRsp{
		Address: va.Raw(),
		Segment: va.S,
		Page:    va.P,
		Word:    va.W,
	}

	m.lock.Lock()
	physical, err := m.engine.Translate(va)
	m.lock.Unlock()

	if err != nil {
		rsp.Error = err.Error()
		writeJSON(w, http.StatusUnprocessableEntity, rsp)

		return
	}

	rsp.Physical = &physical
	writeJSON(w, http.StatusOK, rsp)
}

type framesRsp struct {
	Free int   `json:"free"`
	Used []int `json:"used"`
}

func (m *Monitor) frames(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	physical := m.engine.PhysicalMemory()
	rsp := framesRsp{Used: []int{}}

	for i := 0; i < physical.NumFrames(); i++ {
		if physical.IsFree(i) {
			rsp.Free++
		} else {
			rsp.Used = append(rsp.Used, i)
		}
	}

	writeJSON(w, http.StatusOK, rsp)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, http.StatusOK, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, prof)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, err = w.Write(data)
	if err != nil {
		log.Printf("monitor: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
