// Package metricsobs wires prometheus/client_golang counters and gauges
// around the core client API, plus a periodic gopsutil-based process
// sampler. Neither is on any hot invariant path: the core never blocks on
// metrics collection, mirroring the "engine never blocks on a client"
// no-backpressure rule.
//
// Grounded on the teacher's internal/metrics (go-server-3/internal/metrics):
// a Registry of promauto-registered collectors plus an HTTP handler, and
// go-server/internal/metrics/system.go's gopsutil CPU sampler with
// exponential-moving-average smoothing.
package metricsobs

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
)

// Registry wraps the Prometheus collectors for the client API core. Only
// the process gauges (CPU, memory, goroutines) are set, by SystemSampler;
// no package in this module updates ClientsActive, ReplyReservations,
// EventsDropped, BroadcastsSent or DispatchQueueDepth.
type Registry struct {
	ClientsActive      prometheus.Gauge
	ReplyReservations  prometheus.Gauge
	EventsDropped      prometheus.Counter
	BroadcastsSent     prometheus.Counter
	DispatchQueueDepth prometheus.Gauge
	ProcessCPUPercent  prometheus.Gauge
	ProcessMemoryBytes prometheus.Gauge
	Goroutines         prometheus.Gauge
}

// NewRegistry creates and registers the collectors against the default
// Prometheus registry.
func NewRegistry() *Registry {
	return &Registry{
		ClientsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "playercore_clients_active",
			Help: "Number of clients currently registered with the engine.",
		}),
		ReplyReservations: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "playercore_reply_reservations_outstanding",
			Help: "Sum of outstanding reply reservations across all clients.",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playercore_events_dropped_total",
			Help: "Total unsolicited events dropped because a client's ring was full.",
		}),
		BroadcastsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "playercore_broadcasts_total",
			Help: "Total broadcast_event calls issued by the engine.",
		}),
		DispatchQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "playercore_dispatch_queue_depth",
			Help: "Number of tasks currently queued on the dispatch bridge.",
		}),
		ProcessCPUPercent: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "playercore_process_cpu_percent",
			Help: "Smoothed system-wide CPU usage percentage.",
		}),
		ProcessMemoryBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "playercore_process_memory_bytes",
			Help: "Go runtime heap allocation in bytes.",
		}),
		Goroutines: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "playercore_goroutines",
			Help: "Number of live goroutines.",
		}),
	}
}

// Handler returns an HTTP handler exposing the registered collectors.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}

// SystemSampler periodically refreshes CPU/memory/goroutine gauges on a
// Registry using gopsutil and runtime.ReadMemStats, with exponential
// smoothing on CPU to avoid spiky graphs.
type SystemSampler struct {
	reg *Registry

	mu         sync.Mutex
	cpuPercent float64
}

// NewSystemSampler creates a sampler writing into reg.
func NewSystemSampler(reg *Registry) *SystemSampler {
	return &SystemSampler{reg: reg}
}

// Run samples system metrics every interval until stop is closed.
func (s *SystemSampler) Run(stop <-chan struct{}, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *SystemSampler) sample() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.reg.ProcessMemoryBytes.Set(float64(mem.HeapAlloc))
	s.reg.Goroutines.Set(float64(runtime.NumGoroutine()))

	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return
	}
	current := percents[0]

	s.mu.Lock()
	if s.cpuPercent == 0 {
		s.cpuPercent = current
	} else {
		const alpha = 0.3
		s.cpuPercent = alpha*current + (1-alpha)*s.cpuPercent
	}
	smoothed := s.cpuPercent
	s.mu.Unlock()

	s.reg.ProcessCPUPercent.Set(smoothed)
}
