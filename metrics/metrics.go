// Package metrics exposes Prometheus instrumentation for the framed ring
// pipeline. The library packages stay metrics-free; binaries record
// through the helpers here.
package metrics

import (
	"sync"

	"framering-toolkit/ring"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesPushed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "framering",
		Subsystem: "ring",
		Name:      "frames_pushed_total",
		Help:      "Frames committed to the ring buffer.",
	})
	framesPopped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "framering",
		Subsystem: "ring",
		Name:      "frames_popped_total",
		Help:      "Frames drained from the ring buffer.",
	})
	framesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "framering",
		Subsystem: "ring",
		Name:      "frames_dropped_total",
		Help:      "Frames shed because the ring had insufficient space.",
	})
	framesOversize = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "framering",
		Subsystem: "ring",
		Name:      "frames_oversize_total",
		Help:      "Frames rejected because they can never fit the ring.",
	})
	framesCorrupt = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "framering",
		Subsystem: "ring",
		Name:      "frames_corrupt_total",
		Help:      "Pops that found a corrupt frame header.",
	})
	bytesPushed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "framering",
		Subsystem: "ring",
		Name:      "bytes_pushed_total",
		Help:      "Encoded bytes committed to the ring buffer.",
	})
	bytesPopped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "framering",
		Subsystem: "ring",
		Name:      "bytes_popped_total",
		Help:      "Encoded bytes drained from the ring buffer.",
	})
	bytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "framering",
		Subsystem: "tcp",
		Name:      "bytes_read_total",
		Help:      "Raw bytes read from ingest connections.",
	})
	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "framering",
		Subsystem: "tcp",
		Name:      "sessions_active",
		Help:      "Currently open ingest sessions.",
	})
)

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesPushed, framesPopped, framesDropped, framesOversize,
			framesCorrupt, bytesPushed, bytesPopped, bytesRead, sessionsActive,
		)
	})
}

// RegisterRing publishes occupancy and capacity gauges backed directly by
// the buffer's own cursors. Call at most once per process.
func RegisterRing(b *ring.Buffer) {
	Register()
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "framering",
			Subsystem: "ring",
			Name:      "occupancy_bytes",
			Help:      "Bytes currently buffered and unread.",
		}, func() float64 {
			return float64(b.Occupancy())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "framering",
			Subsystem: "ring",
			Name:      "capacity_bytes",
			Help:      "Configured ring capacity.",
		}, func() float64 {
			return float64(b.Capacity())
		}),
	)
}

// Push-side counters are fed from aggregate server stat deltas by whoever
// owns the report loop.

func AddPushed(frames, bytes uint64) {
	Register()
	framesPushed.Add(float64(frames))
	bytesPushed.Add(float64(bytes))
}

func AddDropped(frames uint64) {
	Register()
	framesDropped.Add(float64(frames))
}

func AddOversize(frames uint64) {
	Register()
	framesOversize.Add(float64(frames))
}

func AddBytesRead(bytes uint64) {
	Register()
	bytesRead.Add(float64(bytes))
}

func SetSessionsActive(n uint64) {
	Register()
	sessionsActive.Set(float64(n))
}

// Pop-side events are recorded one frame at a time by the consumer.

func RecordPop(encodedSize int) {
	Register()
	framesPopped.Inc()
	bytesPopped.Add(float64(encodedSize))
}

func RecordCorrupt() {
	Register()
	framesCorrupt.Inc()
}
