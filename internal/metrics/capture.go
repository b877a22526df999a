// Package metrics provides Prometheus metrics for capture sessions.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "webcamcapture"
	subsystem = "session"
)

// Capture holds the metrics of one session in its own registry so sessions
// never share series.
type Capture struct {
	registry *prometheus.Registry

	packetsRead    *prometheus.CounterVec
	framesEncoded  *prometheus.CounterVec
	packetsWritten *prometheus.CounterVec
	errors         *prometheus.CounterVec
	elapsed        prometheus.Gauge
	succeeded      prometheus.Gauge
}

// NewCapture creates the metrics for a session
func NewCapture(sessionID string) *Capture {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"session_id": sessionID}

	return &Capture{
		registry: reg,
		packetsRead: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "packets_read_total",
			Help:        "Packets read from the capture input",
			ConstLabels: labels,
		}, []string{"stream", "kind"}),
		framesEncoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "frames_encoded_total",
			Help:        "Filtered frames sent to the encoder",
			ConstLabels: labels,
		}, []string{"stream", "kind"}),
		packetsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "packets_written_total",
			Help:        "Packets written to the output container",
			ConstLabels: labels,
		}, []string{"stream", "kind"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "errors_total",
			Help:        "Pipeline errors by stage",
			ConstLabels: labels,
		}, []string{"stage"}),
		elapsed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "elapsed_seconds",
			Help:        "Wall-clock time spent in the capture loop",
			ConstLabels: labels,
		}),
		succeeded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "succeeded",
			Help:        "1 when the session finished without error",
			ConstLabels: labels,
		}),
	}
}

// Registry exposes the session registry for gathering
func (c *Capture) Registry() *prometheus.Registry {
	return c.registry
}

// PacketRead counts a demuxed packet
func (c *Capture) PacketRead(stream int, kind string) {
	if c == nil {
		return
	}
	c.packetsRead.WithLabelValues(strconv.Itoa(stream), kind).Inc()
}

// FrameEncoded counts a frame handed to an encoder
func (c *Capture) FrameEncoded(stream int, kind string) {
	if c == nil {
		return
	}
	c.framesEncoded.WithLabelValues(strconv.Itoa(stream), kind).Inc()
}

// PacketWritten counts a packet accepted by the muxer
func (c *Capture) PacketWritten(stream int, kind string) {
	if c == nil {
		return
	}
	c.packetsWritten.WithLabelValues(strconv.Itoa(stream), kind).Inc()
}

// Error counts a failure in a pipeline stage
func (c *Capture) Error(stage string) {
	if c == nil {
		return
	}
	c.errors.WithLabelValues(stage).Inc()
}

// Finish records the loop duration and the final outcome
func (c *Capture) Finish(elapsedSeconds float64, ok bool) {
	if c == nil {
		return
	}
	c.elapsed.Set(elapsedSeconds)
	if ok {
		c.succeeded.Set(1)
	} else {
		c.succeeded.Set(0)
	}
}

// WriteTextfile writes the session metrics in the text exposition format,
// suitable for the node exporter textfile collector
func (c *Capture) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
