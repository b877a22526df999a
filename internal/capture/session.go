// Package capture runs a time-bounded capture session: it reads packets
// from a capture device, transcodes video and audio through per-stream
// filter graphs and muxes the result into a container file.
package capture

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/smazurov/webcamcapture/internal/config"
	"github.com/smazurov/webcamcapture/internal/events"
	"github.com/smazurov/webcamcapture/internal/ffmpeg"
	"github.com/smazurov/webcamcapture/internal/logging"
	"github.com/smazurov/webcamcapture/internal/media"
	"github.com/smazurov/webcamcapture/internal/metrics"
)

// Status is the outcome of a session
type Status int

const (
	StatusRunning Status = iota
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "running"
	}
}

// Options is the validated input of a session
type Options struct {
	Destination string
	Duration    time.Duration
	// VideoDevice and AudioDevice are selector tokens in the syntax of
	// InputFormat: device names for dshow and avfoundation, paths for v4l2
	VideoDevice string
	AudioDevice string
	// VideoName and AudioName are the display names of the devices
	VideoName    string
	AudioName    string
	InputFormat  string
	RTBufSize    string
	InputOptions map[string]string
	// TestSource replaces the devices with generated test signals
	TestSource   *ffmpeg.TestSource
	VideoEncoder string
	AudioEncoder string
}

// Validate checks the options a session cannot start without
func (o Options) Validate() error {
	var errs []error
	if strings.TrimSpace(o.Destination) == "" {
		errs = append(errs, errors.New("missing destination"))
	}
	if o.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %s", o.Duration))
	}
	if o.TestSource == nil && o.VideoDevice == "" {
		errs = append(errs, errors.New("missing video device"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// Option configures a Session
type Option func(*Session)

// WithClock sets the clock the capture deadline is measured with
func WithClock(c clock.PassiveClock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithBus publishes lifecycle events to bus
func WithBus(bus *events.Bus) Option {
	return func(s *Session) {
		s.bus = bus
	}
}

// WithProgress prints a dot per captured second to w
func WithProgress(w io.Writer) Option {
	return func(s *Session) {
		s.progress = w
	}
}

// WithoutLock skips the destination lock file
func WithoutLock() Option {
	return func(s *Session) {
		s.noLock = true
	}
}

// Session owns every handle of one capture from Open to Close
type Session struct {
	ID string

	opts     Options
	lib      media.Library
	clock    clock.PassiveClock
	bus      *events.Bus
	metrics  *metrics.Capture
	logger   *slog.Logger
	progress io.Writer
	noLock   bool
	lock     *flock.Flock

	status Status
	err    error

	input   media.Input
	output  media.Output
	streams []*StreamContext
	filters []*FilterEntry
	buf     *buffers
	release *releaseStages

	opened        bool
	ready         bool
	headerWritten bool
	flushed       bool
	closeOnce     sync.Once
	closeErr      error

	elapsed     time.Duration
	packetsRead int
}

// New creates a session. Nothing is opened until Open.
func New(lib media.Library, opts Options, options ...Option) *Session {
	if opts.RTBufSize == "" {
		opts.RTBufSize = config.DefaultRTBufSize
	}
	id := uuid.NewString()
	s := &Session{
		ID:      id,
		opts:    opts,
		lib:     lib,
		clock:   clock.RealClock{},
		metrics: metrics.NewCapture(id),
		logger:  logging.GetLogger("capture").With("session_id", id),
		release: newReleaseStages(),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Status returns the current status
func (s *Session) Status() Status {
	return s.status
}

// Err returns the errors that made the session fail, nil otherwise
func (s *Session) Err() error {
	return s.err
}

// Metrics returns the session's metrics
func (s *Session) Metrics() *metrics.Capture {
	return s.metrics
}

// Streams returns the per-stream state, indexed by stream index
func (s *Session) Streams() []*StreamContext {
	return s.streams
}

// Elapsed is the wall-clock time the capture loop ran
func (s *Session) Elapsed() time.Duration {
	return s.elapsed
}

// PacketsRead is the number of packets read from the input
func (s *Session) PacketsRead() int {
	return s.packetsRead
}

func (s *Session) fail(err error) {
	s.status = StatusFailed
	s.err = errors.Join(s.err, err)

	stage, stream := errStage(err)
	s.metrics.Error(stageLabel(stage))
	s.logger.Error("Session failed", "stage", stage, "stream", stream, "error", err)
	s.bus.Publish(events.CaptureErrorEvent{
		SessionID: s.ID,
		Stream:    stream,
		Stage:     stage,
		Error:     err.Error(),
		Timestamp: s.timestamp(),
	})
}

func stageLabel(stage string) string {
	if stage == "" {
		return "session"
	}
	return stage
}

func (s *Session) timestamp() string {
	return s.clock.Now().UTC().Format(time.RFC3339Nano)
}

// Open validates the options, locks the destination and bootstraps the
// input, the output and the filter graphs. Any failure leaves the session
// Failed; Close must still be called.
func (s *Session) Open() error {
	if s.opened {
		return errors.New("session already opened")
	}
	s.opened = true

	if err := s.opts.Validate(); err != nil {
		s.fail(err)
		return err
	}
	if err := s.lockDestination(); err != nil {
		s.fail(err)
		return err
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"open input", s.openInput},
		{"open output", s.openOutput},
		{"build filter graphs", s.buildFilterGraphs},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			s.logger.Debug("Bootstrap aborted", "step", step.name)
			s.fail(err)
			return err
		}
	}

	s.ready = true
	s.bus.Publish(events.SessionStartedEvent{
		SessionID:   s.ID,
		Destination: s.opts.Destination,
		VideoDevice: s.opts.VideoName,
		AudioDevice: s.opts.AudioName,
		Duration:    int(s.opts.Duration / time.Second),
		Streams:     len(s.streams),
		Timestamp:   s.timestamp(),
	})
	return nil
}

// unlockDestination releases and removes the lock file. The file is removed
// while still held where the platform allows it, so no other session can
// lock a path that is about to disappear.
func (s *Session) unlockDestination() {
	if s.lock == nil || !s.lock.Locked() {
		return
	}
	path := s.lock.Path()
	removed := os.Remove(path) == nil
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("Failed to release destination lock", "error", err)
		return
	}
	if removed {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("Failed to remove destination lock file", "path", path, "error", err)
	}
}

func (s *Session) lockDestination() error {
	if s.noLock {
		return nil
	}
	s.lock = flock.New(s.opts.Destination + ".lock")
	locked, err := s.lock.TryLock()
	if err != nil {
		return newStreamError(ErrOutputOpen, noStream, "lock destination", err)
	}
	if !locked {
		return newStreamError(ErrOutputOpen, noStream, "lock destination", fmt.Errorf("%s is being written by another session", s.opts.Destination))
	}
	return nil
}

// Close flushes a session that was opened but never run, then releases
// everything it acquired. Only the first call does anything.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.ready && !s.flushed {
			if err := s.flush(); err != nil {
				s.fail(err)
			}
			if s.status == StatusRunning {
				s.status = StatusSucceeded
			}
		}
		s.releaseScratch()

		s.closeErr = s.release.close()
		if s.closeErr != nil {
			s.logger.Warn("Releasing session resources failed", "error", s.closeErr)
		}
		s.unlockDestination()

		s.metrics.Finish(s.elapsed.Seconds(), s.status == StatusSucceeded)
		finished := events.SessionFinishedEvent{
			SessionID:   s.ID,
			Destination: s.opts.Destination,
			Status:      s.status.String(),
			Elapsed:     s.elapsed.Seconds(),
			PacketsRead: s.packetsRead,
			Timestamp:   s.timestamp(),
		}
		if s.err != nil {
			finished.Error = s.err.Error()
		}
		s.bus.Publish(finished)
		s.logger.Info("Session finished", "status", s.status.String(), "elapsed", s.elapsed.String(), "packets", s.packetsRead)
	})
	return s.closeErr
}
