package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/smazurov/webcamcapture/internal/capture"
	"github.com/smazurov/webcamcapture/internal/config"
	"github.com/smazurov/webcamcapture/internal/devices"
	"github.com/smazurov/webcamcapture/internal/events"
	"github.com/smazurov/webcamcapture/internal/ffmpeg"
	"github.com/smazurov/webcamcapture/internal/logging"
	"github.com/smazurov/webcamcapture/internal/media"
	"github.com/smazurov/webcamcapture/internal/media/libav"
	"github.com/smazurov/webcamcapture/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Exit codes of the capture command. Only missing or malformed
// configuration is nonzero; a capture that could not start is reported and
// still exits with ExitOK.
const (
	ExitOK          = 0
	ExitMissingArgs = -1
)

// deps holds what the commands need from the outside world
type deps struct {
	library func() media.Library
	source  func(format string) devices.Source
	// options are appended to every session, after the defaults
	options []capture.Option
}

func defaultDeps() deps {
	return deps{
		library: func() media.Library { return libav.New() },
		source:  devices.NewSource,
	}
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	return execute(CreateRootCmd(), os.Args[1:])
}

func execute(root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return ExitOK
	}
	stderr := root.ErrOrStderr()
	fmt.Fprintln(stderr, "Error:", err)
	if errors.Is(err, config.ErrConfiguration) {
		config.PrintInfo(stderr)
		return ExitMissingArgs
	}
	logging.GetLogger("main").Error("Capture did not start", "error", err)
	return ExitOK
}

// CreateRootCmd creates the capture command with its subcommands.
func CreateRootCmd() *cobra.Command {
	return newRootCmd(defaultDeps())
}

func newRootCmd(rt deps) *cobra.Command {
	opts := config.Defaults()

	root := &cobra.Command{
		Use:   "webcamcapture",
		Short: "Capture a webcam and microphone into a video file",
		Long: `Opens a camera (and optionally a microphone), transcodes both through per-stream ` +
			`filter graphs for a fixed number of seconds and writes the result to a container ` +
			`chosen by the destination's extension.`,
		Version:       version.String(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCapture(cmd, rt, &opts)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	})

	registerCommonFlags(root.PersistentFlags(), &opts)
	registerCaptureFlags(root.Flags(), &opts)

	root.AddCommand(newDevicesCmd(rt, &opts))
	root.AddCommand(CreateVersionCmd())
	return root
}

func registerCommonFlags(f *pflag.FlagSet, o *config.Options) {
	f.StringVarP(&o.Config, "config", "c", "", "Path to configuration file")
	f.StringVar(&o.InputFormat, "input-format", o.InputFormat, "Capture input format (dshow, avfoundation, v4l2); platform default when empty")
	f.StringVar(&o.LoggingLevel, "logging-level", o.LoggingLevel, "Global logging level (debug, info, warn, error)")
	f.StringVar(&o.LoggingFormat, "logging-format", o.LoggingFormat, "Logging format (text, json)")
}

// registerCaptureFlags binds the parameter descriptors to flags. The
// one-letter keys double as shorthands, so -f=out.mp4 -d=10 -v=0 work.
func registerCaptureFlags(f *pflag.FlagSet, o *config.Options) {
	desc := func(id config.ParamID) config.Descriptor {
		d, _ := config.Lookup(id)
		return d
	}

	file := desc(config.ParamFile)
	f.StringVarP(&o.Destination, file.Flag, file.Shorthand(), o.Destination, file.DisplayName)
	duration := desc(config.ParamDuration)
	f.IntVarP(&o.Duration, duration.Flag, duration.Shorthand(), o.Duration, duration.DisplayName)
	video := desc(config.ParamVideoID)
	f.IntVarP(&o.VideoID, video.Flag, video.Shorthand(), o.VideoID, video.DisplayName)
	audio := desc(config.ParamAudioID)
	f.IntVarP(&o.AudioID, audio.Flag, audio.Shorthand(), o.AudioID, audio.DisplayName+" (optional)")

	videoName := desc(config.ParamVideoName)
	f.StringVar(&o.VideoName, videoName.Flag, o.VideoName, videoName.DisplayName)
	audioName := desc(config.ParamAudioName)
	f.StringVar(&o.AudioName, audioName.Flag, o.AudioName, audioName.DisplayName)
	_ = f.MarkHidden(videoName.Flag)
	_ = f.MarkHidden(audioName.Flag)

	f.StringVar(&o.RTBufSize, "rtbufsize", o.RTBufSize, "Receive buffer hint for the capture device")
	f.StringToStringVar(&o.InputOptions, "input-option", nil, "Extra input option passed to the demuxer (key=value, repeatable)")
	f.BoolVar(&o.TestSource, "test-source", false, "Capture generated test signals instead of devices")
	f.StringVar(&o.VideoEncoder, "video-encoder", "", "Video encoder name; the container default when empty")
	f.StringVar(&o.AudioEncoder, "audio-encoder", "", "Audio encoder name; the container default when empty")
	f.StringVar(&o.MetricsFile, "metrics-file", "", "Write session metrics in Prometheus text format to this file")
}

// loadOptions applies the config file and environment under the flags and
// starts logging
func loadOptions(cmd *cobra.Command, o *config.Options) error {
	if err := config.LoadConfig(o, cmd); err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	logCfg := config.LoadLoggingConfig(o.Config)
	logCfg.Level = o.LoggingLevel
	logCfg.Format = o.LoggingFormat
	logging.Initialize(logCfg)

	if o.InputFormat == "" {
		o.InputFormat = ffmpeg.DefaultInputFormat()
	}
	return nil
}

func runCapture(cmd *cobra.Command, rt deps, o *config.Options) error {
	if err := loadOptions(cmd, o); err != nil {
		return err
	}
	logger := logging.GetLogger("main")
	if err := o.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	sessionOpts, err := resolveSession(out, rt, o)
	if err != nil {
		return err
	}
	config.PrintParams(out, o)

	bus := events.New()
	unsubscribe := bus.Subscribe(func(ev events.CaptureErrorEvent) {
		logger.Debug("Capture error event", "stage", ev.Stage, "stream", ev.Stream)
	})
	defer unsubscribe()

	options := []capture.Option{
		capture.WithBus(bus),
		capture.WithProgress(capture.ProgressWriter(os.Stderr)),
	}
	session := capture.New(rt.library(), sessionOpts, append(options, rt.options...)...)

	if err := session.Open(); err != nil {
		_ = session.Close()
		return err
	}
	status := session.Run()
	if err := session.Close(); err != nil {
		logger.Warn("Session teardown reported errors", "error", err)
	}

	if err := renderSummary(out, session); err != nil {
		logger.Warn("Failed to print session summary", "error", err)
	}
	if o.MetricsFile != "" {
		if err := session.Metrics().WriteTextfile(o.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics file", "path", o.MetricsFile, "error", err)
		}
	}

	if status == capture.StatusFailed {
		// errors after a successful bootstrap are reported, not surfaced as an exit code
		logger.Error("Capture failed", "error", session.Err(), "destination", o.Destination)
		return nil
	}
	logger.Info("Capture complete", "destination", o.Destination, "elapsed", session.Elapsed().String())
	return nil
}

// resolveSession turns configured device indices into selector tokens,
// printing the device directory on the way
func resolveSession(w io.Writer, rt deps, o *config.Options) (capture.Options, error) {
	s := capture.Options{
		Destination:  o.Destination,
		Duration:     time.Duration(o.Duration) * time.Second,
		InputFormat:  o.InputFormat,
		RTBufSize:    o.RTBufSize,
		InputOptions: o.InputOptions,
		VideoEncoder: o.VideoEncoder,
		AudioEncoder: o.AudioEncoder,
	}

	if o.TestSource {
		src := ffmpeg.DefaultTestSource()
		src.Audio = o.HasAudio()
		s.TestSource = &src
		s.VideoName = "test pattern"
		if src.Audio {
			s.AudioName = "test tone"
		}
		return s, nil
	}

	dir, err := devices.Load(rt.source(o.InputFormat))
	if err != nil {
		logging.GetLogger("devices").Warn("Device listing incomplete", "error", err)
	}
	if err := dir.Render(w); err != nil {
		return s, err
	}

	s.VideoName, s.VideoDevice = o.VideoName, o.VideoName
	if o.VideoID != config.NoDevice {
		dev, err := dir.Resolve(o.VideoID, devices.CategoryVideo)
		if err != nil {
			return s, fmt.Errorf("%w: video device %d: %w", capture.ErrInputOpen, o.VideoID, err)
		}
		o.VideoName = dev.Name
		s.VideoName, s.VideoDevice = dev.Name, dev.Selector(o.InputFormat)
	}

	s.AudioName, s.AudioDevice = o.AudioName, o.AudioName
	if o.AudioID != config.NoDevice {
		dev, err := dir.Resolve(o.AudioID, devices.CategoryAudio)
		if err != nil {
			return s, fmt.Errorf("%w: audio device %d: %w", capture.ErrInputOpen, o.AudioID, err)
		}
		o.AudioName = dev.Name
		s.AudioName, s.AudioDevice = dev.Name, dev.Selector(o.InputFormat)
	}
	return s, nil
}
