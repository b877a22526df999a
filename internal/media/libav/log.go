package libav

import (
	"context"
	"log/slog"
	"strings"

	"github.com/asticode/go-astiav"

	"github.com/smazurov/webcamcapture/internal/ffmpeg"
)

// levelName maps library log levels to ffmpeg's level names
func levelName(l astiav.LogLevel) string {
	switch {
	case l <= astiav.LogLevelPanic:
		return "panic"
	case l <= astiav.LogLevelFatal:
		return "fatal"
	case l <= astiav.LogLevelError:
		return "error"
	case l <= astiav.LogLevelWarning:
		return "warning"
	case l <= astiav.LogLevelInfo:
		return "info"
	case l <= astiav.LogLevelVerbose:
		return "verbose"
	case l <= astiav.LogLevelDebug:
		return "debug"
	}
	return "trace"
}

// InstallLogBridge routes library log lines to logger. Verbosity is left to
// the logger's level so debug output shows up with the libav module at debug.
func InstallLogBridge(logger *slog.Logger) {
	astiav.SetLogLevel(astiav.LogLevelDebug)
	astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, _, msg string) {
		msg = strings.TrimSpace(msg)
		if msg == "" {
			return
		}
		level := ffmpeg.SlogLevel(levelName(l))
		if !logger.Enabled(context.Background(), level) {
			return
		}
		attrs := []any{"level_name", levelName(l)}
		if c != nil {
			if cl := c.Class(); cl != nil {
				attrs = append(attrs, "component", cl.Name())
			}
		}
		logger.Log(context.Background(), level, msg, attrs...)
	})
}
