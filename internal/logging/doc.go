// Package logging provides structured logging with per-module log levels.
//
// Records go to stderr (text or JSON) and, when journald is reachable, to the
// systemd journal under the "webcamcapture" identifier. Stdout stays free for
// device tables and parameter listings.
//
// Initialize once at startup, then take a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"capture": "debug",
//			"libav":   "warn",
//		},
//	})
//
//	logger := logging.GetLogger("capture")
//	logger.Info("Session started", "destination", path)
//
// Loggers obtained before Initialize are cached and follow later level
// changes through their slog.LevelVar.
//
// Module levels can also come from TOML:
//
//	[logging]
//	level = "info"
//	format = "text"
//	capture = "debug"
//
// Journal entries carry slog attributes as upper-case fields:
//
//	journalctl -t webcamcapture MODULE=capture
package logging
