// Package logging provides structured logging for platconf using slog.
//
// Loggers are plain [*slog.Logger] values. The engine packages accept a
// logger through their options and never reach for a global one, so callers
// decide where detection warnings (unreadable feature.xml files, duplicate
// features, unresolvable platform URLs) end up.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{
//		Level:  slog.LevelInfo,
//		Format: logging.FormatText,
//		Output: os.Stderr,
//	})
//	logger.Info("configuration loaded", "url", cfgURL)
//
// # Context
//
// The CLI stores the configured logger on the command context with
// [NewContext]; [FromContext] returns it, or a discarding logger when none
// was stored.
//
// # Testing
//
// [ForTest] routes log output through t.Log so it only shows for failing
// tests or with -v.
package logging
