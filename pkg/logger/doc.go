// Package logger provides the structured logging interface used across igfeedprobe.
//
// It wraps zerolog. Console output is colourised and written to stderr so that the
// experiment report printed on stdout stays machine-readable. Setting the format to
// "json" switches to plain zerolog JSON lines, and a file path adds a second sink.
//
// There is no package-level logger. Build one with New and hand it to each component:
//
//	log, err := logger.New(&cfg.Logging)
//	client := instagram.NewClient(cfg.Instagram, store, log)
//	log.WithField("variant", "feed_view_mode").Info("Running variant")
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
