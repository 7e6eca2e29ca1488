// Package logger provides a structured logging interface for the bookmark exporter.
//
// It wraps the zerolog library and is passed explicitly into the collector,
// extractor and exporter, so tests can substitute NewTestLogger or NewNopLogger.
//
// Basic Usage:
//
//	log, err := logger.New(&config.LoggingConfig{Level: "info"})
//	if err != nil {
//	    return err
//	}
//	log.WithField("post_id", id).Warn("Failed to parse post")
//	log.InfoWithFields("Collected posts", map[string]interface{}{
//	    "unique": 120,
//	})
//
// The command line entry point installs a process-wide logger with Initialize;
// library code never reaches for it.
package logger
