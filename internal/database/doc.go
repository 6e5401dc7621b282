// Package database provides the optional PostgreSQL destination for the
// event log.
//
// When log.postgres is configured, every event log entry is also appended to
// a single table (feed_events by default) alongside the JSON log file.
package database
