// Package eventlog implements the asynchronous event log.
//
// Producers call Sink.Log from any goroutine. Entries go into a single FIFO
// Queue and one worker goroutine appends them to a Destination, one JSON
// record per line:
//
//	{"Source":"AO","message":"Heartbeat sent.","time":"2024-10-21 09:15:00.123"}
//
// Stopping the sink closes the queue under its lock; the worker drains every
// entry enqueued before the close and then exits.
package eventlog
