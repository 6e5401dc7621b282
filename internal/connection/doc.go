// Package connection implements the streaming Connection Controller.
//
// The Controller:
//   - Dials the feed over a single authenticated websocket
//   - Subscribes on the first open and replays the subscription record on every reopen
//   - Runs the heartbeat monitor while connected
//   - Reconnects with exponential backoff, giving up after a fixed number of attempts
//
// Every transport callback, heartbeat failure and retry timer is turned into
// an Event and handled on one goroutine, so state transitions happen in a
// single place. Events carry the generation of the connection that produced
// them; events from a replaced connection are dropped.
package connection
