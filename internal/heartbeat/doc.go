// Package heartbeat keeps a feed connection provably alive.
//
// A Monitor sends a websocket ping control frame every PingInterval and a
// text keep-alive every KeepaliveInterval, and treats a connection that has
// shown no sign of life for StaleTimeout as dead. The first failure is
// reported exactly once and the monitor exits; the owner decides what to do
// next. A monitor lives for one connection: Stop cancels and joins it.
package heartbeat
