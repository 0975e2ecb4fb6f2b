// Package coordinator owns the single ready/trigger session.
//
// Ownership boundary:
// - connection registry and host identity
// - session ready flags and rendezvous dispatch
// - status broadcast and trigger delivery
// - HTTP pages and the websocket event channel
//
// All session mutation happens on the goroutine running Coordinator.Run.
// Transport goroutines post events into it and never touch session state.
//
// There is exactly one session per process. Multi-room support is out of
// scope; do not grow the registry into a session map without that need.
package coordinator
