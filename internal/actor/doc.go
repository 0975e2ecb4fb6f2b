// Package actor implements the client side of the ready/trigger handshake.
//
// A Client holds one event channel to the coordinator for one role. It sends
// readiness, keeps the last status_update, and derives whether the ready
// affordance is enabled. Only a host client reacts to proceed_click; the host
// runs its physical action through an Executor off the read loop, guarded by
// a local busy flag because the coordinator does not track actions in flight.
//
// HostRunner keeps a host connected across coordinator restarts. Each
// successful connect registers the host again; registration is never replayed
// implicitly by the Client.
package actor
