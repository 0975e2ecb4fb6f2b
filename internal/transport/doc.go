// Package transport owns the event channel policy shared by coordinator and actors.
//
// Ownership boundary:
// - connect/read/write timeouts
// - reconnect backoff
// - transport security mode and TLS material
package transport
