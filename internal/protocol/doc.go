// Package protocol owns the coordinator<->actor event contract.
//
// Ownership boundary:
// - event names and payload shapes
// - envelope encode/decode
// - role parsing and validation
//
// Every frame on the event channel is one JSON envelope:
//
//	{"event": "ready", "data": {"player": "host"}}
//
// Payload-free events (register_host_client, proceed_click) omit data.
package protocol
