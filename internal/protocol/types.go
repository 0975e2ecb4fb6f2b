package protocol

import (
	"encoding/json"
	"fmt"
)

// Event names one message kind on the event channel.
type Event string

const (
	// Client -> Coordinator.
	EventRegisterHost Event = "register_host_client"
	EventReady        Event = "ready"

	// Coordinator -> Client.
	EventStatusUpdate Event = "status_update"
	EventProceedClick Event = "proceed_click"
)

// DefaultMaxMessageBytes bounds one inbound envelope.
const DefaultMaxMessageBytes = 4096

// Inbound reports whether the event travels client -> coordinator.
func (e Event) Inbound() bool {
	return e == EventRegisterHost || e == EventReady
}

// Outbound reports whether the event travels coordinator -> client.
func (e Event) Outbound() bool {
	return e == EventStatusUpdate || e == EventProceedClick
}

func (e Event) Known() bool {
	return e.Inbound() || e.Outbound()
}

// Role is one of the two actor roles in a session.
type Role string

const (
	RoleUnknown     Role = ""
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

// ParseRole matches the exact lowercase role literals.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleHost:
		return RoleHost, nil
	case RoleParticipant:
		return RoleParticipant, nil
	default:
		return RoleUnknown, fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

func (r Role) Valid() bool {
	return r == RoleHost || r == RoleParticipant
}

// Peer returns the opposite role.
func (r Role) Peer() Role {
	switch r {
	case RoleHost:
		return RoleParticipant
	case RoleParticipant:
		return RoleHost
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	if r == RoleUnknown {
		return "unknown"
	}
	return string(r)
}

// Envelope is the single tagged message shape carried by every frame.
type Envelope struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ReadyPayload is the data of a ready event.
type ReadyPayload struct {
	Player Role `json:"player"`
}

// StatusUpdate is the session snapshot broadcast to every connection.
type StatusUpdate struct {
	HostReady        bool `json:"host_ready"`
	ParticipantReady bool `json:"participant_ready"`
}

// Ready reports the flag for one role.
func (s StatusUpdate) Ready(role Role) bool {
	switch role {
	case RoleHost:
		return s.HostReady
	case RoleParticipant:
		return s.ParticipantReady
	default:
		return false
	}
}

func (s StatusUpdate) BothReady() bool {
	return s.HostReady && s.ParticipantReady
}
