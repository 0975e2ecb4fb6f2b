package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode parses one wire frame into an envelope with a known event.
func Decode(raw []byte, maxBytes int) (Envelope, error) {
	if maxBytes > 0 && len(raw) > maxBytes {
		return Envelope{}, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(raw), maxBytes)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event", ErrMalformedEnvelope)
	}
	if !env.Event.Known() {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	return env, nil
}

// DecodeInbound parses a client -> coordinator frame.
func DecodeInbound(raw []byte, maxBytes int) (Envelope, error) {
	env, err := Decode(raw, maxBytes)
	if err != nil {
		return Envelope{}, err
	}
	if !env.Event.Inbound() {
		return Envelope{}, fmt.Errorf("%w: %s", ErrDirectionMismatch, env.Event)
	}
	return env, nil
}

// DecodeOutbound parses a coordinator -> client frame.
func DecodeOutbound(raw []byte, maxBytes int) (Envelope, error) {
	env, err := Decode(raw, maxBytes)
	if err != nil {
		return Envelope{}, err
	}
	if !env.Event.Outbound() {
		return Envelope{}, fmt.Errorf("%w: %s", ErrDirectionMismatch, env.Event)
	}
	return env, nil
}

// ReadyRole extracts and validates the role carried by a ready envelope.
func (e Envelope) ReadyRole() (Role, error) {
	if e.Event != EventReady {
		return RoleUnknown, fmt.Errorf("%w: %s is not %s", ErrUnexpectedPayload, e.Event, EventReady)
	}
	if !hasData(e.Data) {
		return RoleUnknown, fmt.Errorf("%w: ready without player", ErrInvalidRole)
	}
	var p struct {
		Player string `json:"player"`
	}
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return RoleUnknown, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return ParseRole(p.Player)
}

// StatusUpdate extracts the snapshot carried by a status_update envelope.
func (e Envelope) StatusUpdate() (StatusUpdate, error) {
	if e.Event != EventStatusUpdate {
		return StatusUpdate{}, fmt.Errorf("%w: %s is not %s", ErrUnexpectedPayload, e.Event, EventStatusUpdate)
	}
	var s StatusUpdate
	if !hasData(e.Data) {
		return s, fmt.Errorf("%w: status_update without data", ErrMalformedEnvelope)
	}
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return StatusUpdate{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return s, nil
}

func hasData(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
