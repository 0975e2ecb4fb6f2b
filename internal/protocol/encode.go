package protocol

import (
	"encoding/json"
	"fmt"
)

// Encode marshals one envelope to its wire form.
func Encode(env Envelope) ([]byte, error) {
	if !env.Event.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	return json.Marshal(env)
}

// NewEnvelope builds an envelope, marshaling data when it is non-nil.
func NewEnvelope(event Event, data any) (Envelope, error) {
	env := Envelope{Event: event}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("protocol: marshal %s payload: %w", event, err)
	}
	env.Data = raw
	return env, nil
}

func RegisterHost() Envelope {
	return Envelope{Event: EventRegisterHost}
}

func ProceedClick() Envelope {
	return Envelope{Event: EventProceedClick}
}

func Ready(role Role) (Envelope, error) {
	if !role.Valid() {
		return Envelope{}, fmt.Errorf("%w: %q", ErrInvalidRole, string(role))
	}
	return NewEnvelope(EventReady, ReadyPayload{Player: role})
}

// Status cannot fail: StatusUpdate has only bool fields.
func Status(snapshot StatusUpdate) Envelope {
	env, _ := NewEnvelope(EventStatusUpdate, snapshot)
	return env
}
