package protocol

import "errors"

var (
	ErrMalformedEnvelope = errors.New("protocol: malformed envelope")
	ErrUnknownEvent      = errors.New("protocol: unknown event")
	ErrInvalidRole       = errors.New("protocol: invalid role")
	ErrUnexpectedPayload = errors.New("protocol: unexpected payload")
	ErrPayloadTooLarge   = errors.New("protocol: payload too large")
	ErrDirectionMismatch = errors.New("protocol: event not valid in this direction")
)
