package transport

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidAddress = errors.New("transport: invalid address")

// EventChannelPath is where the coordinator upgrades websocket connections.
const EventChannelPath = "/ws"

// EventChannelURL turns a configured coordinator address (http(s)://, ws(s)://
// or bare host:port) into the websocket URL actors dial. An empty path
// becomes EventChannelPath.
func EventChannelURL(address string, tlsEnabled bool) (string, error) {
	raw := strings.TrimSpace(address)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if !strings.Contains(raw, "://") {
		scheme := "ws"
		if tlsEnabled {
			scheme = "wss"
		}
		raw = scheme + "://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
		if tlsEnabled {
			u.Scheme = "wss"
		}
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrInvalidAddress, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidAddress, address)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = EventChannelPath
	}
	return u.String(), nil
}
