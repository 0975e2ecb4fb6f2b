package action

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownKey = errors.New("action: unknown key")

// Key is a normalized trigger key name.
type Key string

const DefaultTriggerKey Key = "RETURN"

var keyAliases = map[string]Key{
	"ENTER":  "RETURN",
	"ESC":    "ESCAPE",
	"DEL":    "DELETE",
	"PGUP":   "PAGEUP",
	"PGDOWN": "PAGEDOWN",
	" ":      "SPACE",
}

var namedKeys = map[Key]struct{}{
	"RETURN": {}, "SPACE": {}, "TAB": {}, "ESCAPE": {}, "BACKSPACE": {},
	"INSERT": {}, "DELETE": {}, "HOME": {}, "END": {}, "PAGEUP": {}, "PAGEDOWN": {},
	"UP": {}, "DOWN": {}, "LEFT": {}, "RIGHT": {},
}

// ParseKey normalizes a key name: upper-case letters, digits, F1-F12 and a
// fixed set of named keys are recognized.
func ParseKey(raw string) (Key, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if raw == " " {
		name = " "
	}
	if alias, ok := keyAliases[name]; ok {
		return alias, nil
	}
	if _, ok := namedKeys[Key(name)]; ok {
		return Key(name), nil
	}
	if len(name) == 1 && ((name[0] >= 'A' && name[0] <= 'Z') || (name[0] >= '0' && name[0] <= '9')) {
		return Key(name), nil
	}
	if isFunctionKey(name) {
		return Key(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, raw)
}

// ResolveTriggerKey falls back to DefaultTriggerKey for unrecognized names,
// returning the parse error so callers can warn.
func ResolveTriggerKey(raw string) (Key, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultTriggerKey, nil
	}
	key, err := ParseKey(raw)
	if err != nil {
		return DefaultTriggerKey, err
	}
	return key, nil
}

// KeyFromByte maps one raw terminal byte to a key name.
func KeyFromByte(b byte) (Key, bool) {
	switch {
	case b == '\r' || b == '\n':
		return "RETURN", true
	case b == ' ':
		return "SPACE", true
	case b == '\t':
		return "TAB", true
	case b == 0x1b:
		return "ESCAPE", true
	case b == 0x7f || b == 0x08:
		return "BACKSPACE", true
	case b >= 'a' && b <= 'z':
		return Key(string(b - 'a' + 'A')), true
	case (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9'):
		return Key(string(b)), true
	default:
		return "", false
	}
}

func isFunctionKey(name string) bool {
	if len(name) < 2 || len(name) > 3 || name[0] != 'F' {
		return false
	}
	n := 0
	for _, r := range name[1:] {
		if r < '0' || r > '9' {
			return false
		}
		n = n*10 + int(r-'0')
	}
	return n >= 1 && n <= 12
}
