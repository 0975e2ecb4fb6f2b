package action

import "strconv"

const escByte = 0x1b

// maxSequence bounds a pending escape sequence; longer input is dropped.
const maxSequence = 16

// Keystroke is one decoded terminal input. Key is empty for control bytes
// that have no key name, in which case Ctrl holds the byte.
type Keystroke struct {
	Key  Key
	Ctrl byte
}

var csiFinalKeys = map[byte]Key{
	'A': "UP", 'B': "DOWN", 'C': "RIGHT", 'D': "LEFT",
	'H': "HOME", 'F': "END",
	'P': "F1", 'Q': "F2", 'R': "F3", 'S': "F4",
}

var csiTildeKeys = map[int]Key{
	1: "HOME", 2: "INSERT", 3: "DELETE", 4: "END", 5: "PAGEUP", 6: "PAGEDOWN",
	7: "HOME", 8: "END",
	11: "F1", 12: "F2", 13: "F3", 14: "F4", 15: "F5",
	17: "F6", 18: "F7", 19: "F8", 20: "F9", 21: "F10", 23: "F11", 24: "F12",
}

var ss3Keys = map[byte]Key{
	'A': "UP", 'B': "DOWN", 'C': "RIGHT", 'D': "LEFT",
	'H': "HOME", 'F': "END", 'M': "RETURN",
	'P': "F1", 'Q': "F2", 'R': "F3", 'S': "F4",
}

// linux console F1-F5: ESC [ [ A .. ESC [ [ E
var linuxFunctionKeys = map[byte]Key{'A': "F1", 'B': "F2", 'C': "F3", 'D': "F4", 'E': "F5"}

// KeyDecoder turns raw-mode terminal reads into keystrokes. CSI and SS3
// sequences decode to named keys and may span reads. An ESC that ends a
// read is the ESCAPE key. ESC followed by anything else is an alt chord
// and is dropped together with the chorded byte.
type KeyDecoder struct {
	pending []byte
}

// Decode consumes one read and returns the complete keystrokes in it.
func (d *KeyDecoder) Decode(chunk []byte) []Keystroke {
	buf := append(d.pending, chunk...)
	d.pending = nil
	var out []Keystroke
	for i := 0; i < len(buf); {
		b := buf[i]
		if b != escByte {
			if key, ok := KeyFromByte(b); ok {
				out = append(out, Keystroke{Key: key})
			} else if b < 0x20 {
				out = append(out, Keystroke{Ctrl: b})
			}
			i++
			continue
		}
		if i+1 == len(buf) {
			out = append(out, Keystroke{Key: "ESCAPE"})
			i++
			continue
		}
		n, key, complete := decodeEscape(buf[i:])
		if !complete {
			if len(buf)-i <= maxSequence {
				d.pending = append([]byte(nil), buf[i:]...)
			}
			break
		}
		if key != "" {
			out = append(out, Keystroke{Key: key})
		}
		i += n
	}
	return out
}

// decodeEscape reads a sequence starting at ESC with at least one more byte.
// It returns the bytes consumed and the key, which is empty for sequences
// with no key name.
func decodeEscape(seq []byte) (int, Key, bool) {
	switch seq[1] {
	case '[':
		return decodeCSI(seq)
	case escByte:
		return 1, "ESCAPE", true
	case 'O':
		if len(seq) < 3 {
			return 0, "", false
		}
		return 3, ss3Keys[seq[2]], true
	default:
		return 2, "", true
	}
}

func decodeCSI(seq []byte) (int, Key, bool) {
	if len(seq) < 3 {
		return 0, "", false
	}
	if seq[2] == '[' {
		if len(seq) < 4 {
			return 0, "", false
		}
		return 4, linuxFunctionKeys[seq[3]], true
	}
	for i := 2; i < len(seq); i++ {
		c := seq[i]
		switch {
		case c >= 0x20 && c <= 0x3f:
			continue
		case c >= 0x40 && c <= 0x7e:
			params := string(seq[2:i])
			if c == '~' {
				return i + 1, csiTildeKeys[firstParam(params)], true
			}
			return i + 1, csiFinalKeys[c], true
		default:
			// malformed; consume up to here
			return i, "", true
		}
	}
	return 0, "", false
}

func firstParam(params string) int {
	for i := 0; i < len(params); i++ {
		if params[i] == ';' {
			params = params[:i]
			break
		}
	}
	n, err := strconv.Atoi(params)
	if err != nil {
		return 0
	}
	return n
}
