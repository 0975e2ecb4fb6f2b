package actor

import "github.com/rs/zerolog/log"

// LogState renders a State as one log line.
func LogState(s State) {
	log.Info().
		Str("role", s.Role.String()).
		Bool("connected", s.Connected).
		Str("self", readyWord(s.SelfReady)).
		Str("peer", readyWord(s.PeerReady)).
		Bool("ready_enabled", s.ReadyEnabled).
		Msg("status")
}

func readyWord(ready bool) string {
	if ready {
		return "ready"
	}
	return "waiting"
}
