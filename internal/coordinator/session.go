package coordinator

import "github.com/danmuck/readyctl/internal/protocol"

// Phase names the flag combination of a session.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseHostReady        Phase = "host_ready"
	PhaseParticipantReady Phase = "participant_ready"
	PhaseBothReady        Phase = "both_ready"
)

// Session holds the ready flags of the single rendezvous.
// Flags are monotone per role until Reset.
type Session struct {
	HostReady        bool
	ParticipantReady bool
}

// MarkReady sets the flag for role and reports whether it changed.
func (s *Session) MarkReady(role protocol.Role) bool {
	switch role {
	case protocol.RoleHost:
		changed := !s.HostReady
		s.HostReady = true
		return changed
	case protocol.RoleParticipant:
		changed := !s.ParticipantReady
		s.ParticipantReady = true
		return changed
	default:
		return false
	}
}

func (s *Session) Reset() {
	s.HostReady = false
	s.ParticipantReady = false
}

func (s Session) BothReady() bool {
	return s.HostReady && s.ParticipantReady
}

func (s Session) Status() protocol.StatusUpdate {
	return protocol.StatusUpdate{
		HostReady:        s.HostReady,
		ParticipantReady: s.ParticipantReady,
	}
}

func (s Session) Phase() Phase {
	switch {
	case s.HostReady && s.ParticipantReady:
		return PhaseBothReady
	case s.HostReady:
		return PhaseHostReady
	case s.ParticipantReady:
		return PhaseParticipantReady
	default:
		return PhaseIdle
	}
}
