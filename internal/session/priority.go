package session

import (
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/config"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// DefaultPriority returns the default priority band for a protocol and
// foreground state (spec.md §4.8). FiRa's default varies by foreground
// state and whether the caller is a system app; CCC/ALIRO always use
// their fixed band.
func DefaultPriority(bands config.PriorityBands, protocol uci.Protocol, isSystemApp, isForeground bool) int {
	switch protocol {
	case uci.ProtocolAliro:
		return bands.Aliro
	case uci.ProtocolCcc:
		return bands.Ccc
	}
	switch {
	case isSystemApp:
		return bands.SystemApp
	case isForeground:
		return bands.Foreground
	default:
		return bands.Background
	}
}

// RecomputeStackPriority updates s.StackPriority in place per spec.md
// §4.8/§4.7: a session with PriorityOverride keeps its caller-supplied
// priority across fg/bg transitions; a session without one reconverges to
// the current band.
func RecomputeStackPriority(s *Session, bands config.PriorityBands, isSystemApp, isForeground bool) {
	if s.Params.PriorityOverride() {
		s.StackPriority = s.Params.SessionPriority()
		return
	}
	s.StackPriority = DefaultPriority(bands, s.Protocol, isSystemApp, isForeground)
}
