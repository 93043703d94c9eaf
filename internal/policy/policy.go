// Package policy defines the PolicyOracle up-interface (spec.md §2): the
// platform-level gating checks the core consults but never implements
// itself (global enable, airplane/satellite mode, permission state,
// per-app importance).
package policy

import (
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// UID is a caller process identity, the granularity permission and
// foreground/background decisions are made at.
type UID uint32

// Oracle is the PolicyOracle interface.
type Oracle interface {
	IsAppPrivileged(uid UID) bool
	IsAppForeground(uid UID) bool
	BackgroundRangingEnabled() bool
	RangingErrorStreakTimerEnabled() bool
	StoppedParamsEnabled(protocol uci.Protocol) bool
	MaxSessionsPerChip(protocol uci.Protocol, chip uci.ChipID) int
	DefaultSessionPriorityOverride(protocol uci.Protocol) (priority int, ok bool)
	DataDeliveryPermitted(uid UID) bool
}
