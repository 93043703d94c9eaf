package main

import (
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/policy"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// permissiveOracle is a policy.Oracle that allows everything, used by
// "serve" in place of a real platform binding.
type permissiveOracle struct{}

func (permissiveOracle) IsAppPrivileged(uid policy.UID) bool          { return false }
func (permissiveOracle) IsAppForeground(uid policy.UID) bool          { return true }
func (permissiveOracle) BackgroundRangingEnabled() bool                { return true }
func (permissiveOracle) RangingErrorStreakTimerEnabled() bool          { return true }
func (permissiveOracle) StoppedParamsEnabled(protocol uci.Protocol) bool { return protocol == uci.ProtocolCcc || protocol == uci.ProtocolAliro }
func (permissiveOracle) MaxSessionsPerChip(protocol uci.Protocol, chip uci.ChipID) int {
	switch protocol {
	case uci.ProtocolFiRa:
		return 5
	default:
		return 1
	}
}
func (permissiveOracle) DefaultSessionPriorityOverride(protocol uci.Protocol) (int, bool) {
	return 0, false
}
func (permissiveOracle) DataDeliveryPermitted(uid policy.UID) bool { return true }
