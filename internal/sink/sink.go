// Package sink defines the up-interface to the application-facing
// notification facade (spec.md §2, §6). The core only ever calls into a
// Sink; it never holds a reference back into the application beyond a
// SessionHandle.
package sink

import (
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// SessionHandle is the opaque caller-minted session identity (spec.md §3).
type SessionHandle uint64

// Params is the opaque, protocol-tagged parameter bundle a session was
// opened or reconfigured with; its field-level shape is explicitly out of
// scope (spec.md §1 Non-goals) so the sink only ever receives it as a
// value to hand back to the application unopened.
type Params interface {
	Protocol() uci.Protocol
}

// ControleeAddress identifies one controlee in add/remove callbacks.
type ControleeAddress uint16

// RangingReport is the sink-facing rendering of a uci.RangingData frame.
type RangingReport struct {
	Type         uci.MeasurementType
	Measurements []uci.Measurement
}

// Sink is the NotificationSink up-interface (spec.md §6).
type Sink interface {
	RangingOpened(h SessionHandle)
	RangingOpenFailed(h SessionHandle, reason uci.Reason, params Params)
	RangingStarted(h SessionHandle, params Params)
	RangingStartFailed(h SessionHandle, reason uci.Reason)
	RangingStopped(h SessionHandle, reason uci.Reason, params Params)
	RangingStopFailed(h SessionHandle, reason uci.Reason)
	RangingReconfigured(h SessionHandle)
	RangingReconfigureFailed(h SessionHandle, reason uci.Reason)
	RangingClosed(h SessionHandle, reason uci.Reason, params Params)
	RangingPaused(h SessionHandle)
	RangingPauseFailed(h SessionHandle, reason uci.Reason)
	RangingResumed(h SessionHandle)
	RangingResumeFailed(h SessionHandle, reason uci.Reason)

	ControleeAdded(h SessionHandle, addr ControleeAddress)
	ControleeAddFailed(h SessionHandle, addr ControleeAddress, reason uci.Reason)
	ControleeRemoved(h SessionHandle, addr ControleeAddress)
	ControleeRemoveFailed(h SessionHandle, addr ControleeAddress, reason uci.Reason)

	RangingResult(h SessionHandle, report RangingReport)

	DataReceived(h SessionHandle, peerAddress uint64, seq uint16, payload []byte)
	DataReceiveFailed(h SessionHandle, peerAddress uint64, reason uci.Reason)
	DataSent(h SessionHandle, seq uint16)
	DataSendFailed(h SessionHandle, seq uint16, reason uci.Reason)

	DataTransferPhaseConfigured(h SessionHandle)
	DataTransferPhaseConfigFailed(h SessionHandle, reason uci.Reason)

	DtTagRoundsUpdateStatus(h SessionHandle, status uci.Status)
	RadarDataReceived(h SessionHandle, data uci.RadarData)
}
