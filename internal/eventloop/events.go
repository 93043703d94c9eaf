// Package eventloop implements the EventLoop (spec.md §4.4, §5): a
// serialized executor that owns all session mutations, accepting typed
// events and driving each through a UCI command + bounded wait on a
// one-shot worker. The teacher's two-phase Validate*/Apply* split in
// internal/pfcp/node.go (validate and build a plan without touching
// state, then apply the plan once the operation is known to have
// succeeded) is the shape every handler here follows.
package eventloop

import (
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/policy"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// OpenRequest opens a new ranging/data-transfer/radar session.
type OpenRequest struct {
	Handle      session.Handle
	ID          uci.SessionID
	Type        uci.SessionType
	Protocol    uci.Protocol
	Chip        uci.ChipID
	Attribution session.AttributionSource
	Params      session.Params
}

// StartRequest starts ranging on an Idle session, optionally carrying
// updated RAN multiplier / initiation time / STS index (spec.md §4.4).
type StartRequest struct {
	Handle          session.Handle
	RanMultiplier   *uint8
	RelativeInitMs  *uint32
	AbsoluteInitUs  *uint64
	StsIndex        *uint32
}

// StopRequest stops an Active session.
type StopRequest struct {
	Handle session.Handle
	Reason uci.Reason // ReasonSystemPolicy for timer-triggered stops, ReasonLocalApi otherwise
}

// ReconfigureRequest carries a params delta and/or a multicast update.
type ReconfigureRequest struct {
	Handle   session.Handle
	Params   session.Params // non-nil if the params themselves changed
	Multicast *MulticastUpdate
}

// MulticastUpdate is one controllerMulticastListUpdate request
// (spec.md §4.4).
type MulticastUpdate struct {
	Action        uci.MulticastAction
	Entries       []uci.MulticastEntry
	SubSessionIDs []uint32 // defaults to zeroes per entry if omitted
	Phases        []uci.HybridPhase // phase-list variant (SPEC_FULL.md §5); not forwarded to UCI
}

// DeinitRequest closes a session.
type DeinitRequest struct {
	Handle session.Handle
}

// SendDataRequest sends one payload on an Active session.
type SendDataRequest struct {
	Handle      session.Handle
	PeerAddress uint64
	Payload     []byte
}

// UpdateDtTagRoundsRequest updates a DT-Tag session's active ranging
// round indexes.
type UpdateDtTagRoundsRequest struct {
	Handle  session.Handle
	Indexes []uint8
}

// DataTransferPhaseConfigRequest configures data-transfer phase
// scheduling (spec.md §4.4).
type DataTransferPhaseConfigRequest struct {
	Handle     session.Handle
	Repetition uint8
	Control    uint8
	Phases     []uci.PhaseEntry
}

// HybridSessionConfigRequest composes a hybrid session (spec.md §4.4).
type HybridSessionConfigRequest struct {
	Handle     session.Handle
	UpdateTime uint64
	Phases     []uci.HybridPhase
}

// PauseRequest and ResumeRequest are notification-driven (not
// caller-initiated) transitions supplementing spec.md per SPEC_FULL.md §5:
// the session manager enqueues these itself on receipt of an
// InbandSuspended/InbandResumed reason code.
type PauseRequest struct{ Handle session.Handle }
type ResumeRequest struct{ Handle session.Handle }

// UnsolicitedDeinitRequest is the event NotificationRouter enqueues when
// UCI reports a session has reached Deinit on its own (spec.md §4.5
// onSessionStatus routing rule). No client-death path sends it.
type UnsolicitedDeinitRequest struct {
	Handle session.Handle
	Reason uci.Reason
}

// UID is re-exported for callers building AttributionSource chains
// without importing policy directly.
type UID = policy.UID
