// Package session implements the per-session state machine and the
// process-wide SessionTable (spec.md §3, §4.1, §4.3). It is grounded on
// the teacher's internal/pfcp.Sess: a per-entity struct holding
// protocol-keyed rule/id sets plus a per-key outbound queue, owned
// exclusively by its parent table and mutated only from one serialized
// caller.
package session

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/policy"
)

// Handle is the opaque caller-minted session identity (spec.md §3).
type Handle uint64

// State is the application-visible session lifecycle state (spec.md §4.3).
type State uint8

const (
	StateDeinit State = iota
	StateInit
	StateIdle
	StateActive
	StateError
)

func (s State) String() string {
	switch s {
	case StateDeinit:
		return "Deinit"
	case StateInit:
		return "Init"
	case StateIdle:
		return "Idle"
	case StateActive:
		return "Active"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Operation is the last-requested operation on a session (spec.md §3).
type Operation uint8

const (
	OperationNone Operation = iota
	OperationInitSession
	OperationStart
	OperationStop
	OperationReconfigure
	OperationDeinit
	OperationOnDeinit
	OperationSendData
	OperationUpdateDtTagRounds
	OperationDataTransferPhaseConfig
	OperationPause
	OperationResume
)

// AttributionSourceLink is one link in a caller's attribution chain.
type AttributionSourceLink struct {
	UID     policy.UID
	Package string
}

// AttributionSource is the full chain for a session's opening caller.
type AttributionSource []AttributionSourceLink

// FirstNonPrivileged returns the first link in the chain that the policy
// oracle does not consider privileged, and whether one exists
// (spec.md §4.2 step 1).
func (a AttributionSource) FirstNonPrivileged(oracle policy.Oracle) (AttributionSourceLink, bool) {
	for _, link := range a {
		if !oracle.IsAppPrivileged(link.UID) {
			return link, true
		}
	}
	return AttributionSourceLink{}, false
}

// Controlee is one peer under a controller session (spec.md §3).
type Controlee struct {
	Address      uint16
	FilterEngine FilterEngine
	PoseBinding  PoseBinding
}

// FilterEngine is the out-of-core AoA post-processing collaborator; the
// core only knows it must be closed when its controlee is removed.
type FilterEngine interface {
	Close() error
}

// PoseBinding is the out-of-core pose-source collaborator a controlee may
// be bound to.
type PoseBinding interface {
	Release()
}

// ReceivedDataInfo is one buffered inbound data payload (spec.md §3).
type ReceivedDataInfo struct {
	SequenceNumber uint16
	PeerAddress    uint64
	Payload        []byte
}

// SendDataInfo tracks one outstanding outbound data payload by sequence
// number (spec.md §3).
type SendDataInfo struct {
	PeerAddress uint64
	Params      []byte
	Payload     []byte
	TxCount     uint8
}

// RxBuffer is the per-peer ordered map of buffered received payloads,
// bounded by rxMaxPacketsToStore (spec.md §3 invariants). Backed by
// wk8/go-ordered-map/v2, which the spec's own wording ("orderedMap") asks
// for directly.
type RxBuffer = orderedmap.OrderedMap[uint16, ReceivedDataInfo]

// NewRxBuffer constructs an empty per-peer receive buffer.
func NewRxBuffer() *RxBuffer {
	return orderedmap.New[uint16, ReceivedDataInfo]()
}

// TxTracking is the sequenceNumber -> SendDataInfo map (spec.md §3),
// backed by the same ordered-map type so tx accounting can be walked in
// allocation order for diagnostics.
type TxTracking = orderedmap.OrderedMap[uint16, SendDataInfo]

// NewTxTracking constructs an empty tx-tracking table.
func NewTxTracking() *TxTracking {
	return orderedmap.New[uint16, SendDataInfo]()
}

// Timers holds the two single-shot per-session alarms (spec.md §4.9).
type Timers struct {
	RangingErrorStreakDeadline *time.Time
	NonPrivilegedBgDeadline    *time.Time
}

// Flags holds the session's boolean state bits (spec.md §3).
type Flags struct {
	DataDeliveryPermissionCheckNeeded bool
	NeedsAppConfigUpdate              bool
	NeedsUwbsTimestampQuery           bool
	AcquiredDefaultPose               bool
	HasNonPrivilegedFgAppOrService    bool
}
