// Package uci defines the down-interface to the UWB Controller Interface
// transport (spec.md §6): the set of synchronous command entry points the
// session manager core issues, and the asynchronous notification
// callbacks the transport delivers back. The wire encoding itself is out
// of scope — this package only carries the typed boundary.
package uci

import "context"

// SessionID is the 32-bit session identifier passed across UCI.
type SessionID uint32

// SessionToken is the controller-assigned token UCI returns for a session,
// used to reference that session from another session's parameters (e.g.
// a hybrid-session phase list or a FiRa time-base reference).
type SessionToken uint32

// ChipID identifies one radio chip when a platform multiplexes several.
type ChipID string

// SessionType mirrors the UCI session-type byte.
type SessionType uint8

const (
	SessionTypeRanging SessionType = iota
	SessionTypeDataTransfer
	SessionTypeRadar
	SessionTypeTest
	SessionTypeInBandData
	SessionTypeRangingAndInBandData
	SessionTypeInBandDataPhase
)

// Protocol is the tagged variant over ranging protocols (spec.md §3).
type Protocol uint8

const (
	ProtocolFiRa Protocol = iota
	ProtocolCcc
	ProtocolAliro
	ProtocolRadar
)

func (p Protocol) String() string {
	switch p {
	case ProtocolFiRa:
		return "FiRa"
	case ProtocolCcc:
		return "Ccc"
	case ProtocolAliro:
		return "Aliro"
	case ProtocolRadar:
		return "Radar"
	default:
		return "Unknown"
	}
}

// MulticastAction enumerates the controller multicast list update actions.
type MulticastAction uint8

const (
	MulticastAddShortAddress MulticastAction = iota
	MulticastDeleteShortAddress
	MulticastAdd16ByteKey
	MulticastAdd32ByteKey
)

// MulticastEntry is one address/sub-session pair in a multicast update.
type MulticastEntry struct {
	Address      uint16
	SubSessionID uint32
	SubSessionKey []byte
}

// MulticastEntryStatus is the per-entry outcome UCI reports back.
type MulticastEntryStatus uint8

const (
	MulticastStatusOK MulticastEntryStatus = iota
	MulticastStatusAddressAlreadyPresent
	MulticastStatusAddressNotFound
	MulticastStatusSubSessionKeyNotFound
	MulticastStatusSubSessionKeyNotApplicable
)

// PhaseEntry is one data-transfer phase entry (spec.md §4.4).
type PhaseEntry struct {
	Address     uint16
	IsExtended  bool
	SlotBitmap  []byte
}

// HybridPhase is one phase of a hybrid-session composition, serialized
// little-endian as (SessionToken, startSlotIndex, endSlotIndex) per
// spec.md §4.4.
type HybridPhase struct {
	Token          SessionToken
	StartSlotIndex uint16
	EndSlotIndex   uint16
}

// Transport is the abstract UciTransport dependency (spec.md §2, §6). All
// methods are synchronous and fallible; asynchronous effects arrive later
// through a registered Notifiee.
type Transport interface {
	InitSession(ctx context.Context, id SessionID, typ SessionType, chip ChipID) (Status, error)
	DeinitSession(ctx context.Context, id SessionID, chip ChipID) (Status, error)
	SetAppConfigurations(ctx context.Context, id SessionID, params []byte, chip ChipID, uciVersion int) (Status, error)
	GetAppConfigurations(ctx context.Context, id SessionID, protocol Protocol, keys []byte, chip ChipID, uciVersion int) (Status, []byte, error)
	StartRanging(ctx context.Context, id SessionID, chip ChipID) (Status, error)
	StopRanging(ctx context.Context, id SessionID, chip ChipID) (Status, error)
	ControllerMulticastListUpdate(ctx context.Context, id SessionID, action MulticastAction, entries []MulticastEntry, chip ChipID) (Status, error)
	SendData(ctx context.Context, id SessionID, peerExtendedAddr uint64, seq uint16, payload []byte, chip ChipID) (Status, error)
	SetDataTransferPhaseConfig(ctx context.Context, id SessionID, repetition uint8, control uint8, phases []PhaseEntry, chip ChipID) (Status, error)
	SessionUpdateDtTagRangingRounds(ctx context.Context, id SessionID, indexes []uint8, chip ChipID) (Status, error)
	SetHybridSessionConfiguration(ctx context.Context, id SessionID, updateTime uint64, phases []HybridPhase, chip ChipID) (Status, error)
	QueryMaxDataSizeBytes(ctx context.Context, id SessionID, chip ChipID) (uint32, error)
	GetSessionToken(ctx context.Context, id SessionID, chip ChipID) (SessionToken, error)
	QueryUwbsTimestampMicros(ctx context.Context) (uint64, error)

	// SetNotifiee registers the upward notification sink. Called exactly
	// once by the session manager at construction time.
	SetNotifiee(Notifiee)
}

// Notifiee is the upward SessionNotification callback set (spec.md §2).
// UciTransport implementations invoke these from their own goroutines;
// NotificationRouter is the only consumer and must be safe for concurrent
// calls across distinct session ids.
type Notifiee interface {
	OnSessionStatus(id SessionID, state SessionState, reasonCode ReasonCode)
	OnRangeData(id SessionID, data RangingData)
	OnDataReceived(id SessionID, status Status, seq uint16, peerExtendedAddr uint64, payload []byte)
	OnDataSendStatus(id SessionID, status Status, seq uint16, txCount uint8)
	OnMulticastListUpdate(id SessionID, statuses map[uint16]MulticastEntryStatus)
	OnRadarData(id SessionID, data RadarData)
	OnDataTransferPhaseConfig(id SessionID, status Status)
}

// SessionState mirrors the UCI session-state notification values, one
// layer below the application-visible Session.State (spec.md §4.3).
type SessionState uint8

const (
	SessionStateDeinit SessionState = iota
	SessionStateInit
	SessionStateIdle
	SessionStateActive
)

// MeasurementType distinguishes the three ranging measurement shapes
// spec.md §4.5 names.
type MeasurementType uint8

const (
	MeasurementTwoWay MeasurementType = iota
	MeasurementOwrAoa
	MeasurementDlTdoa
)

// Measurement is one per-peer ranging measurement within a RangingData
// frame.
type Measurement struct {
	PeerAddress uint64
	Status      Status
	IsError     bool
	DistanceCM  int32
	AoaAzimuth  float32
	AoaElevation float32
}

// RangingData is one onRangeData frame (spec.md §4.5).
type RangingData struct {
	Type         MeasurementType
	Measurements []Measurement
}

// RadarData is one onRadarData frame.
type RadarData struct {
	Payload []byte
}
