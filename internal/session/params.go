package session

import (
	"encoding/binary"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// DeviceRole distinguishes a session's role in the ranging exchange.
type DeviceRole uint8

const (
	DeviceRoleController DeviceRole = iota
	DeviceRoleControlee
	DeviceRoleObserver
	DeviceRoleAdvertiser
)

// RangingRoundUsage distinguishes the measurement shape a session uses,
// driving how NotificationRouter and AdvertiseManager interpret frames.
type RangingRoundUsage uint8

const (
	RangingRoundTwoWay RangingRoundUsage = iota
	RangingRoundOwrAoaMeasurement
	RangingRoundDlTdoa
)

// StsConfig mirrors the UCI STS configuration mode.
type StsConfig uint8

const (
	StsConfigStatic StsConfig = iota
	StsConfigDynamic
	StsConfigProvisioned
	StsConfigProvisionedIndividualKey
)

// RngDataNtfControl is the live notification-control override used by
// AppStateWatcher (spec.md §4.7). It is stored on the params value itself
// (SetRngDataNtfControl); the stored proximity bounds are left unchanged.
type RngDataNtfControl uint8

const (
	RngDataNtfEnabled RngDataNtfControl = iota
	RngDataNtfDisable
)

// ProximityBounds is the near/far range a FiRa session's ranging-data
// notification is bounded to.
type ProximityBounds struct {
	NearCM int32
	FarCM  int32
}

// Params is the tagged variant over protocol parameter bundles
// (spec.md §9). Command handlers switch on Protocol() and then assert the
// concrete type they expect; an immutable-by-default record mutated only
// through the defined reconfigure paths.
type Params interface {
	Protocol() uci.Protocol
	SessionPriority() int
	PriorityOverride() bool
	StsConfig() StsConfig
}

type baseParams struct {
	sessionPriority   int
	priorityOverride  bool
	destAddressList   []uint16
	stsConfig         StsConfig
	sessionKey        []byte
	rxMaxPacketsToStore int
	rngDataNtf        ProximityBounds
	rngDataNtfControl RngDataNtfControl
	deviceRole        DeviceRole
	rangingRoundUsage RangingRoundUsage
	relativeInitMs    *uint32
	absoluteInitUs    *uint64
	dataRepetitionCount int
}

func (b baseParams) SessionPriority() int   { return b.sessionPriority }
func (b baseParams) PriorityOverride() bool { return b.priorityOverride }
func (b baseParams) StsConfig() StsConfig   { return b.stsConfig }
func (b baseParams) RangingRoundUsage() RangingRoundUsage { return b.rangingRoundUsage }
func (b baseParams) DeviceRole() DeviceRole               { return b.deviceRole }
func (b baseParams) RxMaxPacketsToStore() int             { return b.rxMaxPacketsToStore }
func (b baseParams) RngDataNtfBounds() ProximityBounds    { return b.rngDataNtf }

// SetRngDataNtfControl applies AppStateWatcher's live notification-control
// override (spec.md §4.7) without mutating anything else about the stored
// params.
func (b *baseParams) SetRngDataNtfControl(c RngDataNtfControl) { b.rngDataNtfControl = c }

// RngDataNtfControl returns the current (possibly overridden)
// notification-control setting.
func (b baseParams) RngDataNtfControl() RngDataNtfControl { return b.rngDataNtfControl }

// SetDeviceRole and SetRangingRoundUsage let a caller building a params
// bundle outside this package (tests, a protocol decoder) configure the
// RangingShape fields IsOwrAoaObserver depends on without needing direct
// access to baseParams' unexported fields.
func (b *baseParams) SetDeviceRole(r DeviceRole)               { b.deviceRole = r }
func (b *baseParams) SetRangingRoundUsage(u RangingRoundUsage) { b.rangingRoundUsage = u }

// SetRngDataNtfBounds sets the stored proximity bounds a ranging-data
// notification is gated to.
func (b *baseParams) SetRngDataNtfBounds(p ProximityBounds) { b.rngDataNtf = p }

// RangingShape is implemented by every protocol parameter bundle; it
// exposes the fields AdvertiseManager and the rx-buffer bound need
// without the caller having to type-switch on the concrete protocol.
type RangingShape interface {
	RangingRoundUsage() RangingRoundUsage
	DeviceRole() DeviceRole
	RxMaxPacketsToStore() int
	RngDataNtfBounds() ProximityBounds
}

// FiRaParams is the FiRa protocol parameter bundle.
type FiRaParams struct {
	baseParams
	RanMultiplier    uint8
	RangingIntervalMs uint32
	TimeBaseRef      *Handle // substituted for a SessionToken before apply (spec.md §4.4)
}

// NewFiRaParams builds a FiRaParams from the shared base fields, for
// callers outside this package (tests, a protocol decoder) that cannot
// name the unexported baseParams field directly in a struct literal.
func NewFiRaParams(priority int, isDefaultPriority bool, destAddrs []uint16, sts StsConfig, key []byte, rxMax int) *FiRaParams {
	return &FiRaParams{baseParams: NewBaseParams(priority, isDefaultPriority, destAddrs, sts, key, rxMax)}
}

// RangingInterval returns the session's current ranging interval, used to
// raise the start/stop deadline floor to 4x it (spec.md §5).
func (p *FiRaParams) RangingInterval() uint32 { return p.RangingIntervalMs }

func (FiRaParams) Protocol() uci.Protocol { return uci.ProtocolFiRa }

// RelativeInitMs, AbsoluteInitUs, and SetAbsoluteInitUs support the
// open-handler's relative-to-absolute initiation time computation
// (spec.md §4.4): UCI protocol >= 2.0 sessions may carry a relative
// initiation time that gets resolved against a UWBS timestamp query.
func (p *FiRaParams) RelativeInitMs() *uint32      { return p.relativeInitMs }
func (p *FiRaParams) AbsoluteInitUs() *uint64      { return p.absoluteInitUs }
func (p *FiRaParams) SetAbsoluteInitUs(v *uint64)  { p.absoluteInitUs = v }
func (p *FiRaParams) SetRelativeInitMs(v *uint32)  { p.relativeInitMs = v }

// CccParams is the CCC protocol parameter bundle.
type CccParams struct {
	baseParams
	StsIndex uint32
}

// NewCccParams builds a CccParams from the shared base fields, for callers
// outside this package that cannot name the unexported baseParams field.
func NewCccParams(priority int, isDefaultPriority bool, destAddrs []uint16, sts StsConfig, key []byte, rxMax int) *CccParams {
	return &CccParams{baseParams: NewBaseParams(priority, isDefaultPriority, destAddrs, sts, key, rxMax)}
}

func (CccParams) Protocol() uci.Protocol { return uci.ProtocolCcc }

// AliroParams is the ALIRO protocol parameter bundle.
type AliroParams struct {
	baseParams
	StsIndex uint32
}

// NewAliroParams builds an AliroParams from the shared base fields, for
// callers outside this package that cannot name the unexported baseParams
// field.
func NewAliroParams(priority int, isDefaultPriority bool, destAddrs []uint16, sts StsConfig, key []byte, rxMax int) *AliroParams {
	return &AliroParams{baseParams: NewBaseParams(priority, isDefaultPriority, destAddrs, sts, key, rxMax)}
}

func (AliroParams) Protocol() uci.Protocol { return uci.ProtocolAliro }

// RadarParams is the radar protocol parameter bundle.
type RadarParams struct {
	baseParams
	BurstPeriodMs uint32
}

func (RadarParams) Protocol() uci.Protocol { return uci.ProtocolRadar }

// EncodeAppConfig produces the TLV-shaped byte payload SetAppConfigurations
// sends to UCI. The exact application-parameter wire format is explicitly
// out of scope (spec.md §1 Non-goals); this only needs to be a stable
// internal encoding a mock transport can round-trip in tests, not a
// bit-exact rendering of the real UCI TLV set.
//
// A FiRaParams with a resolved AbsoluteInitUs (spec.md §4.4's
// relative-to-absolute initiation time computation) appends it as a
// trailing 9-byte TLV (1-byte present flag + 8-byte little-endian
// microsecond value) so the computed value actually reaches UCI instead
// of being discarded after computation.
func EncodeAppConfig(p Params) []byte {
	buf := make([]byte, 9)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(p.Protocol()))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.SessionPriority()))
	if shape, ok := p.(interface{ RngDataNtfControl() RngDataNtfControl }); ok {
		buf[8] = byte(shape.RngDataNtfControl())
	}
	if fira, ok := p.(*FiRaParams); ok {
		if abs := fira.AbsoluteInitUs(); abs != nil {
			tail := make([]byte, 9)
			tail[0] = 1
			binary.LittleEndian.PutUint64(tail[1:9], *abs)
			buf = append(buf, tail...)
		}
	}
	return buf
}

// DecodeAppConfig is EncodeAppConfig's inverse for the fields UCI's
// get-app-config response (spec.md §4.4's "stopped" params fetch) can
// actually change out from under the stored copy: session priority and
// the live notification-control byte. It returns a shallow copy of p with
// those two fields overwritten from data, leaving everything else (STS
// config, keys, destination list) as the caller already held it. ok is
// false if data is too short to decode or p isn't one of the known
// protocol bundles.
func DecodeAppConfig(p Params, data []byte) (decoded Params, ok bool) {
	if len(data) < 9 {
		return p, false
	}
	priority := int(binary.LittleEndian.Uint32(data[4:8]))
	ntf := RngDataNtfControl(data[8])
	switch v := p.(type) {
	case *FiRaParams:
		out := *v
		out.sessionPriority, out.rngDataNtfControl = priority, ntf
		return &out, true
	case *CccParams:
		out := *v
		out.sessionPriority, out.rngDataNtfControl = priority, ntf
		return &out, true
	case *AliroParams:
		out := *v
		out.sessionPriority, out.rngDataNtfControl = priority, ntf
		return &out, true
	case *RadarParams:
		out := *v
		out.sessionPriority, out.rngDataNtfControl = priority, ntf
		return &out, true
	default:
		return p, false
	}
}

// NewBaseParams builds the shared parameter fields every protocol variant
// embeds. A non-default priority freezes PriorityOverride per spec.md §4.8.
func NewBaseParams(priority int, isDefaultPriority bool, destAddrs []uint16, sts StsConfig, key []byte, rxMax int) baseParams {
	return baseParams{
		sessionPriority:     priority,
		priorityOverride:    !isDefaultPriority,
		destAddressList:     destAddrs,
		stsConfig:           sts,
		sessionKey:          key,
		rxMaxPacketsToStore: rxMax,
		rngDataNtfControl:   RngDataNtfEnabled,
	}
}
