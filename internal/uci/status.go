package uci

// Status mirrors a UCI response status code.
type Status uint8

const (
	StatusOk Status = iota
	StatusRejected
	StatusFailed
	StatusSyntaxError
	StatusInvalidParam
	StatusInvalidRange
	StatusInvalidMessageSize
	StatusMaxSessionsExceeded
	StatusSessionNotExist
	StatusSessionDuplicate
	StatusSessionActive
	StatusCccLifecycle
	StatusCccSeBusy
	StatusSessionKeyNotFound
	StatusSubSessionKeyNotFound
	StatusRegulationUwbOff
	StatusErrorTimeout
)

// ReasonCode mirrors a UCI session-status-notification reason code.
type ReasonCode uint8

const (
	ReasonCodeStateChangeWithSessionMgmtCmd ReasonCode = iota
	ReasonCodeMaxRangingRoundRetryReached
	ReasonCodeMaxMeasurementsReached
	ReasonCodeInsufficientSlotsPerRr
	ReasonCodeSlotLengthNotSupported
	ReasonCodeInvalidUlTdoaRandomWindow
	ReasonCodeMacAddressModeNotSupported
	ReasonCodeInvalidRangingInterval
	ReasonCodeInvalidStsConfig
	ReasonCodeInvalidRframeConfig
	ReasonCodeHusNotEnoughSlots
	ReasonCodeHusCfpPhaseTooShort
	ReasonCodeHusCapPhaseTooShort
	ReasonCodeHusOthers
	ReasonCodeSessionKeyNotFound
	ReasonCodeSubSessionKeyNotFound
	ReasonCodeRegulationUwbOff
	ReasonCodeInbandResumed
	ReasonCodeInbandSuspended
	ReasonCodeInbandStopped
)

// Reason is the user-visible reason taxonomy (spec.md §6).
type Reason uint8

const (
	ReasonLocalApi Reason = iota
	ReasonMaxSessionsReached
	ReasonBadParameters
	ReasonProtocolSpecific
	ReasonSystemPolicy
	ReasonSystemRegulation
	ReasonMaxRrRetryReached
	ReasonRemoteRequest
	ReasonInsufficientSlotsPerRr
	ReasonSessionResumed
	ReasonSessionSuspended
	ReasonInbandSessionStop
	ReasonUnknown
)

func (r Reason) String() string {
	switch r {
	case ReasonLocalApi:
		return "LocalApi"
	case ReasonMaxSessionsReached:
		return "MaxSessionsReached"
	case ReasonBadParameters:
		return "BadParameters"
	case ReasonProtocolSpecific:
		return "ProtocolSpecific"
	case ReasonSystemPolicy:
		return "SystemPolicy"
	case ReasonSystemRegulation:
		return "SystemRegulation"
	case ReasonMaxRrRetryReached:
		return "MaxRrRetryReached"
	case ReasonRemoteRequest:
		return "RemoteRequest"
	case ReasonInsufficientSlotsPerRr:
		return "InsufficientSlotsPerRr"
	case ReasonSessionResumed:
		return "SessionResumed"
	case ReasonSessionSuspended:
		return "SessionSuspended"
	case ReasonInbandSessionStop:
		return "InbandSessionStop"
	default:
		return "Unknown"
	}
}

// statusReasons is the status-code → reason mapping table (spec.md §6).
var statusReasons = map[Status]Reason{
	StatusOk:                    ReasonLocalApi,
	StatusRejected:              ReasonLocalApi,
	StatusFailed:                ReasonUnknown,
	StatusSyntaxError:           ReasonBadParameters,
	StatusMaxSessionsExceeded:   ReasonMaxSessionsReached,
	StatusInvalidParam:          ReasonBadParameters,
	StatusInvalidRange:          ReasonBadParameters,
	StatusInvalidMessageSize:    ReasonBadParameters,
	StatusSessionNotExist:       ReasonProtocolSpecific,
	StatusSessionDuplicate:      ReasonBadParameters,
	StatusSessionActive:         ReasonProtocolSpecific,
	StatusCccLifecycle:          ReasonProtocolSpecific,
	StatusCccSeBusy:             ReasonProtocolSpecific,
	StatusSessionKeyNotFound:    ReasonProtocolSpecific,
	StatusSubSessionKeyNotFound: ReasonProtocolSpecific,
	StatusRegulationUwbOff:      ReasonSystemRegulation,
	StatusErrorTimeout:          ReasonUnknown,
}

// reasonCodeReasons is the reason-code → reason mapping table (spec.md §6).
var reasonCodeReasons = map[ReasonCode]Reason{
	ReasonCodeStateChangeWithSessionMgmtCmd: ReasonLocalApi,
	ReasonCodeMaxRangingRoundRetryReached:   ReasonMaxRrRetryReached,
	ReasonCodeMaxMeasurementsReached:        ReasonRemoteRequest,
	ReasonCodeInsufficientSlotsPerRr:         ReasonBadParameters,
	ReasonCodeSlotLengthNotSupported:         ReasonBadParameters,
	ReasonCodeInvalidUlTdoaRandomWindow:      ReasonBadParameters,
	ReasonCodeMacAddressModeNotSupported:     ReasonBadParameters,
	ReasonCodeInvalidRangingInterval:         ReasonBadParameters,
	ReasonCodeInvalidStsConfig:               ReasonBadParameters,
	ReasonCodeInvalidRframeConfig:            ReasonBadParameters,
	ReasonCodeHusNotEnoughSlots:              ReasonBadParameters,
	ReasonCodeHusCfpPhaseTooShort:            ReasonBadParameters,
	ReasonCodeHusCapPhaseTooShort:            ReasonBadParameters,
	ReasonCodeHusOthers:                      ReasonBadParameters,
	ReasonCodeSessionKeyNotFound:             ReasonProtocolSpecific,
	ReasonCodeSubSessionKeyNotFound:          ReasonProtocolSpecific,
	ReasonCodeRegulationUwbOff:               ReasonSystemRegulation,
	ReasonCodeInbandResumed:                  ReasonSessionResumed,
	ReasonCodeInbandSuspended:                ReasonSessionSuspended,
	ReasonCodeInbandStopped:                  ReasonInbandSessionStop,
}

// ReasonFromStatus maps a UCI response status to the user-visible reason
// taxonomy (spec.md §6). Unknown statuses map to ReasonUnknown rather than
// panicking: an unmapped status is an input from the transport, not a
// programmer error.
func ReasonFromStatus(s Status) Reason {
	if r, ok := statusReasons[s]; ok {
		return r
	}
	return ReasonUnknown
}

// ReasonFromCode maps a UCI session-status-notification reason code to the
// user-visible reason taxonomy (spec.md §6).
func ReasonFromCode(c ReasonCode) Reason {
	if r, ok := reasonCodeReasons[c]; ok {
		return r
	}
	return ReasonUnknown
}
