package uci

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonFromStatus_KnownMappings(t *testing.T) {
	cases := map[Status]Reason{
		StatusOk:                  ReasonLocalApi,
		StatusRejected:            ReasonLocalApi,
		StatusFailed:              ReasonUnknown,
		StatusSyntaxError:         ReasonBadParameters,
		StatusMaxSessionsExceeded: ReasonMaxSessionsReached,
		StatusSessionDuplicate:    ReasonBadParameters,
		StatusRegulationUwbOff:    ReasonSystemRegulation,
		StatusErrorTimeout:        ReasonUnknown,
	}
	for status, want := range cases {
		assert.Equal(t, want, ReasonFromStatus(status), "status %v", status)
	}
}

func TestReasonFromStatus_UnmappedFallsBackToUnknown(t *testing.T) {
	assert.Equal(t, ReasonUnknown, ReasonFromStatus(Status(250)))
}

func TestReasonFromCode_KnownMappings(t *testing.T) {
	cases := map[ReasonCode]Reason{
		ReasonCodeStateChangeWithSessionMgmtCmd: ReasonLocalApi,
		ReasonCodeMaxRangingRoundRetryReached:   ReasonMaxRrRetryReached,
		ReasonCodeMaxMeasurementsReached:        ReasonRemoteRequest,
		ReasonCodeRegulationUwbOff:              ReasonSystemRegulation,
		ReasonCodeInbandResumed:                 ReasonSessionResumed,
		ReasonCodeInbandSuspended:                ReasonSessionSuspended,
		ReasonCodeInbandStopped:                  ReasonInbandSessionStop,
	}
	for code, want := range cases {
		assert.Equal(t, want, ReasonFromCode(code), "code %v", code)
	}
}

func TestReasonFromCode_UnmappedFallsBackToUnknown(t *testing.T) {
	assert.Equal(t, ReasonUnknown, ReasonFromCode(ReasonCode(250)))
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "SystemPolicy", ReasonSystemPolicy.String())
	assert.Equal(t, "Unknown", Reason(250).String())
}
