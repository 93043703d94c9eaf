package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/policy"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

type fakeOracle struct {
	privileged   map[policy.UID]bool
	foreground   map[policy.UID]bool
	bgRanging    bool
	maxPerChip   map[uci.Protocol]int
}

func (f *fakeOracle) IsAppPrivileged(uid policy.UID) bool { return f.privileged[uid] }
func (f *fakeOracle) IsAppForeground(uid policy.UID) bool { return f.foreground[uid] }
func (f *fakeOracle) BackgroundRangingEnabled() bool      { return f.bgRanging }
func (f *fakeOracle) RangingErrorStreakTimerEnabled() bool { return true }
func (f *fakeOracle) StoppedParamsEnabled(uci.Protocol) bool { return false }
func (f *fakeOracle) MaxSessionsPerChip(p uci.Protocol, _ uci.ChipID) int {
	if n, ok := f.maxPerChip[p]; ok {
		return n
	}
	return 1
}
func (f *fakeOracle) DefaultSessionPriorityOverride(uci.Protocol) (int, bool) { return 0, false }
func (f *fakeOracle) DataDeliveryPermitted(policy.UID) bool                  { return true }

func newOracle() *fakeOracle {
	return &fakeOracle{
		privileged: map[policy.UID]bool{},
		foreground: map[policy.UID]bool{},
		maxPerChip: map[uci.Protocol]int{uci.ProtocolFiRa: 2, uci.ProtocolCcc: 1},
	}
}

func insertSession(t *testing.T, table *session.Table, handle session.Handle, id uci.SessionID, protocol uci.Protocol, priority int) *session.Session {
	t.Helper()
	params := &session.FiRaParams{}
	sess := session.New(handle, id, uci.SessionTypeRanging, protocol, "default", nil, params)
	sess.StackPriority = priority
	table.Insert(sess, nil)
	return sess
}

func TestAdmit_RejectsBackgroundedAppWhenBackgroundRangingDisabled(t *testing.T) {
	table := session.NewTable(8)
	oracle := newOracle()
	oracle.foreground[policy.UID(42)] = false
	oracle.bgRanging = false
	ctl := NewController(table, oracle, 1000)

	decision := ctl.Admit(Candidate{
		Handle:      1,
		ID:          1,
		Protocol:    uci.ProtocolFiRa,
		Attribution: session.AttributionSource{{UID: policy.UID(42)}},
	})
	assert.Equal(t, VerdictReject, decision.Verdict)
	assert.Equal(t, uci.ReasonSystemPolicy, decision.Reason)
}

func TestAdmit_RejectsDuplicateHandleOrID(t *testing.T) {
	table := session.NewTable(8)
	oracle := newOracle()
	ctl := NewController(table, oracle, 1000)
	insertSession(t, table, 1, 100, uci.ProtocolFiRa, 50)

	decision := ctl.Admit(Candidate{Handle: 1, ID: 200, Protocol: uci.ProtocolFiRa, Chip: "default"})
	require.Equal(t, VerdictReject, decision.Verdict)
	assert.Equal(t, uci.ReasonBadParameters, decision.Reason)

	decision = ctl.Admit(Candidate{Handle: 2, ID: 100, Protocol: uci.ProtocolFiRa, Chip: "default"})
	require.Equal(t, VerdictReject, decision.Verdict)
	assert.Equal(t, uci.ReasonBadParameters, decision.Reason)
}

func TestAdmit_AdmitsUnderCap(t *testing.T) {
	table := session.NewTable(8)
	oracle := newOracle()
	ctl := NewController(table, oracle, 1000)
	insertSession(t, table, 1, 100, uci.ProtocolFiRa, 50)

	decision := ctl.Admit(Candidate{Handle: 2, ID: 200, Protocol: uci.ProtocolFiRa, StackPriority: 50, Chip: "default"})
	assert.Equal(t, VerdictAdmit, decision.Verdict)
}

func TestAdmit_NonFiRaAtCapIsRejectedNoEviction(t *testing.T) {
	table := session.NewTable(8)
	oracle := newOracle()
	ctl := NewController(table, oracle, 1000)
	insertSession(t, table, 1, 100, uci.ProtocolCcc, 80)

	decision := ctl.Admit(Candidate{Handle: 2, ID: 200, Protocol: uci.ProtocolCcc, StackPriority: 80, Chip: "default"})
	assert.Equal(t, VerdictReject, decision.Verdict)
	assert.Equal(t, uci.ReasonMaxSessionsReached, decision.Reason)
	assert.Nil(t, decision.Evict)
}

func TestAdmit_FiRaAtCapEvictsLowerPriority(t *testing.T) {
	table := session.NewTable(8)
	oracle := newOracle()
	ctl := NewController(table, oracle, 1000)
	low := insertSession(t, table, 1, 100, uci.ProtocolFiRa, 40)
	insertSession(t, table, 2, 200, uci.ProtocolFiRa, 60)

	decision := ctl.Admit(Candidate{Handle: 3, ID: 300, Protocol: uci.ProtocolFiRa, StackPriority: 70, Chip: "default"})
	require.Equal(t, VerdictEvictThenAdmit, decision.Verdict)
	assert.Same(t, low, decision.Evict)
}

func TestAdmit_FiRaAtCapRejectsWhenNoLowerPriorityExists(t *testing.T) {
	table := session.NewTable(8)
	oracle := newOracle()
	ctl := NewController(table, oracle, 1000)
	insertSession(t, table, 1, 100, uci.ProtocolFiRa, 70)
	insertSession(t, table, 2, 200, uci.ProtocolFiRa, 70)

	decision := ctl.Admit(Candidate{Handle: 3, ID: 300, Protocol: uci.ProtocolFiRa, StackPriority: 60, Chip: "default"})
	assert.Equal(t, VerdictReject, decision.Verdict)
	assert.Equal(t, uci.ReasonMaxSessionsReached, decision.Reason)
}

func TestAdmit_ThrottleRejectsBurst(t *testing.T) {
	table := session.NewTable(8)
	oracle := newOracle()
	ctl := NewController(table, oracle, 1) // burst of ~2

	var lastReject bool
	var reason uci.Reason
	for i := 0; i < 10; i++ {
		decision := ctl.Admit(Candidate{Handle: session.Handle(100 + i), ID: uci.SessionID(100 + i), Protocol: uci.ProtocolFiRa, StackPriority: 50})
		if decision.Verdict == VerdictReject && decision.Reason == uci.ReasonSystemPolicy {
			lastReject, reason = true, decision.Reason
			break
		}
	}
	assert.True(t, lastReject)
	assert.Equal(t, uci.ReasonSystemPolicy, reason)
}
