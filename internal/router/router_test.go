package router

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/advertise"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/clock"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/config"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/policy"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/sink"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

type testOracle struct {
	mu               sync.Mutex
	dataPermitted    bool
	streakEnabled    bool
}

func newTestOracle() *testOracle {
	return &testOracle{dataPermitted: true, streakEnabled: true}
}

func (o *testOracle) IsAppPrivileged(policy.UID) bool    { return false }
func (o *testOracle) IsAppForeground(policy.UID) bool    { return true }
func (o *testOracle) BackgroundRangingEnabled() bool     { return true }
func (o *testOracle) RangingErrorStreakTimerEnabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.streakEnabled
}
func (o *testOracle) StoppedParamsEnabled(uci.Protocol) bool { return false }
func (o *testOracle) MaxSessionsPerChip(uci.Protocol, uci.ChipID) int { return 5 }
func (o *testOracle) DefaultSessionPriorityOverride(uci.Protocol) (int, bool) { return 0, false }
func (o *testOracle) DataDeliveryPermitted(policy.UID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dataPermitted
}

func (o *testOracle) setDataPermitted(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dataPermitted = v
}

type recordingSink struct {
	mu             sync.Mutex
	rangingResult  []sink.RangingReport
	dataReceived   []uint16
	dataFailed     int
	dataSent       []uint16
	dataSendFailed int
	radarData      int
	stopped        []uci.Reason
}

func (s *recordingSink) RangingOpened(sink.SessionHandle)                             {}
func (s *recordingSink) RangingOpenFailed(sink.SessionHandle, uci.Reason, sink.Params) {}
func (s *recordingSink) RangingStarted(sink.SessionHandle, sink.Params)                {}
func (s *recordingSink) RangingStartFailed(sink.SessionHandle, uci.Reason)             {}

func (s *recordingSink) RangingStopped(h sink.SessionHandle, reason uci.Reason, params sink.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = append(s.stopped, reason)
}
func (s *recordingSink) RangingStopFailed(sink.SessionHandle, uci.Reason) {}
func (s *recordingSink) RangingReconfigured(sink.SessionHandle)                        {}
func (s *recordingSink) RangingReconfigureFailed(sink.SessionHandle, uci.Reason)        {}
func (s *recordingSink) RangingClosed(sink.SessionHandle, uci.Reason, sink.Params)      {}
func (s *recordingSink) RangingPaused(sink.SessionHandle)                              {}
func (s *recordingSink) RangingPauseFailed(sink.SessionHandle, uci.Reason)              {}
func (s *recordingSink) RangingResumed(sink.SessionHandle)                             {}
func (s *recordingSink) RangingResumeFailed(sink.SessionHandle, uci.Reason)             {}
func (s *recordingSink) ControleeAdded(sink.SessionHandle, sink.ControleeAddress)       {}
func (s *recordingSink) ControleeAddFailed(sink.SessionHandle, sink.ControleeAddress, uci.Reason) {
}
func (s *recordingSink) ControleeRemoved(sink.SessionHandle, sink.ControleeAddress) {}
func (s *recordingSink) ControleeRemoveFailed(sink.SessionHandle, sink.ControleeAddress, uci.Reason) {
}

func (s *recordingSink) RangingResult(h sink.SessionHandle, report sink.RangingReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rangingResult = append(s.rangingResult, report)
}

func (s *recordingSink) DataReceived(h sink.SessionHandle, peer uint64, seq uint16, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataReceived = append(s.dataReceived, seq)
}

func (s *recordingSink) DataReceiveFailed(sink.SessionHandle, uint64, uci.Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataFailed++
}

func (s *recordingSink) DataSent(h sink.SessionHandle, seq uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataSent = append(s.dataSent, seq)
}

func (s *recordingSink) DataSendFailed(sink.SessionHandle, uint16, uci.Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataSendFailed++
}

func (s *recordingSink) DataTransferPhaseConfigured(sink.SessionHandle)             {}
func (s *recordingSink) DataTransferPhaseConfigFailed(sink.SessionHandle, uci.Reason) {
}
func (s *recordingSink) DtTagRoundsUpdateStatus(sink.SessionHandle, uci.Status) {}

func (s *recordingSink) RadarDataReceived(sink.SessionHandle, uci.RadarData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.radarData++
}

func (s *recordingSink) snapshot() recordingSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recordingSink{
		rangingResult:  append([]sink.RangingReport{}, s.rangingResult...),
		dataReceived:   append([]uint16{}, s.dataReceived...),
		dataFailed:     s.dataFailed,
		dataSent:       append([]uint16{}, s.dataSent...),
		dataSendFailed: s.dataSendFailed,
		radarData:      s.radarData,
		stopped:        append([]uci.Reason{}, s.stopped...),
	}
}

type fakeAlarm struct{ stopped bool }

func (a *fakeAlarm) Stop() bool { a.stopped = true; return true }

type armedCall struct {
	duration time.Duration
	alarm    *fakeAlarm
}

type fakeClock struct {
	mu    sync.Mutex
	armed []armedCall
}

func (f *fakeClock) Now() time.Time { return time.Time{} }

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) clock.Alarm {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &fakeAlarm{}
	f.armed = append(f.armed, armedCall{d, a})
	return a
}

func newTestRouter(t *testing.T, oracle policy.Oracle, sk sink.Sink, clk *clock.Service) (*Router, *session.Table) {
	t.Helper()
	table := session.NewTable(64)
	adv := advertise.New(sk)
	cfg := config.Default()
	r := New(table, sk, adv, oracle, cfg, clk)
	return r, table
}

func newFiRaSession(table *session.Table, id uci.SessionID, handle session.Handle, rxMax int) *session.Session {
	params := session.NewFiRaParams(50, true, nil, session.StsConfigStatic, nil, rxMax)
	sess := session.New(handle, id, uci.SessionTypeRanging, uci.ProtocolFiRa, "default", nil, params)
	table.Insert(sess, nil)
	return sess
}

func newOwrAoaSession(table *session.Table, id uci.SessionID, handle session.Handle, rxMax int) *session.Session {
	params := session.NewFiRaParams(50, true, nil, session.StsConfigStatic, nil, rxMax)
	params.SetDeviceRole(session.DeviceRoleObserver)
	params.SetRangingRoundUsage(session.RangingRoundOwrAoaMeasurement)
	sess := session.New(handle, id, uci.SessionTypeRanging, uci.ProtocolFiRa, "default", nil, params)
	table.Insert(sess, nil)
	return sess
}

func TestOnRangeData_DeliversRangingResultWhenPermitted(t *testing.T) {
	sk := &recordingSink{}
	oracle := newTestOracle()
	r, table := newTestRouter(t, oracle, sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)

	r.OnRangeData(sess.ID, uci.RangingData{Type: uci.MeasurementType(1), Measurements: []uci.Measurement{{PeerAddress: 1}}})

	got := sk.snapshot()
	require.Len(t, got.rangingResult, 1)
}

func TestOnRangeData_WithheldWhenDataDeliveryNotPermitted(t *testing.T) {
	sk := &recordingSink{}
	oracle := newTestOracle()
	r, table := newTestRouter(t, oracle, sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)
	u := uint32(7)
	sess.AttributedUID = &u
	sess.Flags.DataDeliveryPermissionCheckNeeded = true
	oracle.setDataPermitted(false)

	r.OnRangeData(sess.ID, uci.RangingData{Measurements: []uci.Measurement{{PeerAddress: 1}}})

	assert.Empty(t, sk.snapshot().rangingResult)
}

func TestOnRangeData_UnknownSessionIsIgnored(t *testing.T) {
	sk := &recordingSink{}
	r, _ := newTestRouter(t, newTestOracle(), sk, nil)
	r.OnRangeData(99, uci.RangingData{})
	assert.Empty(t, sk.snapshot().rangingResult)
}

func TestOnDataReceived_DeliversImmediatelyForNonOwrAoaSession(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)

	r.OnDataReceived(sess.ID, uci.StatusOk, 5, 0xBEEF, []byte("hi"))

	got := sk.snapshot()
	require.Equal(t, []uint16{5}, got.dataReceived)
}

func TestOnDataReceived_WithheldUntilPointedTargetConfirmed(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newOwrAoaSession(table, 1, 1, 0)

	r.OnDataReceived(sess.ID, uci.StatusOk, 1, 0xBEEF, []byte("a"))
	assert.Empty(t, sk.snapshot().dataReceived)

	r.OnRangeData(sess.ID, uci.RangingData{Measurements: []uci.Measurement{{PeerAddress: 0xBEEF, IsError: false}}})

	got := sk.snapshot()
	require.Equal(t, []uint16{1}, got.dataReceived)
}

func TestOnDataReceived_FailureStatusReportsDataReceiveFailed(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)

	r.OnDataReceived(sess.ID, uci.Status(1), 1, 0xBEEF, nil)

	got := sk.snapshot()
	assert.Equal(t, 1, got.dataFailed)
	assert.Empty(t, got.dataReceived)
}

func TestOnDataSendStatus_SuccessClearsTrackingAndReportsSent(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)
	sess.TxTracking.Set(3, session.SendDataInfo{PeerAddress: 0xBEEF})

	r.OnDataSendStatus(sess.ID, uci.StatusOk, 3, 1)

	got := sk.snapshot()
	assert.Equal(t, []uint16{3}, got.dataSent)
	_, stillTracked := sess.TxTracking.Get(3)
	assert.False(t, stillTracked)
}

func TestOnDataSendStatus_FailureKeepsTrackingAndReportsFailed(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)
	sess.TxTracking.Set(3, session.SendDataInfo{PeerAddress: 0xBEEF})

	r.OnDataSendStatus(sess.ID, uci.Status(1), 3, 2)

	got := sk.snapshot()
	assert.Equal(t, 1, got.dataSendFailed)
	info, stillTracked := sess.TxTracking.Get(3)
	require.True(t, stillTracked)
	assert.Equal(t, uint8(2), info.TxCount)
}

func TestOnDataSendStatus_UnknownSequenceIsIgnored(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)

	r.OnDataSendStatus(sess.ID, uci.StatusOk, 99, 1)

	assert.Empty(t, sk.snapshot().dataSent)
}

func TestOnMulticastListUpdate_StoresStatusesAndReleasesLatch(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)
	ch := sess.Latch.Arm()

	r.OnMulticastListUpdate(sess.ID, map[uint16]uci.MulticastEntryStatus{0xAAAA: uci.MulticastStatusOK})

	assert.Equal(t, map[uint16]uci.MulticastEntryStatus{0xAAAA: uci.MulticastStatusOK}, sess.PendingMulticastStatuses)
	select {
	case <-ch:
	default:
		t.Fatal("expected latch to be released")
	}
}

func TestOnRadarData_GatedByDataDeliveryPermission(t *testing.T) {
	sk := &recordingSink{}
	oracle := newTestOracle()
	r, table := newTestRouter(t, oracle, sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)
	u := uint32(7)
	sess.AttributedUID = &u
	sess.Flags.DataDeliveryPermissionCheckNeeded = true
	oracle.setDataPermitted(false)

	r.OnRadarData(sess.ID, uci.RadarData{})
	assert.Equal(t, 0, sk.snapshot().radarData)

	oracle.setDataPermitted(true)
	r.OnRadarData(sess.ID, uci.RadarData{})
	assert.Equal(t, 1, sk.snapshot().radarData)
}

func TestOnDataTransferPhaseConfig_StoresStatusAndReleasesLatch(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)
	ch := sess.Latch.Arm()

	r.OnDataTransferPhaseConfig(sess.ID, uci.StatusOk)

	assert.Equal(t, uci.StatusOk, sess.PendingPhaseConfigStatus)
	select {
	case <-ch:
	default:
		t.Fatal("expected latch to be released")
	}
}

func TestOnSessionStatus_UpdatesStateAndReleasesLatch(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)
	sess.Operation = session.OperationStart
	ch := sess.Latch.Arm()

	r.OnSessionStatus(sess.ID, uci.SessionStateActive, uci.ReasonCodeStateChangeWithSessionMgmtCmd)

	assert.Equal(t, session.StateActive, sess.State)
	select {
	case <-ch:
	default:
		t.Fatal("expected latch to be released")
	}
}

func TestOnSessionStatus_InbandSuspendDoesNotReleaseLatchWithoutLoop(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)
	ch := sess.Latch.Arm()

	r.OnSessionStatus(sess.ID, uci.SessionStateIdle, uci.ReasonCodeInbandSuspended)

	assert.Equal(t, session.StateIdle, sess.State)
	select {
	case <-ch:
		t.Fatal("inband suspend is not a command-handler completion, latch must stay armed")
	default:
	}
}

func TestOnSessionStatus_RemoteInitiatedStopEmitsRangingStopped(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)
	sess.State = session.StateActive
	sess.Operation = session.OperationStart // last completed handler, no Stop() in flight

	r.OnSessionStatus(sess.ID, uci.SessionStateIdle, uci.ReasonCodeMaxRangingRoundRetryReached)

	got := sk.snapshot()
	require.Len(t, got.stopped, 1)
	assert.Equal(t, uci.ReasonFromCode(uci.ReasonCodeMaxRangingRoundRetryReached), got.stopped[0])
}

func TestOnSessionStatus_CallerInitiatedStopDoesNotDoubleEmitRangingStopped(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)
	sess.State = session.StateActive
	sess.Operation = session.OperationStop

	r.OnSessionStatus(sess.ID, uci.SessionStateIdle, uci.ReasonCodeStateChangeWithSessionMgmtCmd)

	assert.Empty(t, sk.snapshot().stopped)
}

func TestOnSessionStatus_IdleToIdleDoesNotEmitRangingStopped(t *testing.T) {
	sk := &recordingSink{}
	r, table := newTestRouter(t, newTestOracle(), sk, nil)
	sess := newFiRaSession(table, 1, 1, 0)
	sess.State = session.StateIdle

	r.OnSessionStatus(sess.ID, uci.SessionStateIdle, uci.ReasonCodeMaxRangingRoundRetryReached)

	assert.Empty(t, sk.snapshot().stopped)
}

func TestTrackErrorStreak_ArmsOnAllErrorFrame(t *testing.T) {
	sk := &recordingSink{}
	oracle := newTestOracle()
	fc := &fakeClock{}
	clk := clock.NewService(fc)
	r, table := newTestRouter(t, oracle, sk, clk)
	sess := newFiRaSession(table, 1, 1, 0)

	r.OnRangeData(sess.ID, uci.RangingData{Measurements: []uci.Measurement{{PeerAddress: 1, IsError: true}}})

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.Len(t, fc.armed, 1)
}

func TestTrackErrorStreak_CancelsOnMixedFrame(t *testing.T) {
	sk := &recordingSink{}
	oracle := newTestOracle()
	fc := &fakeClock{}
	clk := clock.NewService(fc)
	r, table := newTestRouter(t, oracle, sk, clk)
	sess := newFiRaSession(table, 1, 1, 0)

	r.OnRangeData(sess.ID, uci.RangingData{Measurements: []uci.Measurement{{PeerAddress: 1, IsError: true}}})
	r.OnRangeData(sess.ID, uci.RangingData{Measurements: []uci.Measurement{{PeerAddress: 1, IsError: false}}})

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.Len(t, fc.armed, 1)
	assert.True(t, fc.armed[0].alarm.stopped)
}

func TestTrackErrorStreak_IgnoredWhenTimerDisabled(t *testing.T) {
	sk := &recordingSink{}
	oracle := newTestOracle()
	oracle.streakEnabled = false
	fc := &fakeClock{}
	clk := clock.NewService(fc)
	r, table := newTestRouter(t, oracle, sk, clk)
	sess := newFiRaSession(table, 1, 1, 0)

	r.OnRangeData(sess.ID, uci.RangingData{Measurements: []uci.Measurement{{PeerAddress: 1, IsError: true}}})

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.Empty(t, fc.armed)
}

func TestTrackErrorStreak_EmptyMeasurementsIgnored(t *testing.T) {
	sk := &recordingSink{}
	oracle := newTestOracle()
	fc := &fakeClock{}
	clk := clock.NewService(fc)
	r, table := newTestRouter(t, oracle, sk, clk)
	sess := newFiRaSession(table, 1, 1, 0)

	r.OnRangeData(sess.ID, uci.RangingData{Measurements: nil})

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.Empty(t, fc.armed)
}
