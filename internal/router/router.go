// Package router implements NotificationRouter (spec.md §4.5): the
// single uci.Notifiee that demultiplexes every asynchronous UCI callback
// by session id, updates the session's observable state, wakes whichever
// WaitLatch a command handler is waiting on, and forwards the result to
// the application Sink. Grounded on the teacher's internal/pfcp.Conn
// notification dispatch in internal/pfcp/conn.go: one registered callback
// set fanning out to per-entity handlers keyed by id, never blocking the
// transport's own delivery goroutine on anything but a table lookup and a
// channel send.
package router

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/advertise"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/clock"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/config"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/eventloop"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/logger"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/policy"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/sink"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// Router implements uci.Notifiee over a session.Table and a sink.Sink,
// and enqueues self-initiated Pause/Resume/Deinit events back onto the
// owning Loop for the notification-driven transitions spec.md §4.5 and
// SPEC_FULL.md §5 describe. It also owns the ranging-error-streak timer
// (spec.md §4.9): every onRangeData frame where every measurement is
// marked error rearms the streak deadline; any frame with at least one
// successful measurement cancels it.
type Router struct {
	table     *session.Table
	sink      sink.Sink
	advertise *advertise.Manager
	oracle    policy.Oracle
	cfg       *config.Config
	clock     *clock.Service
	loop      *eventloop.Loop
	log       *logrus.Entry
}

// New constructs a Router. loop may be nil during construction and set
// later via SetLoop once both have been created, breaking the
// construction-order cycle between Loop and its Notifiee.
func New(table *session.Table, sk sink.Sink, adv *advertise.Manager, oracle policy.Oracle, cfg *config.Config, clk *clock.Service) *Router {
	return &Router{table: table, sink: sk, advertise: adv, oracle: oracle, cfg: cfg, clock: clk, log: logger.For("router")}
}

// SetLoop wires the Loop the router enqueues self-initiated events onto.
func (r *Router) SetLoop(l *eventloop.Loop) { r.loop = l }

// OnSessionStatus also covers the remote-initiated stop edge case
// (spec.md §4.3, §4.5): an Active->Idle transition reported with a
// reason other than the local-command sentinel, while nothing is
// waiting on the latch for it (no Stop() in flight), is UCI
// spontaneously ending ranging on its own — stoppedWithReason is
// emitted directly rather than relying on runStop, which never runs in
// that case.
func (r *Router) OnSessionStatus(id uci.SessionID, state uci.SessionState, reasonCode uci.ReasonCode) {
	sess := r.table.GetByID(id)
	if sess == nil {
		return
	}
	sess.LastReasonCode = reasonCode

	switch reasonCode {
	case uci.ReasonCodeInbandSuspended:
		sess.State = toSessionState(state)
		if r.loop != nil {
			r.loop.Go(func() { _ = r.loop.Pause(context.Background(), eventloop.PauseRequest{Handle: sess.Handle}) })
		}
		return
	case uci.ReasonCodeInbandResumed:
		sess.State = toSessionState(state)
		if r.loop != nil {
			r.loop.Go(func() { _ = r.loop.Resume(context.Background(), eventloop.ResumeRequest{Handle: sess.Handle}) })
		}
		return
	}

	prevState := sess.State
	sess.State = toSessionState(state)
	sess.Latch.Release()

	if state == uci.SessionStateIdle && prevState == session.StateActive &&
		reasonCode != uci.ReasonCodeStateChangeWithSessionMgmtCmd && sess.Operation != session.OperationStop {
		r.sink.RangingStopped(toHandle(sess.Handle), uci.ReasonFromCode(reasonCode), sess.Params)
	}

	if state == uci.SessionStateDeinit && sess.Operation != session.OperationDeinit && r.loop != nil {
		reason := uci.ReasonFromCode(reasonCode)
		r.loop.Go(func() {
			_ = r.loop.HandleUnsolicitedDeinit(context.Background(), eventloop.UnsolicitedDeinitRequest{Handle: sess.Handle, Reason: reason})
		})
	}
}

func (r *Router) OnRangeData(id uci.SessionID, data uci.RangingData) {
	sess := r.table.GetByID(id)
	if sess == nil {
		return
	}
	if !r.dataDeliveryPermitted(sess) {
		r.trackErrorStreak(sess, data)
		return
	}
	r.sink.RangingResult(toHandle(sess.Handle), sink.RangingReport{Type: data.Type, Measurements: data.Measurements})
	r.advertise.ObserveMeasurements(sess, data)
	r.trackErrorStreak(sess, data)
}

// dataDeliveryPermitted re-checks the data-delivery permission gate
// (spec.md §4.5): sessions attributed to a non-privileged uid that needed
// the check at open time have their onRangeData/onRadarData payloads
// silently dropped if the platform has since revoked the permission.
func (r *Router) dataDeliveryPermitted(sess *session.Session) bool {
	if !sess.Flags.DataDeliveryPermissionCheckNeeded || sess.AttributedUID == nil {
		return true
	}
	return r.oracle.DataDeliveryPermitted(policy.UID(*sess.AttributedUID))
}

// trackErrorStreak implements the ranging-error-streak deadline
// (spec.md §4.9): a frame where every measurement is marked error
// (re)arms the deadline; a frame with at least one successful
// measurement cancels it. A frame with no measurements at all is
// ignored rather than treated as all-error.
func (r *Router) trackErrorStreak(sess *session.Session, data uci.RangingData) {
	if r.clock == nil || r.cfg == nil || !r.oracle.RangingErrorStreakTimerEnabled() {
		return
	}
	if len(data.Measurements) == 0 {
		return
	}
	allError := true
	for _, m := range data.Measurements {
		if !m.IsError {
			allError = false
			break
		}
	}
	handle := sess.Handle
	if !allError {
		r.clock.Cancel(uint64(handle), clock.KindRangingErrorStreak)
		return
	}
	r.clock.Arm(uint64(handle), clock.KindRangingErrorStreak, r.cfg.RangingErrorStreakTimeout, func() {
		if r.loop == nil {
			return
		}
		r.loop.Go(func() {
			_ = r.loop.Stop(context.Background(), eventloop.StopRequest{Handle: handle, Reason: uci.ReasonSystemPolicy})
		})
	})
}

// OnDataReceived implements the onDataReceived routing rule (spec.md
// §4.5): non-OWR-AoA sessions deliver immediately; OWR-AoA observer
// sessions buffer under (peer, seq) until AdvertiseManager confirms the
// peer as the pointed target, at which point ObserveMeasurements flushes
// it (spec.md §4.6).
func (r *Router) OnDataReceived(id uci.SessionID, status uci.Status, seq uint16, peer uint64, payload []byte) {
	sess := r.table.GetByID(id)
	if sess == nil {
		return
	}
	if status != uci.StatusOk {
		r.sink.DataReceiveFailed(toHandle(sess.Handle), peer, uci.ReasonFromStatus(status))
		return
	}
	if !sess.InsertReceivedData(peer, session.ReceivedDataInfo{SequenceNumber: seq, PeerAddress: peer, Payload: payload}) {
		return
	}
	if sess.IsOwrAoaObserver() && !r.advertise.IsPointedTarget(sess, peer) {
		return
	}
	r.sink.DataReceived(toHandle(sess.Handle), peer, seq, payload)
}

func (r *Router) OnDataSendStatus(id uci.SessionID, status uci.Status, seq uint16, txCount uint8) {
	sess := r.table.GetByID(id)
	if sess == nil {
		return
	}
	info, ok := sess.TxTracking.Get(seq)
	if !ok {
		return
	}
	if status != uci.StatusOk {
		info.TxCount = txCount
		sess.TxTracking.Set(seq, info)
		r.sink.DataSendFailed(toHandle(sess.Handle), seq, uci.ReasonFromStatus(status))
		return
	}
	sess.TxTracking.Delete(seq)
	r.sink.DataSent(toHandle(sess.Handle), seq)
}

func (r *Router) OnMulticastListUpdate(id uci.SessionID, statuses map[uint16]uci.MulticastEntryStatus) {
	sess := r.table.GetByID(id)
	if sess == nil {
		return
	}
	sess.PendingMulticastStatuses = statuses
	sess.Latch.Release()
}

func (r *Router) OnRadarData(id uci.SessionID, data uci.RadarData) {
	sess := r.table.GetByID(id)
	if sess == nil {
		return
	}
	if !r.dataDeliveryPermitted(sess) {
		return
	}
	r.sink.RadarDataReceived(toHandle(sess.Handle), data)
}

func (r *Router) OnDataTransferPhaseConfig(id uci.SessionID, status uci.Status) {
	sess := r.table.GetByID(id)
	if sess == nil {
		return
	}
	sess.PendingPhaseConfigStatus = status
	sess.Latch.Release()
}

func toSessionState(s uci.SessionState) session.State {
	switch s {
	case uci.SessionStateInit:
		return session.StateInit
	case uci.SessionStateIdle:
		return session.StateIdle
	case uci.SessionStateActive:
		return session.StateActive
	default:
		return session.StateDeinit
	}
}

func toHandle(h session.Handle) sink.SessionHandle { return sink.SessionHandle(h) }
