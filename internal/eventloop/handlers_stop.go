package eventloop

import (
	"context"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// Stop drives Active -> Idle (spec.md §4.3 row 4). If the session is
// already Idle with the "expected" reason code, the stop is idempotent
// (spec.md §4.3 edge case). A stop requested while a start is in flight
// is rejected (spec.md §5 Cancellation); since Start holds the session's
// WaitLatch for the duration of its suspension, StateActive is never
// observed mid-start, so a simple state check suffices here.
func (l *Loop) Stop(ctx context.Context, req StopRequest) error {
	var sess *session.Session
	var alreadyIdle, stateErr bool
	l.Submit(func() {
		sess = l.table.GetByHandle(req.Handle)
		if sess == nil {
			return
		}
		switch sess.State {
		case session.StateIdle:
			if sess.LastReasonCode == uci.ReasonCodeStateChangeWithSessionMgmtCmd {
				alreadyIdle = true
				return
			}
			stateErr = true
		case session.StateActive:
			sess.Operation = session.OperationStop
		default:
			stateErr = true
		}
	})
	if sess == nil {
		return ErrSessionNotFound
	}
	if alreadyIdle {
		l.sink.RangingStopped(toHandle(req.Handle), uci.ReasonLocalApi, sess.Params)
		return nil
	}
	if stateErr {
		l.sink.RangingStopFailed(toHandle(req.Handle), uci.ReasonUnknown)
		return ErrInvalidState
	}

	var opErr error
	runWorker(ctx, func(ctx context.Context) error {
		opErr = l.runStop(ctx, sess, req.Reason)
		return opErr
	})
	return opErr
}

func (l *Loop) runStop(ctx context.Context, sess *session.Session, reason uci.Reason) error {
	deadline := l.cfg.Deadlines.SessionStart
	if interval := fiRaRangingInterval(sess); interval > 0 && 4*interval > deadline {
		deadline = 4 * interval
	}
	ctx, cancel := deadlineCtx(ctx, deadline)
	defer cancel()

	ch := sess.Latch.Arm()
	status, err := l.transport.StopRanging(ctx, sess.ID, sess.Chip)
	if err != nil || status != uci.StatusOk {
		l.sink.RangingStopFailed(toHandle(sess.Handle), uci.ReasonFromStatus(status))
		return ErrInvalidRequest
	}
	if err := awaitLatch(ctx, ch); err != nil {
		l.sink.RangingStopFailed(toHandle(sess.Handle), uci.ReasonUnknown)
		return err
	}
	if sess.State != session.StateIdle {
		l.sink.RangingStopFailed(toHandle(sess.Handle), uci.ReasonUnknown)
		return ErrInvalidState
	}

	l.clock.CancelAll(uint64(sess.Handle))

	stoppedParams := sess.Params
	if (sess.Protocol == uci.ProtocolCcc || sess.Protocol == uci.ProtocolAliro) && l.oracle.StoppedParamsEnabled(sess.Protocol) {
		if fetched, err := l.fetchStoppedParams(ctx, sess); err == nil {
			stoppedParams = fetched
		}
	}

	l.sink.RangingStopped(toHandle(sess.Handle), reason, stoppedParams)
	return nil
}

// fetchStoppedParams implements spec.md §4.4's CCC/ALIRO "stopped"
// params fetch: a get-app-config round trip whose result is decoded back
// into the session's own params shape so the fetched values (session
// priority, live notification control) actually reach the stopped sink
// callback instead of being discarded.
func (l *Loop) fetchStoppedParams(ctx context.Context, sess *session.Session) (session.Params, error) {
	status, data, err := l.transport.GetAppConfigurations(ctx, sess.ID, sess.Protocol, nil, sess.Chip, uciVersion)
	if err != nil || status != uci.StatusOk {
		return sess.Params, err
	}
	decoded, ok := session.DecodeAppConfig(sess.Params, data)
	if !ok {
		return sess.Params, nil
	}
	return decoded, nil
}
