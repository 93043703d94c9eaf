package eventloop

import (
	"context"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/admission"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// Open drives a session from Deinit to Idle (spec.md §4.3 rows 1-2):
// admit, UCI initSession, await Init, UCI setAppConfigurations, await
// Idle. Blocks the calling goroutine until the outcome is known; sink
// callbacks are emitted before return.
func (l *Loop) Open(ctx context.Context, req OpenRequest) error {
	var sess *session.Session
	var evict *session.Session
	var rejectReason uci.Reason
	rejected := false

	l.Submit(func() {
		cand := admission.Candidate{
			Handle:        req.Handle,
			ID:            req.ID,
			Protocol:      req.Protocol,
			Chip:          req.Chip,
			Attribution:   req.Attribution,
			StackPriority: req.Params.SessionPriority(),
		}
		decision := l.admission.Admit(cand)
		switch decision.Verdict {
		case admission.VerdictReject:
			rejected, rejectReason = true, decision.Reason
			return
		case admission.VerdictEvictThenAdmit:
			evict = decision.Evict
		}

		sess = session.New(req.Handle, req.ID, req.Type, req.Protocol, req.Chip, req.Attribution, req.Params)
		sess.StackPriority = req.Params.SessionPriority()
		sess.Operation = session.OperationInitSession

		var nonPriv *uint32
		if link, ok := req.Attribution.FirstNonPrivileged(l.oracle); ok {
			u := uint32(link.UID)
			nonPriv = &u
		}
		sess.AttributedUID = nonPriv
		sess.Flags.DataDeliveryPermissionCheckNeeded = nonPriv != nil
		l.table.Insert(sess, nonPriv)
	})

	if rejected {
		l.sink.RangingOpenFailed(toHandle(req.Handle), rejectReason, nil)
		return ErrInvalidRequest
	}

	if evict != nil {
		l.Go(func() {
			l.deinitForReason(context.Background(), evict, uci.ReasonMaxSessionsReached)
		})
	}

	var opErr error
	runWorker(ctx, func(ctx context.Context) error {
		opErr = l.runOpen(ctx, sess)
		return opErr
	})
	return opErr
}

func (l *Loop) runOpen(ctx context.Context, sess *session.Session) error {
	ctx, cancel := deadlineCtx(ctx, l.cfg.Deadlines.SessionOpen)
	defer cancel()

	ch := sess.Latch.Arm()
	status, err := l.transport.InitSession(ctx, sess.ID, sess.Type, sess.Chip)
	if err != nil || status != uci.StatusOk {
		l.table.Remove(sess, uci.ReasonFromStatus(status))
		l.sink.RangingOpenFailed(toHandle(sess.Handle), uci.ReasonFromStatus(status), nil)
		return ErrInvalidRequest
	}
	if err := awaitLatch(ctx, ch); err != nil {
		l.sink.RangingOpenFailed(toHandle(sess.Handle), uci.ReasonUnknown, nil)
		return err
	}
	if sess.State != session.StateInit {
		l.table.Remove(sess, uci.ReasonUnknown)
		l.sink.RangingOpenFailed(toHandle(sess.Handle), uci.ReasonUnknown, nil)
		return ErrInvalidState
	}

	if err := l.applyRelativeInitiationTime(ctx, sess); err != nil {
		l.sink.RangingOpenFailed(toHandle(sess.Handle), uci.ReasonBadParameters, nil)
		return err
	}

	ch = sess.Latch.Arm()
	status, err = l.transport.SetAppConfigurations(ctx, sess.ID, session.EncodeAppConfig(sess.Params), sess.Chip, uciVersion)
	if err != nil || status != uci.StatusOk {
		l.table.Remove(sess, uci.ReasonFromStatus(status))
		l.sink.RangingOpenFailed(toHandle(sess.Handle), uci.ReasonFromStatus(status), nil)
		return ErrInvalidRequest
	}
	if err := awaitLatch(ctx, ch); err != nil {
		l.sink.RangingOpenFailed(toHandle(sess.Handle), uci.ReasonUnknown, nil)
		return err
	}
	if sess.State != session.StateIdle {
		l.table.Remove(sess, uci.ReasonUnknown)
		l.sink.RangingOpenFailed(toHandle(sess.Handle), uci.ReasonUnknown, nil)
		return ErrInvalidState
	}
	if fira, ok := sess.Params.(*session.FiRaParams); ok {
		fira.SetAbsoluteInitUs(nil) // recomputed fresh on the next start, per spec.md §4.4
	}

	token, err := l.transport.GetSessionToken(ctx, sess.ID, sess.Chip)
	if err == nil {
		sess.Token = token
	}

	l.sink.RangingOpened(toHandle(sess.Handle))
	return nil
}

// uciVersion is the protocol version the core negotiates with UCI; kept
// as a package constant since the handshake that discovers it is part of
// the out-of-scope native transport (spec.md §1).
const uciVersion = 2

// applyRelativeInitiationTime implements spec.md §4.4's open-handler
// specific: when the UCI protocol version is >= 2.0 and the params carry
// a relative initiation time but no absolute one, query the UWBS
// timestamp and compute absolute = uwbsTimestampMicros + relativeInitMs*1000.
// The computed value is consumed by the SetAppConfigurations call that
// follows (EncodeAppConfig reads it) and reset by the caller only once
// that command has actually completed, so a future start recomputes it
// fresh instead of discarding it before it was ever sent.
func (l *Loop) applyRelativeInitiationTime(ctx context.Context, sess *session.Session) error {
	if uciVersion < 2 || !sess.Flags.NeedsUwbsTimestampQuery {
		return nil
	}
	ts, err := l.transport.QueryUwbsTimestampMicros(ctx)
	if err != nil {
		return err
	}
	fira, ok := sess.Params.(*session.FiRaParams)
	if ok && fira.RelativeInitMs() != nil && fira.AbsoluteInitUs() == nil {
		absolute := ts + uint64(*fira.RelativeInitMs())*1000
		fira.SetAbsoluteInitUs(&absolute)
	}
	sess.Flags.NeedsUwbsTimestampQuery = false
	return nil
}
