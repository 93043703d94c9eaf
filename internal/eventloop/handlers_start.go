package eventloop

import (
	"context"
	"time"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// Start drives Idle -> Active (spec.md §4.3 row 3), applying the
// start-handler specifics from spec.md §4.4: merge a new RAN
// multiplier/initiation-time/STS index into the stored params, and
// re-apply app config first if anything changed. A FiRa session without a
// priority override whose stackPriority differs from its params' priority
// also gets its app config re-applied; the params' priority itself is not
// changed, so the re-applied config still carries the old value.
func (l *Loop) Start(ctx context.Context, req StartRequest) error {
	var sess *session.Session
	var stateErr bool
	l.Submit(func() {
		sess = l.table.GetByHandle(req.Handle)
		if sess == nil {
			return
		}
		if sess.State != session.StateIdle {
			stateErr = true
			return
		}
		sess.Operation = session.OperationStart
		l.mergeStartParams(sess, req)
	})
	if sess == nil {
		return ErrSessionNotFound
	}
	if stateErr {
		l.sink.RangingStartFailed(toHandle(req.Handle), uci.ReasonUnknown)
		return ErrInvalidState
	}

	var opErr error
	runWorker(ctx, func(ctx context.Context) error {
		opErr = l.runStart(ctx, sess)
		return opErr
	})
	return opErr
}

func (l *Loop) mergeStartParams(sess *session.Session, req StartRequest) {
	fira, ok := sess.Params.(*session.FiRaParams)
	if ok {
		if req.RanMultiplier != nil {
			fira.RanMultiplier = *req.RanMultiplier
			sess.Flags.NeedsAppConfigUpdate = true
		}
		if req.RelativeInitMs != nil {
			fira.SetRelativeInitMs(req.RelativeInitMs)
			sess.Flags.NeedsUwbsTimestampQuery = true
			sess.Flags.NeedsAppConfigUpdate = true
		}
		if req.AbsoluteInitUs != nil {
			fira.SetAbsoluteInitUs(req.AbsoluteInitUs)
			sess.Flags.NeedsAppConfigUpdate = true
		}
	}

	if sess.Protocol == uci.ProtocolFiRa && !sess.Params.PriorityOverride() {
		if sess.StackPriority != sess.Params.SessionPriority() {
			sess.Flags.NeedsAppConfigUpdate = true
		}
	}

	if req.StsIndex != nil {
		switch p := sess.Params.(type) {
		case *session.CccParams:
			p.StsIndex = *req.StsIndex
			sess.Flags.NeedsAppConfigUpdate = true
		case *session.AliroParams:
			p.StsIndex = *req.StsIndex
			sess.Flags.NeedsAppConfigUpdate = true
		}
	}
}

func (l *Loop) runStart(ctx context.Context, sess *session.Session) error {
	deadline := l.cfg.Deadlines.SessionStart
	if sess.Protocol == uci.ProtocolFiRa {
		if interval := fiRaRangingInterval(sess); interval > 0 && 4*interval > deadline {
			deadline = 4 * interval
		}
	}
	ctx, cancel := deadlineCtx(ctx, deadline)
	defer cancel()

	if sess.Flags.NeedsAppConfigUpdate {
		if err := l.applyRelativeInitiationTime(ctx, sess); err != nil {
			l.sink.RangingStartFailed(toHandle(sess.Handle), uci.ReasonBadParameters)
			return err
		}
		if err := l.reapplyAppConfig(ctx, sess); err != nil {
			l.sink.RangingStartFailed(toHandle(sess.Handle), uci.ReasonBadParameters)
			return err
		}
		sess.Flags.NeedsAppConfigUpdate = false
		if fira, ok := sess.Params.(*session.FiRaParams); ok {
			fira.SetAbsoluteInitUs(nil) // recomputed fresh on the next start, per spec.md §4.4
		}
	}

	ch := sess.Latch.Arm()
	status, err := l.transport.StartRanging(ctx, sess.ID, sess.Chip)
	if err != nil || status != uci.StatusOk {
		l.sink.RangingStartFailed(toHandle(sess.Handle), uci.ReasonFromStatus(status))
		return ErrInvalidRequest
	}
	if err := awaitLatch(ctx, ch); err != nil {
		l.sink.RangingStartFailed(toHandle(sess.Handle), uci.ReasonUnknown)
		return err
	}
	if sess.State != session.StateActive {
		l.sink.RangingStartFailed(toHandle(sess.Handle), uci.ReasonUnknown)
		return ErrInvalidState
	}

	if l.isNonPrivilegedBackgroundAtStart(sess) {
		l.Go(func() {
			l.disableNotificationsForBackground(context.Background(), sess)
		})
	}

	l.sink.RangingStarted(toHandle(sess.Handle), sess.Params)
	return nil
}

func (l *Loop) reapplyAppConfig(ctx context.Context, sess *session.Session) error {
	ch := sess.Latch.Arm()
	status, err := l.transport.SetAppConfigurations(ctx, sess.ID, session.EncodeAppConfig(sess.Params), sess.Chip, uciVersion)
	if err != nil || status != uci.StatusOk {
		return ErrInvalidRequest
	}
	return awaitLatch(ctx, ch)
}

// fiRaRangingInterval extracts the session's current ranging interval for
// the 4x deadline floor in spec.md §5; zero if the params don't carry one.
func fiRaRangingInterval(sess *session.Session) time.Duration {
	fira, ok := sess.Params.(*session.FiRaParams)
	if !ok {
		return 0
	}
	return time.Duration(fira.RangingInterval()) * time.Millisecond
}

// isNonPrivilegedBackgroundAtStart implements spec.md §4.3's post-start
// edge case check: true when the session's first non-privileged
// attribution link is currently backgrounded.
func (l *Loop) isNonPrivilegedBackgroundAtStart(sess *session.Session) bool {
	link, ok := sess.Attribution.FirstNonPrivileged(l.oracle)
	if !ok {
		return false
	}
	return !l.oracle.IsAppForeground(link.UID)
}

// disableNotificationsForBackground implements spec.md §4.3's edge case:
// "When a start succeeds but the application is a non-privileged
// background app, reconfigure ranging-notification controls to Disable
// immediately after start, without changing stored params."
func (l *Loop) disableNotificationsForBackground(ctx context.Context, sess *session.Session) {
	ctx, cancel := deadlineCtx(ctx, l.cfg.Deadlines.SessionOpen)
	defer cancel()
	if mutable, ok := sess.Params.(interface {
		SetRngDataNtfControl(session.RngDataNtfControl)
	}); ok {
		mutable.SetRngDataNtfControl(session.RngDataNtfDisable)
	}
	ch := sess.Latch.Arm()
	status, err := l.transport.SetAppConfigurations(ctx, sess.ID, session.EncodeAppConfig(sess.Params), sess.Chip, uciVersion)
	if err != nil || status != uci.StatusOk {
		return
	}
	_ = awaitLatch(ctx, ch)
}
