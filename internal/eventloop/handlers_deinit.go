package eventloop

import (
	"context"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// Deinit closes a session from any state but Deinit itself, reaching
// Deinit whether or not UCI's own deinitSession command succeeds
// (spec.md §4.3 row 5: "Deinit always succeeds from the core's
// perspective; a failed UCI deinitSession still removes the session
// locally").
func (l *Loop) Deinit(ctx context.Context, req DeinitRequest) error {
	var sess *session.Session
	l.Submit(func() {
		sess = l.table.GetByHandle(req.Handle)
	})
	if sess == nil {
		return ErrSessionNotFound
	}

	var opErr error
	runWorker(ctx, func(ctx context.Context) error {
		opErr = l.deinitForReason(ctx, sess, uci.ReasonLocalApi)
		return opErr
	})
	return opErr
}

// HandleUnsolicitedDeinit is called by NotificationRouter when UCI
// reports a session reached Deinit on its own, outside any
// caller-initiated Deinit (spec.md §4.5 onSessionStatus routing rule):
// the reason is derived from the notification's own reason code rather
// than defaulting to ReasonLocalApi.
func (l *Loop) HandleUnsolicitedDeinit(ctx context.Context, req UnsolicitedDeinitRequest) error {
	var sess *session.Session
	l.Submit(func() {
		sess = l.table.GetByHandle(req.Handle)
	})
	if sess == nil {
		return ErrSessionNotFound
	}
	return l.deinitForReason(ctx, sess, req.Reason)
}

// deinitForReason drives a session to Deinit and removes it from the
// table, used by the caller-initiated Deinit handler, by
// HandleUnsolicitedDeinit, and by admission eviction (spec.md §4.2
// step 3). Nothing calls it on client death, and the ranging-error-streak
// timer stops the session rather than closing it. Always removes the session locally even when the UCI
// command itself fails or times out, since there is no further state to
// wait for once the core has decided to give up on it.
func (l *Loop) deinitForReason(ctx context.Context, sess *session.Session, reason uci.Reason) error {
	ctx, cancel := deadlineCtx(ctx, l.cfg.Deadlines.SessionClose)
	defer cancel()

	sess.Operation = session.OperationDeinit
	l.clock.CancelAll(uint64(sess.Handle))

	if sess.State != session.StateDeinit {
		ch := sess.Latch.Arm()
		status, err := l.transport.DeinitSession(ctx, sess.ID, sess.Chip)
		if err == nil && status == uci.StatusOk {
			if waitErr := awaitLatch(ctx, ch); waitErr != nil {
				sess.Log().WithError(waitErr).Warn("deinit: no state notification before deadline")
			}
		} else {
			sess.Log().WithField("status", status).Warn("deinit: UCI command failed, removing session locally anyway")
		}
	}

	sess.CloseAllControlees()
	l.table.Remove(sess, reason)
	l.sink.RangingClosed(toHandle(sess.Handle), reason, sess.Params)
	return nil
}
