package eventloop

import (
	"context"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// HybridSessionConfig composes a hybrid session out of one or more
// phases, each serialized little-endian as
// (SessionToken:u32, startSlotIndex:u16, endSlotIndex:u16) per
// spec.md §4.4. Any phase referencing a token this core doesn't
// recognize yet is still forwarded as-is: the primary session's
// controller is authoritative over what tokens are valid.
func (l *Loop) HybridSessionConfig(ctx context.Context, req HybridSessionConfigRequest) error {
	var sess *session.Session
	l.Submit(func() {
		sess = l.table.GetByHandle(req.Handle)
		if sess == nil {
			return
		}
		sess.Operation = session.OperationReconfigure
	})
	if sess == nil {
		return ErrSessionNotFound
	}

	var opErr error
	runWorker(ctx, func(ctx context.Context) error {
		opErr = l.runHybridSessionConfig(ctx, sess, req)
		return opErr
	})
	return opErr
}

func (l *Loop) runHybridSessionConfig(ctx context.Context, sess *session.Session, req HybridSessionConfigRequest) error {
	ctx, cancel := deadlineCtx(ctx, l.cfg.Deadlines.SessionOpen)
	defer cancel()

	ch := sess.Latch.Arm()
	status, err := l.transport.SetHybridSessionConfiguration(ctx, sess.ID, req.UpdateTime, req.Phases, sess.Chip)
	if err != nil || status != uci.StatusOk {
		l.sink.RangingReconfigureFailed(toHandle(sess.Handle), uci.ReasonFromStatus(status))
		return ErrInvalidRequest
	}
	if err := awaitLatch(ctx, ch); err != nil {
		l.sink.RangingReconfigureFailed(toHandle(sess.Handle), uci.ReasonUnknown)
		return err
	}
	l.sink.RangingReconfigured(toHandle(sess.Handle))
	return nil
}
