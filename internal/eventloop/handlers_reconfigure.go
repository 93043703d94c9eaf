package eventloop

import (
	"context"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// Reconfigure applies a params delta and/or a multicast list update,
// valid from both Idle and Active (spec.md §4.3 rows 3-4, §4.4). Unlike
// Start/Stop it never changes the application-visible session state.
func (l *Loop) Reconfigure(ctx context.Context, req ReconfigureRequest) error {
	var sess *session.Session
	var stateErr bool
	l.Submit(func() {
		sess = l.table.GetByHandle(req.Handle)
		if sess == nil {
			return
		}
		if sess.State != session.StateIdle && sess.State != session.StateActive {
			stateErr = true
			return
		}
		sess.Operation = session.OperationReconfigure
		if req.Params != nil {
			sess.Params = req.Params
			sess.Flags.NeedsAppConfigUpdate = true
		}
	})
	if sess == nil {
		return ErrSessionNotFound
	}
	if stateErr {
		l.sink.RangingReconfigureFailed(toHandle(req.Handle), uci.ReasonUnknown)
		return ErrInvalidState
	}

	var opErr error
	runWorker(ctx, func(ctx context.Context) error {
		opErr = l.runReconfigure(ctx, sess, req.Multicast)
		return opErr
	})
	return opErr
}

func (l *Loop) runReconfigure(ctx context.Context, sess *session.Session, mcast *MulticastUpdate) error {
	ctx, cancel := deadlineCtx(ctx, l.cfg.Deadlines.SessionOpen)
	defer cancel()

	if sess.Flags.NeedsAppConfigUpdate {
		if err := l.reapplyAppConfig(ctx, sess); err != nil {
			l.sink.RangingReconfigureFailed(toHandle(sess.Handle), uci.ReasonBadParameters)
			return err
		}
		sess.Flags.NeedsAppConfigUpdate = false
	}

	if mcast != nil {
		if err := l.applyMulticastUpdate(ctx, sess, mcast); err != nil {
			return err
		}
	}

	l.sink.RangingReconfigured(toHandle(sess.Handle))
	return nil
}
