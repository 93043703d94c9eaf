package eventloop

import (
	"context"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// UpdateDtTagRounds updates a DT-Tag session's set of active ranging
// round indexes (spec.md §4.4). Valid only while Active, since the
// round set only has meaning once ranging is underway.
func (l *Loop) UpdateDtTagRounds(ctx context.Context, req UpdateDtTagRoundsRequest) error {
	var sess *session.Session
	var stateErr bool
	l.Submit(func() {
		sess = l.table.GetByHandle(req.Handle)
		if sess == nil {
			return
		}
		if sess.State != session.StateActive {
			stateErr = true
			return
		}
		sess.Operation = session.OperationUpdateDtTagRounds
	})
	if sess == nil {
		return ErrSessionNotFound
	}
	if stateErr {
		l.sink.DtTagRoundsUpdateStatus(toHandle(req.Handle), uci.StatusSessionActive)
		return ErrInvalidState
	}

	var opErr error
	runWorker(ctx, func(ctx context.Context) error {
		opErr = l.runUpdateDtTagRounds(ctx, sess, req.Indexes)
		return opErr
	})
	return opErr
}

func (l *Loop) runUpdateDtTagRounds(ctx context.Context, sess *session.Session, indexes []uint8) error {
	ctx, cancel := deadlineCtx(ctx, l.cfg.Deadlines.RangingRoundsUpdate)
	defer cancel()

	status, err := l.transport.SessionUpdateDtTagRangingRounds(ctx, sess.ID, indexes, sess.Chip)
	if err != nil {
		l.sink.DtTagRoundsUpdateStatus(toHandle(sess.Handle), uci.StatusFailed)
		return ErrInvalidRequest
	}
	l.sink.DtTagRoundsUpdateStatus(toHandle(sess.Handle), status)
	return nil
}
