package eventloop

import (
	"context"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
)

// Pause and Resume are the supplemented in-band suspend/resume pair
// (SPEC_FULL.md §5): the core itself enqueues these when
// NotificationRouter sees an onSessionStatus carrying
// ReasonCodeInbandSuspended/ReasonCodeInbandResumed, whatever the
// session's state. Unlike
// caller-initiated operations they never call into UCI themselves —
// the state transition already happened in UCI; the core only needs to
// record it and notify.
func (l *Loop) Pause(ctx context.Context, req PauseRequest) error {
	var sess *session.Session
	l.Submit(func() {
		sess = l.table.GetByHandle(req.Handle)
		if sess == nil {
			return
		}
		sess.Operation = session.OperationPause
	})
	if sess == nil {
		return ErrSessionNotFound
	}
	l.sink.RangingPaused(toHandle(req.Handle))
	return nil
}

func (l *Loop) Resume(ctx context.Context, req ResumeRequest) error {
	var sess *session.Session
	l.Submit(func() {
		sess = l.table.GetByHandle(req.Handle)
		if sess == nil {
			return
		}
		sess.Operation = session.OperationResume
	})
	if sess == nil {
		return ErrSessionNotFound
	}
	l.sink.RangingResumed(toHandle(req.Handle))
	return nil
}
