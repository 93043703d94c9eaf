package eventloop

import (
	"context"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// SendData sends one outbound payload on an Active session, allocating
// the next 16-bit wrapping tx sequence number and tracking it until
// onDataSendStatus confirms delivery (spec.md §4.4, §3 invariants).
func (l *Loop) SendData(ctx context.Context, req SendDataRequest) error {
	var sess *session.Session
	var seq uint16
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
		sess.Operation = session.OperationSendData
		seq = sess.NextSendSequence()
		sess.TxTracking.Set(seq, session.SendDataInfo{
			PeerAddress: req.PeerAddress,
			Payload:     req.Payload,
		})
	})
	if sess == nil {
		return ErrSessionNotFound
	}
	if stateErr {
		l.sink.DataSendFailed(toHandle(req.Handle), 0, uci.ReasonUnknown)
		return ErrInvalidState
	}

	var opErr error
	runWorker(ctx, func(ctx context.Context) error {
		opErr = l.runSendData(ctx, sess, req.PeerAddress, seq, req.Payload)
		return opErr
	})
	return opErr
}

func (l *Loop) runSendData(ctx context.Context, sess *session.Session, peer uint64, seq uint16, payload []byte) error {
	ctx, cancel := deadlineCtx(ctx, l.cfg.Deadlines.SessionOpen)
	defer cancel()

	status, err := l.transport.SendData(ctx, sess.ID, peer, seq, payload, sess.Chip)
	if err != nil || status != uci.StatusOk {
		sess.TxTracking.Delete(seq)
		l.sink.DataSendFailed(toHandle(sess.Handle), seq, uci.ReasonFromStatus(status))
		return ErrInvalidRequest
	}
	// Final success/failure arrives asynchronously via onDataSendStatus,
	// routed straight to the sink by NotificationRouter; SendData itself
	// only confirms the command was accepted.
	return nil
}
