package eventloop

import (
	"context"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// DataTransferPhaseConfig configures data-transfer phase scheduling
// (spec.md §4.4), gated to sessions whose type carries a data-transfer
// phase and validated against the control byte's slot-bitmap-size and
// address-length encodings before anything is sent to UCI.
func (l *Loop) DataTransferPhaseConfig(ctx context.Context, req DataTransferPhaseConfigRequest) error {
	var sess *session.Session
	var stateErr, validationErr bool
	l.Submit(func() {
		sess = l.table.GetByHandle(req.Handle)
		if sess == nil {
			return
		}
		if !sessionTypeHasDataTransferPhase(sess.Type) {
			stateErr = true
			return
		}
		if !validatePhaseEntries(req.Control, req.Phases) {
			validationErr = true
			return
		}
		sess.Operation = session.OperationDataTransferPhaseConfig
	})
	if sess == nil {
		return ErrSessionNotFound
	}
	if stateErr {
		l.sink.DataTransferPhaseConfigFailed(toHandle(req.Handle), uci.ReasonProtocolSpecific)
		return ErrInvalidState
	}
	if validationErr {
		l.sink.DataTransferPhaseConfigFailed(toHandle(req.Handle), uci.ReasonBadParameters)
		return ErrInvalidRequest
	}

	var opErr error
	runWorker(ctx, func(ctx context.Context) error {
		opErr = l.runDataTransferPhaseConfig(ctx, sess, req)
		return opErr
	})
	return opErr
}

func (l *Loop) runDataTransferPhaseConfig(ctx context.Context, sess *session.Session, req DataTransferPhaseConfigRequest) error {
	ctx, cancel := deadlineCtx(ctx, l.cfg.Deadlines.DataTransferPhaseConfig)
	defer cancel()

	ch := sess.Latch.Arm()
	status, err := l.transport.SetDataTransferPhaseConfig(ctx, sess.ID, req.Repetition, req.Control, req.Phases, sess.Chip)
	if err != nil || status != uci.StatusOk {
		l.sink.DataTransferPhaseConfigFailed(toHandle(sess.Handle), uci.ReasonFromStatus(status))
		return ErrInvalidRequest
	}
	if err := awaitLatch(ctx, ch); err != nil {
		l.sink.DataTransferPhaseConfigFailed(toHandle(sess.Handle), uci.ReasonUnknown)
		return err
	}
	if sess.PendingPhaseConfigStatus != uci.StatusOk {
		l.sink.DataTransferPhaseConfigFailed(toHandle(sess.Handle), uci.ReasonFromStatus(sess.PendingPhaseConfigStatus))
		return ErrInvalidRequest
	}
	l.sink.DataTransferPhaseConfigured(toHandle(sess.Handle))
	return nil
}

// sessionTypeHasDataTransferPhase is the applicability gate from
// spec.md §4.4: only the session types that actually carry an in-band
// data phase accept a phase-config request.
func sessionTypeHasDataTransferPhase(typ uci.SessionType) bool {
	switch typ {
	case uci.SessionTypeDataTransfer, uci.SessionTypeRangingAndInBandData, uci.SessionTypeInBandDataPhase:
		return true
	default:
		return false
	}
}

// validatePhaseEntries checks every entry's slot bitmap against the size
// the control byte encodes (1 << ((control & 0x0F) >> 1) bytes) and its
// IsExtended flag against the address mode the control byte's low bit
// selects (set for extended addresses).
func validatePhaseEntries(control uint8, phases []uci.PhaseEntry) bool {
	expectedBitmapLen := 1 << ((control & 0x0F) >> 1)
	for _, p := range phases {
		if len(p.SlotBitmap) != expectedBitmapLen {
			return false
		}
		wantExtended := control&0x01 != 0
		if p.IsExtended != wantExtended {
			return false
		}
	}
	return true
}
