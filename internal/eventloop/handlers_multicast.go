package eventloop

import (
	"context"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/sink"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// applyMulticastUpdate issues controllerMulticastListUpdate and, once
// NotificationRouter reports per-entry outcomes, reconciles the
// session's controlee list and emits one sink callback per entry
// (spec.md §4.4). SubSessionIDs default to zero per entry when the
// caller omits them, matching the provisioned-STS convention the spec
// calls out.
func (l *Loop) applyMulticastUpdate(ctx context.Context, sess *session.Session, mcast *MulticastUpdate) error {
	entries := mcast.Entries
	isKeyedAdd := mcast.Action == uci.MulticastAdd32ByteKey || mcast.Action == uci.MulticastAdd16ByteKey
	if isKeyedAdd {
		for i := range entries {
			if len(mcast.SubSessionIDs) > i {
				entries[i].SubSessionID = mcast.SubSessionIDs[i]
			}
		}
	}

	if err := validateMulticastKeys(sess, mcast.Action, entries); err != nil {
		for _, e := range entries {
			l.emitMulticastFailure(sess, mcast.Action, e.Address, uci.ReasonBadParameters)
		}
		return err
	}

	sess.PendingMulticastStatuses = nil
	ch := sess.Latch.Arm()
	status, err := l.transport.ControllerMulticastListUpdate(ctx, sess.ID, mcast.Action, entries, sess.Chip)
	if err != nil || status != uci.StatusOk {
		reason := uci.ReasonFromStatus(status)
		for _, e := range entries {
			l.emitMulticastFailure(sess, mcast.Action, e.Address, reason)
		}
		return ErrInvalidRequest
	}
	if err := awaitLatch(ctx, ch); err != nil {
		for _, e := range entries {
			l.emitMulticastFailure(sess, mcast.Action, e.Address, uci.ReasonUnknown)
		}
		return err
	}

	statuses := sess.PendingMulticastStatuses
	for _, e := range entries {
		st, ok := statuses[e.Address]
		if !ok {
			st = uci.MulticastStatusOK
		}
		l.reconcileMulticastEntry(sess, mcast.Action, e, st)
	}
	return nil
}

func (l *Loop) reconcileMulticastEntry(sess *session.Session, action uci.MulticastAction, entry uci.MulticastEntry, status uci.MulticastEntryStatus) {
	handle := toHandle(sess.Handle)
	addr := sink.ControleeAddress(entry.Address)

	if action == uci.MulticastDeleteShortAddress {
		if status == uci.MulticastStatusOK {
			sess.RemoveControlee(entry.Address)
			l.sink.ControleeRemoved(handle, addr)
		} else {
			l.sink.ControleeRemoveFailed(handle, addr, multicastReason(status))
		}
		return
	}

	if status == uci.MulticastStatusOK {
		if sess.ControleeIndex(entry.Address) < 0 {
			sess.Controlees = append(sess.Controlees, session.Controlee{Address: entry.Address})
		}
		l.sink.ControleeAdded(handle, addr)
	} else {
		l.sink.ControleeAddFailed(handle, addr, multicastReason(status))
	}
}

func (l *Loop) emitMulticastFailure(sess *session.Session, action uci.MulticastAction, addr uint16, reason uci.Reason) {
	handle := toHandle(sess.Handle)
	if action == uci.MulticastDeleteShortAddress {
		l.sink.ControleeRemoveFailed(handle, sink.ControleeAddress(addr), reason)
		return
	}
	l.sink.ControleeAddFailed(handle, sink.ControleeAddress(addr), reason)
}

// validateMulticastKeys implements spec.md §4.4's multicast key gate:
// only the 16/32-byte "add" action variants require a per-subsession key
// on each entry, and even then only a session opened with provisioned
// individual-key STS is allowed to carry one. Every other action/STS
// combination must arrive with no key at all.
func validateMulticastKeys(sess *session.Session, action uci.MulticastAction, entries []uci.MulticastEntry) error {
	wantLen := 0
	switch action {
	case uci.MulticastAdd16ByteKey:
		wantLen = 16
	case uci.MulticastAdd32ByteKey:
		wantLen = 32
	}

	provisionedIndividualKey := sess.Params.StsConfig() == session.StsConfigProvisionedIndividualKey
	for _, e := range entries {
		switch {
		case wantLen == 0:
			if len(e.SubSessionKey) != 0 {
				return ErrInvalidRequest
			}
		case !provisionedIndividualKey:
			if len(e.SubSessionKey) != 0 {
				return ErrInvalidRequest
			}
		case len(e.SubSessionKey) != wantLen:
			return ErrInvalidRequest
		}
	}
	return nil
}

// multicastReason maps a per-entry UCI multicast outcome to the
// user-visible reason taxonomy; none of these map cleanly onto a status
// or reason code already in the table, so they fold to BadParameters,
// matching how the spec treats malformed-entry rejects elsewhere.
func multicastReason(status uci.MulticastEntryStatus) uci.Reason {
	switch status {
	case uci.MulticastStatusOK:
		return uci.ReasonLocalApi
	default:
		return uci.ReasonBadParameters
	}
}
