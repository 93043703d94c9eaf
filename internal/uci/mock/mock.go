// Package mock implements a scriptable fake uci.Transport for tests,
// grounded on the teacher's internal/forwarder.Empty: a zero-dependency
// stand-in that answers every command with a canned, overridable result
// instead of touching real hardware.
package mock

import (
	"context"
	"sync"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// Transport is a fake uci.Transport whose command responses and
// notification timing are controlled entirely by the test driving it.
// Every command defaults to succeeding immediately and, where the real
// UCI would follow up with a state notification, synchronously invokes
// the registered Notifiee on the same goroutine that issued the
// command — a test can override any of the On* hooks to inject a
// failure or delay instead.
type Transport struct {
	mu       sync.Mutex
	notifiee uci.Notifiee

	// Hooks, when non-nil, replace the default canned behavior for the
	// matching command. Each returns the (status, error) pair the
	// command should report synchronously.
	OnInitSession                      func(id uci.SessionID, typ uci.SessionType) (uci.Status, error)
	OnDeinitSession                    func(id uci.SessionID) (uci.Status, error)
	OnSetAppConfigurations             func(id uci.SessionID, params []byte) (uci.Status, error)
	OnGetAppConfigurations             func(id uci.SessionID, protocol uci.Protocol, keys []byte) (uci.Status, []byte, error)
	OnStartRanging                     func(id uci.SessionID) (uci.Status, error)
	OnStopRanging                      func(id uci.SessionID) (uci.Status, error)
	OnControllerMulticastListUpdate    func(id uci.SessionID, action uci.MulticastAction, entries []uci.MulticastEntry) (uci.Status, error)
	OnSendData                         func(id uci.SessionID, peer uint64, seq uint16, payload []byte) (uci.Status, error)
	OnSetDataTransferPhaseConfig       func(id uci.SessionID, repetition, control uint8, phases []uci.PhaseEntry) (uci.Status, error)
	OnSessionUpdateDtTagRangingRounds  func(id uci.SessionID, indexes []uint8) (uci.Status, error)
	OnSetHybridSessionConfiguration    func(id uci.SessionID, updateTime uint64, phases []uci.HybridPhase) (uci.Status, error)
	OnQueryMaxDataSizeBytes            func(id uci.SessionID) (uint32, error)
	OnGetSessionToken                  func(id uci.SessionID) (uci.SessionToken, error)
	OnQueryUwbsTimestampMicros         func() (uint64, error)

	tokenSeq uint32
}

// New constructs a Transport with every command defaulting to success.
func New() *Transport { return &Transport{} }

func (t *Transport) SetNotifiee(n uci.Notifiee) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notifiee = n
}

func (t *Transport) notify(fn func(uci.Notifiee)) {
	t.mu.Lock()
	n := t.notifiee
	t.mu.Unlock()
	if n != nil {
		fn(n)
	}
}

// NotifySessionStatus lets a test drive an onSessionStatus callback
// directly, for scenarios that need a notification not implied by any
// command the test issued (an in-band suspend, an unsolicited deinit).
func (t *Transport) NotifySessionStatus(id uci.SessionID, state uci.SessionState, reasonCode uci.ReasonCode) {
	t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, state, reasonCode) })
}

// NotifyRangeData lets a test push a ranging-data frame.
func (t *Transport) NotifyRangeData(id uci.SessionID, data uci.RangingData) {
	t.notify(func(n uci.Notifiee) { n.OnRangeData(id, data) })
}

// NotifyDataReceived lets a test push an onDataReceived callback directly,
// for payloads not carried by any command the test issued.
func (t *Transport) NotifyDataReceived(id uci.SessionID, status uci.Status, seq uint16, peer uint64, payload []byte) {
	t.notify(func(n uci.Notifiee) { n.OnDataReceived(id, status, seq, peer, payload) })
}

func (t *Transport) InitSession(ctx context.Context, id uci.SessionID, typ uci.SessionType, chip uci.ChipID) (uci.Status, error) {
	if t.OnInitSession != nil {
		status, err := t.OnInitSession(id, typ)
		if err == nil && status == uci.StatusOk {
			t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, uci.SessionStateInit, uci.ReasonCodeStateChangeWithSessionMgmtCmd) })
		}
		return status, err
	}
	t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, uci.SessionStateInit, uci.ReasonCodeStateChangeWithSessionMgmtCmd) })
	return uci.StatusOk, nil
}

func (t *Transport) DeinitSession(ctx context.Context, id uci.SessionID, chip uci.ChipID) (uci.Status, error) {
	if t.OnDeinitSession != nil {
		status, err := t.OnDeinitSession(id)
		if err == nil && status == uci.StatusOk {
			t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, uci.SessionStateDeinit, uci.ReasonCodeStateChangeWithSessionMgmtCmd) })
		}
		return status, err
	}
	t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, uci.SessionStateDeinit, uci.ReasonCodeStateChangeWithSessionMgmtCmd) })
	return uci.StatusOk, nil
}

func (t *Transport) SetAppConfigurations(ctx context.Context, id uci.SessionID, params []byte, chip uci.ChipID, uciVersion int) (uci.Status, error) {
	if t.OnSetAppConfigurations != nil {
		status, err := t.OnSetAppConfigurations(id, params)
		if err == nil && status == uci.StatusOk {
			t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, uci.SessionStateIdle, uci.ReasonCodeStateChangeWithSessionMgmtCmd) })
		}
		return status, err
	}
	t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, uci.SessionStateIdle, uci.ReasonCodeStateChangeWithSessionMgmtCmd) })
	return uci.StatusOk, nil
}

func (t *Transport) GetAppConfigurations(ctx context.Context, id uci.SessionID, protocol uci.Protocol, keys []byte, chip uci.ChipID, uciVersion int) (uci.Status, []byte, error) {
	if t.OnGetAppConfigurations != nil {
		return t.OnGetAppConfigurations(id, protocol, keys)
	}
	return uci.StatusOk, nil, nil
}

func (t *Transport) StartRanging(ctx context.Context, id uci.SessionID, chip uci.ChipID) (uci.Status, error) {
	if t.OnStartRanging != nil {
		status, err := t.OnStartRanging(id)
		if err == nil && status == uci.StatusOk {
			t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, uci.SessionStateActive, uci.ReasonCodeStateChangeWithSessionMgmtCmd) })
		}
		return status, err
	}
	t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, uci.SessionStateActive, uci.ReasonCodeStateChangeWithSessionMgmtCmd) })
	return uci.StatusOk, nil
}

func (t *Transport) StopRanging(ctx context.Context, id uci.SessionID, chip uci.ChipID) (uci.Status, error) {
	if t.OnStopRanging != nil {
		status, err := t.OnStopRanging(id)
		if err == nil && status == uci.StatusOk {
			t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, uci.SessionStateIdle, uci.ReasonCodeStateChangeWithSessionMgmtCmd) })
		}
		return status, err
	}
	t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, uci.SessionStateIdle, uci.ReasonCodeStateChangeWithSessionMgmtCmd) })
	return uci.StatusOk, nil
}

func (t *Transport) ControllerMulticastListUpdate(ctx context.Context, id uci.SessionID, action uci.MulticastAction, entries []uci.MulticastEntry, chip uci.ChipID) (uci.Status, error) {
	if t.OnControllerMulticastListUpdate != nil {
		status, err := t.OnControllerMulticastListUpdate(id, action, entries)
		if err == nil && status == uci.StatusOk {
			t.notify(func(n uci.Notifiee) { n.OnMulticastListUpdate(id, okStatusesFor(entries)) })
		}
		return status, err
	}
	t.notify(func(n uci.Notifiee) { n.OnMulticastListUpdate(id, okStatusesFor(entries)) })
	return uci.StatusOk, nil
}

func okStatusesFor(entries []uci.MulticastEntry) map[uint16]uci.MulticastEntryStatus {
	out := make(map[uint16]uci.MulticastEntryStatus, len(entries))
	for _, e := range entries {
		out[e.Address] = uci.MulticastStatusOK
	}
	return out
}

func (t *Transport) SendData(ctx context.Context, id uci.SessionID, peer uint64, seq uint16, payload []byte, chip uci.ChipID) (uci.Status, error) {
	if t.OnSendData != nil {
		status, err := t.OnSendData(id, peer, seq, payload)
		if err == nil && status == uci.StatusOk {
			t.notify(func(n uci.Notifiee) { n.OnDataSendStatus(id, uci.StatusOk, seq, 1) })
		}
		return status, err
	}
	t.notify(func(n uci.Notifiee) { n.OnDataSendStatus(id, uci.StatusOk, seq, 1) })
	return uci.StatusOk, nil
}

func (t *Transport) SetDataTransferPhaseConfig(ctx context.Context, id uci.SessionID, repetition uint8, control uint8, phases []uci.PhaseEntry, chip uci.ChipID) (uci.Status, error) {
	if t.OnSetDataTransferPhaseConfig != nil {
		status, err := t.OnSetDataTransferPhaseConfig(id, repetition, control, phases)
		if err == nil && status == uci.StatusOk {
			t.notify(func(n uci.Notifiee) { n.OnDataTransferPhaseConfig(id, uci.StatusOk) })
		}
		return status, err
	}
	t.notify(func(n uci.Notifiee) { n.OnDataTransferPhaseConfig(id, uci.StatusOk) })
	return uci.StatusOk, nil
}

func (t *Transport) SessionUpdateDtTagRangingRounds(ctx context.Context, id uci.SessionID, indexes []uint8, chip uci.ChipID) (uci.Status, error) {
	if t.OnSessionUpdateDtTagRangingRounds != nil {
		return t.OnSessionUpdateDtTagRangingRounds(id, indexes)
	}
	return uci.StatusOk, nil
}

func (t *Transport) SetHybridSessionConfiguration(ctx context.Context, id uci.SessionID, updateTime uint64, phases []uci.HybridPhase, chip uci.ChipID) (uci.Status, error) {
	if t.OnSetHybridSessionConfiguration != nil {
		status, err := t.OnSetHybridSessionConfiguration(id, updateTime, phases)
		if err == nil && status == uci.StatusOk {
			t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, uci.SessionStateIdle, uci.ReasonCodeStateChangeWithSessionMgmtCmd) })
		}
		return status, err
	}
	t.notify(func(n uci.Notifiee) { n.OnSessionStatus(id, uci.SessionStateIdle, uci.ReasonCodeStateChangeWithSessionMgmtCmd) })
	return uci.StatusOk, nil
}

func (t *Transport) QueryMaxDataSizeBytes(ctx context.Context, id uci.SessionID, chip uci.ChipID) (uint32, error) {
	if t.OnQueryMaxDataSizeBytes != nil {
		return t.OnQueryMaxDataSizeBytes(id)
	}
	return 1024, nil
}

func (t *Transport) GetSessionToken(ctx context.Context, id uci.SessionID, chip uci.ChipID) (uci.SessionToken, error) {
	if t.OnGetSessionToken != nil {
		return t.OnGetSessionToken(id)
	}
	t.mu.Lock()
	t.tokenSeq++
	tok := t.tokenSeq
	t.mu.Unlock()
	return uci.SessionToken(tok), nil
}

func (t *Transport) QueryUwbsTimestampMicros(ctx context.Context) (uint64, error) {
	if t.OnQueryUwbsTimestampMicros != nil {
		return t.OnQueryUwbsTimestampMicros()
	}
	return 1_000_000, nil
}
