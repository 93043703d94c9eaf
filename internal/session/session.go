package session

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/logger"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// WaitLatch is the single coordination primitive between a command
// handler's worker and NotificationRouter (spec.md §5, §9): a single-slot
// completion a handler awaits with a deadline and the router fulfills.
type WaitLatch struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewWaitLatch returns an unarmed latch.
func NewWaitLatch() *WaitLatch {
	return &WaitLatch{}
}

// Arm resets the latch before a command handler waits on it. Must be
// called on the EventLoop before the UCI command is issued.
func (w *WaitLatch) Arm() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ch = make(chan struct{})
	return w.ch
}

// Release wakes whoever is waiting on the latch. Safe to call more than
// once or with nothing armed.
func (w *WaitLatch) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ch == nil {
		return
	}
	select {
	case <-w.ch:
		// already closed
	default:
		close(w.ch)
	}
}

// Session is the per-session state (spec.md §3), owned exclusively by its
// SessionTable. Every field is written only on the EventLoop or inside
// NotificationRouter while holding WaitLatch's implicit mutation right
// (the router calls into Session only between Arm and the corresponding
// Release).
type Session struct {
	Handle    Handle
	ID        uci.SessionID
	Token     uci.SessionToken
	Type      uci.SessionType
	Protocol  uci.Protocol
	Chip      uci.ChipID
	Attribution AttributionSource

	// AttributedUID is the uid of the session's first non-privileged
	// attribution link, if any (mirrors the Table's nonPrivilegedUID
	// index). NotificationRouter consults it to re-check the
	// data-delivery permission gate against onRangeData/onRadarData
	// (spec.md §4.5).
	AttributedUID *uint32

	Params Params

	State          State
	LastReasonCode uci.ReasonCode

	StackPriority int

	Controlees []Controlee

	RxBuffers map[uint64]*RxBuffer // peerAddress -> ordered seq -> ReceivedDataInfo
	TxNextSeq uint16
	TxTracking *TxTracking

	Timers Timers
	Flags  Flags

	Operation Operation

	// PendingMulticastStatuses is filled in by NotificationRouter's
	// OnMulticastListUpdate just before it releases Latch, so the
	// reconfigure worker that armed the latch can read per-entry outcomes
	// without a second round trip (spec.md §4.4 multicast handler).
	PendingMulticastStatuses map[uint16]uci.MulticastEntryStatus

	// PendingPhaseConfigStatus mirrors the same pattern for
	// onDataTransferPhaseConfig, so the worker that armed the latch can
	// tell success from failure without a second notification field per
	// callback.
	PendingPhaseConfigStatus uci.Status

	Latch *WaitLatch

	log *logrus.Entry
}

// New constructs a session in its initial Deinit state.
func New(handle Handle, id uci.SessionID, typ uci.SessionType, protocol uci.Protocol, chip uci.ChipID, attribution AttributionSource, params Params) *Session {
	return &Session{
		Handle:      handle,
		ID:          id,
		Type:        typ,
		Protocol:    protocol,
		Chip:        chip,
		Attribution: attribution,
		Params:      params,
		State:       StateDeinit,
		RxBuffers:   make(map[uint64]*RxBuffer),
		TxTracking:  NewTxTracking(),
		Latch:       NewWaitLatch(),
		log:         logger.For("session").WithField("handle", uint64(handle)),
	}
}

// Log returns the session's tagged log entry.
func (s *Session) Log() *logrus.Entry { return s.log }

// RxBufferFor returns (creating if absent) the receive buffer for a peer.
func (s *Session) RxBufferFor(peer uint64) *RxBuffer {
	buf, ok := s.RxBuffers[peer]
	if !ok {
		buf = NewRxBuffer()
		s.RxBuffers[peer] = buf
	}
	return buf
}

// InsertReceivedData stores info in the peer's rx buffer honoring the
// bounded-eviction invariant (spec.md §3): when the buffer is already at
// its cap, the smallest stored sequence number is evicted iff the
// incoming sequence number is strictly greater, keeping the top-N highest
// sequence numbers seen so far. Returns whether info was retained.
func (s *Session) InsertReceivedData(peer uint64, info ReceivedDataInfo) bool {
	maxStore := s.RxMaxPacketsToStore()
	buf := s.RxBufferFor(peer)
	if maxStore <= 0 {
		buf.Set(info.SequenceNumber, info)
		return true
	}
	if buf.Len() < maxStore {
		buf.Set(info.SequenceNumber, info)
		return true
	}
	minKey, found := uint16(0), false
	for pair := buf.Oldest(); pair != nil; pair = pair.Next() {
		if !found || pair.Key < minKey {
			minKey, found = pair.Key, true
		}
	}
	if !found || info.SequenceNumber <= minKey {
		return false
	}
	buf.Delete(minKey)
	buf.Set(info.SequenceNumber, info)
	return true
}

// NextSendSequence allocates and returns the next 16-bit wrapping tx
// sequence number (spec.md §4.4 send-data handler).
func (s *Session) NextSendSequence() uint16 {
	seq := s.TxNextSeq
	s.TxNextSeq++
	return seq
}

// ControleeIndex returns the index of the controlee with the given
// address, or -1.
func (s *Session) ControleeIndex(addr uint16) int {
	for i, c := range s.Controlees {
		if c.Address == addr {
			return i
		}
	}
	return -1
}

// RemoveControlee removes and closes the controlee at addr, if present.
func (s *Session) RemoveControlee(addr uint16) {
	idx := s.ControleeIndex(addr)
	if idx < 0 {
		return
	}
	c := s.Controlees[idx]
	if c.FilterEngine != nil {
		if err := c.FilterEngine.Close(); err != nil {
			s.log.Warnf("close filter engine for controlee %#x: %v", addr, err)
		}
	}
	if c.PoseBinding != nil {
		c.PoseBinding.Release()
	}
	s.Controlees = append(s.Controlees[:idx], s.Controlees[idx+1:]...)
}

// CloseAllControlees releases every controlee's filter engine and pose
// binding, called on session deinit (spec.md §3 Lifecycles).
func (s *Session) CloseAllControlees() {
	for _, c := range s.Controlees {
		if c.FilterEngine != nil {
			if err := c.FilterEngine.Close(); err != nil {
				s.log.Warnf("close filter engine for controlee %#x: %v", c.Address, err)
			}
		}
		if c.PoseBinding != nil {
			c.PoseBinding.Release()
		}
	}
	s.Controlees = nil
}

// IsOwrAoaObserver reports whether this session is the shape
// AdvertiseManager cares about (spec.md §4.6): OWR-AoA ranging usage with
// an Observer device role.
func (s *Session) IsOwrAoaObserver() bool {
	shape, ok := s.Params.(RangingShape)
	if !ok {
		return false
	}
	return shape.RangingRoundUsage() == RangingRoundOwrAoaMeasurement && shape.DeviceRole() == DeviceRoleObserver
}

// RxMaxPacketsToStore returns the per-peer rx buffer bound for this
// session's params, or 0 if the params don't expose one.
func (s *Session) RxMaxPacketsToStore() int {
	if shape, ok := s.Params.(RangingShape); ok {
		return shape.RxMaxPacketsToStore()
	}
	return 0
}
