package session

import (
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/samber/lo"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// nonPrivilegedUID keys the non-privileged-uid index (spec.md §2 item 4).
type nonPrivilegedUID uint32

// Table is the process-wide SessionTable (spec.md §4.1). All mutations are
// serialized on the EventLoop; cornelk/hashmap lock-free maps let
// lookups (sessionIdOf, getById) run from any caller goroutine without
// contending with the EventLoop, matching the concurrency model in
// spec.md §5.
type Table struct {
	byHandle *hashmap.Map[Handle, *Session]
	byID     *hashmap.Map[uci.SessionID, *Session]

	mu                    sync.Mutex // guards nonPrivilegedUID and recentlyClosed, both diagnostic/low-traffic
	nonPrivilegedUID      map[nonPrivilegedUID][]Handle
	recentlyClosed        []ClosedRecord
	recentlyClosedMaxSize int
}

// ClosedRecord is a bounded diagnostic record of a terminated session
// (spec.md §3 Lifecycles: "moved to a bounded LRU of recently-closed
// sessions for diagnostics").
type ClosedRecord struct {
	Handle   Handle
	ID       uci.SessionID
	Protocol uci.Protocol
	Reason   uci.Reason
}

// NewTable constructs an empty SessionTable. recentlyClosedMaxSize bounds
// the diagnostic LRU.
func NewTable(recentlyClosedMaxSize int) *Table {
	return &Table{
		byHandle:              hashmap.New[Handle, *Session](),
		byID:                  hashmap.New[uci.SessionID, *Session](),
		nonPrivilegedUID:      make(map[nonPrivilegedUID][]Handle),
		recentlyClosedMaxSize: recentlyClosedMaxSize,
	}
}

// Insert adds a new session to the table. Callers must have already
// checked for duplicates via GetByHandle/GetByID (spec.md §4.2 step 2).
// nonPrivilegedUID, if non-nil, is the uid of the session's first
// non-privileged attribution link (already resolved by the caller during
// admission, spec.md §4.2 step 1); Table only needs the resolved uid to
// maintain its index, not a policy.Oracle of its own.
func (t *Table) Insert(s *Session, nonPrivileged *uint32) {
	t.byHandle.Set(s.Handle, s)
	t.byID.Set(s.ID, s)
	AcquireDefaultPoseIfNeeded(s)

	if nonPrivileged == nil {
		return
	}
	t.mu.Lock()
	key := nonPrivilegedUID(*nonPrivileged)
	t.nonPrivilegedUID[key] = append(t.nonPrivilegedUID[key], s.Handle)
	t.mu.Unlock()
}

// GetByHandle returns the session for handle, or nil if unknown.
func (t *Table) GetByHandle(h Handle) *Session {
	s, _ := t.byHandle.Get(h)
	return s
}

// GetByID returns the session for id, or nil if unknown.
func (t *Table) GetByID(id uci.SessionID) *Session {
	s, _ := t.byID.Get(id)
	return s
}

// SessionIDOf returns the SessionID for a handle, never erroring on an
// unknown handle (spec.md §4.1 guarantee).
func (t *Table) SessionIDOf(h Handle) (uci.SessionID, bool) {
	s, ok := t.byHandle.Get(h)
	if !ok {
		return 0, false
	}
	return s.ID, true
}

// CountByProtocol returns how many live sessions of a protocol exist on a
// chip.
func (t *Table) CountByProtocol(protocol uci.Protocol, chip uci.ChipID) int {
	count := 0
	t.byHandle.Range(func(_ Handle, s *Session) bool {
		if s.Protocol == protocol && s.Chip == chip {
			count++
		}
		return true
	})
	return count
}

// SessionWithLowestPriority returns the live session of a protocol on a
// chip with the lowest StackPriority, used by AdmissionController for
// FiRa eviction (spec.md §4.2 step 3).
func (t *Table) SessionWithLowestPriority(protocol uci.Protocol, chip uci.ChipID) *Session {
	var candidates []*Session
	t.byHandle.Range(func(_ Handle, s *Session) bool {
		if s.Protocol == protocol && s.Chip == chip {
			candidates = append(candidates, s)
		}
		return true
	})
	if len(candidates) == 0 {
		return nil
	}
	return lo.MinBy(candidates, func(a, b *Session) bool {
		return a.StackPriority < b.StackPriority
	})
}

// Remove deletes a session from every index and appends a diagnostic
// record to the recently-closed LRU (spec.md §3 Lifecycles).
func (t *Table) Remove(s *Session, reason uci.Reason) {
	t.byHandle.Del(s.Handle)
	t.byID.Del(s.ID)
	ReleaseDefaultPose(s)

	t.mu.Lock()
	for k, handles := range t.nonPrivilegedUID {
		filtered := lo.Filter(handles, func(h Handle, _ int) bool { return h != s.Handle })
		if len(filtered) != len(handles) {
			t.nonPrivilegedUID[k] = filtered
		}
	}
	t.recentlyClosed = append(t.recentlyClosed, ClosedRecord{
		Handle: s.Handle, ID: s.ID, Protocol: s.Protocol, Reason: reason,
	})
	if t.recentlyClosedMaxSize > 0 && len(t.recentlyClosed) > t.recentlyClosedMaxSize {
		t.recentlyClosed = t.recentlyClosed[len(t.recentlyClosed)-t.recentlyClosedMaxSize:]
	}
	t.mu.Unlock()
}

// RecentlyClosed returns a snapshot of the bounded diagnostic LRU.
func (t *Table) RecentlyClosed() []ClosedRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ClosedRecord, len(t.recentlyClosed))
	copy(out, t.recentlyClosed)
	return out
}

// HandlesForUID returns the handles of live sessions whose first
// non-privileged attribution link is uid, used by AppStateWatcher
// (spec.md §4.7).
func (t *Table) HandlesForUID(uid uint32) []Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Handle, len(t.nonPrivilegedUID[nonPrivilegedUID(uid)]))
	copy(out, t.nonPrivilegedUID[nonPrivilegedUID(uid)])
	return out
}
