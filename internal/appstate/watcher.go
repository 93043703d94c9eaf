// Package appstate implements AppStateWatcher (spec.md §4.7): the
// per-uid foreground/background importance tracker that reconverges
// every affected session's stackPriority, arms/cancels the
// background-app grace timer, and live-overrides ranging-data
// notification control without touching the stored proximity bounds. Grounded on the
// teacher's uid/bearer state propagation in internal/pfcp/session.go,
// which walks every rule owned by an entity and republishes derived
// state when that entity's upstream status changes.
package appstate

import (
	"context"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/clock"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/config"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/eventloop"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/policy"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// Watcher reacts to per-uid importance transitions reported by the
// platform and keeps every session attributed to that uid consistent
// with it.
type Watcher struct {
	table  *session.Table
	loop   *eventloop.Loop
	oracle policy.Oracle
	cfg    *config.Config
	clock  *clock.Service
}

// New constructs an AppStateWatcher.
func New(table *session.Table, loop *eventloop.Loop, oracle policy.Oracle, cfg *config.Config, clk *clock.Service) *Watcher {
	return &Watcher{table: table, loop: loop, oracle: oracle, cfg: cfg, clock: clk}
}

// OnImportanceChanged is invoked by the platform binding whenever uid's
// foreground/background status changes (spec.md §4.7).
func (w *Watcher) OnImportanceChanged(uid policy.UID, foreground bool) {
	handles := w.table.HandlesForUID(uint32(uid))
	isSystemApp := w.oracle.IsAppPrivileged(uid)

	for _, h := range handles {
		sess := w.table.GetByHandle(h)
		if sess == nil {
			continue
		}
		session.RecomputeStackPriority(sess, w.cfg.Priority, isSystemApp, foreground)

		if foreground {
			w.clock.Cancel(uint64(h), clock.KindBackgroundApp)
			if sess.State == session.StateActive {
				w.reenableNotifications(sess)
			}
			continue
		}
		if sess.State == session.StateActive && w.oracle.BackgroundRangingEnabled() {
			w.armBackgroundDeadline(sess)
		} else if sess.State == session.StateActive {
			w.disableNotifications(sess)
		}
	}
}

// armBackgroundDeadline starts the background-app grace window
// (spec.md §4.9): if the app is still backgrounded when it fires, the
// session manager stops the session with ReasonSystemPolicy.
func (w *Watcher) armBackgroundDeadline(sess *session.Session) {
	handle := sess.Handle
	w.clock.Arm(uint64(handle), clock.KindBackgroundApp, w.cfg.BackgroundAppGraceWindow, func() {
		w.loop.Go(func() {
			_ = w.loop.Stop(context.Background(), eventloop.StopRequest{Handle: handle, Reason: uci.ReasonSystemPolicy})
		})
	})
}

// disableNotifications and reenableNotifications implement the live
// rng-data-ntf override from spec.md §4.7: the override lands on the
// params value in place (SetRngDataNtfControl never touches anything
// else), then a reconfigure pushes the updated encoding to UCI.
func (w *Watcher) disableNotifications(sess *session.Session) {
	w.setRngDataNtfControl(sess, session.RngDataNtfDisable)
}

func (w *Watcher) reenableNotifications(sess *session.Session) {
	w.setRngDataNtfControl(sess, session.RngDataNtfEnabled)
}

func (w *Watcher) setRngDataNtfControl(sess *session.Session, c session.RngDataNtfControl) {
	mutable, ok := sess.Params.(interface {
		SetRngDataNtfControl(session.RngDataNtfControl)
	})
	if !ok {
		return
	}
	mutable.SetRngDataNtfControl(c)
	w.loop.Go(func() {
		_ = w.loop.Reconfigure(context.Background(), eventloop.ReconfigureRequest{Handle: sess.Handle, Params: sess.Params})
	})
}
