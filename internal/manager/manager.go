// Package manager wires every collaborator into the top-level
// SessionManager facade spec.md §2 describes as the single entry point
// an application process holds: SessionTable, EventLoop,
// NotificationRouter, AdmissionController, AppStateWatcher,
// AdvertiseManager, and the alarm Service, all constructed once and
// bound to each other here. Grounded on the teacher's cmd/go-upf
// wiring, which constructs its Conn, forwarder and PFCP node in one
// place and hands the fully wired struct to the caller.
package manager

import (
	"context"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/admission"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/advertise"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/appstate"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/clock"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/config"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/eventloop"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/policy"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/router"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/sink"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

const recentlyClosedMaxSize = 64
const admissionBurstPerSecond = 20

// Manager is the process-wide UWB session manager.
type Manager struct {
	table     *session.Table
	loop      *eventloop.Loop
	router    *router.Router
	advertise *advertise.Manager
	appstate  *appstate.Watcher
	clock     *clock.Service
	cfg       *config.Config
}

// New constructs a fully wired Manager. transport is the concrete UCI
// binding; sk is the application's notification sink; oracle is the
// platform policy binding; cfg may be nil to use config.Default().
func New(transport uci.Transport, sk sink.Sink, oracle policy.Oracle, cfg *config.Config) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}

	table := session.NewTable(recentlyClosedMaxSize)
	adv := advertise.New(sk)
	admissionCtl := admission.NewController(table, oracle, admissionBurstPerSecond)
	clk := clock.NewService(clock.Real{})

	loop := eventloop.New(eventloop.Deps{
		Table:     table,
		Transport: transport,
		Sink:      sk,
		Oracle:    oracle,
		Config:    cfg,
		Clock:     clk,
		Admission: admissionCtl,
	})

	r := router.New(table, sk, adv, oracle, cfg, clk)
	r.SetLoop(loop)
	transport.SetNotifiee(r)

	watcher := appstate.New(table, loop, oracle, cfg, clk)

	return &Manager{
		table:     table,
		loop:      loop,
		router:    r,
		advertise: adv,
		appstate:  watcher,
		clock:     clk,
		cfg:       cfg,
	}
}

// OpenRanging opens a new session (spec.md §4.3 row 1-2).
func (m *Manager) OpenRanging(ctx context.Context, req eventloop.OpenRequest) error {
	return m.loop.Open(ctx, req)
}

// StartRanging starts an Idle session (spec.md §4.3 row 3).
func (m *Manager) StartRanging(ctx context.Context, req eventloop.StartRequest) error {
	return m.loop.Start(ctx, req)
}

// StopRanging stops an Active session (spec.md §4.3 row 4).
func (m *Manager) StopRanging(ctx context.Context, req eventloop.StopRequest) error {
	return m.loop.Stop(ctx, req)
}

// Reconfigure applies a params and/or multicast delta (spec.md §4.4).
func (m *Manager) Reconfigure(ctx context.Context, req eventloop.ReconfigureRequest) error {
	return m.loop.Reconfigure(ctx, req)
}

// Close deinitializes a session (spec.md §4.3 row 5).
func (m *Manager) Close(ctx context.Context, req eventloop.DeinitRequest) error {
	m.advertise.CloseSession(req.Handle)
	return m.loop.Deinit(ctx, req)
}

// SendData sends one payload on an Active session (spec.md §4.4).
func (m *Manager) SendData(ctx context.Context, req eventloop.SendDataRequest) error {
	return m.loop.SendData(ctx, req)
}

// UpdateDtTagRounds updates a DT-Tag session's active round indexes.
func (m *Manager) UpdateDtTagRounds(ctx context.Context, req eventloop.UpdateDtTagRoundsRequest) error {
	return m.loop.UpdateDtTagRounds(ctx, req)
}

// SetDataTransferPhaseConfig configures data-transfer phase scheduling.
func (m *Manager) SetDataTransferPhaseConfig(ctx context.Context, req eventloop.DataTransferPhaseConfigRequest) error {
	return m.loop.DataTransferPhaseConfig(ctx, req)
}

// SetHybridSessionConfiguration composes a hybrid session.
func (m *Manager) SetHybridSessionConfiguration(ctx context.Context, req eventloop.HybridSessionConfigRequest) error {
	return m.loop.HybridSessionConfig(ctx, req)
}

// OnImportanceChanged forwards a per-uid foreground/background
// transition to AppStateWatcher (spec.md §4.7).
func (m *Manager) OnImportanceChanged(uid policy.UID, foreground bool) {
	m.appstate.OnImportanceChanged(uid, foreground)
}

// SetPointedTarget forwards an OWR-AoA pointing confirmation to
// AdvertiseManager (spec.md §4.6).
func (m *Manager) SetPointedTarget(handle session.Handle, peer uint64, pointed bool) {
	sess := m.table.GetByHandle(handle)
	if sess == nil {
		return
	}
	m.advertise.SetPointedTarget(sess, peer, pointed)
}

// RecentlyClosed returns a diagnostic snapshot of the bounded
// recently-closed session LRU (spec.md §3 Lifecycles).
func (m *Manager) RecentlyClosed() []session.ClosedRecord {
	return m.table.RecentlyClosed()
}

// Shutdown stops the EventLoop and waits for in-flight workers to drain.
func (m *Manager) Shutdown() {
	m.loop.Close()
}
