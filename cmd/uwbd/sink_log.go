package main

import (
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/logger"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/sink"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// logSink is a sink.Sink that logs every callback, used by "serve" in
// place of a real application binding.
type logSink struct{}

var sinkLog = logger.For("sink")

func (logSink) RangingOpened(h sink.SessionHandle) { sinkLog.Infof("session %#x opened", h) }
func (logSink) RangingOpenFailed(h sink.SessionHandle, reason uci.Reason, _ sink.Params) {
	sinkLog.Warnf("session %#x open failed: %s", h, reason)
}
func (logSink) RangingStarted(h sink.SessionHandle, _ sink.Params) { sinkLog.Infof("session %#x started", h) }
func (logSink) RangingStartFailed(h sink.SessionHandle, reason uci.Reason) {
	sinkLog.Warnf("session %#x start failed: %s", h, reason)
}
func (logSink) RangingStopped(h sink.SessionHandle, reason uci.Reason, _ sink.Params) {
	sinkLog.Infof("session %#x stopped: %s", h, reason)
}
func (logSink) RangingStopFailed(h sink.SessionHandle, reason uci.Reason) {
	sinkLog.Warnf("session %#x stop failed: %s", h, reason)
}
func (logSink) RangingReconfigured(h sink.SessionHandle) { sinkLog.Infof("session %#x reconfigured", h) }
func (logSink) RangingReconfigureFailed(h sink.SessionHandle, reason uci.Reason) {
	sinkLog.Warnf("session %#x reconfigure failed: %s", h, reason)
}
func (logSink) RangingClosed(h sink.SessionHandle, reason uci.Reason, _ sink.Params) {
	sinkLog.Infof("session %#x closed: %s", h, reason)
}
func (logSink) RangingPaused(h sink.SessionHandle) { sinkLog.Infof("session %#x paused", h) }
func (logSink) RangingPauseFailed(h sink.SessionHandle, reason uci.Reason) {
	sinkLog.Warnf("session %#x pause failed: %s", h, reason)
}
func (logSink) RangingResumed(h sink.SessionHandle) { sinkLog.Infof("session %#x resumed", h) }
func (logSink) RangingResumeFailed(h sink.SessionHandle, reason uci.Reason) {
	sinkLog.Warnf("session %#x resume failed: %s", h, reason)
}

func (logSink) ControleeAdded(h sink.SessionHandle, addr sink.ControleeAddress) {
	sinkLog.Infof("session %#x controlee %#x added", h, addr)
}
func (logSink) ControleeAddFailed(h sink.SessionHandle, addr sink.ControleeAddress, reason uci.Reason) {
	sinkLog.Warnf("session %#x controlee %#x add failed: %s", h, addr, reason)
}
func (logSink) ControleeRemoved(h sink.SessionHandle, addr sink.ControleeAddress) {
	sinkLog.Infof("session %#x controlee %#x removed", h, addr)
}
func (logSink) ControleeRemoveFailed(h sink.SessionHandle, addr sink.ControleeAddress, reason uci.Reason) {
	sinkLog.Warnf("session %#x controlee %#x remove failed: %s", h, addr, reason)
}

func (logSink) RangingResult(h sink.SessionHandle, report sink.RangingReport) {
	sinkLog.Debugf("session %#x ranging result: %d measurements", h, len(report.Measurements))
}

func (logSink) DataReceived(h sink.SessionHandle, peer uint64, seq uint16, payload []byte) {
	sinkLog.Debugf("session %#x received %d bytes from %#x (seq %d)", h, len(payload), peer, seq)
}
func (logSink) DataReceiveFailed(h sink.SessionHandle, peer uint64, reason uci.Reason) {
	sinkLog.Warnf("session %#x receive from %#x failed: %s", h, peer, reason)
}
func (logSink) DataSent(h sink.SessionHandle, seq uint16) { sinkLog.Debugf("session %#x send seq %d confirmed", h, seq) }
func (logSink) DataSendFailed(h sink.SessionHandle, seq uint16, reason uci.Reason) {
	sinkLog.Warnf("session %#x send seq %d failed: %s", h, seq, reason)
}

func (logSink) DataTransferPhaseConfigured(h sink.SessionHandle) {
	sinkLog.Infof("session %#x data transfer phase configured", h)
}
func (logSink) DataTransferPhaseConfigFailed(h sink.SessionHandle, reason uci.Reason) {
	sinkLog.Warnf("session %#x data transfer phase config failed: %s", h, reason)
}

func (logSink) DtTagRoundsUpdateStatus(h sink.SessionHandle, status uci.Status) {
	sinkLog.Infof("session %#x DT-Tag rounds update status: %d", h, status)
}
func (logSink) RadarDataReceived(h sink.SessionHandle, data uci.RadarData) {
	sinkLog.Debugf("session %#x radar data: %d bytes", h, len(data.Payload))
}
