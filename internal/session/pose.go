package session

import "sync"

// DefaultPoseSource is the out-of-core collaborator a FiRa two-way
// session's default pose is backed by when nothing more specific is
// bound to any of its controlees (SPEC_FULL.md §5 supplemented feature,
// grounded on the original's per-session default-pose acquisition).
type DefaultPoseSource interface {
	Release()
}

// DefaultPoseProvider constructs the shared default pose source on the
// first acquisition. Installed once by the out-of-core wiring (or a
// test); nil disables default-pose acquisition entirely, in which case
// AcquireDefaultPoseIfNeeded is a no-op.
type DefaultPoseProvider func() DefaultPoseSource

var (
	defaultPoseMu       sync.Mutex
	defaultPoseProvider DefaultPoseProvider
	defaultPoseSource   DefaultPoseSource
	defaultPoseRefCount int
)

// SetDefaultPoseProvider installs the collaborator Table uses to build
// the shared default pose source.
func SetDefaultPoseProvider(p DefaultPoseProvider) {
	defaultPoseMu.Lock()
	defer defaultPoseMu.Unlock()
	defaultPoseProvider = p
}

// DefaultPoseRefCount reports the current acquisition count, for tests.
func DefaultPoseRefCount() int {
	defaultPoseMu.Lock()
	defer defaultPoseMu.Unlock()
	return defaultPoseRefCount
}

// needsDefaultPose is the original's acquisition gate, narrowed to what
// this codebase models: a FiRa session whose ranging-round usage is
// two-way. The original additionally requires the default AoA filter
// type; that dimension isn't modeled here (spec.md §1 Non-goals excludes
// AoA/geometry rendering), so two-way usage alone stands in for it.
func needsDefaultPose(s *Session) bool {
	fira, ok := s.Params.(*FiRaParams)
	return ok && fira.RangingRoundUsage() == RangingRoundTwoWay
}

// AcquireDefaultPoseIfNeeded bumps the shared reference count and marks
// s.Flags.AcquiredDefaultPose if s qualifies and a provider is installed.
// Called once, from Table.Insert, since a session's ranging-round usage
// never changes after it's opened.
func AcquireDefaultPoseIfNeeded(s *Session) {
	if !needsDefaultPose(s) {
		return
	}
	defaultPoseMu.Lock()
	defer defaultPoseMu.Unlock()
	if defaultPoseProvider == nil {
		return
	}
	if defaultPoseRefCount == 0 {
		defaultPoseSource = defaultPoseProvider()
	}
	defaultPoseRefCount++
	s.Flags.AcquiredDefaultPose = true
}

// ReleaseDefaultPose undoes AcquireDefaultPoseIfNeeded, tearing down the
// shared source once the last acquirer has released it. Called once,
// from Table.Remove.
func ReleaseDefaultPose(s *Session) {
	if !s.Flags.AcquiredDefaultPose {
		return
	}
	s.Flags.AcquiredDefaultPose = false

	defaultPoseMu.Lock()
	defer defaultPoseMu.Unlock()
	if defaultPoseRefCount == 0 {
		return
	}
	defaultPoseRefCount--
	if defaultPoseRefCount == 0 && defaultPoseSource != nil {
		defaultPoseSource.Release()
		defaultPoseSource = nil
	}
}
