package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

type fakeDefaultPoseSource struct{ released bool }

func (f *fakeDefaultPoseSource) Release() { f.released = true }

func newTwoWaySessionForPoseTest(handle Handle) *Session {
	params := NewFiRaParams(50, true, nil, StsConfigStatic, nil, 0)
	params.SetRangingRoundUsage(RangingRoundTwoWay)
	return New(handle, uci.SessionID(handle), uci.SessionTypeRanging, uci.ProtocolFiRa, "default", nil, params)
}

func TestAcquireDefaultPoseIfNeeded_TwoWaySessionAcquiresSharedSource(t *testing.T) {
	defer SetDefaultPoseProvider(nil)
	var source *fakeDefaultPoseSource
	SetDefaultPoseProvider(func() DefaultPoseSource {
		source = &fakeDefaultPoseSource{}
		return source
	})

	table := NewTable(0)
	a := newTwoWaySessionForPoseTest(1)
	b := newTwoWaySessionForPoseTest(2)
	table.Insert(a, nil)
	table.Insert(b, nil)

	assert.True(t, a.Flags.AcquiredDefaultPose)
	assert.True(t, b.Flags.AcquiredDefaultPose)
	assert.Equal(t, 2, DefaultPoseRefCount())
	require.NotNil(t, source)
	assert.False(t, source.released, "source stays alive while any acquirer holds it")

	table.Remove(a, uci.ReasonLocalApi)
	assert.Equal(t, 1, DefaultPoseRefCount())
	assert.False(t, source.released)

	table.Remove(b, uci.ReasonLocalApi)
	assert.Equal(t, 0, DefaultPoseRefCount())
	assert.True(t, source.released, "last release tears down the shared source")
}

func TestAcquireDefaultPoseIfNeeded_NonTwoWaySessionNeverAcquires(t *testing.T) {
	defer SetDefaultPoseProvider(nil)
	SetDefaultPoseProvider(func() DefaultPoseSource { return &fakeDefaultPoseSource{} })

	table := NewTable(0)
	params := NewFiRaParams(50, true, nil, StsConfigStatic, nil, 0)
	params.SetRangingRoundUsage(RangingRoundOwrAoaMeasurement)
	sess := New(1, 1, uci.SessionTypeRanging, uci.ProtocolFiRa, "default", nil, params)

	table.Insert(sess, nil)

	assert.False(t, sess.Flags.AcquiredDefaultPose)
	assert.Equal(t, 0, DefaultPoseRefCount())
}

func TestAcquireDefaultPoseIfNeeded_NoProviderIsNoOp(t *testing.T) {
	table := NewTable(0)
	sess := newTwoWaySessionForPoseTest(1)

	table.Insert(sess, nil)

	assert.False(t, sess.Flags.AcquiredDefaultPose)
	assert.Equal(t, 0, DefaultPoseRefCount())

	table.Remove(sess, uci.ReasonLocalApi)
	assert.Equal(t, 0, DefaultPoseRefCount())
}
