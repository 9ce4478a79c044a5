package metrics

import (
	"framering-toolkit/frame"
	"framering-toolkit/ring"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	require := require.New(t)
	Register()
	Register() // registration is idempotent

	AddPushed(2, 16)
	AddDropped(1)
	AddOversize(1)
	AddBytesRead(32)
	SetSessionsActive(3)
	RecordPop(10)
	RecordCorrupt()

	require.Equal(float64(2), testutil.ToFloat64(framesPushed))
	require.Equal(float64(16), testutil.ToFloat64(bytesPushed))
	require.Equal(float64(1), testutil.ToFloat64(framesDropped))
	require.Equal(float64(1), testutil.ToFloat64(framesOversize))
	require.Equal(float64(32), testutil.ToFloat64(bytesRead))
	require.Equal(float64(3), testutil.ToFloat64(sessionsActive))
	require.Equal(float64(1), testutil.ToFloat64(framesPopped))
	require.Equal(float64(10), testutil.ToFloat64(bytesPopped))
	require.Equal(float64(1), testutil.ToFloat64(framesCorrupt))
}

func TestRegisterRing(t *testing.T) {
	require := require.New(t)
	b := ring.New(64)
	RegisterRing(b)

	require.Nil(b.TryPush(frame.Frame{Type: 0x01, Payload: []byte{0xAA, 0xBB}}))
	require.Equal(4, b.Occupancy())
}
