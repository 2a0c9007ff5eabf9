package remotelab_test

import (
	"testing"

	. "github.com/remotelab/remotelab"
	"github.com/remotelab/remotelab/remotelabtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	gpu := New(testConfig())
	cpu := New(testConfig())

	require.NoError(t, r.Register("gpu-box", gpu))
	require.NoError(t, r.Register("cpu-box", cpu))

	err := r.Register("gpu-box", New(testConfig()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	got, ok := r.Get("gpu-box")
	require.True(t, ok)
	assert.Same(t, gpu, got)

	_, ok = r.Get("unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{"cpu-box", "gpu-box"}, r.Names())

	removed, ok := r.Remove("cpu-box")
	require.True(t, ok)
	assert.Same(t, cpu, removed)
	assert.Equal(t, []string{"gpu-box"}, r.Names())
}

func TestRegistry_CloseAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	transport := remotelabtest.NewScriptedTransport()
	s := newConnectedSession(t, transport)

	require.NoError(t, r.Register("box", s))
	require.NoError(t, r.CloseAll())

	assert.False(t, s.Connected())
	assert.True(t, transport.Closed())
	assert.Empty(t, r.Names())

	// CloseAll on an empty registry is a no-op.
	require.NoError(t, r.CloseAll())
}
