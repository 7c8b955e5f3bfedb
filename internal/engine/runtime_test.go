package engine

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "simlink/internal/errors"
	"simlink/util"
)

func TestRuntime_StartIdempotent(t *testing.T) {
	rt := NewRuntime(util.NewNopLogger())
	assert.False(t, rt.IsStarted())

	require.NoError(t, rt.Start(2))
	require.NoError(t, rt.Start(8))
	assert.True(t, rt.IsStarted())
	assert.Equal(t, 2, rt.Cores(), "first budget wins")
}

func TestRuntime_AllCores(t *testing.T) {
	rt := NewRuntime(util.NewNopLogger())
	require.NoError(t, rt.Start(0))
	assert.Equal(t, runtime.NumCPU(), rt.Cores())
}

// TestRuntime_NoRestart verifies the runtime stays down after Shutdown.
func TestRuntime_NoRestart(t *testing.T) {
	rt := NewRuntime(util.NewNopLogger())
	require.NoError(t, rt.Start(1))
	require.NoError(t, rt.Shutdown())
	assert.False(t, rt.IsStarted())

	err := rt.Start(1)
	assert.ErrorIs(t, err, serrors.ErrRuntimeShutdown)

	_, err = rt.Store()
	assert.ErrorIs(t, err, serrors.ErrNotConnected)
}

func TestRuntime_ShutdownBeforeStart(t *testing.T) {
	rt := NewRuntime(util.NewNopLogger())
	assert.NoError(t, rt.Shutdown())
	assert.NoError(t, rt.Start(1), "an unstarted runtime can still start")
}

func TestEmbeddedClient(t *testing.T) {
	rt := NewRuntime(util.NewNopLogger())
	c, err := NewEmbeddedClient(rt, ClientOptions{Cores: 1, Version: "6.1"})
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, rt.IsStarted())
	assert.Equal(t, 0, c.Port())
	assert.Equal(t, 1, c.Cores())
	assert.Equal(t, "6.1", c.Version())
	assert.ErrorIs(t, c.Disconnect(), serrors.ErrStandaloneDisconnect)

	m, err := c.Create(ctx, "capacitor")
	require.NoError(t, err)
	names, err := c.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"capacitor"}, names)

	require.NoError(t, c.Remove(ctx, m))
	assert.ErrorIs(t, c.Remove(ctx, m), serrors.ErrUnknownModel)

	require.NoError(t, rt.Shutdown())
	_, err = c.Names(ctx)
	assert.ErrorIs(t, err, serrors.ErrNotConnected)
}

func TestEmbeddedClient_AfterShutdown(t *testing.T) {
	rt := NewRuntime(util.NewNopLogger())
	require.NoError(t, rt.Start(1))
	require.NoError(t, rt.Shutdown())

	_, err := NewEmbeddedClient(rt, ClientOptions{})
	assert.ErrorIs(t, err, serrors.ErrRuntimeShutdown)
}
