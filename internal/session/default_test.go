package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "simlink/internal/errors"
)

func TestDefault_None(t *testing.T) {
	prev := SetDefault(nil)
	defer SetDefault(prev)

	_, err := Start(context.Background(), StartOptions{})
	assert.ErrorIs(t, err, serrors.ErrNoSession)
	assert.Empty(t, Shutdown().Steps)
}

func TestDefault_Delegates(t *testing.T) {
	h := newHarness("stand-alone", "linux", nil)
	prev := SetDefault(h.m)
	defer SetDefault(prev)

	assert.Same(t, h.m, Default())

	client, err := Start(context.Background(), StartOptions{})
	require.NoError(t, err)
	assert.Same(t, client, h.m.Client())

	r := Shutdown()
	assert.Equal(t, []string{StepShutdownRuntime}, r.Steps)
	assert.Equal(t, StateStopped, h.m.State())
}
