package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferRoundTrip(t *testing.T) {
	buf := NewBuffer("wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY")

	locked, err := buf.Open()
	require.NoError(t, err)
	assert.Equal(t, "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY", string(locked.Bytes()))
	locked.Destroy()

	// The enclave survives repeated opens.
	value, err := buf.String()
	require.NoError(t, err)
	assert.Equal(t, "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY", value)
}

func TestBufferDestroyIsIdempotent(t *testing.T) {
	buf := NewBuffer("secret")
	buf.Destroy()
	buf.Destroy()

	locked, err := buf.Open()
	require.NoError(t, err)
	defer locked.Destroy()
	assert.Empty(t, locked.Bytes())
}
