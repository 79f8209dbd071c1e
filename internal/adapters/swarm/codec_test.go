package swarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ims/internal/adapters/wire"
)

func TestFrameCodec(t *testing.T) {
	t.Parallel()
	c := frameCodec{}
	assert.Equal(t, codecName, c.Name())

	data, err := c.Marshal(&wire.Frame{Channel: "ims/seqs", Payload: []byte{1, 2}})
	require.NoError(t, err)

	var raw rawFrame
	require.NoError(t, c.Unmarshal(data, &raw))
	data[0] = 0xff
	assert.NotEqual(t, data[0], raw.data[0], "unmarshal must copy the buffer")

	var f wire.Frame
	require.NoError(t, wire.DecodeFrame(raw.data, &f))
	assert.Equal(t, "ims/seqs", f.Channel)
	assert.Equal(t, []byte{1, 2}, f.Payload)
}

func TestFrameCodec_WrongTypes(t *testing.T) {
	t.Parallel()
	c := frameCodec{}

	_, err := c.Marshal("frame")
	require.Error(t, err)

	var f wire.Frame
	require.Error(t, c.Unmarshal([]byte{}, &f))
}

func TestPeer_RemoteHas(t *testing.T) {
	t.Parallel()
	p := newPeer("p", nil)
	assert.False(t, p.RemoteHas(1))

	p.observe(5)
	p.observe(3)
	assert.False(t, p.RemoteHas(0))
	assert.True(t, p.RemoteHas(1))
	assert.True(t, p.RemoteHas(5))
	assert.False(t, p.RemoteHas(6))
}
