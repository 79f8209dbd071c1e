package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ims/internal/adapters/wire"
	"go.trai.ch/ims/internal/core/domain"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEncodeRecord_Bytes(t *testing.T) {
	direct := domain.DirectRecord([]domain.Dependency{{Name: "a", Range: "^1"}}, nil)
	assert.Equal(t, []byte{0x0a, 0x07, 0x0a, 0x01, 'a', 0x12, 0x02, '^', '1'}, wire.EncodeRecord(direct))

	indirect := domain.IndirectRecord(5)
	assert.Equal(t, []byte{0x18, 0x05}, wire.EncodeRecord(indirect))
}

func TestRecord_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		record domain.Record
	}{
		{
			name: "direct",
			record: domain.DirectRecord(
				[]domain.Dependency{{Name: "@scope/a", Range: "^1.0.0"}, {Name: "b", Range: ""}},
				[]domain.Dependency{{Name: "tap", Range: "*"}},
			),
		},
		{
			name:   "indirect",
			record: domain.IndirectRecord(1 << 40),
		},
		{
			name:   "empty",
			record: domain.Record{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := wire.DecodeRecord(wire.EncodeRecord(tt.record))
			require.NoError(t, err)
			assert.Equal(t, tt.record, got)
		})
	}
}

func TestDecodeRecord_SkipsUnknownFields(t *testing.T) {
	b := wire.EncodeRecord(domain.IndirectRecord(9))
	b = protowire.AppendTag(b, 15, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	got, err := wire.DecodeRecord(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), got.SameDependencies)
}

func TestDecodeRecord_Truncated(t *testing.T) {
	b := wire.EncodeRecord(domain.DirectRecord([]domain.Dependency{{Name: "abc", Range: "1"}}, nil))

	_, err := wire.DecodeRecord(b[:len(b)-2])
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRecordDecodeFailed)
}

func TestResolveRequest_RoundTrip(t *testing.T) {
	req := domain.ResolveRequest{Name: "@s/pkg", Range: "^2.0.0", Production: true}
	got, err := wire.DecodeResolveRequest(wire.EncodeResolveRequest(req))
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestDecodeResolveRequest_Malformed(t *testing.T) {
	_, err := wire.DecodeResolveRequest([]byte{0x0a, 0x10, 'x'})
	assert.ErrorIs(t, err, domain.ErrProtocolDecode)
}

func TestResolveResult(t *testing.T) {
	encoded := wire.EncodeResolveResult([]uint64{1, 300})
	assert.Equal(t, []byte{0x0a, 0x03, 0x01, 0xac, 0x02}, encoded)

	got, err := wire.DecodeResolveResult(encoded)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 300}, got)
}

func TestDecodeResolveResult_Unpacked(t *testing.T) {
	var b []byte
	for _, pos := range []uint64{7, 8} {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, pos)
	}

	got, err := wire.DecodeResolveResult(b)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 8}, got)
}

func TestDecodeResolveResult_Malformed(t *testing.T) {
	_, err := wire.DecodeResolveResult([]byte{0x0a, 0x02, 0xff})
	assert.ErrorIs(t, err, domain.ErrProtocolDecode)
}

func TestFrame_RoundTrip(t *testing.T) {
	in := &wire.Frame{Channel: "ims/seqs", Payload: []byte{1, 2, 3}, Have: 42}

	var out wire.Frame
	require.NoError(t, wire.DecodeFrame(wire.EncodeFrame(in), &out))
	assert.Equal(t, *in, out)

	require.NoError(t, wire.DecodeFrame(wire.EncodeFrame(&wire.Frame{Have: 3}), &out))
	assert.Equal(t, wire.Frame{Have: 3}, out)
}
