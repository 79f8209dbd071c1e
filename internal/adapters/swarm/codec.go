package swarm

import (
	"fmt"

	"go.trai.ch/ims/internal/adapters/wire"
)

// codecName identifies the frame codec in the grpc content-subtype.
const codecName = "ims-frame"

// rawFrame holds the bytes of a received frame. Frames are decoded by the
// receive loop so that a malformed frame is dropped instead of breaking the stream.
type rawFrame struct {
	data []byte
}

// frameCodec moves frames over grpc without generated protobuf types.
type frameCodec struct{}

func (frameCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*wire.Frame)
	if !ok {
		return nil, fmt.Errorf("%s: cannot marshal %T", codecName, v)
	}
	return wire.EncodeFrame(f), nil
}

func (frameCodec) Unmarshal(data []byte, v any) error {
	raw, ok := v.(*rawFrame)
	if !ok {
		return fmt.Errorf("%s: cannot unmarshal into %T", codecName, v)
	}
	raw.data = append(raw.data[:0], data...)
	return nil
}

func (frameCodec) Name() string {
	return codecName
}
