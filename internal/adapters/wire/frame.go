package wire

import (
	"errors"

	"go.trai.ch/ims/internal/core/domain"
	"google.golang.org/protobuf/encoding/protowire"
)

// Frame fields.
const (
	fieldFrameChannel protowire.Number = 1
	fieldFramePayload protowire.Number = 2
	fieldFrameHave    protowire.Number = 3
)

// Frame is the unit exchanged on a peer stream. A frame either carries an
// extension message on a named channel or advertises the sender's log length.
type Frame struct {
	Channel string
	Payload []byte
	Have    uint64
}

// EncodeFrame serializes a frame.
func EncodeFrame(f *Frame) []byte {
	var b []byte
	b = appendString(b, fieldFrameChannel, f.Channel)
	if len(f.Payload) > 0 {
		b = protowire.AppendTag(b, fieldFramePayload, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Payload)
	}
	return appendUint(b, fieldFrameHave, f.Have)
}

// DecodeFrame parses a frame into f.
func DecodeFrame(b []byte, f *Frame) error {
	*f = Frame{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldFrameChannel && typ == protowire.BytesType:
			return consumeString(b, &f.Channel)
		case num == fieldFramePayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				f.Payload = append([]byte(nil), v...)
			}
			return n, nil
		case num == fieldFrameHave && typ == protowire.VarintType:
			return consumeUint(b, &f.Have)
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return errors.Join(domain.ErrProtocolDecode, err)
	}
	return nil
}
