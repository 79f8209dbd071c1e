package wire

import (
	"errors"

	"go.trai.ch/ims/internal/core/domain"
	"google.golang.org/protobuf/encoding/protowire"
)

// ResolveRequest fields.
const (
	fieldRequestName       protowire.Number = 1
	fieldRequestRange      protowire.Number = 2
	fieldRequestProduction protowire.Number = 3
)

// ResolveResult fields.
const fieldResultPositions protowire.Number = 1

// EncodeResolveRequest serializes a prefetch request.
func EncodeResolveRequest(req domain.ResolveRequest) []byte {
	var b []byte
	b = appendString(b, fieldRequestName, req.Name)
	b = appendString(b, fieldRequestRange, req.Range)
	if req.Production {
		b = protowire.AppendTag(b, fieldRequestProduction, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return b
}

// DecodeResolveRequest parses a prefetch request.
func DecodeResolveRequest(b []byte) (domain.ResolveRequest, error) {
	var req domain.ResolveRequest
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldRequestName && typ == protowire.BytesType:
			return consumeString(b, &req.Name)
		case num == fieldRequestRange && typ == protowire.BytesType:
			return consumeString(b, &req.Range)
		case num == fieldRequestProduction && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			req.Production = protowire.DecodeBool(v)
			return n, nil
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return domain.ResolveRequest{}, errors.Join(domain.ErrProtocolDecode, err)
	}
	return req, nil
}

// EncodeResolveResult serializes a list of positions as a packed repeated field.
func EncodeResolveResult(positions []uint64) []byte {
	if len(positions) == 0 {
		return nil
	}

	var packed []byte
	for _, pos := range positions {
		packed = protowire.AppendVarint(packed, pos)
	}

	b := protowire.AppendTag(nil, fieldResultPositions, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// DecodeResolveResult parses a list of positions. Both packed and unpacked
// encodings are accepted.
func DecodeResolveResult(b []byte) ([]uint64, error) {
	var positions []uint64
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldResultPositions && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return m, nil
				}
				positions = append(positions, v)
				packed = packed[m:]
			}
			return n, nil
		case num == fieldResultPositions && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n >= 0 {
				positions = append(positions, v)
			}
			return n, nil
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, errors.Join(domain.ErrProtocolDecode, err)
	}
	return positions, nil
}
