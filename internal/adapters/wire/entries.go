package wire

import (
	"errors"

	"go.trai.ch/ims/internal/core/domain"
	"google.golang.org/protobuf/encoding/protowire"
)

// Entries fields.
const fieldEntries protowire.Number = 1

// Entry fields.
const (
	fieldEntryPosition  protowire.Number = 1
	fieldEntryKey       protowire.Number = 2
	fieldEntryValue     protowire.Number = 3
	fieldEntryTombstone protowire.Number = 4
)

// EncodeGetRequest serializes a request for the entries at positions.
// It has the same layout as a ResolveResult.
func EncodeGetRequest(positions []uint64) []byte {
	return EncodeResolveResult(positions)
}

// DecodeGetRequest parses a request for log entries.
func DecodeGetRequest(b []byte) ([]uint64, error) {
	return DecodeResolveResult(b)
}

// EncodeEntries serializes log entries together with their positions.
func EncodeEntries(nodes []*domain.Node) []byte {
	var b []byte
	for _, node := range nodes {
		var msg []byte
		msg = appendUint(msg, fieldEntryPosition, node.Position)
		msg = appendString(msg, fieldEntryKey, node.Key)
		if node.Tombstone {
			msg = protowire.AppendTag(msg, fieldEntryTombstone, protowire.VarintType)
			msg = protowire.AppendVarint(msg, protowire.EncodeBool(true))
		} else if value := EncodeRecord(node.Record); len(value) > 0 {
			msg = protowire.AppendTag(msg, fieldEntryValue, protowire.BytesType)
			msg = protowire.AppendBytes(msg, value)
		}

		b = protowire.AppendTag(b, fieldEntries, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	return b
}

// DecodeEntries parses log entries. Entries without a position or key are
// rejected since they cannot be placed in the log.
func DecodeEntries(b []byte) ([]*domain.Node, error) {
	var nodes []*domain.Node
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldEntries || typ != protowire.BytesType {
			return skip(num, typ, b)
		}
		msg, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		node, err := decodeEntry(msg)
		if err != nil {
			return 0, err
		}
		nodes = append(nodes, node)
		return n, nil
	})
	if err != nil {
		return nil, errors.Join(domain.ErrProtocolDecode, err)
	}
	return nodes, nil
}

func decodeEntry(b []byte) (*domain.Node, error) {
	var (
		node  domain.Node
		value []byte
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldEntryPosition && typ == protowire.VarintType:
			return consumeUint(b, &node.Position)
		case num == fieldEntryKey && typ == protowire.BytesType:
			return consumeString(b, &node.Key)
		case num == fieldEntryValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			value = v
			return n, nil
		case num == fieldEntryTombstone && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			node.Tombstone = protowire.DecodeBool(v)
			return n, nil
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	if node.Position == 0 || node.Key == "" {
		return nil, errors.New("entry without position or key")
	}

	if !node.Tombstone {
		record, err := DecodeRecord(value)
		if err != nil {
			return nil, err
		}
		node.Record = record
	}
	return &node, nil
}
