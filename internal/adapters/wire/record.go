package wire

import (
	"errors"

	"go.trai.ch/ims/internal/core/domain"
	"google.golang.org/protobuf/encoding/protowire"
)

// Package fields.
const (
	fieldDependencies     protowire.Number = 1
	fieldDevDependencies  protowire.Number = 2
	fieldSameDependencies protowire.Number = 3
)

// Dependency fields.
const (
	fieldDependencyName  protowire.Number = 1
	fieldDependencyRange protowire.Number = 2
)

// EncodeRecord serializes a record as a Package message.
func EncodeRecord(r domain.Record) []byte {
	var b []byte
	if r.IsIndirect() {
		return appendUint(b, fieldSameDependencies, r.SameDependencies)
	}
	for _, dep := range r.Dependencies {
		b = appendDependency(b, fieldDependencies, dep)
	}
	for _, dep := range r.DevDependencies {
		b = appendDependency(b, fieldDevDependencies, dep)
	}
	return b
}

func appendDependency(b []byte, num protowire.Number, dep domain.Dependency) []byte {
	var msg []byte
	msg = appendString(msg, fieldDependencyName, dep.Name)
	msg = appendString(msg, fieldDependencyRange, dep.Range)

	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// DecodeRecord parses a Package message.
func DecodeRecord(b []byte) (domain.Record, error) {
	var r domain.Record
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldDependencies && typ == protowire.BytesType:
			return consumeDependency(b, &r.Dependencies)
		case num == fieldDevDependencies && typ == protowire.BytesType:
			return consumeDependency(b, &r.DevDependencies)
		case num == fieldSameDependencies && typ == protowire.VarintType:
			return consumeUint(b, &r.SameDependencies)
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return domain.Record{}, errors.Join(domain.ErrRecordDecodeFailed, err)
	}
	return r, nil
}

func consumeDependency(b []byte, dst *[]domain.Dependency) (int, error) {
	msg, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}

	var dep domain.Dependency
	err := walk(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldDependencyName && typ == protowire.BytesType:
			return consumeString(b, &dep.Name)
		case num == fieldDependencyRange && typ == protowire.BytesType:
			return consumeString(b, &dep.Range)
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return 0, err
	}

	*dst = append(*dst, dep)
	return n, nil
}
