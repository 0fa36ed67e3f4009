// Package wire holds the protobuf wire-format helpers shared by the binary
// codecs of the cas kernel, molecules, forcefields and forcefield sets.
// Messages are written field by field with protowire; there is no generated
// code and no schema registry.
package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/turtacn/ffengine/pkg/errors"
)

// Field is one decoded tag/value pair.
type Field struct {
	Num     protowire.Number
	Type    protowire.Type
	Varint  uint64
	Fixed64 uint64
	Bytes   []byte
}

// Float returns the fixed64 payload as a float64.
func (f Field) Float() float64 { return math.Float64frombits(f.Fixed64) }

// String returns the bytes payload as a string.
func (f Field) String() string { return string(f.Bytes) }

// Bool returns the varint payload as a bool.
func (f Field) Bool() bool { return f.Varint != 0 }

// Expect returns a serialization error if the field is not of wire type t.
func (f Field) Expect(t protowire.Type) error {
	if f.Type != t {
		return errors.New(errors.CodeSerialization, "unexpected wire type").
			WithDetail(fmt.Sprintf("field %d: got %d, want %d", f.Num, f.Type, t))
	}
	return nil
}

// Walk decodes every top-level field of b and hands it to visit.  Unknown
// groups are rejected; fixed32 values are skipped.
func Walk(b []byte, visit func(Field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		b = b[n:]

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.Fixed64, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(b)
		case protowire.Fixed32Type:
			_, n = protowire.ConsumeFixed32(b)
		default:
			return errors.New(errors.CodeSerialization, "unsupported wire type").
				WithDetail(fmt.Sprintf("field %d type %d", num, typ))
		}
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		b = b[n:]

		if typ == protowire.Fixed32Type {
			continue
		}
		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

// AppendFloat writes a fixed64 float field.
func AppendFloat(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// AppendUint writes a varint field.
func AppendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// AppendBool writes a varint 0/1 field.
func AppendBool(b []byte, num protowire.Number, v bool) []byte {
	return AppendUint(b, num, protowire.EncodeBool(v))
}

// AppendString writes a length-delimited string field.
func AppendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// AppendMessage writes a length-delimited nested message field.
func AppendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func malformed(cause error) error {
	return errors.Wrap(cause, errors.CodeSerialization, "malformed binary data")
}

//Personal.AI order the ending
