package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/turtacn/ffengine/pkg/errors"
)

func TestWalk_RoundTrip(t *testing.T) {
	var b []byte
	b = AppendUint(b, 1, 42)
	b = AppendFloat(b, 2, -1.5)
	b = AppendString(b, 3, "coul")
	b = AppendBool(b, 4, true)
	b = AppendMessage(b, 5, AppendUint(nil, 1, 7))
	b = protowire.AppendTag(b, 6, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 9)

	var got []Field
	require.NoError(t, Walk(b, func(f Field) error {
		got = append(got, f)
		return nil
	}))

	require.Len(t, got, 5)
	assert.Equal(t, uint64(42), got[0].Varint)
	assert.Equal(t, -1.5, got[1].Float())
	assert.Equal(t, "coul", got[2].String())
	assert.True(t, got[3].Bool())
	assert.NoError(t, got[4].Expect(protowire.BytesType))

	var nested []Field
	require.NoError(t, Walk(got[4].Bytes, func(f Field) error {
		nested = append(nested, f)
		return nil
	}))
	require.Len(t, nested, 1)
	assert.Equal(t, uint64(7), nested[0].Varint)
}

func TestWalk_Malformed(t *testing.T) {
	b := AppendString(nil, 1, "truncated")
	err := Walk(b[:len(b)-3], func(Field) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSerialization))
}

func TestWalk_VisitorErrorStops(t *testing.T) {
	b := AppendUint(AppendUint(nil, 1, 1), 2, 2)
	calls := 0
	err := Walk(b, func(Field) error {
		calls++
		return errors.InvalidArgument("stop")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExpect(t *testing.T) {
	f := Field{Num: 3, Type: protowire.VarintType}
	assert.NoError(t, f.Expect(protowire.VarintType))
	err := f.Expect(protowire.BytesType)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSerialization))
}

//Personal.AI order the ending
