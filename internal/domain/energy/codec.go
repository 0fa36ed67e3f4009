package energy

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/turtacn/ffengine/internal/cas"
	"github.com/turtacn/ffengine/internal/wire"
	"github.com/turtacn/ffengine/pkg/errors"
)

const (
	fieldFunction protowire.Number = 1
	fieldExpr     protowire.Number = 2
	fieldBare     protowire.Number = 3
)

// MarshalExpression encodes e.  Derived fields are not written; they are
// recomputed on decode.
func MarshalExpression(e Expression) []byte {
	b := wire.AppendMessage(nil, fieldFunction, cas.MarshalFunction(e.fn))
	if e.bare {
		return wire.AppendBool(b, fieldBare, true)
	}
	return wire.AppendMessage(b, fieldExpr, cas.MarshalExpr(e.expr))
}

// UnmarshalExpression decodes an expression written by MarshalExpression.
func UnmarshalExpression(b []byte) (Expression, error) {
	var (
		fn   cas.Function
		expr cas.Expr
		bare bool
	)
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case fieldFunction:
			fn, err = cas.UnmarshalFunction(f.Bytes)
		case fieldExpr:
			expr, err = cas.UnmarshalExpr(f.Bytes)
		case fieldBare:
			bare = f.Bool()
		}
		return err
	})
	if err != nil {
		return Expression{}, err
	}
	if bare {
		return ExpressionOf(fn), nil
	}
	if expr == nil {
		return Expression{}, errors.New(errors.CodeSerialization, "encoded expression has no body").WithDetail(fn.ID())
	}
	e, err := NewExpression(fn.Name(), expr)
	if err != nil {
		return Expression{}, err
	}
	if e.ID() != fn.ID() {
		return Expression{}, errors.Incompatible("decoded expression does not match its function").
			WithDetail(e.ID() + " != " + fn.ID())
	}
	return e, nil
}

//Personal.AI order the ending
