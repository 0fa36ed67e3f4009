package cas

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/turtacn/ffengine/internal/wire"
	"github.com/turtacn/ffengine/pkg/errors"
)

// Expression message layout.
const (
	fieldKind  protowire.Number = 1
	fieldValue protowire.Number = 2
	fieldName  protowire.Number = 3
	fieldChild protowire.Number = 4
	fieldArg   protowire.Number = 5
)

// MarshalExpr encodes e in protobuf wire format.  The tree structure is kept
// exactly, so UnmarshalExpr(MarshalExpr(e)) is Equal to e.
func MarshalExpr(e Expr) []byte {
	return appendExpr(nil, e)
}

func appendExpr(b []byte, e Expr) []byte {
	b = wire.AppendUint(b, fieldKind, uint64(e.kind()))
	switch v := e.(type) {
	case Number:
		b = wire.AppendFloat(b, fieldValue, float64(v))
	case Symbol:
		b = wire.AppendString(b, fieldName, v.name)
	case Function:
		b = wire.AppendString(b, fieldName, v.name)
		for _, a := range v.args {
			b = wire.AppendString(b, fieldArg, a.name)
		}
	case *Add:
		for _, t := range v.terms {
			b = wire.AppendMessage(b, fieldChild, appendExpr(nil, t))
		}
	case *Mul:
		for _, f := range v.factors {
			b = wire.AppendMessage(b, fieldChild, appendExpr(nil, f))
		}
	case *Pow:
		b = wire.AppendMessage(b, fieldChild, appendExpr(nil, v.base))
		b = wire.AppendMessage(b, fieldChild, appendExpr(nil, v.exp))
	}
	return b
}

// UnmarshalExpr decodes an expression written by MarshalExpr.
func UnmarshalExpr(b []byte) (Expr, error) {
	var (
		k        exprKind
		value    float64
		name     string
		args     []Symbol
		children []Expr
	)
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case fieldKind:
			k = exprKind(f.Varint)
		case fieldValue:
			value = f.Float()
		case fieldName:
			name = f.String()
		case fieldArg:
			args = append(args, Symbol{name: f.String()})
		case fieldChild:
			if err := f.Expect(protowire.BytesType); err != nil {
				return err
			}
			child, err := UnmarshalExpr(f.Bytes)
			if err != nil {
				return err
			}
			children = append(children, child)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch k {
	case kindNumber:
		return Number(value), nil
	case kindSymbol:
		return Symbol{name: name}, nil
	case kindFunction:
		return Function{name: name, args: args}, nil
	case kindAdd:
		return &Add{terms: children}, nil
	case kindMul:
		return &Mul{factors: children}, nil
	case kindPow:
		if len(children) != 2 {
			return nil, errors.New(errors.CodeSerialization, "power node needs exactly two children").
				WithDetail(fmt.Sprintf("got %d", len(children)))
		}
		return &Pow{base: children[0], exp: children[1]}, nil
	}
	return nil, errors.New(errors.CodeSerialization, "unknown expression kind").
		WithDetail(fmt.Sprintf("%d", k))
}

// MarshalFunction encodes a bare function.
func MarshalFunction(f Function) []byte { return appendExpr(nil, f) }

// UnmarshalFunction decodes a function written by MarshalFunction.
func UnmarshalFunction(b []byte) (Function, error) {
	e, err := UnmarshalExpr(b)
	if err != nil {
		return Function{}, err
	}
	f, ok := e.(Function)
	if !ok {
		return Function{}, errors.Incompatible("encoded expression is not a function").WithDetail(e.String())
	}
	return f, nil
}

//Personal.AI order the ending
