package eval

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/roach88/consteval/internal/ir"
	"github.com/roach88/consteval/internal/value"
)

// ParseArgs converts textual arguments to values of fn's parameter types.
// Integers, floating values, true/false and nullptr are accepted; reference
// and class parameters cannot be passed from outside the program.
func ParseArgs(fn *ir.FuncDecl, args []string) ([]value.Value, error) {
	if len(args) != len(fn.Params) {
		return nil, fmt.Errorf("function '%s' takes %d arguments, got %d", fn.QualifiedName(), len(fn.Params), len(args))
	}
	out := make([]value.Value, len(args))
	for i, a := range args {
		p := fn.Params[i]
		if p.Ref {
			return nil, fmt.Errorf("argument %d: reference parameter '%s' cannot be passed a literal", i+1, p.Name)
		}
		v, err := ParseScalar(a, p.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// ParseScalar converts s to a value of scalar type t.
func ParseScalar(s string, t *ir.Type) (value.Value, error) {
	switch t.Kind {
	case ir.KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q", s)
		}
		return value.NewBool(b), nil
	case ir.KindInt:
		z, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		if !fits(z, t) {
			return nil, fmt.Errorf("%s does not fit in type '%s'", s, t)
		}
		if t.Unsigned && t.Bits == 64 {
			return value.NewInt(int64(z.Uint64()), t), nil
		}
		return value.NewInt(z.Int64(), t), nil
	case ir.KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid floating value %q", s)
		}
		return value.Float{V: roundFloat(f, t), Type: t}, nil
	case ir.KindPointer, ir.KindNullPtr:
		if s == "nullptr" {
			return value.NullPointer(t), nil
		}
	}
	return nil, fmt.Errorf("cannot pass %q as a value of type '%s'", s, t)
}
