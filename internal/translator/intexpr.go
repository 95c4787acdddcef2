package translator

import (
	"fmt"

	"github.com/ralloy/ralloy/internal/boolmatrix"
	"github.com/ralloy/ralloy/internal/model"
)

// ElaborateInt evaluates an integer-valued expression into a fixed-width
// two's-complement BitVector using e.IntBits.
func (e *Elaborator) ElaborateInt(ie *model.IntExpr, state int, binds bindings) (boolmatrix.BitVector, error) {
	switch ie.Kind {
	case model.IntConst:
		return boolmatrix.FromInt(ie.Const, e.IntBits), nil
	case model.IntCardinality:
		rel, err := e.ElaborateExpr(ie.Rel, state, binds)
		if err != nil {
			return boolmatrix.BitVector{}, err
		}
		return boolmatrix.Cardinality(rel, e.IntBits), nil
	case model.IntNeg:
		a, err := e.ElaborateInt(ie.Left, state, binds)
		if err != nil {
			return boolmatrix.BitVector{}, err
		}
		return boolmatrix.Negate(a), nil
	}

	a, err := e.ElaborateInt(ie.Left, state, binds)
	if err != nil {
		return boolmatrix.BitVector{}, err
	}
	b, err := e.ElaborateInt(ie.Right, state, binds)
	if err != nil {
		return boolmatrix.BitVector{}, err
	}

	switch ie.Kind {
	case model.IntPlus:
		return boolmatrix.Add(a, b), nil
	case model.IntMinus:
		return boolmatrix.Sub(a, b), nil
	case model.IntMul:
		return boolmatrix.Mul(a, b), nil
	case model.IntDiv:
		q, _ := boolmatrix.DivRem(a, b)
		return q, nil
	case model.IntRem:
		_, r := boolmatrix.DivRem(a, b)
		return r, nil
	case model.IntShl:
		n, ok := constShift(ie.Right)
		if !ok {
			return boolmatrix.BitVector{}, fmt.Errorf("translator: shift amount must be a literal constant")
		}
		return boolmatrix.ShiftLeft(a, n), nil
	case model.IntShr:
		n, ok := constShift(ie.Right)
		if !ok {
			return boolmatrix.BitVector{}, fmt.Errorf("translator: shift amount must be a literal constant")
		}
		return boolmatrix.ShiftRightLogical(a, n), nil
	case model.IntShrArith:
		n, ok := constShift(ie.Right)
		if !ok {
			return boolmatrix.BitVector{}, fmt.Errorf("translator: shift amount must be a literal constant")
		}
		return boolmatrix.ShiftRightArithmetic(a, n), nil
	default:
		return boolmatrix.BitVector{}, fmt.Errorf("translator: unsupported integer expression kind %d", ie.Kind)
	}
}

func constShift(ie *model.IntExpr) (int, bool) {
	if ie.Kind != model.IntConst {
		return 0, false
	}
	return ie.Const, true
}
