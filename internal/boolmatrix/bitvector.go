package boolmatrix

import (
	"github.com/ralloy/ralloy/internal/cnf"
)

// BitVector is a fixed-width two's-complement integer in boolean-formula
// form, least-significant bit first. It backs relational cardinality
// (`#`) and the arithmetic operators (`plus`, `minus`, `mul`, `div`,
// `rem`, shifts) over a bitwidth configured by the command (§6 intBits,
// default 4 per spec.md §4.2).
type BitVector struct {
	Bits []*cnf.Formula // Bits[0] is the LSB; Bits[len-1] is the sign bit.
}

// Width returns the bit width.
func (v BitVector) Width() int { return len(v.Bits) }

// FromInt returns the constant two's-complement encoding of x in the given
// width.
func FromInt(x int, width int) BitVector {
	bits := make([]*cnf.Formula, width)
	for i := 0; i < width; i++ {
		if x&(1<<uint(i)) != 0 {
			bits[i] = cnf.True
		} else {
			bits[i] = cnf.False
		}
	}
	return BitVector{Bits: bits}
}

func halfAdder(a, b *cnf.Formula) (sum, carry *cnf.Formula) {
	return cnf.Not(cnf.Iff(a, b)), cnf.And(a, b)
}

func fullAdder(a, b, cin *cnf.Formula) (sum, cout *cnf.Formula) {
	s1, c1 := halfAdder(a, b)
	s2, c2 := halfAdder(s1, cin)
	return s2, cnf.Or(c1, c2)
}

// Add returns a+b, sign-extended to max(a.Width, b.Width), via a
// ripple-carry adder network. Overflow beyond the result width wraps
// silently (two's-complement semantics), matching the spec's fixed
// bitwidth arithmetic.
func Add(a, b BitVector) BitVector {
	w := max(a.Width(), b.Width())
	ae, be := signExtend(a, w), signExtend(b, w)
	out := make([]*cnf.Formula, w)
	carry := cnf.False
	for i := 0; i < w; i++ {
		s, c := fullAdder(ae.Bits[i], be.Bits[i], carry)
		out[i] = s
		carry = c
	}
	return BitVector{Bits: out}
}

// Negate returns -a (two's complement: invert and add one).
func Negate(a BitVector) BitVector {
	w := a.Width()
	inv := make([]*cnf.Formula, w)
	for i, b := range a.Bits {
		inv[i] = cnf.Not(b)
	}
	return Add(BitVector{Bits: inv}, FromInt(1, w))
}

// Sub returns a-b.
func Sub(a, b BitVector) BitVector {
	w := max(a.Width(), b.Width())
	return Add(signExtend(a, w), Negate(signExtend(b, w)))
}

// Mul returns a*b via shift-and-add (schoolbook), truncated to
// max(a.Width, b.Width).
func Mul(a, b BitVector) BitVector {
	w := max(a.Width(), b.Width())
	ae := signExtend(a, w)
	acc := FromInt(0, w)
	for i := 0; i < w; i++ {
		shifted := ShiftLeft(signExtend(b, w), i)
		masked := make([]*cnf.Formula, w)
		for j := range masked {
			masked[j] = cnf.And(ae.Bits[i], shifted.Bits[j])
		}
		acc = Add(acc, BitVector{Bits: masked})
	}
	return acc
}

// ShiftLeft shifts a left by a constant n bits, filling with zero, width
// preserved (bits shifted past the top are discarded).
func ShiftLeft(a BitVector, n int) BitVector {
	w := a.Width()
	out := make([]*cnf.Formula, w)
	for i := 0; i < w; i++ {
		if i < n {
			out[i] = cnf.False
		} else {
			out[i] = a.Bits[i-n]
		}
	}
	return BitVector{Bits: out}
}

// ShiftRightLogical shifts a right by n bits, filling with zero.
func ShiftRightLogical(a BitVector, n int) BitVector {
	w := a.Width()
	out := make([]*cnf.Formula, w)
	for i := 0; i < w; i++ {
		if i+n < w {
			out[i] = a.Bits[i+n]
		} else {
			out[i] = cnf.False
		}
	}
	return BitVector{Bits: out}
}

// ShiftRightArithmetic shifts a right by n bits, filling with the sign bit.
func ShiftRightArithmetic(a BitVector, n int) BitVector {
	w := a.Width()
	sign := a.Bits[w-1]
	out := make([]*cnf.Formula, w)
	for i := 0; i < w; i++ {
		if i+n < w {
			out[i] = a.Bits[i+n]
		} else {
			out[i] = sign
		}
	}
	return BitVector{Bits: out}
}

// DivRem returns (a/b, a%b) computed by the restoring-division network:
// for every candidate unsigned quotient bit, conditionally subtract a
// shifted divisor. Signs are normalized to magnitude first and
// reattached at the end (truncating division, matching most HDL/solver
// conventions used by relational model checkers).
func DivRem(a, b BitVector) (quot, rem BitVector) {
	w := max(a.Width(), b.Width())
	ae, be := signExtend(a, w), signExtend(b, w)

	aNeg := ae.Bits[w-1]
	bNeg := be.Bits[w-1]
	aMag := condNegate(ae, aNeg)
	bMag := condNegate(be, bNeg)

	q := FromInt(0, w)
	r := FromInt(0, w)
	for i := w - 1; i >= 0; i-- {
		r = ShiftLeft(r, 1)
		r.Bits[0] = aMag.Bits[i]
		canSub := geUnsigned(r, bMag)
		diff := Sub(r, bMag)
		r = selectBV(canSub, diff, r)
		q.Bits[i] = canSub
	}

	qNeg := cnf.Not(cnf.Iff(aNeg, bNeg))
	quot = condNegate(q, qNeg)
	rem = condNegate(r, aNeg)
	return quot, rem
}

func condNegate(a BitVector, cond *cnf.Formula) BitVector {
	neg := Negate(a)
	return selectBV(cond, neg, a)
}

func selectBV(cond *cnf.Formula, a, b BitVector) BitVector {
	w := max(a.Width(), b.Width())
	out := make([]*cnf.Formula, w)
	for i := 0; i < w; i++ {
		out[i] = cnf.Ite(cond, a.Bits[i], b.Bits[i])
	}
	return BitVector{Bits: out}
}

// geUnsigned returns a formula asserting a >= b, treating both as
// unsigned magnitudes of equal width.
func geUnsigned(a, b BitVector) *cnf.Formula {
	w := max(a.Width(), b.Width())
	// ge holds if, scanning from the MSB, the first differing bit has a=1,b=0,
	// or all bits are equal.
	ge := cnf.True
	for i := w - 1; i >= 0; i-- {
		gtHere := cnf.And(a.Bits[i], cnf.Not(b.Bits[i]))
		eqHere := cnf.Iff(a.Bits[i], b.Bits[i])
		ge = cnf.Or(gtHere, cnf.And(eqHere, ge))
	}
	return ge
}

func signExtend(a BitVector, w int) BitVector {
	if a.Width() >= w {
		return BitVector{Bits: a.Bits[:w]}
	}
	out := make([]*cnf.Formula, w)
	copy(out, a.Bits)
	sign := a.Bits[a.Width()-1]
	for i := a.Width(); i < w; i++ {
		out[i] = sign
	}
	return BitVector{Bits: out}
}

// zeroExtend pads a to width w with constant-false high bits, leaving its
// value as an unsigned magnitude rather than reinterpreting the top bit as
// a sign (used for the per-tuple membership bits Cardinality sums, which
// are a count of 0 or 1, never negative).
func zeroExtend(a BitVector, w int) BitVector {
	if a.Width() >= w {
		return BitVector{Bits: a.Bits[:w]}
	}
	out := make([]*cnf.Formula, w)
	copy(out, a.Bits)
	for i := a.Width(); i < w; i++ {
		out[i] = cnf.False
	}
	return BitVector{Bits: out}
}

// Eq returns a formula asserting a == b.
func Eq(a, b BitVector) *cnf.Formula {
	w := max(a.Width(), b.Width())
	ae, be := signExtend(a, w), signExtend(b, w)
	var conj []*cnf.Formula
	for i := 0; i < w; i++ {
		conj = append(conj, cnf.Iff(ae.Bits[i], be.Bits[i]))
	}
	return cnf.And(conj...)
}

// Lt returns a formula asserting the signed comparison a < b.
func Lt(a, b BitVector) *cnf.Formula {
	w := max(a.Width(), b.Width()) + 1 // one spare bit so a-b cannot overflow
	ae, be := signExtend(a, w), signExtend(b, w)
	diff := Sub(ae, be)
	return diff.Bits[w-1] // negative result <=> sign bit set
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Cardinality returns the number of members of a as a BitVector of the
// given width, computed by a balanced adder tree over the matrix's
// membership bits (each one-bit membership value zero-extended to width
// before summation).
func Cardinality(a *Matrix, width int) BitVector {
	counts := make([]BitVector, 0, a.Tuples.Len())
	for _, t := range a.Tuples.Tuples {
		v := a.Mem(t)
		bit := BitVector{Bits: []*cnf.Formula{v}}
		counts = append(counts, zeroExtend(bit, width))
	}
	if len(counts) == 0 {
		return FromInt(0, width)
	}
	for len(counts) > 1 {
		var next []BitVector
		for i := 0; i+1 < len(counts); i += 2 {
			next = append(next, Add(counts[i], counts[i+1]))
		}
		if len(counts)%2 == 1 {
			next = append(next, counts[len(counts)-1])
		}
		counts = next
	}
	return counts[0]
}
