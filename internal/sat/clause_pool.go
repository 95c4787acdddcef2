package sat

import (
	"math/bits"
	"sync"
)

// Clause literal slices are recycled through a small set of size-bucketed
// sync.Pools so that clause database reduction (which frees many learned
// clauses at once) does not generate a comparable amount of garbage. This
// adapts the teacher's build-tag-gated clause/slice allocator pools into an
// always-on arena: the CNF builder and translator allocate many short-lived
// learned clauses over the lifetime of one command, and recycling their
// backing arrays keeps GC pressure proportional to the live clause count
// rather than the total number of clauses ever learned.
const nPools = 4

const lastPoolCapacity = 1 << nPools

var literalPools = [nPools]sync.Pool{}

func init() {
	for i := 0; i < nPools; i++ {
		capa := 1 << (i + 1)
		literalPools[i].New = func() any {
			s := make([]Literal, 0, capa)
			return &s
		}
	}
}

func poolIndex(capa int) int {
	if capa >= lastPoolCapacity {
		return nPools - 1
	}
	p := bits.Len(uint(capa)) - 1
	if capa < (1 << p) {
		p--
	}
	if p < 0 {
		p = 0
	}
	return p
}

// allocLiterals returns an empty slice with at least the requested capacity.
func allocLiterals(capa int) *[]Literal {
	ref := literalPools[poolIndex(capa)].Get().(*[]Literal)
	if capa < lastPoolCapacity {
		return ref
	}
	if cap(*ref) < capa {
		s := make([]Literal, 0, capa)
		ref = &s
	}
	return ref
}

// freeLiterals returns the backing slice to its pool for reuse.
func freeLiterals(s *[]Literal) {
	*s = (*s)[:0]
	literalPools[poolIndex(cap(*s)/2)].Put(s)
}
