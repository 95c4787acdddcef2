package sat

import (
	"github.com/rhartert/yagh"
)

// VarOrder implements VSIDS (Variable State Independent Decaying Sum)
// branching with phase saving. It maintains a max-heap over variable
// indices keyed by activity (the heap is a min-heap over negated
// activity), bumping and decaying scores as conflict analysis dictates.
type VarOrder struct {
	heap *yagh.IntMap[float64]

	activities []float64 // in [0, 1e100)
	activityInc float64  // in (0, 1e100)
	decay       float64  // in (0, 1]

	phases      []LBool
	phaseSaving bool
}

// NewVarOrder returns an empty VarOrder with the given activity decay
// factor (applied once per conflict) and phase-saving setting.
func NewVarOrder(decay float64, phaseSaving bool) *VarOrder {
	return &VarOrder{
		heap:        yagh.New[float64](0),
		activityInc: 1,
		decay:       decay,
		phaseSaving: phaseSaving,
	}
}

// NewVar registers a new variable with zero initial activity and a
// positive initial phase.
func (vo *VarOrder) NewVar() {
	v := len(vo.phases)
	vo.activities = append(vo.activities, 0)
	vo.phases = append(vo.phases, True)
	vo.heap.GrowBy(1)
	vo.heap.Put(v, 0)
}

// Reinsert makes variable v a candidate for selection again (called on
// backtrack/unassignment), recording its last value for phase saving.
func (vo *VarOrder) Reinsert(v int, val LBool) {
	if vo.phaseSaving {
		vo.phases[v] = val
	}
	vo.heap.Put(v, -vo.activities[v])
}

// Decay grows the activity increment, which has the effect of decaying all
// past bumps relative to future ones.
func (vo *VarOrder) Decay() {
	vo.activityInc /= vo.decay
	if vo.activityInc > 1e100 {
		vo.rescale()
	}
}

// Bump increases v's activity and re-keys it in the heap if present.
func (vo *VarOrder) Bump(v int) {
	vo.activities[v] += vo.activityInc
	if vo.heap.Contains(v) {
		vo.heap.Put(v, -vo.activities[v])
	}
	if vo.activities[v] > 1e100 {
		vo.rescale()
	}
}

func (vo *VarOrder) rescale() {
	vo.activityInc *= 1e-100
	for v, a := range vo.activities {
		vo.activities[v] = a * 1e-100
		if vo.heap.Contains(v) {
			vo.heap.Put(v, -vo.activities[v])
		}
	}
}

// Select pops the highest-activity unassigned variable and returns the
// literal to branch on, honoring the saved phase when phase saving is
// enabled.
func (vo *VarOrder) Select(s *Solver) (Literal, bool) {
	for {
		top, ok := vo.heap.Pop()
		if !ok {
			return 0, false
		}
		v := top.Elem
		if s.VarValue(v) != Unknown {
			continue // stale heap entry; variable got assigned by propagation
		}
		switch vo.phases[v] {
		case False:
			return NegativeLiteral(v), true
		default:
			return PositiveLiteral(v), true
		}
	}
}

