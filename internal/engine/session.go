// Package engine wires the symbol table, translator, trace/LTL encoder,
// SAT solver, and instance extractor into the single-session API a CLI
// or test driver calls to execute a command and enumerate its instances.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ralloy/ralloy/internal/boolmatrix"
	"github.com/ralloy/ralloy/internal/cnf"
	"github.com/ralloy/ralloy/internal/extract"
	"github.com/ralloy/ralloy/internal/ltl"
	"github.com/ralloy/ralloy/internal/model"
	"github.com/ralloy/ralloy/internal/sat"
	"github.com/ralloy/ralloy/internal/trace"
	"github.com/ralloy/ralloy/internal/translator"
	"github.com/ralloy/ralloy/internal/universe"
)

// SolveResult is the outcome of executing one command.
type SolveResult int

const (
	ResultUnknown SolveResult = iota
	ResultSat
	ResultUnsat
)

func (r SolveResult) String() string {
	switch r {
	case ResultSat:
		return "sat"
	case ResultUnsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Session holds the state of one command's execution: the solver and
// translation artifacts needed to decode further instances via
// NextInstance. A Session only ever drives one command at a time;
// isSolving guards against a concurrent ExecuteCommand/NextInstance call
// racing the in-flight solve.
type Session struct {
	st *model.SymbolTable

	solver     *sat.Solver
	universe   *universe.Universe
	enumerator *extract.Enumerator
	pending    *extract.Instance // decoded by ExecuteCommand's own solve, consumed by the next NextInstance call

	isSolving atomic.Bool
}

// NewSession returns a Session over st.
func NewSession(st *model.SymbolTable) *Session {
	return &Session{st: st}
}

// isTemporal reports whether cmd's target formula or any declared fact
// uses a temporal operator, which this package approximates from the
// command's declared scope: a requested trace of more than one step
// signals the caller expects temporal semantics. A front end that knows
// its formula is purely propositional can still request Steps==1 to skip
// the trace/loop machinery entirely.
func isTemporal(cmd *model.Command) bool {
	return cmd.Scope.Steps > 1
}

func isVariableMap(st *model.SymbolTable) map[string]bool {
	out := map[string]bool{}
	for _, name := range st.SigOrder() {
		sig := st.Sigs[name]
		out[name] = sig.Variable
		for _, f := range sig.Fields {
			out[fmt.Sprintf("%s.%s", name, f.Name)] = f.Variable
		}
	}
	return out
}

// ExecuteCommand translates and solves the named command, returning its
// outcome. Call NextInstance afterward to decode (and then enumerate
// further) satisfying instances.
func (sess *Session) ExecuteCommand(ctx context.Context, name string) (SolveResult, error) {
	if !sess.isSolving.CompareAndSwap(false, true) {
		return ResultUnknown, fmt.Errorf("engine: a command is already solving on this session")
	}
	defer sess.isSolving.Store(false)

	cmd, ok := sess.st.Commands[name]
	if !ok {
		cmd = firstCommand(sess.st)
		if cmd == nil {
			return ResultUnknown, fmt.Errorf("engine: no command named %q and no command declared", name)
		}
	}

	if diags := sess.st.Validate(); hasErrors(diags) {
		return ResultUnknown, fmt.Errorf("engine: model has errors: %v", diags)
	}

	s := sat.NewDefaultSolver()
	b := cnf.NewBuilder(s)

	univ, relations, err := sess.translate(b, cmd)
	if err != nil {
		return ResultUnknown, err
	}

	sess.solver = s
	sess.universe = univ
	sess.enumerator = extract.NewEnumerator(s, univ, relations)
	sess.pending = nil

	in, found, err := sess.enumerator.NextInstance(func() sat.LBool { return s.Solve(ctx) })
	if err != nil {
		if ctx.Err() != nil {
			return ResultUnknown, ctx.Err()
		}
		return ResultUnknown, err
	}
	if !found {
		return ResultUnsat, nil
	}
	sess.pending = in
	return ResultSat, nil
}

func firstCommand(st *model.SymbolTable) *model.Command {
	for _, name := range st.CommandOrder() {
		return st.Commands[name]
	}
	return nil
}

func hasErrors(diags []model.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == model.SeverityError {
			return true
		}
	}
	return false
}

// translate builds the universe and posts cmd's constraints to b,
// returning the flattened set of relations (qualified name -> Matrix) at
// the state(s) an Instance should be decoded from. For a temporal
// command, every state's relations are exposed under a "name@state"
// qualifier.
func (sess *Session) translate(b *cnf.Builder, cmd *model.Command) (*universe.Universe, map[string]*boolmatrix.Matrix, error) {
	if !isTemporal(cmd) {
		var univ *universe.Universe
		var lookup *translator.ConstantLookup
		var err error
		switch cmd.Kind {
		case model.CmdRun:
			univ, lookup, err = translator.TranslateRun(sess.st, cmd, b)
		case model.CmdCheck:
			univ, lookup, err = translator.TranslateCheck(sess.st, cmd, b)
		default:
			return nil, nil, fmt.Errorf("engine: unsupported command kind %v", cmd.Kind)
		}
		if err != nil {
			return nil, nil, err
		}
		return univ, lookup.Relations(), nil
	}

	univ := translator.AllocateUniverse(sess.st, cmd.Scope)
	bounds, err := translator.AllocateBounds(sess.st, univ)
	if err != nil {
		return nil, nil, err
	}

	requiresLoop := true // any command unrolled over > 1 step may reference "after" at its last state
	tr := trace.Build(univ, bounds, isVariableMap(sess.st), b, cmd.Scope.Steps, requiresLoop)

	e := ltl.NewElaborator(sess.st, tr, b, cmd.Scope.IntBits)

	for name, sig := range sess.st.Sigs {
		for _, f := range sig.Fields {
			rel := tr.Relation(fmt.Sprintf("%s.%s", name, f.Name))
			for s := 0; s < tr.K; s++ {
				b.AssertTrue(translator.FieldMultiplicityFormula(f, rel.AtState(s)))
				if !f.Variable {
					break
				}
			}
		}
	}

	for i := range sess.st.Facts {
		for s := 0; s < tr.K; s++ {
			c, err := e.ElaborateFormula(&sess.st.Facts[i], s, nil)
			if err != nil {
				return nil, nil, fmt.Errorf("engine: elaborating fact %d at state %d: %w", i, s, err)
			}
			b.AssertTrue(c)
		}
	}

	var target *model.Formula
	switch cmd.Kind {
	case model.CmdRun:
		pred, ok := sess.st.Predicates[cmd.TargetName]
		if !ok {
			return nil, nil, fmt.Errorf("engine: undeclared predicate %q", cmd.TargetName)
		}
		target = &pred.Body
	case model.CmdCheck:
		assertion, ok := sess.st.Assertions[cmd.TargetName]
		if !ok {
			return nil, nil, fmt.Errorf("engine: undeclared assertion %q", cmd.TargetName)
		}
		target = negated(&assertion.Body)
	}
	c, err := e.ElaborateFormula(target, 0, nil)
	if err != nil {
		return nil, nil, err
	}
	b.AssertTrue(c)

	flat := map[string]*boolmatrix.Matrix{}
	for name, rel := range tr.Relations() {
		for s := 0; s < tr.K; s++ {
			flat[fmt.Sprintf("%s@%d", name, s)] = rel.AtState(s)
		}
	}
	return univ, flat, nil
}

func negated(f *model.Formula) *model.Formula {
	return &model.Formula{Kind: model.FNot, Left: f}
}

// NextInstance decodes (and blocks) the next satisfying instance found so
// far, solving again if needed to find a new one.
func (sess *Session) NextInstance(ctx context.Context) (*extract.Instance, bool, error) {
	if sess.enumerator == nil {
		return nil, false, fmt.Errorf("engine: no command has been executed on this session")
	}
	if sess.pending != nil {
		in := sess.pending
		sess.pending = nil
		return in, true, nil
	}
	if !sess.isSolving.CompareAndSwap(false, true) {
		return nil, false, fmt.Errorf("engine: a command is already solving on this session")
	}
	defer sess.isSolving.Store(false)

	return sess.enumerator.NextInstance(func() sat.LBool {
		return sess.solver.Solve(ctx)
	})
}
