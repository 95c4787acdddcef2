package engine

import (
	"context"
	"testing"

	"github.com/ralloy/ralloy/internal/model"
)

func personExists() model.Formula {
	return model.Formula{Kind: model.FSomeExpr, ExprA: &model.Expr{Kind: model.ExprSigRef, Name: "Person"}}
}

func TestExecuteCommandRunIsSatisfiable(t *testing.T) {
	b := model.NewBuilder()
	b.Sig("Person", model.MultSetOf)
	b.AddPredicate("exists", nil, personExists())
	b.AddCommand(model.Command{
		Name: "run1", Kind: model.CmdRun, TargetName: "exists",
		Scope: model.CommandScope{DefaultScope: 2, IntBits: 4},
	})
	st := b.Build()

	sess := NewSession(st)
	res, err := sess.ExecuteCommand(context.Background(), "run1")
	if err != nil {
		t.Fatalf("ExecuteCommand: %s", err)
	}
	if res != ResultSat {
		t.Fatalf("ExecuteCommand(run1) = %v, want sat", res)
	}

	in, found, err := sess.NextInstance(context.Background())
	if err != nil {
		t.Fatalf("NextInstance: %s", err)
	}
	if !found || in == nil {
		t.Fatalf("NextInstance after a sat run should yield an instance")
	}
}

func TestNextInstanceEnumeratesDistinctModelsThenStops(t *testing.T) {
	b := model.NewBuilder()
	b.Sig("Person", model.MultSetOf)
	b.AddPredicate("exists", nil, personExists())
	b.AddCommand(model.Command{
		Name: "run1", Kind: model.CmdRun, TargetName: "exists",
		Scope: model.CommandScope{DefaultScope: 2, IntBits: 4},
	})
	st := b.Build()

	sess := NewSession(st)
	if _, err := sess.ExecuteCommand(context.Background(), "run1"); err != nil {
		t.Fatalf("ExecuteCommand: %s", err)
	}

	seen := map[string]bool{}
	for {
		in, found, err := sess.NextInstance(context.Background())
		if err != nil {
			t.Fatalf("NextInstance: %s", err)
		}
		if !found {
			break
		}
		s := in.String()
		if seen[s] {
			t.Fatalf("NextInstance repeated an already-seen instance: %s", s)
		}
		seen[s] = true
		if len(seen) > 8 {
			t.Fatalf("enumeration did not terminate within the bound of a 2-atom universe")
		}
	}
	if len(seen) == 0 {
		t.Fatalf("expected at least one enumerated instance")
	}
}

func TestExecuteCommandCheckVacuousAssertionHolds(t *testing.T) {
	b := model.NewBuilder()
	b.Sig("Person", model.MultSetOf)
	b.AddAssertion("alwaysTrue", model.Formula{Kind: model.FTrue})
	b.AddCommand(model.Command{
		Name: "c1", Kind: model.CmdCheck, TargetName: "alwaysTrue",
		Scope: model.CommandScope{DefaultScope: 1, IntBits: 4},
	})
	st := b.Build()

	sess := NewSession(st)
	res, err := sess.ExecuteCommand(context.Background(), "c1")
	if err != nil {
		t.Fatalf("ExecuteCommand: %s", err)
	}
	if res != ResultUnsat {
		t.Fatalf("ExecuteCommand(c1) = %v, want unsat (no counterexample to a tautology)", res)
	}
}

func TestExecuteCommandCheckFalseAssertionFindsCounterexample(t *testing.T) {
	b := model.NewBuilder()
	b.Sig("Person", model.MultSetOf)
	b.AddAssertion("neverHolds", model.Formula{Kind: model.FFalse})
	b.AddCommand(model.Command{
		Name: "c1", Kind: model.CmdCheck, TargetName: "neverHolds",
		Scope: model.CommandScope{DefaultScope: 1, IntBits: 4},
	})
	st := b.Build()

	sess := NewSession(st)
	res, err := sess.ExecuteCommand(context.Background(), "c1")
	if err != nil {
		t.Fatalf("ExecuteCommand: %s", err)
	}
	if res != ResultSat {
		t.Fatalf("ExecuteCommand(c1) = %v, want sat (a false assertion always has a counterexample)", res)
	}
}
