package model

import "testing"

func TestBuilderRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.Sig("Person", MultSetOf)
	b.AddField("Person", "friend", MultSetOf, false, "Person")
	b.AddPredicate("hasFriend", nil, Formula{Kind: FTrue})
	b.AddCommand(Command{Name: "run1", Kind: CmdRun, TargetName: "hasFriend", Scope: CommandScope{DefaultScope: 3}})

	st := b.Build()
	if _, err := st.Lookup("Person"); err != nil {
		t.Fatalf("Lookup(Person): %s", err)
	}
	if len(st.Sigs["Person"].Fields) != 1 {
		t.Fatalf("Person has %d fields, want 1", len(st.Sigs["Person"].Fields))
	}
	if len(st.Validate()) != 0 {
		t.Errorf("Validate() = %v, want no diagnostics", st.Validate())
	}
}

func TestValidateCatchesUndeclaredReferences(t *testing.T) {
	b := NewBuilder()
	b.Sig("Person", MultSetOf)
	b.Extends("Person", "Ghost")
	b.AddCommand(Command{Name: "run1", Kind: CmdRun, TargetName: "nope", Scope: CommandScope{}})

	diags := b.Build().Validate()
	if len(diags) < 2 {
		t.Fatalf("Validate() = %v, want at least 2 diagnostics", diags)
	}
}

func TestChildrenOfTracksExtends(t *testing.T) {
	b := NewBuilder()
	b.Sig("Animal", MultSetOf)
	b.Sig("Dog", MultSetOf)
	b.Extends("Dog", "Animal")

	st := b.Build()
	children := st.ChildrenOf("Animal")
	if len(children) != 1 || children[0] != "Dog" {
		t.Errorf("ChildrenOf(Animal) = %v, want [Dog]", children)
	}
}
