package model

import "fmt"

// SymbolTable resolves the names used across a model's declarations: its
// signatures (indexed by name, with a precomputed children list so the
// translator can expand an abstract signature's population without a
// linear scan), its predicates and assertions (stored as bare Formula
// bodies with a parameter list), and its commands.
type SymbolTable struct {
	Sigs       map[string]*SigDecl
	sigOrder   []string // declaration order, for deterministic atom allocation
	children   map[string][]string
	Predicates map[string]*PredDecl
	Assertions map[string]*AssertDecl
	Commands   map[string]*Command
	cmdOrder   []string
	Facts      []Formula
}

// PredDecl is a named, parameterized formula invoked from run commands or
// from within other formulas via FPredRef.
type PredDecl struct {
	Name   string
	Params []Decl
	Body   Formula
}

// AssertDecl is a named formula whose negation is searched for by check
// commands.
type AssertDecl struct {
	Name string
	Body Formula
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{
		Sigs:       map[string]*SigDecl{},
		children:   map[string][]string{},
		Predicates: map[string]*PredDecl{},
		Assertions: map[string]*AssertDecl{},
		Commands:   map[string]*Command{},
	}
}

// SigOrder returns signature names in declaration order.
func (st *SymbolTable) SigOrder() []string {
	return st.sigOrder
}

// ChildrenOf returns the names of signatures declared with `extends` this
// signature (direct children only).
func (st *SymbolTable) ChildrenOf(name string) []string {
	return st.children[name]
}

// CommandOrder returns command names in declaration order.
func (st *SymbolTable) CommandOrder() []string {
	return st.cmdOrder
}

// Lookup resolves a signature by name, reporting a diagnostic-friendly
// error if undeclared.
func (st *SymbolTable) Lookup(name string) (*SigDecl, error) {
	s, ok := st.Sigs[name]
	if !ok {
		return nil, fmt.Errorf("undeclared signature %q", name)
	}
	return s, nil
}

// Validate walks the symbol table and returns every diagnostic found: sigs
// whose Extends/SubsetParents/Field types reference undeclared names, and
// commands whose TargetName doesn't resolve to the expected kind. Formula
// bodies are not walked, so an unresolved FPredRef is not reported here.
func (st *SymbolTable) Validate() []Diagnostic {
	var diags []Diagnostic

	for _, name := range st.sigOrder {
		sig := st.Sigs[name]
		if sig.Extends != "" {
			if _, ok := st.Sigs[sig.Extends]; !ok {
				diags = append(diags, Diagnostic{
					Severity: SeverityError,
					Code:     "E-UNDECLARED-SIG",
					Message:  fmt.Sprintf("sig %q extends undeclared sig %q", name, sig.Extends),
					Where:    name,
				})
			}
		}
		for _, p := range sig.SubsetParents {
			if _, ok := st.Sigs[p]; !ok {
				diags = append(diags, Diagnostic{
					Severity: SeverityError,
					Code:     "E-UNDECLARED-SIG",
					Message:  fmt.Sprintf("sig %q is-in undeclared sig %q", name, p),
					Where:    name,
				})
			}
		}
		for _, f := range sig.Fields {
			for _, t := range f.Type {
				if _, ok := st.Sigs[t]; !ok {
					diags = append(diags, Diagnostic{
						Severity: SeverityError,
						Code:     "E-UNDECLARED-SIG",
						Message:  fmt.Sprintf("field %q.%s has undeclared column type %q", name, f.Name, t),
						Where:    name + "." + f.Name,
					})
				}
			}
		}
	}

	for _, cmd := range st.Commands {
		switch cmd.Kind {
		case CmdRun:
			if cmd.TargetName != "" {
				if _, ok := st.Predicates[cmd.TargetName]; !ok {
					diags = append(diags, Diagnostic{
						Severity: SeverityError,
						Code:     "E-UNDECLARED-PRED",
						Message:  fmt.Sprintf("run %q targets undeclared predicate %q", cmd.Name, cmd.TargetName),
						Where:    cmd.Name,
					})
				}
			}
		case CmdCheck:
			if _, ok := st.Assertions[cmd.TargetName]; !ok {
				diags = append(diags, Diagnostic{
					Severity: SeverityError,
					Code:     "E-UNDECLARED-ASSERTION",
					Message:  fmt.Sprintf("check %q targets undeclared assertion %q", cmd.Name, cmd.TargetName),
					Where:    cmd.Name,
				})
			}
		}
	}

	return diags
}
