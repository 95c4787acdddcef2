package model

// Builder constructs a SymbolTable programmatically. It stands in for the
// front end this package deliberately omits (lexing, parsing, name
// resolution): a caller — normally generated from a parsed source file by
// code outside this package's scope — declares signatures, fields,
// predicates, assertions, and commands through Builder's methods, and
// Build returns the finished, linked SymbolTable.
type Builder struct {
	st *SymbolTable
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{st: newSymbolTable()}
}

// Sig declares a top-level signature and returns it for further
// configuration (fields, multiplicity) via the returned *SigDecl's
// fields, or via AddField.
func (b *Builder) Sig(name string, mult Mult) *SigDecl {
	sig := &SigDecl{Name: name, Mult: mult}
	b.st.Sigs[name] = sig
	b.st.sigOrder = append(b.st.sigOrder, name)
	return sig
}

// Extends declares child as a subtype of parent (`sig child extends parent`).
func (b *Builder) Extends(child, parent string) {
	if sig, ok := b.st.Sigs[child]; ok {
		sig.Extends = parent
	}
	b.st.children[parent] = append(b.st.children[parent], child)
}

// In declares child as a subset of one or more parents (`sig child in
// parent1 + parent2`).
func (b *Builder) In(child string, parents ...string) {
	if sig, ok := b.st.Sigs[child]; ok {
		sig.SubsetParents = append(sig.SubsetParents, parents...)
	}
}

// AddField declares a field on owner.
func (b *Builder) AddField(owner, name string, mult Mult, variable bool, colTypes ...string) *FieldDecl {
	f := &FieldDecl{Name: name, Owner: owner, Type: colTypes, Mult: mult, Variable: variable}
	if sig, ok := b.st.Sigs[owner]; ok {
		sig.Fields = append(sig.Fields, f)
	}
	return f
}

// AddFact appends a top-level fact formula (always asserted, for every command).
func (b *Builder) AddFact(f Formula) {
	b.st.Facts = append(b.st.Facts, f)
}

// AddPredicate declares a named, parameterized predicate.
func (b *Builder) AddPredicate(name string, params []Decl, body Formula) {
	b.st.Predicates[name] = &PredDecl{Name: name, Params: params, Body: body}
}

// AddAssertion declares a named assertion.
func (b *Builder) AddAssertion(name string, body Formula) {
	b.st.Assertions[name] = &AssertDecl{Name: name, Body: body}
}

// AddCommand declares a run or check command.
func (b *Builder) AddCommand(cmd Command) {
	b.st.Commands[cmd.Name] = &cmd
	b.st.cmdOrder = append(b.st.cmdOrder, cmd.Name)
}

// Build finalizes and returns the SymbolTable. The returned table should
// be passed to Validate before use; Build performs no validation itself.
func (b *Builder) Build() *SymbolTable {
	return b.st
}
