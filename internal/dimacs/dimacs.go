// Package dimacs loads and writes DIMACS CNF files, used by the CLI's
// direct-SAT mode and by the solver's fixture-driven tests. Reading is
// delegated to github.com/rhartert/dimacs's streaming Builder callback;
// this package only adapts that callback onto a SAT solver or, for
// ParseModels, onto a plain slice of model assignments.
package dimacs

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	upstream "github.com/rhartert/dimacs"

	"github.com/ralloy/ralloy/internal/sat"
)

// solverSink is the minimal surface LoadDIMACS needs from a SAT solver.
type solverSink interface {
	AddVariable() int
	AddClause([]sat.Literal) error
}

func reader(filename string, gzipped bool) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	rc := io.ReadCloser(file)
	if gzipped {
		rc, err = gzip.NewReader(rc)
		if err != nil {
			return nil, err
		}
	}
	return rc, nil
}

// Header reports the declared variable and clause counts read from a
// DIMACS file's "p cnf" line.
type Header struct {
	Variables int
	Clauses   int
}

// solverBuilder adapts a solverSink to dimacs.Builder.
type solverBuilder struct {
	dw     solverSink
	header Header
}

func (b *solverBuilder) Problem(problem string, nVars int, nClauses int) error {
	if problem != "cnf" {
		return fmt.Errorf("dimacs: instance of type %q are not supported", problem)
	}
	b.header = Header{Variables: nVars, Clauses: nClauses}
	for i := 0; i < nVars; i++ {
		b.dw.AddVariable()
	}
	return nil
}

func (b *solverBuilder) Clause(tmpClause []int) error {
	clause := make([]sat.Literal, len(tmpClause))
	for i, l := range tmpClause {
		if l < 0 {
			clause[i] = sat.NegativeLiteral(-l - 1)
		} else {
			clause[i] = sat.PositiveLiteral(l - 1)
		}
	}
	return b.dw.AddClause(clause)
}

func (b *solverBuilder) Comment(_ string) error {
	return nil
}

// LoadDIMACS parses filename (gzip-decompressed first if gzipped) and
// feeds its variables and clauses to dw.
func LoadDIMACS(filename string, gzipped bool, dw solverSink) (Header, error) {
	rc, err := reader(filename, gzipped)
	if err != nil {
		return Header{}, fmt.Errorf("dimacs: reading %q: %w", filename, err)
	}
	defer rc.Close()

	b := &solverBuilder{dw: dw}
	if err := upstream.ReadBuilder(rc, b); err != nil {
		return Header{}, fmt.Errorf("dimacs: parsing %q: %w", filename, err)
	}
	return b.header, nil
}

// WriteDIMACS writes nVars/clauses out in DIMACS CNF form. The upstream
// dimacs module only reads DIMACS; writing is plain formatting, so it
// stays on bufio directly.
func WriteDIMACS(w io.Writer, nVars int, clauses [][]sat.Literal) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "p cnf %d %d\n", nVars, len(clauses)); err != nil {
		return err
	}
	for _, c := range clauses {
		parts := make([]string, 0, len(c)+1)
		for _, l := range c {
			if l.IsPositive() {
				parts = append(parts, strconv.Itoa(l.VarID()+1))
			} else {
				parts = append(parts, strconv.Itoa(-(l.VarID() + 1)))
			}
		}
		parts = append(parts, "0")
		if _, err := fmt.Fprintln(bw, strings.Join(parts, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// modelBuilder adapts dimacs.Builder to collect a models file's clause
// lines (one model per line, no problem line) as boolean assignments.
type modelBuilder struct {
	models [][]bool
}

func (b *modelBuilder) Problem(problem string, nVars int, nClauses int) error {
	return fmt.Errorf("dimacs: model files should not have a problem line")
}

func (b *modelBuilder) Comment(_ string) error {
	return nil
}

func (b *modelBuilder) Clause(tmpClause []int) error {
	model := make([]bool, len(tmpClause))
	for i, l := range tmpClause {
		model[i] = l > 0
	}
	b.models = append(b.models, model)
	return nil
}

// ParseModels reads a models file (one satisfying assignment per line, as
// signed DIMACS literals) as produced by an enumeration run, for use in
// regression fixtures.
func ParseModels(filename string) ([][]bool, error) {
	rc, err := reader(filename, false)
	if err != nil {
		return nil, fmt.Errorf("dimacs: reading %q: %w", filename, err)
	}
	defer rc.Close()

	b := &modelBuilder{}
	if err := upstream.ReadBuilder(rc, b); err != nil {
		return nil, fmt.Errorf("dimacs: parsing %q: %w", filename, err)
	}
	return b.models, nil
}
