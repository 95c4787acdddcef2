package dimacs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ralloy/ralloy/internal/sat"
)

type fakeSink struct {
	nVars   int
	clauses [][]sat.Literal
}

func (f *fakeSink) AddVariable() int {
	v := f.nVars
	f.nVars++
	return v
}

func (f *fakeSink) AddClause(lits []sat.Literal) error {
	cp := append([]sat.Literal(nil), lits...)
	f.clauses = append(f.clauses, cp)
	return nil
}

func TestWriteThenLoadDIMACSRoundTrips(t *testing.T) {
	clauses := [][]sat.Literal{
		{sat.PositiveLiteral(0), sat.NegativeLiteral(1)},
		{sat.PositiveLiteral(1), sat.PositiveLiteral(2)},
	}
	path := filepath.Join(t.TempDir(), "test.cnf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %s", err)
	}
	if err := WriteDIMACS(f, 3, clauses); err != nil {
		t.Fatalf("WriteDIMACS: %s", err)
	}
	f.Close()

	sink := &fakeSink{}
	header, err := LoadDIMACS(path, false, sink)
	if err != nil {
		t.Fatalf("LoadDIMACS: %s", err)
	}
	if header.Variables != 3 || header.Clauses != 2 {
		t.Fatalf("header = %+v, want {3 2}", header)
	}
	if sink.nVars != 3 {
		t.Fatalf("sink allocated %d variables, want 3", sink.nVars)
	}
	if len(sink.clauses) != 2 {
		t.Fatalf("sink received %d clauses, want 2", len(sink.clauses))
	}
	if sink.clauses[0][0] != sat.PositiveLiteral(0) || sink.clauses[0][1] != sat.NegativeLiteral(1) {
		t.Errorf("first clause = %v, want [+0 -1]", sink.clauses[0])
	}
}

func TestLoadDIMACSSkipsCommentLines(t *testing.T) {
	content := "c a comment\np cnf 2 1\nc another comment\n1 -2 0\n"
	path := filepath.Join(t.TempDir(), "commented.cnf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}

	sink := &fakeSink{}
	header, err := LoadDIMACS(path, false, sink)
	if err != nil {
		t.Fatalf("LoadDIMACS: %s", err)
	}
	if header.Variables != 2 || header.Clauses != 1 {
		t.Fatalf("header = %+v, want {2 1}", header)
	}
	if len(sink.clauses) != 1 || len(sink.clauses[0]) != 2 {
		t.Fatalf("clauses = %v, want one 2-literal clause", sink.clauses)
	}
}

func TestParseModels(t *testing.T) {
	content := "1 -2 3 0\n-1 -2 -3 0\n"
	path := filepath.Join(t.TempDir(), "models.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}

	models, err := ParseModels(path)
	if err != nil {
		t.Fatalf("ParseModels: %s", err)
	}
	if len(models) != 2 {
		t.Fatalf("len(models) = %d, want 2", len(models))
	}
	if !models[0][0] || models[0][1] || !models[0][2] {
		t.Errorf("models[0] = %v, want [true false true]", models[0])
	}
}
