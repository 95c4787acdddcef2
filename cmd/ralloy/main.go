// Command ralloy drives the solver directly against a DIMACS CNF
// instance. Building a relational model programmatically (the run/check
// workflow of internal/engine) is exercised by this module's test suite
// and by embedders; this binary's scope mirrors the teacher CLI it is
// descended from, extended with model enumeration and gzip input.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/ralloy/ralloy/internal/dimacs"
	"github.com/ralloy/ralloy/internal/sat"
)

var (
	flagCPUProfile = flag.Bool("cpuprof", false, "save pprof CPU profile to cpuprof")
	flagMemProfile = flag.Bool("memprof", false, "save pprof memory profile to memprof")
	flagGzip       = flag.Bool("gzip", false, "treat the instance file as gzip-compressed")
	flagModels     = flag.Int("models", 1, "number of distinct satisfying models to enumerate (0 = until unsat)")
)

type config struct {
	instanceFile string
	gzipped      bool
	cpuProfile   bool
	memProfile   bool
	models       int
}

func parseConfig() (*config, error) {
	flag.Parse()
	if flag.NArg() == 0 || flag.Arg(0) == "" {
		return nil, fmt.Errorf("missing instance file")
	}
	return &config{
		instanceFile: flag.Arg(0),
		gzipped:      *flagGzip,
		cpuProfile:   *flagCPUProfile,
		memProfile:   *flagMemProfile,
		models:       *flagModels,
	}, nil
}

func run(cfg *config) error {
	s := sat.NewDefaultSolver()
	header, err := dimacs.LoadDIMACS(cfg.instanceFile, cfg.gzipped, s)
	if err != nil {
		return fmt.Errorf("could not load instance: %w", err)
	}

	fmt.Printf("c variables:  %d\n", header.Variables)
	fmt.Printf("c clauses:    %d\n", header.Clauses)

	ctx := context.Background()
	found := 0
	for cfg.models == 0 || found < cfg.models {
		t := time.Now()
		status := s.Solve(ctx)
		elapsed := time.Since(t)

		fmt.Printf("c time (sec): %f\n", elapsed.Seconds())
		fmt.Printf("c conflicts:  %d (%.2f /sec)\n", s.TotalConflicts, float64(s.TotalConflicts)/elapsed.Seconds())
		fmt.Printf("c status:     %s\n", status.String())

		if status != sat.True {
			break
		}
		found++
		printModel(s.Models[len(s.Models)-1])
		if err := s.AddBlockingClause(s.Models[len(s.Models)-1]); err != nil {
			return fmt.Errorf("could not block model: %w", err)
		}
	}

	return nil
}

func printModel(model []bool) {
	for i, v := range model {
		if v {
			fmt.Printf("%d ", i)
		} else {
			fmt.Printf("-%d ", i)
		}
	}
	fmt.Println("0")
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.cpuProfile {
		f, err := os.Create("cpuprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile {
		f, err := os.Create("memprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
