package scenarios

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilianp07/robotaxi/core/command"
)

func TestScenarioFiles(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			res, err := Run(context.Background(), sc, Options{})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if err := sc.Check(res); err != nil {
				t.Fatalf("expectations: %v", err)
			}
			if len(res.Pricing) == 0 {
				t.Fatal("no pricing samples")
			}
			if res.Final.Tick != sc.Ticks {
				t.Fatalf("final tick %d, want %d", res.Final.Tick, sc.Ticks)
			}
		})
	}
}

func TestLoadDecodesSections(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "batched_forecast.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Dispatch.Policy != "batched" || sc.Dispatch.BatchInterval != 10 {
		t.Fatalf("dispatch section not decoded: %+v", sc.Dispatch)
	}
	if sc.Simulation.NumTaxis != 4 || sc.Network.Cols != 4 {
		t.Fatalf("simulation or network section not decoded")
	}
	if len(sc.Commands) != 2 || sc.Commands[1].Kind != "remove_charger" {
		t.Fatalf("unexpected commands %+v", sc.Commands)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load("scenario.toml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("ticks: [1, 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected unmarshal error")
	}
	late := filepath.Join(dir, "late.yaml")
	body := "ticks: 10\ncommands:\n  - at: 10\n    kind: add_taxi\n    count: 1\n"
	if err := os.WriteFile(late, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(late); err == nil {
		t.Fatal("expected error for command after the last tick")
	}
}

func TestValidateRejectsUnknownCommand(t *testing.T) {
	sc := &Scenario{Ticks: 5, Commands: []TimedCommand{{At: 1, Kind: "launch_rocket", Count: 1}}}
	if err := sc.Validate(); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunAppliesTimedCommands(t *testing.T) {
	sc := &Scenario{Name: "inline", Ticks: 20}
	sc.Simulation.Seed = 3
	sc.Simulation.NumTaxis = 2
	sc.Simulation.NumReservations = 2
	sc.Network.Rows, sc.Network.Cols = 2, 3
	sc.Commands = []TimedCommand{
		{At: 2, Kind: "add_taxi", Count: 3},
		{At: 4, Kind: "remove_charger", Count: 1},
	}
	res, err := Run(context.Background(), sc, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Commands) != 2 {
		t.Fatalf("expected 2 command results, got %d", len(res.Commands))
	}
	if res.Commands[0].Kind != command.KindAddTaxi || res.Commands[0].Applied != 3 {
		t.Fatalf("unexpected add result %+v", res.Commands[0])
	}
	if res.Commands[1].Applied != 0 || res.Final.Underfulfilled != 1 {
		t.Fatalf("charger removal should be underfulfilled: %+v", res.Commands[1])
	}
	total := 0
	for _, n := range res.Final.Taxis {
		total += n
	}
	if total != 5 {
		t.Fatalf("expected 5 taxis, got %d", total)
	}
}

func TestRunStopsWhenCanceled(t *testing.T) {
	sc := &Scenario{Name: "canceled", Ticks: 1000}
	sc.Simulation.NumTaxis = 1
	sc.Simulation.NumReservations = 1
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, sc, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Final.Tick != 0 {
		t.Fatalf("expected no ticks, got %d", res.Final.Tick)
	}
}

func TestCheckReportsEveryViolation(t *testing.T) {
	minProfit := 100.0
	maxUnder := 0
	sc := &Scenario{Expect: Expected{MinCompleted: 5, MaxUnsatisfied: 0.1, MinProfit: &minProfit, MaxUnderfulfilled: &maxUnder}}
	res := &Result{}
	res.Final.Completed = 1
	res.Final.Unsatisfied = 0.5
	res.Final.Underfulfilled = 2
	err := sc.Check(res)
	if err == nil {
		t.Fatal("expected violations")
	}
	for _, part := range []string{"completed", "unsatisfied", "profit", "underfulfilled"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("missing %q in %v", part, err)
		}
	}
	if err := (&Scenario{}).Check(res); err != nil {
		t.Fatalf("empty expectations should pass: %v", err)
	}
}
