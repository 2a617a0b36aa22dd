package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kilianp07/robotaxi/core/triplog"
	"github.com/kilianp07/robotaxi/infra/logger"
	"github.com/kilianp07/robotaxi/pkg/export"
	"github.com/kilianp07/robotaxi/qa/scenarios"
)

var (
	scenarioOut    string
	scenarioStrict bool
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario <file>...",
	Short: "Run offline scenarios and export their results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenarios,
}

func init() {
	scenarioCmd.Flags().StringVarP(&scenarioOut, "out", "o", "", "directory for summary.json, taxis.csv, pricing.html and trips.jsonl")
	scenarioCmd.Flags().BoolVar(&scenarioStrict, "strict", false, "fail when a scenario misses its expectations")
	rootCmd.AddCommand(scenarioCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var failed int
	for _, path := range args {
		sc, err := scenarios.Load(path)
		if err != nil {
			return err
		}
		opts := scenarios.Options{Logger: logger.New("scenario")}
		var dir string
		if scenarioOut != "" {
			dir = filepath.Join(scenarioOut, sc.Name)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			trips, err := triplog.NewJSONLStore(filepath.Join(dir, "trips.jsonl"))
			if err != nil {
				return err
			}
			opts.TripLog = trips
		}
		res, err := scenarios.Run(cmd.Context(), sc, opts)
		if opts.TripLog != nil {
			if cerr := opts.TripLog.Close(); err == nil {
				err = cerr
			}
		}
		if err != nil {
			return err
		}
		f := res.Final
		fmt.Fprintf(out, "%s: tick=%d completed=%d unsatisfied=%.1f%% profit=%.2f underfulfilled=%d\n",
			sc.Name, f.Tick, f.Completed, 100*f.Unsatisfied, f.Economics.Total.Profit, f.Underfulfilled)
		if err := sc.Check(res); err != nil {
			failed++
			fmt.Fprintf(out, "  expectations not met: %v\n", err)
		}
		if dir != "" {
			if err := writeExports(dir, res); err != nil {
				return fmt.Errorf("export %s: %w", sc.Name, err)
			}
		}
	}
	if scenarioStrict && failed > 0 {
		return fmt.Errorf("%d scenario(s) missed their expectations", failed)
	}
	return nil
}

func writeExports(dir string, res *scenarios.Result) error {
	files := []struct {
		name  string
		write func(*os.File) error
	}{
		{"summary.json", func(f *os.File) error { return export.WriteJSON(f, res) }},
		{"taxis.csv", func(f *os.File) error { return export.WriteCSV(f, res.Final.TaxiStatus) }},
		{"pricing.html", func(f *os.File) error { return export.PricingChart(f, res.Scenario, res.Pricing) }},
	}
	for _, fl := range files {
		f, err := os.Create(filepath.Join(dir, fl.name))
		if err != nil {
			return err
		}
		werr := fl.write(f)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("%s: %w", fl.name, werr)
		}
	}
	return nil
}
