package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/internal/pipeline"
	"github.com/turtacn/fishlwr/internal/regression"
	"github.com/turtacn/fishlwr/internal/sink"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// fitView lists refitted species; failed fits carry their category.
type fitView struct {
	Results []species.RegressionResult `json:"results"`
	Failed  []failureView              `json:"failed,omitempty"`
}

func (v fitView) TableHeaders() []string { return resultsView(nil).TableHeaders() }

func (v fitView) TableRows() [][]string {
	rows := resultsView(v.Results).TableRows()
	for _, f := range v.Failed {
		rows = append(rows, []string{f.EntityID, f.EntityName, "-", "-", "-", "-", "-", f.Category})
	}
	return rows
}

func newFitCmd() *cobra.Command {
	var (
		input  string
		method string
		write  bool
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Refit every species from the records of a canonical dataset",
		Long: "fit groups the measurement records of a canonical dataset by species and\n" +
			"fits W = a·L^b for each group with the chosen method.  With --write the\n" +
			"refitted results replace the stored ones.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Config
			if input == "" {
				input = canonicalPath(cfg.Output.Dir)
			}

			opts := regressionOptions(cfg.Regression)
			if method != "" {
				m, ok := species.ParseFitMethod(method)
				if !ok {
					return errors.Newf(errors.ErrCodeBadRequest, "invalid method %q (must be loglinear or nonlinear)", method)
				}
				opts.Method = m
			}

			ds, err := sink.LoadDataset(input)
			if err != nil {
				return err
			}

			var view fitView
			fitted := make(map[string]species.RegressionResult)
			for _, g := range regression.NewFitter(opts).FitByEntity(ds.Records) {
				if g.Err != nil {
					first := g.Records[0]
					view.Failed = append(view.Failed, failureView{
						EntityID:   first.EntityID,
						EntityName: first.EntityName,
						Category:   pipeline.CategoryOf(g.Err),
						Error:      g.Err.Error(),
					})
					cc.Logger.Warn("refit failed",
						logging.EntityID(first.EntityID),
						logging.EntityName(first.EntityName),
						logging.Err(g.Err))
					continue
				}
				fitted[g.Identity] = g.Result
				view.Results = append(view.Results, g.Result)
			}

			if write {
				replaceResults(ds, fitted)
				if outDir == "" {
					outDir = filepath.Dir(input)
				}
				ctx, cancel := commandContext(cmd, cc)
				defer cancel()
				out := sink.NewMultiSink(cc.Logger, sink.NewCSVSink(outDir), sink.NewJSONSink(outDir))
				if err := sink.WriteDataset(ctx, out, ds); err != nil {
					return err
				}
			}

			return PrintResult(cmd, view)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "canonical dataset (default: <output.dir>/canonical.json)")
	cmd.Flags().StringVarP(&method, "method", "m", "", "loglinear or nonlinear (default: regression.method)")
	cmd.Flags().BoolVar(&write, "write", false, "store the refitted results")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory written by --write (default: the input's directory)")

	return cmd
}

// replaceResults swaps stored results for refitted ones by identity and
// appends refitted species that had no result yet.  Order is preserved.
func replaceResults(ds *species.CanonicalDataset, fitted map[string]species.RegressionResult) {
	seen := make(map[string]bool, len(fitted))
	for i, r := range ds.Results {
		if f, ok := fitted[r.Identity()]; ok {
			ds.Results[i] = f
			seen[r.Identity()] = true
		}
	}
	for _, g := range sink.SortedResults(fitted) {
		if !seen[g.Identity()] {
			ds.Results = append(ds.Results, g)
		}
	}
}

//Personal.AI order the ending
