package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/internal/merge"
	"github.com/turtacn/fishlwr/internal/pipeline"
	"github.com/turtacn/fishlwr/internal/sink"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// runView is the printable outcome of one pipeline run.
type runView struct {
	Summary  pipeline.RunSummary `json:"summary"`
	Merge    merge.Report        `json:"merge"`
	Failures []failureView       `json:"failures,omitempty"`
}

type failureView struct {
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Category   string `json:"category"`
	Error      string `json:"error"`
}

func newRunView(out *pipeline.Output) runView {
	v := runView{Summary: out.Summary, Merge: out.Report}
	for _, it := range out.Items {
		if it.Status != pipeline.ItemStatusFailed {
			continue
		}
		f := failureView{EntityID: it.Entity.ID, EntityName: it.Entity.Name, Category: it.Category}
		if it.Err != nil {
			f.Error = it.Err.Error()
		}
		v.Failures = append(v.Failures, f)
	}
	return v
}

func (v runView) String() string {
	s := v.Summary
	out := fmt.Sprintf("run %s: %d species, %d fitted, %d failed, %d cancelled, %d from fallback in %s\n",
		s.RunID, s.Total, s.Success, s.Failure, s.Cancelled, s.Synthetic, s.Duration.Round(time.Millisecond))
	cats := make([]string, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		out += fmt.Sprintf("  %-24s %d\n", c, s.ByCategory[c])
	}
	out += fmt.Sprintf("merge: %d added, %d replaced, %d kept, %d records appended",
		v.Merge.Added, v.Merge.Replaced, v.Merge.Kept, v.Merge.RecordsAppended)
	return out
}

func (v runView) TableHeaders() []string {
	return []string{"ID", "NAME", "CATEGORY", "ERROR"}
}

func (v runView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Failures))
	for _, f := range v.Failures {
		rows = append(rows, []string{f.EntityID, f.EntityName, f.Category, f.Error})
	}
	return rows
}

// resultsView renders regression results.
type resultsView []species.RegressionResult

func (v resultsView) TableHeaders() []string {
	return []string{"ID", "NAME", "A", "B", "R2", "N", "METHOD", "FORMULA"}
}

func (v resultsView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		rows = append(rows, []string{
			r.EntityID,
			r.EntityName,
			strconv.FormatFloat(r.A, 'g', 6, 64),
			strconv.FormatFloat(r.B, 'f', 4, 64),
			strconv.FormatFloat(r.RSquared, 'f', 4, 64),
			strconv.Itoa(r.SampleCount),
			string(r.Method),
			r.Formula,
		})
	}
	return rows
}

func newRunCmd() *cobra.Command {
	var (
		basePath string
		fresh    bool
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape the catalog, fit every species and merge into the canonical dataset",
		Long: "run resolves every configured catalog index, fetches each species page,\n" +
			"extracts its length-weight table and fits W = a·L^b.  The fitted results are\n" +
			"merged into the existing canonical dataset and written to the configured sinks.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Config
			if workers > 0 {
				cfg.Pipeline.WorkerCount = workers
			}

			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			b, err := openBackends(ctx, cfg, cc.Logger)
			if err != nil {
				return err
			}
			defer b.Close()

			var base *species.CanonicalDataset
			if !fresh {
				if basePath == "" {
					basePath = canonicalPath(cfg.Output.Dir)
				}
				if base, err = sink.LoadDatasetOrEmpty(basePath); err != nil {
					return err
				}
			}

			p, err := buildPipeline(cfg, b)
			if err != nil {
				return err
			}
			out, err := p.Run(ctx, base)
			if err != nil {
				return err
			}

			snapshot, delta := buildSinks(cfg, b, out.Summary.RunID)
			// Fitted results are persisted even when an interrupt arrived
			// during the run.
			writeCtx := context.WithoutCancel(ctx)
			if err := sink.WriteDataset(writeCtx, snapshot, out.Dataset); err != nil {
				return err
			}
			if err := sink.WriteDataset(writeCtx, delta, out.Fitted()); err != nil {
				return err
			}
			cc.Logger.Info("sinks written",
				logging.RunID(out.Summary.RunID),
				logging.String("snapshot", snapshot.Name()),
				logging.String("delta", delta.Name()))

			return PrintResult(cmd, newRunView(out))
		},
	}

	cmd.Flags().StringVar(&basePath, "base", "", "canonical dataset to merge into (default: <output.dir>/canonical.json)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "ignore any existing canonical dataset")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "override pipeline.worker_count")

	return cmd
}

//Personal.AI order the ending
