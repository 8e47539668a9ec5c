package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/fishlwr/internal/merge"
	"github.com/turtacn/fishlwr/internal/sink"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// mergeView reports a merge of dataset files.
type mergeView struct {
	Inputs  []string     `json:"inputs"`
	OutDir  string       `json:"out_dir"`
	Results int          `json:"results"`
	Records int          `json:"records"`
	Report  merge.Report `json:"report"`
}

func (v mergeView) String() string {
	return fmt.Sprintf("merged %d datasets into %s: %d results, %d records (%d added, %d replaced, %d kept)",
		len(v.Inputs), v.OutDir, v.Results, v.Records, v.Report.Added, v.Report.Replaced, v.Report.Kept)
}

func newMergeCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "merge BASE INCOMING...",
		Short: "Merge canonical dataset files",
		Long: "merge folds each INCOMING canonical.json into BASE in argument order.  For a\n" +
			"species present in both, the result with the higher R² wins; all measurement\n" +
			"records are kept.  The merged dataset is written as CSV and JSON.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cc.Config.Output.Dir
			}

			base, err := sink.LoadDataset(args[0])
			if err != nil {
				return err
			}
			incoming := make([]*species.CanonicalDataset, 0, len(args)-1)
			for _, path := range args[1:] {
				ds, err := sink.LoadDataset(path)
				if err != nil {
					return err
				}
				incoming = append(incoming, ds)
			}

			merged, report := merge.Merge(base, incoming...)

			ctx, cancel := commandContext(cmd, cc)
			defer cancel()
			out := sink.NewMultiSink(cc.Logger, sink.NewCSVSink(outDir), sink.NewJSONSink(outDir))
			if err := sink.WriteDataset(ctx, out, merged); err != nil {
				return err
			}

			return PrintResult(cmd, mergeView{
				Inputs:  args,
				OutDir:  outDir,
				Results: len(merged.Results),
				Records: len(merged.Records),
				Report:  report,
			})
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for the merged files (default: output.dir)")

	return cmd
}

//Personal.AI order the ending
