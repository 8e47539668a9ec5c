package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/fishlwr/internal/application/lookup"
	"github.com/turtacn/fishlwr/pkg/errors"
)

type predictionView lookup.Prediction

func (v predictionView) String() string {
	return fmt.Sprintf("%s (%s): %.3f kg at %g cm  [%s, a=%g b=%.4f r²=%.4f]",
		v.EntityName, v.EntityID, v.WeightKg, v.LengthCm, v.Formula, v.A, v.B, v.RSquared)
}

func newPredictCmd() *cobra.Command {
	var (
		length  float64
		dataset string
	)

	cmd := &cobra.Command{
		Use:   "predict SPECIES",
		Short: "Predict the weight of a fish from its length",
		Long: "predict looks SPECIES up by id or case-insensitive name in the canonical\n" +
			"dataset and evaluates its fitted W = a·L^b at --length centimetres.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if length <= 0 {
				return errors.New(errors.ErrCodeInvalidMeasurement, "--length must be a positive number of centimetres")
			}

			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			b, err := openBackends(ctx, cc.Config, cc.Logger)
			if err != nil {
				return err
			}
			defer b.Close()

			svc := lookup.NewService(datasetSource(cc.Config, b, dataset), 0, cc.Logger.Named("lookup"))
			p, err := svc.Predict(ctx, args[0], length)
			if err != nil {
				return err
			}
			return PrintResult(cmd, predictionView(p))
		},
	}

	cmd.Flags().Float64VarP(&length, "length", "l", 0, "fish length in centimetres")
	cmd.Flags().StringVar(&dataset, "dataset", "", "canonical dataset file (default: postgres when enabled, else server.dataset_path)")
	_ = cmd.MarkFlagRequired("length")

	return cmd
}

//Personal.AI order the ending
