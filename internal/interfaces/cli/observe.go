package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/fishlwr/internal/accumulator"
	"github.com/turtacn/fishlwr/internal/application/observation"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

type receiptView observation.Receipt

func (v receiptView) String() string {
	if v.Queued {
		return "observation queued"
	}
	o := v.Outcome
	if o == nil {
		return "observation recorded"
	}
	if o.Status == accumulator.StatusSuccess {
		return fmt.Sprintf("%s: W = %g·L^%.4f (r²=%.4f, %d points)", o.SpeciesName, o.A, o.B, o.RSquared, o.DataPointsCount)
	}
	return fmt.Sprintf("%s: %s, %d points: %s", o.SpeciesName, o.Status, o.DataPointsCount, o.Message)
}

func newObserveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Record catch observations and inspect the accumulated fits",
	}
	cmd.AddCommand(newObserveAddCmd(), newObserveListCmd())
	return cmd
}

func newObserveAddCmd() *cobra.Command {
	var (
		length float64
		weight float64
		queue  bool
	)

	cmd := &cobra.Command{
		Use:   "add SPECIES",
		Short: "Add one length/weight observation and refit the species",
		Long: "add stores the observation and refits the species with the nonlinear\n" +
			"solver once it has at least two points.  With --queue the observation is\n" +
			"published to the observation topic for a worker to apply.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Config

			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			b, err := openBackends(ctx, cfg, cc.Logger)
			if err != nil {
				return err
			}
			defer b.Close()

			opts := []observation.Option{observation.WithLogger(cc.Logger.Named("observation"))}
			if b.producer != nil {
				opts = append(opts, observation.WithFittedEvents(b.producer, cfg.Kafka.FittedTopic))
				if queue {
					opts = append(opts, observation.WithQueue(b.producer, cfg.Kafka.ObservationTopic))
				}
			} else if queue {
				return errors.New(errors.ErrCodeBadRequest, "--queue requires kafka.enabled")
			}

			svc := observation.NewService(buildAccumulator(cfg, b), opts...)
			receipt, err := svc.Submit(ctx, species.Observation{SpeciesName: args[0], LengthCm: length, WeightKg: weight})
			if err != nil {
				return err
			}
			return PrintResult(cmd, receiptView(receipt))
		},
	}

	cmd.Flags().Float64VarP(&length, "length", "l", 0, "length in centimetres")
	cmd.Flags().Float64VarP(&weight, "weight", "w", 0, "weight in kilograms")
	cmd.Flags().BoolVar(&queue, "queue", false, "publish to the observation topic instead of applying locally")
	_ = cmd.MarkFlagRequired("length")
	_ = cmd.MarkFlagRequired("weight")

	return cmd
}

func newObserveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the fits derived from observations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			b, err := openBackends(ctx, cc.Config, cc.Logger)
			if err != nil {
				return err
			}
			defer b.Close()

			results, err := buildAccumulator(cc.Config, b).Results(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, resultsView(results))
		},
	}
}

//Personal.AI order the ending
