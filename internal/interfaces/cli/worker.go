package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/fishlwr/internal/application/observation"
	"github.com/turtacn/fishlwr/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/pkg/errors"
)

const (
	defaultHealthPort   = 8081
	workerRetryBackoff  = time.Second
	workerMaxRetryDelay = 10 * time.Second
)

func newWorkerCmd() *cobra.Command {
	var healthPort int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Apply queued observations from kafka",
		Long: "worker consumes the observation topic, adds each observation to the\n" +
			"accumulator and publishes a species.fitted event after every successful\n" +
			"refit.  Messages that keep failing go to the dead-letter topic.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Config
			if !cfg.Kafka.Enabled {
				return errors.New(errors.ErrCodeBadRequest, "worker requires kafka.enabled")
			}
			ctx := cmd.Context()

			b, err := openBackends(ctx, cfg, cc.Logger)
			if err != nil {
				return err
			}
			defer b.Close()

			svc := observation.NewService(buildAccumulator(cfg, b),
				observation.WithFittedEvents(b.producer, cfg.Kafka.FittedTopic),
				observation.WithLogger(cc.Logger.Named("observation")))

			consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers: cfg.Kafka.Brokers,
				GroupID: cfg.Kafka.GroupID,
				Topics:  []string{cfg.Kafka.ObservationTopic},
				Retry: kafka.RetryConfig{
					MaxRetries:      cfg.Kafka.MaxRetries,
					RetryBackoff:    workerRetryBackoff,
					MaxRetryBackoff: workerMaxRetryDelay,
					DeadLetterTopic: cfg.Kafka.DeadLetterTopic,
				},
			}, b.producer, cc.Logger.Named("consumer"))
			if err != nil {
				return err
			}
			defer consumer.Close()
			consumer.Subscribe(cfg.Kafka.ObservationTopic, svc.Handler())

			if cc.ConfigPath != "" {
				watchLogLevel(cc.ConfigPath, cc.Logger)
			}

			cc.Logger.Info("worker started",
				logging.String("topic", cfg.Kafka.ObservationTopic),
				logging.String("group", cfg.Kafka.GroupID))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return consumer.Run(gctx) })
			if healthPort > 0 {
				srv := healthServer(cc, b, healthPort)
				g.Go(func() error { return serveUntilDone(gctx, srv) })
			}
			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				err = nil
			}

			consumed, processed, retried, dead := consumer.Stats()
			cc.Logger.Info("worker stopped",
				logging.Int64("consumed", consumed),
				logging.Int64("processed", processed),
				logging.Int64("retried", retried),
				logging.Int64("dead_lettered", dead))
			return err
		},
	}

	cmd.Flags().IntVar(&healthPort, "health-port", defaultHealthPort, "port for /healthz, /readyz and /metrics (0 disables)")

	return cmd
}

//Personal.AI order the ending
