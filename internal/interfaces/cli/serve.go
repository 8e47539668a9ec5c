package cli

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/turtacn/fishlwr/internal/application/lookup"
	"github.com/turtacn/fishlwr/internal/application/observation"
	"github.com/turtacn/fishlwr/internal/config"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	httpapi "github.com/turtacn/fishlwr/internal/interfaces/http"
	"github.com/turtacn/fishlwr/internal/interfaces/http/handlers"
	"github.com/turtacn/fishlwr/internal/interfaces/http/middleware"
)

// probePaths are never rate limited.
var probePaths = []string{"/healthz", "/readyz", "/metrics"}

func newServeCmd() *cobra.Command {
	var (
		port    int
		dataset string
		direct  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the canonical dataset and observation intake over HTTP",
		Long: "serve exposes species lookup, weight prediction and observation intake.\n" +
			"Observations are queued to kafka when it is enabled unless --direct is set.\n" +
			"Changing log.level in the config file takes effect without a restart.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Config
			if port > 0 {
				cfg.Server.Port = port
			}
			ctx := cmd.Context()

			b, err := openBackends(ctx, cfg, cc.Logger)
			if err != nil {
				return err
			}
			defer b.Close()

			gin.SetMode(cfg.Server.Mode)

			lookupSvc := lookup.NewService(datasetSource(cfg, b, dataset), cfg.Server.DatasetTTL, cc.Logger.Named("lookup"))

			obsOpts := []observation.Option{observation.WithLogger(cc.Logger.Named("observation"))}
			if b.producer != nil {
				obsOpts = append(obsOpts, observation.WithFittedEvents(b.producer, cfg.Kafka.FittedTopic))
				if !direct {
					obsOpts = append(obsOpts, observation.WithQueue(b.producer, cfg.Kafka.ObservationTopic))
				}
			}
			obsSvc := observation.NewService(buildAccumulator(cfg, b), obsOpts...)

			checkers := append([]handlers.HealthChecker{handlers.CheckFunc{Label: "dataset", Fn: lookupSvc.Ready}}, b.healthCheckers()...)

			routerCfg := httpapi.RouterConfig{
				SpeciesHandler:     handlers.NewSpeciesHandler(lookupSvc),
				ObservationHandler: handlers.NewObservationHandler(obsSvc),
				HealthHandler:      handlers.NewHealthHandler(Version, checkers...),
				Logging:            middleware.DefaultLoggingConfig(),
				Logger:             cc.Logger.Named("http"),
				MetricsCollector:   b.collector,
				Metrics:            b.metrics,
			}
			if cfg.Server.RateLimit > 0 {
				routerCfg.RateLimit = &middleware.RateLimitConfig{
					RequestsPerSecond: cfg.Server.RateLimit,
					Burst:             cfg.Server.RateBurst,
					SkipPaths:         probePaths,
				}
			}

			if cc.ConfigPath != "" {
				watchLogLevel(cc.ConfigPath, cc.Logger)
			}

			srv := httpapi.NewServer(cfg.Server, httpapi.NewRouter(routerCfg), cc.Logger.Named("http"))
			return serveUntilDone(ctx, srv)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: server.port)")
	cmd.Flags().StringVar(&dataset, "dataset", "", "serve this canonical dataset file instead of the configured source")
	cmd.Flags().BoolVar(&direct, "direct", false, "apply observations in-process even when kafka is enabled")

	return cmd
}

// serveUntilDone runs srv until ctx ends, then drains it.
func serveUntilDone(ctx context.Context, srv *httpapi.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	if err := srv.Stop(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	return <-errCh
}

// watchLogLevel applies log.level edits from the config file to logger.
func watchLogLevel(path string, logger logging.Logger) {
	config.Watch(path, func(c *config.Config) {
		if logging.SetLevel(logger, c.Log.Level) {
			logger.Info("log level changed", logging.String("level", c.Log.Level))
		}
	})
}

// healthServer exposes liveness, readiness and metrics on a side port for
// processes without an API.
func healthServer(cc *CLIContext, b *backends, port int, checkers ...handlers.HealthChecker) *httpapi.Server {
	scfg := cc.Config.Server
	scfg.Port = port
	scfg.ShutdownTimeout = 5 * time.Second

	router := httpapi.NewRouter(httpapi.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(Version, append(checkers, b.healthCheckers()...)...),
		Logging:          middleware.LoggingConfig{SkipPaths: probePaths},
		Logger:           cc.Logger.Named("health"),
		MetricsCollector: b.collector,
		Metrics:          b.metrics,
	})
	return httpapi.NewServer(scfg, router, cc.Logger.Named("health"))
}

//Personal.AI order the ending
