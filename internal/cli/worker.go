package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"resumatch/internal/keywords"
	"resumatch/internal/lexicon"
	"resumatch/internal/observability"
	"resumatch/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume match jobs from the message queue",
	Long: `Consume JSON match jobs {id, jobDescription, resumeText} from a durable
AMQP queue and publish {id, status, result|error} to the result queue, or to
the reply-to queue of the message when one is set.

Malformed messages are rejected without requeue. The worker stops on SIGINT
or SIGTERM once in-flight jobs are answered.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().String("url", "", "AMQP URL (overrides config)")
	workerCmd.Flags().String("queue", "", "Queue to consume (overrides config)")
	workerCmd.Flags().String("result-queue", "", "Queue to publish results to (overrides config)")
	workerCmd.Flags().IntP("workers", "w", 0, "Number of consumers (overrides config)")
	workerCmd.Flags().String("lexicon", "", "Lexicon file (overrides config)")
	workerCmd.Flags().Bool("watch-lexicon", false, "Reload the lexicon file when it changes")

	bindFlags(workerCmd, map[string]string{
		"url":           "queue.url",
		"queue":         "queue.queue",
		"result-queue":  "queue.resultQueue",
		"workers":       "queue.workers",
		"lexicon":       "matching.lexiconFile",
		"watch-lexicon": "matching.watchLexicon",
	})
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	engine, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	engines := keywords.NewStore(engine)

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	if cfg.Matching.WatchLexicon && cfg.Matching.LexiconFile != "" {
		onReload := func(err error) {
			om.GetMetrics().RecordBusinessMetric(context.Background(), observability.MetricLexiconReload, err == nil,
				attribute.String("file", cfg.Matching.LexiconFile))
		}
		watcher, err := lexicon.NewWatcher(cfg.Matching, engines, onReload, logger)
		if err != nil {
			return fmt.Errorf("failed to create lexicon watcher: %w", err)
		}
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to start lexicon watcher: %w", err)
		}
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.LogError(err, "Failed to stop lexicon watcher")
			}
		}()
	}

	return worker.NewPool(cfg.Queue, engines, om, logger).Run(ctx)
}
