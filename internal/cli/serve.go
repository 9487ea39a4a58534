package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"resumatch/internal/keywords"
	"resumatch/internal/server"
	"resumatch/internal/staging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start an HTTP server that scores resumes against job descriptions.

Available endpoints:
- POST /analyze: Score an uploaded resume file (multipart: resumeFile, jobDescription)
- POST /match: Score resume text against a job description (JSON)
- POST /extract: List the keywords of a text (JSON)
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info
- GET /metrics: Prometheus metrics (when enabled)

The server stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("lexicon", "", "Lexicon file (overrides config)")
	serveCmd.Flags().Bool("watch-lexicon", false, "Reload the lexicon file when it changes")
	serveCmd.Flags().String("storage", "", "Upload staging backend: none, local, s3 (overrides config)")

	bindFlags(serveCmd, map[string]string{
		"port":          "server.port",
		"host":          "server.host",
		"lexicon":       "matching.lexiconFile",
		"watch-lexicon": "matching.watchLexicon",
		"storage":       "storage.backend",
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	engine, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	store, err := staging.New(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize upload staging: %w", err)
	}

	serverCfg := server.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		Version:           Version,
		APIKeys:           cfg.Server.APIKeys,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		MaxRequestSize:    cfg.Server.MaxRequestSize,
		MaxFileSize:       cfg.Upload.MaxFileSize,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		KeepStaged:        cfg.Storage.KeepStaged,
		RateLimit:         &cfg.Server.RateLimit,
	}
	return server.NewServer(cfg, serverCfg, keywords.NewStore(engine), store, logger).Start(ctx)
}
