package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resumatch/internal/common"
	"resumatch/internal/types"
)

var matchCmd = &cobra.Command{
	Use:   "match --resume FILE --job FILE",
	Short: "Score a resume against a job description",
	Long: `Extract the keywords of a job description, look for each of them in a
resume, and report the keywords found, the keywords missing and a 0-100 score.

Documents may be PDF, DOCX, HTML, Markdown or plain text.`,
	Args:    cobra.NoArgs,
	PreRunE: resolveFormat(&matchConfig),
	RunE:    runMatch,
}

var (
	matchConfig common.CommandConfig
	matchResume string
	matchJob    string
)

// matchInput is a resume and a job description read from disk
type matchInput struct {
	Resume common.Document
	Job    common.Document
}

func init() {
	matchCmd.Flags().StringVarP(&matchResume, "resume", "r", "", "Resume file")
	matchCmd.Flags().StringVarP(&matchJob, "job", "j", "", "Job description file")
	_ = matchCmd.MarkFlagRequired("resume")
	_ = matchCmd.MarkFlagRequired("job")
	addOutputFlags(matchCmd, &matchConfig)
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if err := common.ValidateDocumentFiles([]string{matchResume}, cfg.Upload.AllowedExtensions); err != nil {
		return err
	}

	engine, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	createInput := func(docs []common.Document) (matchInput, error) {
		if len(docs) != 2 {
			return matchInput{}, fmt.Errorf("expected 2 documents, got %d", len(docs))
		}
		return matchInput{Resume: docs[0], Job: docs[1]}, nil
	}

	logDetails := func(input matchInput, cmdConfig common.CommandConfig) {
		logger.Info("Starting match",
			"resume", input.Resume.Name,
			"job", input.Job.Name,
			"resume_chars", len(input.Resume.Text),
			"job_chars", len(input.Job.Text),
			"output_format", cmdConfig.OutputFormat)
	}

	matchOperation := func(_ context.Context, input matchInput) (types.MatchResponse, error) {
		result, err := engine.Analyze(input.Job.Text, input.Resume.Text)
		if err != nil {
			return types.MatchResponse{}, err
		}
		if len(result.Found)+len(result.Missing) == 0 {
			logger.Warn("No recognizable keywords found in the job description", "job", input.Job.Name)
		}
		return types.NewMatchResponse(result), nil
	}

	result, err := common.RunDocumentCommand(
		cmd.Context(),
		newRunner(cmd, cfg, logger),
		matchConfig,
		[]string{matchResume, matchJob},
		createInput,
		matchOperation,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to match resume: %w", err)
	}

	logger.Info("Match completed", "score", result.Score, "band", result.Band)
	return nil
}
