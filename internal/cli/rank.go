package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resumatch/internal/common"
	"resumatch/internal/export"
	"resumatch/internal/keywords"
	"resumatch/internal/types"
)

const defaultRankConcurrency = 4

var rankCmd = &cobra.Command{
	Use:   "rank --job FILE RESUME...",
	Short: "Rank several resumes against one job description",
	Long: `Score every resume against the same job description and order them by
score. Resumes whose text cannot be analyzed are listed last with the reason.

Use --xlsx to also write a spreadsheet with a summary and the ranked list.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: resolveFormat(&rankConfig),
	RunE:    runRank,
}

var (
	rankConfig      common.CommandConfig
	rankJob         string
	rankXLSX        string
	rankConcurrency int
)

// rankInput is a job description and the candidate resumes
type rankInput struct {
	Job     common.Document
	Resumes []common.Document
}

func init() {
	rankCmd.Flags().StringVarP(&rankJob, "job", "j", "", "Job description file")
	rankCmd.Flags().StringVar(&rankXLSX, "xlsx", "", "Also write the ranking to this .xlsx file")
	rankCmd.Flags().IntVar(&rankConcurrency, "concurrency", defaultRankConcurrency, "Documents read in parallel")
	_ = rankCmd.MarkFlagRequired("job")
	addOutputFlags(rankCmd, &rankConfig)
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if err := common.ValidateDocumentFiles(args, cfg.Upload.AllowedExtensions); err != nil {
		return err
	}

	engine, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	createInput := func(docs []common.Document) (rankInput, error) {
		if len(docs) < 2 {
			return rankInput{}, fmt.Errorf("expected a job description and at least 1 resume, got %d documents", len(docs))
		}
		return rankInput{Job: docs[0], Resumes: docs[1:]}, nil
	}

	logDetails := func(input rankInput, cmdConfig common.CommandConfig) {
		logger.Info("Starting ranking",
			"job", input.Job.Name,
			"candidates", len(input.Resumes),
			"output_format", cmdConfig.OutputFormat)
	}

	rankOperation := func(_ context.Context, input rankInput) (types.RankingReport, error) {
		candidates := make([]keywords.Candidate, len(input.Resumes))
		for i, doc := range input.Resumes {
			candidates[i] = keywords.Candidate{Name: doc.Name, Text: doc.Text, Err: doc.Err}
		}
		ranked, err := engine.Rank(input.Job.Text, candidates)
		if err != nil {
			return types.RankingReport{}, err
		}

		if rankXLSX != "" {
			path, err := export.WriteRankingXLSX(rankXLSX, input.Job.Name, ranked)
			if err != nil {
				return types.RankingReport{}, err
			}
			logger.Info("Ranking spreadsheet written", "path", path)
		}
		return types.NewRankingReport(input.Job.Name, ranked), nil
	}

	runner := newRunner(cmd, cfg, logger)
	runner.Concurrency = rankConcurrency
	// the job description must be readable, resumes that are not are ranked last
	runner.Required = 1

	report, err := common.RunDocumentCommand(
		cmd.Context(),
		runner,
		rankConfig,
		append([]string{rankJob}, args...),
		createInput,
		rankOperation,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to rank resumes: %w", err)
	}

	logger.Info("Ranking completed",
		"candidates", report.Summary.Candidates,
		"scored", report.Summary.Scored,
		"failed", report.Summary.Failed)
	return nil
}
