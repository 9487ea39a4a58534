package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resumatch/internal/common"
	"resumatch/internal/keywords"
	"resumatch/internal/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract --file FILE [--role jd|resume]",
	Short: "List the keywords of a document",
	Long: `Extract the keywords and phrases of a document the way they are used for
scoring. A job description drops the words of a recognized phrase; a resume
keeps them so single-word requirements can still match.`,
	Args:    cobra.NoArgs,
	PreRunE: resolveFormat(&extractConfig),
	RunE:    runExtract,
}

var (
	extractConfig common.CommandConfig
	extractFile   string
	extractRole   string
)

func init() {
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "Document to extract keywords from")
	extractCmd.Flags().StringVar(&extractRole, "role", "jd", "Document role: jd or resume")
	_ = extractCmd.MarkFlagRequired("file")
	addOutputFlags(extractCmd, &extractConfig)

	_ = extractCmd.RegisterFlagCompletionFunc("role", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"jd", "resume"}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	role, err := keywords.ParseRole(extractRole)
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	createInput := func(docs []common.Document) (common.Document, error) {
		if len(docs) != 1 {
			return common.Document{}, fmt.Errorf("expected 1 document, got %d", len(docs))
		}
		return docs[0], nil
	}

	logDetails := func(doc common.Document, cmdConfig common.CommandConfig) {
		logger.Info("Starting keyword extraction",
			"file", doc.Name,
			"role", role.String(),
			"chars", len(doc.Text),
			"output_format", cmdConfig.OutputFormat)
	}

	extractOperation := func(_ context.Context, doc common.Document) (types.KeywordList, error) {
		set, err := engine.Extract(doc.Text, role)
		if err != nil {
			return types.KeywordList{}, err
		}
		return types.NewKeywordList(doc.Name, role, set), nil
	}

	list, err := common.RunDocumentCommand(
		cmd.Context(),
		newRunner(cmd, cfg, logger),
		extractConfig,
		[]string{extractFile},
		createInput,
		extractOperation,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to extract keywords: %w", err)
	}

	logger.Info("Keyword extraction completed", "keywords", list.Count)
	return nil
}
