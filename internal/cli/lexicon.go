package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"resumatch/internal/keywords"
	"resumatch/internal/lexicon"
)

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Work with lexicon files",
}

var lexiconCheckCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a lexicon file against the current matching settings",
	Long: `Parse a YAML or JSON lexicon (stop-words, phrases, aliases, weights or a
skills catalog), build a keyword engine from it with the configured matching
settings, and print a summary. Exits non-zero when the file is invalid.

With --text, also prints the keywords the lexicon extracts from that text.`,
	Args: cobra.ExactArgs(1),
	RunE: runLexiconCheck,
}

var lexiconSample string

func init() {
	lexiconCheckCmd.Flags().StringVar(&lexiconSample, "text", "", "Sample job description text to extract with the lexicon")
	lexiconCmd.AddCommand(lexiconCheckCmd)
}

func runLexiconCheck(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())

	settings := cfg.Matching
	settings.LexiconFile = args[0]
	engine, lex, err := lexicon.BuildEngine(settings)
	if err != nil {
		return fmt.Errorf("lexicon check failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Lexicon: %s\n", lex.Path)
	fmt.Fprintf(out, "  Stop-words: %d (%s)\n", len(lex.Stopwords), settings.StopwordsMode)
	fmt.Fprintf(out, "  Phrases:    %d\n", len(lex.Phrases))
	fmt.Fprintf(out, "  Aliases:    %d\n", len(lex.Aliases))
	fmt.Fprintf(out, "  Weights:    %d\n", len(lex.Weights))
	fmt.Fprintf(out, "  Skills:     %d in %d categories\n", len(lex.Skills), countCategories(lex.Categories))
	if settings.RestrictToLexicon {
		fmt.Fprintln(out, "  Vocabulary restricted to the lexicon")
	}

	if strings.TrimSpace(lexiconSample) != "" {
		set, err := engine.Extract(lexiconSample, keywords.RoleJobDescription)
		if err != nil {
			return fmt.Errorf("failed to extract sample text: %w", err)
		}
		fmt.Fprintf(out, "Sample keywords: %s\n", strings.Join(set.Displays(), ", "))
	}
	fmt.Fprintln(out, "OK")
	return nil
}

func countCategories(categories map[string]string) int {
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		seen[c] = true
	}
	return len(seen)
}
