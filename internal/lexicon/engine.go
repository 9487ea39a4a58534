package lexicon

import (
	"fmt"

	"resumatch/internal/config"
	"resumatch/internal/keywords"
)

// BuildEngine assembles a keyword engine from the matching settings,
// loading the lexicon file when one is configured. The returned lexicon
// is nil when no file is configured.
func BuildEngine(m config.MatchingConfig) (*keywords.Engine, *Lexicon, error) {
	opts := m.KeywordOptions()

	var lex *Lexicon
	if m.LexiconFile != "" {
		var err error
		lex, err = Load(m.LexiconFile)
		if err != nil {
			return nil, nil, err
		}
		lexOpts, err := lex.Options(StopwordsMode(m.StopwordsMode), m.RestrictToLexicon)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, lexOpts...)
	}

	cfg, err := keywords.NewConfig(opts...)
	if err != nil {
		if lex != nil {
			return nil, nil, fmt.Errorf("lexicon %s: %w", lex.Path, err)
		}
		return nil, nil, err
	}
	return keywords.NewEngine(cfg), lex, nil
}
