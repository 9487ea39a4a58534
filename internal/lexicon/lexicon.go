package lexicon

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"resumatch/internal/keywords"
)

// StopwordsMode says how a lexicon's stop-words combine with the built-in list.
type StopwordsMode string

const (
	StopwordsExtend  StopwordsMode = "extend"
	StopwordsReplace StopwordsMode = "replace"
)

// File is the on-disk lexicon format. JSON files parse too, since JSON is
// valid YAML. Skills follows the category -> skill layout of a skills
// catalog; a numeric value is the skill's weight, anything else (such as a
// legacy regex pattern) is ignored.
type File struct {
	Stopwords []string                  `yaml:"stopwords"`
	Phrases   []string                  `yaml:"phrases"`
	Weighted  map[string]float64        `yaml:"weightedPhrases"`
	Aliases   map[string]string         `yaml:"aliases"`
	Weights   map[string]float64        `yaml:"weights"`
	Skills    map[string]map[string]any `yaml:"skills"`
}

// Lexicon is a parsed lexicon file flattened into keyword options.
type Lexicon struct {
	Path      string
	Stopwords []string
	Phrases   map[string]float64
	Aliases   map[string]string
	Weights   map[string]float64
	// Skills is the flattened catalog, sorted.
	Skills []string
	// Categories maps each catalog skill to its category.
	Categories map[string]string
}

// Load reads and parses the lexicon at path.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file %s: %w", path, err)
	}
	lex, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lexicon file %s: %w", path, err)
	}
	lex.Path = path
	return lex, nil
}

// Parse decodes a lexicon document.
func Parse(data []byte) (*Lexicon, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	lex := &Lexicon{
		Stopwords:  slices.Clone(file.Stopwords),
		Phrases:    make(map[string]float64, len(file.Phrases)+len(file.Weighted)),
		Aliases:    maps.Clone(file.Aliases),
		Weights:    maps.Clone(file.Weights),
		Categories: make(map[string]string),
	}
	if lex.Aliases == nil {
		lex.Aliases = map[string]string{}
	}
	if lex.Weights == nil {
		lex.Weights = map[string]float64{}
	}

	for _, p := range file.Phrases {
		lex.Phrases[p] = 0
	}
	maps.Copy(lex.Phrases, file.Weighted)

	for _, category := range slices.Sorted(maps.Keys(file.Skills)) {
		for _, skill := range slices.Sorted(maps.Keys(file.Skills[category])) {
			name := strings.TrimSpace(skill)
			if name == "" {
				return nil, fmt.Errorf("skills category %q contains an empty skill name", category)
			}
			weight, err := skillWeight(file.Skills[category][skill])
			if err != nil {
				return nil, fmt.Errorf("skill %q in category %q: %w", skill, category, err)
			}

			if _, dup := lex.Categories[name]; !dup {
				lex.Skills = append(lex.Skills, name)
			}
			lex.Categories[name] = category

			if len(strings.Fields(name)) > 1 {
				lex.Phrases[name] = weight
			} else if weight > 0 {
				lex.Weights[name] = weight
			}
		}
	}
	slices.Sort(lex.Skills)

	return lex, nil
}

func skillWeight(value any) (float64, error) {
	switch v := value.(type) {
	case nil, string, bool:
		return 0, nil
	case int:
		return positive(float64(v))
	case float64:
		return positive(v)
	default:
		return 0, fmt.Errorf("unsupported skill value of type %T", value)
	}
}

func positive(w float64) (float64, error) {
	if w <= 0 {
		return 0, fmt.Errorf("weight must be positive, got %g", w)
	}
	return w, nil
}

// Options turns the lexicon into keyword options. With restrict set, the
// skills catalog becomes the only vocabulary extracted.
func (l *Lexicon) Options(mode StopwordsMode, restrict bool) ([]keywords.Option, error) {
	var opts []keywords.Option

	switch mode {
	case StopwordsReplace:
		opts = append(opts, keywords.WithStopwords(l.Stopwords...))
	case StopwordsExtend, "":
		if len(l.Stopwords) > 0 {
			opts = append(opts, keywords.WithExtraStopwords(l.Stopwords...))
		}
	default:
		return nil, fmt.Errorf("unknown stopwords mode %q (use %s or %s)", mode, StopwordsExtend, StopwordsReplace)
	}

	if len(l.Phrases) > 0 {
		opts = append(opts, keywords.WithExtraPhrases(l.Phrases))
	}
	if len(l.Aliases) > 0 {
		opts = append(opts, keywords.WithAliases(l.Aliases))
	}
	if len(l.Weights) > 0 {
		opts = append(opts, keywords.WithWeights(l.Weights))
	}
	if restrict {
		if len(l.Skills) == 0 {
			return nil, fmt.Errorf("lexicon restriction requested but %s defines no skills", l.source())
		}
		opts = append(opts, keywords.WithVocabulary(l.Skills...))
	}

	return opts, nil
}

func (l *Lexicon) source() string {
	if l.Path == "" {
		return "the lexicon"
	}
	return l.Path
}
