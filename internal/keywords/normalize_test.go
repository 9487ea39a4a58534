package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tokenTexts(tokens []token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.text
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "lowercase and punctuation",
			input:    "Python, SQL!",
			expected: []string{"python", "sql"},
		},
		{
			name:     "technical tokens survive",
			input:    "C++ and C# with Node.js.",
			expected: []string{"c++", "and", "c#", "with", "node.js"},
		},
		{
			name:     "leading dot framework",
			input:    ".NET developer",
			expected: []string{".net", "developer"},
		},
		{
			name:     "internal hyphen kept",
			input:    "front-end - back-end",
			expected: []string{"front-end", "back-end"},
		},
		{
			name:     "bullets and line breaks",
			input:    "• Go\n• Docker\r\n\t▪ AWS",
			expected: []string{"go", "docker", "aws"},
		},
		{
			name:     "apostrophes are dropped",
			input:    "Bachelor's degree",
			expected: []string{"bachelors", "degree"},
		},
		{
			name:     "ligatures from pdf extraction",
			input:    "ﬁnance ofﬁce",
			expected: []string{"finance", "office"},
		},
		{
			name:     "slash separated list",
			input:    "CI/CD",
			expected: []string{"ci", "cd"},
		},
		{
			name:     "ellipsis from pdf extraction",
			input:    "We need ...Kubernetes experts",
			expected: []string{"we", "need", "kubernetes", "experts"},
		},
		{
			name:     "missing space after a period",
			input:    "Skills: Python.SQL and Go",
			expected: []string{"skills", "python", "sql", "and", "go"},
		},
		{
			name:     "empty input",
			input:    "   ",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tokenTexts(tokenize(tt.input)))
		})
	}
}

func TestTokenizeBoundaries(t *testing.T) {
	tokens := tokenize("Machine learning, data. Python\nSQL")

	boundaries := make([]bool, len(tokens))
	for i, tok := range tokens {
		boundaries[i] = tok.boundary
	}

	assert.Equal(t, []string{"machine", "learning", "data", "python", "sql"}, tokenTexts(tokens))
	assert.Equal(t, []bool{false, true, true, false, false}, boundaries)

	tokens = tokenize("Machine...learning Python.SQL")
	boundaries = make([]bool, len(tokens))
	for i, tok := range tokens {
		boundaries[i] = tok.boundary
	}
	assert.Equal(t, []string{"machine", "learning", "python", "sql"}, tokenTexts(tokens))
	assert.Equal(t, []bool{true, false, true, false}, boundaries)
}

func TestSplitToken(t *testing.T) {
	tests := map[string][]string{
		"c++":           {"c++"},
		"e.g.":          {"e", "g"},
		"--":            nil,
		"-python-":      {"python"},
		"node.js.":      {"node.js"},
		"+#":            nil,
		"asp.net":       {"asp.net"},
		"socket.io":     {"socket.io"},
		".net":          {".net"},
		"front-end":     {"front-end"},
		"3.5":           {"3.5"},
		"...kubernetes": {"kubernetes"},
		".kubernetes":   {"kubernetes"},
		"python.sql":    {"python", "sql"},
		"go...rust":     {"go", "rust"},
	}

	for input, expected := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, expected, splitToken(input))
		})
	}
}

func TestCheckText(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
	}{
		{name: "plain text", input: "Go developer"},
		{name: "unicode text", input: "Développeur Go à Paris"},
		{name: "invalid utf8", input: "\xff\xfe\xfd", expectError: true},
		{name: "nul byte", input: "abc\x00def", expectError: true},
		{name: "control characters", input: "\x01\x02\x03\x04ab", expectError: true},
		{name: "few control characters", input: "a normal sentence\x07", expectError: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkText(tt.input)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"technologies": "technology",
		"databases":    "database",
		"processes":    "process",
		"boxes":        "box",
		"matches":      "match",
		"skills":       "skill",
		"analysis":     "analysis",
		"apis":         "api",
		"redis":        "redis",
		"status":       "status",
		"class":        "class",
		"aws":          "aws",
		"kubernetes":   "kubernetes",
		"experienced":  "experienced",
		"experience":   "experience",
		"front-ends":   "front-end",
		"node.js":      "node.js",
	}

	for input, expected := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, expected, stem(input))
		})
	}
}

func BenchmarkTokenize(b *testing.B) {
	text := "Looking for a Senior Go developer with 5+ years of experience in distributed systems, " +
		"Kubernetes, AWS and PostgreSQL. Experience with machine learning pipelines is a plus.\n"
	for b.Loop() {
		tokenize(text)
	}
}
