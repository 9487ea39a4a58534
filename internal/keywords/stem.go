package keywords

import (
	"strings"
	"unicode"
)

// minStemLength protects short acronyms such as aws, sas, ios.
const minStemLength = 4

// singularS lists words that end in "s" without being plurals.
var singularS = map[string]struct{}{
	"kubernetes": {}, "jenkins": {}, "devops": {}, "analytics": {}, "statistics": {},
	"economics": {}, "mathematics": {}, "physics": {}, "robotics": {}, "graphics": {},
	"logistics": {}, "news": {}, "series": {}, "sales": {}, "ethics": {},
	"redis": {}, "tennis": {}, "iris": {}, "this": {},
}

// stem folds plural forms onto their singular. It deliberately stops there:
// "experienced" and "experience" stay distinct keywords.
func stem(word string) string {
	if i := strings.LastIndexByte(word, '-'); i >= 0 && i < len(word)-1 {
		return word[:i+1] + stem(word[i+1:])
	}
	if len(word) < minStemLength || !isPlainWord(word) {
		return word
	}
	if _, ok := singularS[word]; ok {
		return word
	}

	switch {
	case strings.HasSuffix(word, "ies") && len(word) > minStemLength:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"),
		strings.HasSuffix(word, "xes"),
		strings.HasSuffix(word, "ches"),
		strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "zzes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"),
		strings.HasSuffix(word, "us"),
		strings.HasSuffix(word, "sis"),
		strings.HasSuffix(word, "xis"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

func isPlainWord(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
