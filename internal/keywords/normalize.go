package keywords

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// binarySampleRunes is how much of the input is inspected when deciding whether it is text.
const (
	binarySampleRunes    = 1000
	binaryControlPercent = 30
)

// token is one normalized word of the input text.
type token struct {
	text string
	// boundary is set when sentence or list punctuation follows the token.
	// Phrases never span a boundary.
	boundary bool
}

// checkText rejects payloads that are not decodable as text.
func checkText(text string) error {
	if !utf8.ValidString(text) {
		return invalidInput("text is not valid UTF-8")
	}
	if strings.IndexByte(text, 0) >= 0 {
		return invalidInput("text contains NUL bytes, looks like a binary payload")
	}

	var total, control int
	for _, r := range text {
		if total == binarySampleRunes {
			break
		}
		total++
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			control++
		}
	}
	if total > 0 && control*100 > total*binaryControlPercent {
		return invalidInput("text is mostly control characters, looks like a binary payload")
	}
	return nil
}

// tokenize runs the normalization pipeline: NFKC folding, lowercasing,
// punctuation stripping and whitespace splitting.
func tokenize(text string) []token {
	text = strings.ToLower(norm.NFKC.String(text))

	tokens := make([]token, 0, len(text)/6)
	var current strings.Builder

	markBoundary := func() {
		if n := len(tokens); n > 0 {
			tokens[n-1].boundary = true
		}
	}
	flush := func() {
		if current.Len() == 0 {
			return
		}
		raw := current.String()
		current.Reset()

		parts := splitToken(raw)
		if len(parts) == 0 {
			markBoundary()
			return
		}
		// an ellipsis or a stray leading dot ends the previous sentence
		if raw[0] == '.' && parts[0][0] != '.' {
			markBoundary()
		}
		for i, part := range parts {
			tokens = append(tokens, token{text: part})
			if i < len(parts)-1 {
				markBoundary()
			}
		}
		if strings.HasSuffix(raw, ".") {
			markBoundary()
		}
	}

	for _, r := range text {
		switch {
		case isTokenRune(r):
			current.WriteRune(r)
		case r == '\'' || r == '’':
			// developer's -> developers
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			markBoundary()
		}
	}
	flush()

	return tokens
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) ||
		r == '-' || r == '.' || r == '+' || r == '#'
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// dottedSuffixes are the word endings that keep a dot inside or in front of
// a token: node.js, asp.net, socket.io, .net. Any other dot splits the token.
var dottedSuffixes = map[string]struct{}{
	"js": {}, "ts": {}, "net": {}, "io": {},
}

// splitToken keeps internal hyphens (front-end), dots before a known suffix
// (node.js, .net), dots between digits (3.5) and trailing +/# after a word
// (c++, c#). Other punctuation is stripped. A dot that is not kept splits
// the raw token into separate words (Python.SQL, ...Kubernetes).
func splitToken(raw string) []string {
	runes := []rune(raw)
	out := make([]rune, 0, len(runes))
	var parts []string

	cut := func() {
		if len(out) > 0 {
			parts = append(parts, string(out))
			out = out[:0]
		}
	}

	for i, r := range runes {
		var prev, next rune
		if len(out) > 0 {
			prev = out[len(out)-1]
		}
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case isAlnum(r):
			out = append(out, r)
		case r == '-':
			if isAlnum(prev) && isAlnum(next) {
				out = append(out, r)
			}
		case r == '.':
			switch {
			case isAlnum(prev) && isAlnum(next) && keepsDot(prev, runes[i+1:]):
				out = append(out, r)
			case i == 0 && hasDottedSuffix(runes[1:]):
				out = append(out, r)
			default:
				cut()
			}
		case r == '+' || r == '#':
			if isAlnum(prev) || prev == '+' {
				out = append(out, r)
			}
		}
	}
	cut()

	return parts
}

func keepsDot(prev rune, rest []rune) bool {
	if unicode.IsDigit(prev) && unicode.IsDigit(rest[0]) {
		return true
	}
	return hasDottedSuffix(rest)
}

// hasDottedSuffix reports whether the word at the start of rest is a known
// dotted suffix.
func hasDottedSuffix(rest []rune) bool {
	n := 0
	for n < len(rest) && isAlnum(rest[n]) {
		n++
	}
	_, ok := dottedSuffixes[string(rest[:n])]
	return ok
}

// hasLetter reports whether s contains at least one letter. Pure numbers
// ("2024", "5+") are never keywords.
func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// normalizeTerm canonicalizes a configured term (stop-word, phrase, alias)
// with the same pipeline used for input text.
func normalizeTerm(term string, stemming bool) []string {
	tokens := tokenize(term)
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if stemming {
			words = append(words, stem(t.text))
		} else {
			words = append(words, t.text)
		}
	}
	return words
}
