// Package sentiment splits messages into sentences and scores them against
// a word lexicon.
package sentiment

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Tokenizer turns a sentence into words.
type Tokenizer interface {
	Tokenize(sentence string) []string
}

// Scorer rates a tokenized sentence: negative, zero or positive.
type Scorer interface {
	Score(tokens []string) float64
}

var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?\n]+`)

// SplitSentences returns the delimiter-terminated fragments of message,
// trimmed, without empty ones. Trailing text with no delimiter is dropped.
func SplitSentences(message string) []string {
	matches := sentencePattern.FindAllString(message, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(m); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// WordTokenizer keeps runs of letters and digits, lower-cased with French
// rules. Punctuation, emoticons and apostrophes act as separators.
type WordTokenizer struct{}

func (WordTokenizer) Tokenize(sentence string) []string {
	fields := strings.FieldsFunc(sentence, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return nil
	}
	lower := cases.Lower(language.French)
	for i, f := range fields {
		fields[i] = lower.String(f)
	}
	return fields
}

// Lexicon scores a sentence as the mean polarity of its tokens; unknown
// words count as zero.
type Lexicon map[string]float64

func (l Lexicon) Score(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, tok := range tokens {
		sum += l[tok]
	}
	return sum / float64(len(tokens))
}

// LoadLexicon reads a YAML mapping of word to polarity.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}

func ParseLexicon(data []byte) (Lexicon, error) {
	raw := make(map[string]float64)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}
	lower := cases.Lower(language.French)
	lex := make(Lexicon, len(raw))
	for word, score := range raw {
		lex[lower.String(strings.TrimSpace(word))] = score
	}
	return lex, nil
}

// DefaultLexicon is a small built-in French polarity list.
func DefaultLexicon() Lexicon {
	lex, err := ParseLexicon([]byte(defaultLexicon))
	if err != nil {
		panic(err)
	}
	return lex
}

const defaultLexicon = `
bien: 1
bon: 1
bonne: 1
super: 1
génial: 1
excellent: 1
merci: 1
parfait: 1
cool: 0.5
top: 0.5
sympa: 0.5
content: 1
heureux: 1
aime: 1
adore: 1
bravo: 1
beau: 1
belle: 1
mal: -1
mauvais: -1
mauvaise: -1
nul: -1
nulle: -1
horrible: -1
déteste: -1
pire: -1
triste: -1
honte: -1
dommage: -0.5
problème: -0.5
bug: -0.5
chiant: -1
naze: -1
merde: -1
`
