// Package tokenizer turns forum messages into the lower-cased term streams
// the term-weighting engine scores.
package tokenizer

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var separators = regexp.MustCompile(`[\s.,!?():'"\-/]+`)

// Tokenize splits text on whitespace and punctuation, folds case with
// French rules and drops tokens of two runes or fewer and tokens that start
// with a digit.
func Tokenize(text string) []string {
	lower := cases.Lower(language.French)
	parts := separators.Split(text, -1)
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		tok := strings.TrimSpace(lower.String(part))
		if tok == "" || utf8.RuneCountInString(tok) <= 2 {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(tok); unicode.IsDigit(r) {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// TokenizeAll concatenates the tokens of every message in order.
func TokenizeAll(messages []string) []string {
	var tokens []string
	for _, m := range messages {
		tokens = append(tokens, Tokenize(m)...)
	}
	return tokens
}

// Stopwords is a set of terms excluded from document frequency.
type Stopwords map[string]struct{}

// Contains reports whether term is a stop word. A nil set contains nothing.
func (s Stopwords) Contains(term string) bool {
	_, ok := s[term]
	return ok
}

// NewStopwords builds a set from words, folding each one the way Tokenize
// does.
func NewStopwords(words ...string) Stopwords {
	lower := cases.Lower(language.French)
	s := make(Stopwords, len(words))
	for _, w := range words {
		w = strings.TrimSpace(lower.String(w))
		if w != "" {
			s[w] = struct{}{}
		}
	}
	return s
}

// LoadStopwords reads one word per line. Blank lines and lines starting
// with '#' are ignored.
func LoadStopwords(path string) (Stopwords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stopwords %s: %w", path, err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading stopwords %s: %w", path, err)
	}
	return NewStopwords(words...), nil
}

// DefaultStopwords returns the built-in French list. Words of two letters
// or fewer are omitted since Tokenize never emits them.
func DefaultStopwords() Stopwords {
	return NewStopwords(frenchStopwords...)
}

// Sample keeps round(len(tokens)*keepRatio) tokens chosen uniformly without
// replacement, by a partial Fisher-Yates shuffle over a copy. The input is
// left untouched. A ratio >= 1 returns a copy of every token.
func Sample(tokens []string, keepRatio float64, rng *rand.Rand) []string {
	out := make([]string, len(tokens))
	copy(out, tokens)
	if keepRatio >= 1 {
		return out
	}
	if keepRatio <= 0 {
		return out[:0]
	}
	k := int(float64(len(out))*keepRatio + 0.5)
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(out)-i)
		out[i], out[j] = out[j], out[i]
	}
	return out[:k]
}

var frenchStopwords = []string{
	"alors", "au", "aucun", "aussi", "autre", "avant", "avec", "avoir", "bon",
	"car", "cela", "ces", "ceux", "chaque", "comme", "comment", "dans", "des",
	"dedans", "dehors", "depuis", "devrait", "doit", "donc", "dos", "début",
	"elle", "elles", "encore", "est", "était", "étaient", "été", "être",
	"fait", "faites", "fois", "font", "hors", "ici", "ils", "juste", "leur",
	"leurs", "lui", "mais", "mes", "moins", "mon", "même", "nos",
	"notre", "nous", "ont", "par", "parce", "pas", "peut", "peu", "plupart",
	"pour", "pourquoi", "quand", "que", "quel", "quelle", "quelles", "quels",
	"qui", "sans", "ses", "seulement", "sien", "son", "sont", "sous", "soyez",
	"sur", "tandis", "tellement", "tels", "tes", "ton", "tous", "tout",
	"toute", "toutes", "très", "trop", "une", "vos", "votre", "vous",
	"vont", "voient", "ça", "cette", "cet", "avez", "avons",
	"suis", "sera", "serait", "aux", "les", "oui", "non", "rien", "bien",
	"plus", "the", "and", "you", "that", "this", "with", "for", "are",
}
