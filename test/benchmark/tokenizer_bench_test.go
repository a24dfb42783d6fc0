// Package benchmark contains Go benchmarks for the tokenizer, the term
// weighting engine and the corpus index, measuring throughput and
// allocation behaviour.
package benchmark

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "Quelqu'un a testé la nouvelle extension ? Elle a l'air géniale !",
	"medium": `Après trois parties, je trouve que l'extension rééquilibre bien les factions.
        Les Nains sont moins dominants en début de partie, et la nouvelle carte
        « Forge ancestrale » donne enfin une vraie option aux Elfes. Par contre
        le livret de règles est mal traduit : il faut lire la FAQ en anglais pour
        comprendre les interactions entre les pouvoirs et les objets légendaires.`,
	"long": strings.Repeat(`Le forum regorge de discussions passionnées sur les jeux de plateau,
        les jeux vidéo et le matériel informatique. Chaque sujet accumule des centaines
        de messages, des citations en cascade et une quantité impressionnante de
        smileys. Les membres les plus actifs ont un vocabulaire reconnaissable entre
        mille, que la pondération des termes fait ressortir. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := tokenizer.Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := tokenizer.Tokenize(text)
			_ = tokens
		}
	})
}

func BenchmarkSample(b *testing.B) {
	tokens := tokenizer.Tokenize(sampleTexts["long"])
	rng := rand.New(rand.NewPCG(1, 2))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sampled := tokenizer.Sample(tokens, 0.1, rng)
		_ = sampled
	}
}

func BenchmarkSplitSentences(b *testing.B) {
	text := sampleTexts["long"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		sentences := sentiment.SplitSentences(text)
		_ = sentences
	}
}

func BenchmarkLexiconScore(b *testing.B) {
	lex := sentiment.DefaultLexicon()
	var tok sentiment.WordTokenizer
	sentences := sentiment.SplitSentences(sampleTexts["medium"])
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, s := range sentences {
			_ = lex.Score(tok.Tokenize(s))
		}
	}
}
