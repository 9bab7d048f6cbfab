// Package lexical implements BM25 scoring for backends without a native full-text engine.
package lexical

import (
	"math"
	"strings"
	"unicode"
)

const (
	k1 = 1.2
	b  = 0.75
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "for": {},
	"from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {},
	"this": {}, "to": {}, "was": {}, "what": {}, "with": {},
}

// Tokenize lowercases text, splits on non letter/digit runes and drops stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Scorer computes BM25 over a fixed candidate set.
type Scorer struct {
	docs   [][]string
	df     map[string]int
	avgLen float64
}

func NewScorer(texts []string) *Scorer {
	s := &Scorer{docs: make([][]string, len(texts)), df: map[string]int{}}
	total := 0
	for i, t := range texts {
		toks := Tokenize(t)
		s.docs[i] = toks
		total += len(toks)
		seen := map[string]struct{}{}
		for _, tok := range toks {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			s.df[tok]++
		}
	}
	if len(texts) > 0 {
		s.avgLen = float64(total) / float64(len(texts))
	}
	return s
}

// Score returns the BM25 score of candidate i for query. Zero means no term matched.
func (s *Scorer) Score(i int, query []string) float64 {
	if i < 0 || i >= len(s.docs) || s.avgLen == 0 {
		return 0
	}
	doc := s.docs[i]
	tf := map[string]int{}
	for _, tok := range doc {
		tf[tok]++
	}
	n := float64(len(s.docs))
	dl := float64(len(doc))
	score := 0.0
	for _, q := range uniq(query) {
		f := float64(tf[q])
		if f == 0 {
			continue
		}
		df := float64(s.df[q])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		score += idf * (f * (k1 + 1)) / (f + k1*(1-b+b*dl/s.avgLen))
	}
	return score
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
