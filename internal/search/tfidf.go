package search

import (
	"math"
	"regexp"
	"strings"
	"sync"
)

var tokenSplitRe = regexp.MustCompile(`[^a-z0-9]+`)

func tokenize(text string) []string {
	parts := tokenSplitRe.Split(strings.ToLower(text), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) > 1 {
			out = append(out, p)
		}
	}
	return out
}

// TFIDF is an optional in-memory relevance scorer, independent of the
// engine's default substring-based scoring (spec §4.6 paragraph 2).
// Document frequency counts never go negative.
type TFIDF struct {
	mu       sync.Mutex
	df       map[string]int
	tf       map[int64]map[string]int
	docCount int
}

// NewTFIDF returns an empty scorer.
func NewTFIDF() *TFIDF {
	return &TFIDF{
		df: make(map[string]int),
		tf: make(map[int64]map[string]int),
	}
}

// IndexDocument tokenizes text and adds it to the index under id,
// replacing any prior indexing of that id.
func (s *TFIDF) IndexDocument(id int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tf[id]; exists {
		s.removeLocked(id)
	}

	terms := tokenize(text)
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	for t := range counts {
		s.df[t]++
	}
	s.tf[id] = counts
	s.docCount++
}

// RemoveDocument drops id from the index.
func (s *TFIDF) RemoveDocument(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *TFIDF) removeLocked(id int64) {
	counts, ok := s.tf[id]
	if !ok {
		return
	}
	for t := range counts {
		s.df[t]--
		if s.df[t] <= 0 {
			delete(s.df, t)
		}
	}
	delete(s.tf, id)
	s.docCount--
}

// Score computes tf*log(N/df) summed over queryTerms for the document at
// id. A term absent from the document or never-seen index-wide
// contributes nothing.
func (s *TFIDF) Score(id int64, queryTerms []string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, ok := s.tf[id]
	if !ok || s.docCount == 0 {
		return 0
	}

	var score float64
	for _, term := range queryTerms {
		tf := counts[term]
		if tf == 0 {
			continue
		}
		df := s.df[term]
		if df == 0 {
			continue
		}
		idf := math.Log(float64(s.docCount) / float64(df))
		score += float64(tf) * idf
	}
	return score
}
