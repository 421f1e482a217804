package kb

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// DefaultK is the number of documents surfaced when the caller has no
	// preference.
	DefaultK = 6

	snippetWindow  = 300
	snippetLead    = 120
	titleBonusCap  = 1.0
	titleBonusUnit = 0.2
)

var termPattern = regexp.MustCompile(`[a-z0-9_]+`)

// Retriever scores documents against a free-text query using phrase, title
// and body term overlap.
type Retriever struct {
	store *Store
}

func NewRetriever(store *Store) *Retriever {
	return &Retriever{store: store}
}

// Retrieve returns the k best-matching documents with a snippet each,
// ordered by descending score. Ties keep document order. A nil namespace set
// means no filtering; k <= 0 returns nothing.
func (r *Retriever) Retrieve(query string, k int, namespaces map[string]bool) []RetrievedSnippet {
	if k <= 0 {
		return []RetrievedSnippet{}
	}

	docs := r.store.Load()
	if len(namespaces) > 0 {
		filtered := make([]Document, 0, len(docs))
		for _, doc := range docs {
			if namespaces[doc.Namespace] {
				filtered = append(filtered, doc)
			}
		}
		docs = filtered
	}

	queryLower := strings.ToLower(query)
	terms := tokenize(queryLower)

	type scored struct {
		doc   Document
		score float64
	}
	ranked := make([]scored, 0, len(docs))
	for _, doc := range docs {
		ranked = append(ranked, scored{doc: doc, score: scoreDocument(doc, queryLower, terms)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if k > len(ranked) {
		k = len(ranked)
	}

	out := make([]RetrievedSnippet, 0, k)
	for _, entry := range ranked[:k] {
		out = append(out, RetrievedSnippet{
			Document: entry.doc,
			Snippet:  extractSnippet(entry.doc.Body, terms),
			Score:    entry.score,
		})
	}
	return out
}

// tokenize splits a lowercased query into alphanumeric/underscore terms
// longer than one character, falling back to whitespace splitting when the
// query has no such terms.
func tokenize(queryLower string) []string {
	matches := termPattern.FindAllString(queryLower, -1)
	terms := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 {
			terms = append(terms, m)
		}
	}
	if len(terms) == 0 {
		terms = strings.Fields(queryLower)
	}
	return terms
}

func scoreDocument(doc Document, queryLower string, terms []string) float64 {
	titleLower := strings.ToLower(doc.Title)
	haystack := titleLower + " " + strings.ToLower(doc.Body)

	var score float64
	if queryLower != "" && strings.Contains(haystack, queryLower) {
		score += 2.5
	}
	for _, term := range terms {
		if strings.Contains(titleLower, term) {
			score += 1.5
		}
		if strings.Contains(haystack, term) {
			score += 1.0
		}
	}

	// Tiny tiebreaker favoring documents with substantive titles
	norm := float64(len(doc.Title)) / 100
	if norm > titleBonusCap {
		norm = titleBonusCap
	}
	score += norm * titleBonusUnit

	return score
}

// extractSnippet centers a window of body text near the first query-term
// occurrence, checking terms in query order.
func extractSnippet(body string, terms []string) string {
	if body == "" {
		return ""
	}

	bodyLower := strings.ToLower(body)
	pos := 0
	for _, term := range terms {
		if idx := strings.Index(bodyLower, term); idx >= 0 {
			pos = idx
			break
		}
	}

	start := pos - snippetLead
	if start < 0 {
		start = 0
	}
	end := start + snippetWindow
	if end > len(body) {
		end = len(body)
	}
	return strings.TrimSpace(body[start:end])
}
