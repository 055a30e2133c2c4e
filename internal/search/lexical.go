package search

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/Aman-CERP/docrag/internal/store"
)

// Lexical score weights.
const (
	PhraseMatchBonus = 10
	TitleMatchBonus  = 5
)

// wordPattern matches Unicode word runs so Cyrillic and Latin text tokenize alike.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize lowercases s and returns its word tokens in order.
func Tokenize(s string) []string {
	return wordPattern.FindAllString(strings.ToLower(s), -1)
}

// LexicalScore scores content and title against query:
// PhraseMatchBonus if the whole lowercased query occurs in content, plus the
// occurrence count of each query token in content, plus TitleMatchBonus if
// any token occurs in the title.
func LexicalScore(query, content, title string) int {
	q := strings.ToLower(query)
	return lexicalScore(q, Tokenize(q), strings.ToLower(content), strings.ToLower(title))
}

func lexicalScore(query string, tokens []string, content, title string) int {
	score := 0
	if strings.Contains(content, query) {
		score += PhraseMatchBonus
	}
	for _, tok := range tokens {
		score += strings.Count(content, tok)
	}
	for _, tok := range tokens {
		if strings.Contains(title, tok) {
			score += TitleMatchBonus
			break
		}
	}
	return score
}

type lexicalStrategy struct {
	collection store.Collection
}

func (s lexicalStrategy) mode() Mode { return ModeLexical }

func (s lexicalStrategy) search(ctx context.Context, query string, limit int, filter Filter) ([]RankedResult, error) {
	q := strings.ToLower(query)
	tokens := Tokenize(q)
	where := filter.Where()

	var results []RankedResult
	err := s.collection.Scan(ctx, func(r store.Record) error {
		if !r.Matches(where) {
			return nil
		}
		score := lexicalScore(q, tokens, strings.ToLower(r.Text), strings.ToLower(r.Meta(store.MetaTitle)))
		if score > 0 {
			results = append(results, toResult(r, float64(score)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Scan order is insertion order, so a stable sort breaks ties by it.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
