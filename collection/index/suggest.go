package index

import (
	"context"
	"sort"
	"strings"

	bleve "github.com/blevesearch/bleve/v2"
)

// Suggest returns films and series whose name, alternate name or people
// start with or resemble term, best match first.
func (b *Index) Suggest(ctx context.Context, term string, size int) ([]Hit, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}

	const (
		boostNameExact       = 50.0 // strongest: exact match on name_exact field
		boostNamePhrase      = 12.0 // exact phrase in name
		boostNamePrefix      = 6.0  // prefix on whole query against name
		boostNameTokenPrefix = 5.0  // prefix on first token against name
		boostNameField       = 3.0  // fuzzy/prefix on name tokens
		boostOtherFields     = 1.0
	)

	boolQuery := bleve.NewBooleanQuery()

	termExact := bleve.NewTermQuery(term)
	termExact.SetField(NameExactField)
	termExact.SetBoost(boostNameExact)
	boolQuery.AddShould(termExact)

	matchPhrase := bleve.NewMatchPhraseQuery(term)
	matchPhrase.SetField(nameField)
	matchPhrase.SetBoost(boostNamePhrase)
	boolQuery.AddShould(matchPhrase)

	// "before sun" -> "Before Sunrise"
	prefixFull := bleve.NewPrefixQuery(term)
	prefixFull.SetField(NameExactField)
	prefixFull.SetBoost(boostNamePrefix)
	boolQuery.AddShould(prefixFull)

	tokens := strings.Fields(term)
	if len(tokens) > 0 {
		prefixFirst := bleve.NewPrefixQuery(tokens[0])
		prefixFirst.SetField(nameField)
		prefixFirst.SetBoost(boostNameTokenPrefix)
		boolQuery.AddShould(prefixFirst)
	}

	for _, tok := range tokens {
		for _, f := range []string{nameField, altNameField, peopleField} {
			boost := boostOtherFields
			if f == nameField {
				boost = boostNameField
			}

			fq := bleve.NewFuzzyQuery(tok)
			fq.SetField(f)
			fq.SetFuzziness(fuzziness(tok))
			fq.SetBoost(boost)
			boolQuery.AddShould(fq)

			// partial typing
			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f)
			pq.SetBoost(boost)
			boolQuery.AddShould(pq)
		}
	}
	boolQuery.SetMinShould(1)

	return b.run(ctx, bleve.NewSearchRequestOptions(boolQuery, size, 0, false))
}

// SuggestPerson returns the distinct names of directors and stars matching
// name, sorted alphabetically.
func (b *Index) SuggestPerson(ctx context.Context, name string, size int) ([]string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}

	const (
		boostExactPhrase = 20.0
		boostMatchQuery  = 10.0
		boostPrefix      = 8.0
		boostFuzzy       = 3.0
	)

	boolQuery := bleve.NewBooleanQuery()

	phraseQuery := bleve.NewMatchPhraseQuery(name)
	phraseQuery.SetField(peopleField)
	phraseQuery.SetBoost(boostExactPhrase)
	boolQuery.AddShould(phraseQuery)

	matchQuery := bleve.NewMatchQuery(name)
	matchQuery.SetField(peopleField)
	matchQuery.SetBoost(boostMatchQuery)
	boolQuery.AddShould(matchQuery)

	for tok := range strings.FieldsSeq(name) {
		if len(tok) < 2 {
			continue
		}
		fuzzyQuery := bleve.NewFuzzyQuery(tok)
		fuzzyQuery.SetField(peopleField)
		fuzzyQuery.SetFuzziness(fuzziness(tok))
		fuzzyQuery.SetBoost(boostFuzzy)
		boolQuery.AddShould(fuzzyQuery)

		prefixQuery := bleve.NewPrefixQuery(tok)
		prefixQuery.SetField(peopleField)
		prefixQuery.SetBoost(boostPrefix)
		boolQuery.AddShould(prefixQuery)
	}
	boolQuery.SetMinShould(1)

	req := bleve.NewSearchRequestOptions(boolQuery, size, 0, false)
	req.Fields = []string{peopleField}
	req.SortBy([]string{"-_score"})
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, hit := range res.Hits {
		for _, person := range stringSlice(hit.Fields[peopleField]) {
			if matchesName(person, name) {
				seen[person] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// stringSlice converts a stored field value to []string. bleve returns a
// single string for one-element arrays.
func stringSlice(field any) []string {
	switch v := field.(type) {
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case string:
		return []string{v}
	}
	return nil
}

// matchesName returns true if every token of term is a prefix of a token
// of name.
func matchesName(name, term string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, term) {
		return true
	}
	nameTokens := strings.Fields(lower)
	for _, t := range strings.Fields(term) {
		found := false
		for _, n := range nameTokens {
			if strings.HasPrefix(n, t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
