package index

import (
	"context"
	"strings"

	bleve "github.com/blevesearch/bleve/v2"
)

// Similar returns items resembling doc: sharing name tokens, genres,
// keywords or people. doc itself and its siblings in the same series are
// left out.
func (b *Index) Similar(ctx context.Context, doc Document, size int) ([]Hit, error) {
	if b == nil || b.index == nil || doc.ID == "" {
		return nil, ErrInvalidDocument
	}

	const (
		boostNameToken = 3.0
		boostPeople    = 2.0
		boostGenre     = 2.0
		boostKeyword   = 1.5
		boostOverview  = 0.5
	)

	boolQuery := bleve.NewBooleanQuery()

	termSelf := bleve.NewTermQuery(doc.ID)
	termSelf.SetField(idField)
	boolQuery.AddMustNot(termSelf)

	if doc.ParentID != "" {
		siblings := bleve.NewTermQuery(doc.ParentID)
		siblings.SetField(parentIDField)
		boolQuery.AddMustNot(siblings)
	}

	for _, tok := range strings.Fields(strings.ToLower(doc.Name)) {
		if len(tok) < 3 {
			continue
		}
		fq := bleve.NewFuzzyQuery(tok)
		fq.SetField(nameField)
		fq.SetFuzziness(fuzziness(tok))
		fq.SetBoost(boostNameToken)
		boolQuery.AddShould(fq)
	}

	for _, g := range doc.Genres {
		if g == "" {
			continue
		}
		tq := bleve.NewTermQuery(strings.ToLower(g))
		tq.SetField(genresField)
		tq.SetBoost(boostGenre)
		boolQuery.AddShould(tq)
	}

	for _, k := range doc.Keywords {
		if k == "" {
			continue
		}
		kq := bleve.NewTermQuery(strings.ToLower(k))
		kq.SetField(keywordsField)
		kq.SetBoost(boostKeyword)
		boolQuery.AddShould(kq)
	}

	for _, p := range doc.People {
		if p == "" {
			continue
		}
		pq := bleve.NewMatchPhraseQuery(p)
		pq.SetField(peopleField)
		pq.SetBoost(boostPeople)
		boolQuery.AddShould(pq)
	}

	if doc.Description != "" {
		dq := bleve.NewMatchQuery(doc.Description)
		dq.SetField(descriptionField)
		dq.SetBoost(boostOverview)
		boolQuery.AddShould(dq)
	}
	boolQuery.SetMinShould(1)

	return b.run(ctx, bleve.NewSearchRequestOptions(boolQuery, size, 0, false))
}
