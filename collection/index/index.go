// Package index is an in-memory bleve index of films and series used for
// typeahead suggestions and "more like this" lookups. It does not take part
// in ranked search.
package index

import (
	"context"
	"errors"
	"strings"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Index is the bleve-based quick-search index.
type Index struct {
	index bleve.Index
}

// Document is the document we store in bleve per film or series.
type Document struct {
	// Film or series ID
	ID string `json:"id"`
	// Kind is "film" or "series"
	Kind string `json:"kind"`
	// ParentID is the ID of the series the item belongs to.
	ParentID string `json:"parent_id"`
	Name     string `json:"name"`
	// NameExact is set from Name when indexing, to make exact name match more accurate
	NameExact   string   `json:"name_exact"`
	AltName     string   `json:"alt_name"`
	Description string   `json:"description"`
	Genres      []string `json:"genres"`
	Keywords    []string `json:"keywords"`
	// People holds names of directors and stars
	People []string `json:"people"`
	Year   int      `json:"year"`
}

const (
	idField          = "id"
	kindField        = "kind"
	parentIDField    = "parent_id"
	nameField        = "name"
	NameExactField   = "name_exact"
	altNameField     = "alt_name"
	descriptionField = "description"
	genresField      = "genres"
	keywordsField    = "keywords"
	peopleField      = "people"
	yearField        = "year"
)

// Hit is a single search result.
type Hit struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

var ErrInvalidDocument = errors.New("search index not initialized or invalid document")

// New creates a new in-memory index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{index: idx}, nil
}

// buildIndexMapping builds the bleve field mapping.
func buildIndexMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	// english analyzer: tokenization, lowercasing and stemming
	text := bleve.NewTextFieldMapping()
	text.Analyzer = "en"
	text.Store = false
	text.Index = true

	// stored text for fields we return or post-filter on
	storedText := bleve.NewTextFieldMapping()
	storedText.Analyzer = "en"
	storedText.Store = true
	storedText.Index = true

	// keyword mapping for exact matches like IDs
	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true
	keyword.Index = true

	// genres and keywords are matched as lower-cased whole tags
	tag := bleve.NewTextFieldMapping()
	tag.Analyzer = "keyword"
	tag.Store = false
	tag.Index = true

	year := bleve.NewNumericFieldMapping()
	year.Store = false
	year.Index = true

	doc.AddFieldMappingsAt(idField, keyword)
	doc.AddFieldMappingsAt(kindField, keyword)
	doc.AddFieldMappingsAt(parentIDField, keyword)
	doc.AddFieldMappingsAt(nameField, storedText)
	doc.AddFieldMappingsAt(NameExactField, keyword)
	doc.AddFieldMappingsAt(altNameField, text)
	doc.AddFieldMappingsAt(descriptionField, text)
	doc.AddFieldMappingsAt(genresField, tag)
	doc.AddFieldMappingsAt(keywordsField, tag)
	doc.AddFieldMappingsAt(peopleField, storedText)
	doc.AddFieldMappingsAt(yearField, year)

	m.DefaultMapping = doc
	return m
}

// Index indexes or updates a document.
func (b *Index) Index(ctx context.Context, doc Document) error {
	return b.index.Index(doc.ID, normalize(doc))
}

// IndexBatch indexes a slice of documents in batches.
func (b *Index) IndexBatch(ctx context.Context, docs []Document) error {
	batch := b.index.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, normalize(d)); err != nil {
			return err
		}
		// commit in big batches to avoid huge memory usage
		if batch.Size() > 1000 {
			if err := b.index.Batch(batch); err != nil {
				return err
			}
			batch = b.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		return b.index.Batch(batch)
	}
	return nil
}

// Count returns the number of indexed documents.
func (b *Index) Count() (uint64, error) {
	return b.index.DocCount()
}

// Delete removes a document from the index.
func (b *Index) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the underlying index.
func (b *Index) Close() error {
	return b.index.Close()
}

func (b *Index) run(ctx context.Context, req *bleve.SearchRequest) ([]Hit, error) {
	req.Fields = []string{idField, kindField, nameField}
	req.SortBy([]string{"-_score", idField})

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields[kindField].(string); ok {
			hit.Kind = v
		}
		if v, ok := h.Fields[nameField].(string); ok {
			hit.Name = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// normalize lower-cases the fields that are indexed as keywords.
func normalize(doc Document) Document {
	doc.NameExact = strings.ToLower(doc.Name)
	doc.Genres = lowerAll(doc.Genres)
	doc.Keywords = lowerAll(doc.Keywords)
	return doc
}

func lowerAll(l []string) []string {
	result := make([]string, len(l))
	for i, s := range l {
		result[i] = strings.ToLower(s)
	}
	return result
}

// fuzziness returns the edit distance allowed for a token.
func fuzziness(token string) int {
	if len(token) >= 6 {
		return 2
	}
	return 1
}
