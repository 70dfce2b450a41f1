// Package mailstore maintains the full-text index over archived email that
// backs history search.
package mailstore

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	"github.com/inboxd/inboxd/pkg/chat"
)

const snippetLength = 200

// Email is one archived message as indexed.
type Email struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Date    string `json:"date"`
}

// Result is one search hit.
type Result struct {
	Author  string
	Subject string
	Snippet string
	Score   float64
}

// Index wraps the bleve index holding the archive.
type Index struct {
	index bleve.Index
}

// Open opens the index at path, creating it on first use.
func Open(path string) (*Index, error) {
	index, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(path, buildMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("opening mail index: %w", err)
	}
	return &Index{index: index}, nil
}

// OpenMemOnly builds an in-memory index, used by tests and ephemeral runs.
func OpenMemOnly() (*Index, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("creating mail index: %w", err)
	}
	return &Index{index: index}, nil
}

func buildMapping() mapping.IndexMapping {
	indexMapping := mapping.NewIndexMapping()

	docMapping := mapping.NewDocumentMapping()
	for _, field := range []string{"author", "to", "subject", "body"} {
		textField := mapping.NewTextFieldMapping()
		textField.Analyzer = "en"
		docMapping.AddFieldMappingsAt(field, textField)
	}
	docMapping.AddFieldMappingsAt("date", mapping.NewTextFieldMapping())

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func (ix *Index) Close() error {
	return ix.index.Close()
}

// Add indexes the given emails in one batch. Emails without an ID get one
// assigned.
func (ix *Index) Add(emails ...Email) error {
	batch := ix.index.NewBatch()
	for i := range emails {
		if emails[i].ID == "" {
			emails[i].ID = uuid.NewString()
		}
		if err := batch.Index(emails[i].ID, emails[i]); err != nil {
			return fmt.Errorf("indexing email %s: %w", emails[i].ID, err)
		}
	}
	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("writing index batch: %w", err)
	}
	return nil
}

// Count returns the number of indexed emails.
func (ix *Index) Count() (uint64, error) {
	return ix.index.DocCount()
}

// Search matches text against author, subject and body and returns up to
// limit hits, best first.
func (ix *Index) Search(text string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	queries := make([]query.Query, 0, 3)
	for _, field := range []string{"author", "subject", "body"} {
		q := bleve.NewMatchQuery(text)
		q.SetField(field)
		queries = append(queries, q)
	}

	request := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	request.Size = limit
	request.Fields = []string{"author", "subject", "body"}

	results, err := ix.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("searching mail index: %w", err)
	}

	hits := make([]Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		hits = append(hits, Result{
			Author:  fieldString(hit.Fields, "author"),
			Subject: fieldString(hit.Fields, "subject"),
			Snippet: chat.Truncate(fieldString(hit.Fields, "body"), snippetLength),
			Score:   hit.Score,
		})
	}
	return hits, nil
}

func fieldString(fields map[string]any, key string) string {
	if s, ok := fields[key].(string); ok {
		return s
	}
	return ""
}
