// Package knowledge maintains a searchable index over design documents
// so agents can ground their output in project lore. Documents are
// split into heading-aware chunks and indexed with Bleve for BM25
// retrieval.
package knowledge

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"
)

// Index is the document store agents query.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index

	chunkSize int
}

// Config configures the index.
type Config struct {
	// IndexPath is the on-disk index location. Empty keeps the index
	// in memory.
	IndexPath string

	// ChunkSize is the target chunk length in characters.
	ChunkSize int
}

// Hit is one search result.
type Hit struct {
	ID       string  `json:"id"`
	Document string  `json:"document"`
	Section  string  `json:"section"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

type chunkDocument struct {
	Document  string    `json:"document"`
	Section   string    `json:"section"`
	Content   string    `json:"content"`
	IndexedAt time.Time `json:"indexed_at"`
}

// NewIndex opens or creates the index.
func NewIndex(cfg Config) (*Index, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1200
	}

	var idx bleve.Index
	var err error

	switch {
	case cfg.IndexPath == "":
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	default:
		if _, statErr := os.Stat(cfg.IndexPath); os.IsNotExist(statErr) {
			idx, err = bleve.New(cfg.IndexPath, buildIndexMapping())
		} else {
			idx, err = bleve.Open(cfg.IndexPath)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open knowledge index: %w", err)
	}

	return &Index{index: idx, chunkSize: cfg.ChunkSize}, nil
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	chunkMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	dateFieldMapping := bleve.NewDateTimeFieldMapping()

	chunkMapping.AddFieldMappingsAt("content", textFieldMapping)
	chunkMapping.AddFieldMappingsAt("section", textFieldMapping)
	chunkMapping.AddFieldMappingsAt("document", keywordFieldMapping)
	chunkMapping.AddFieldMappingsAt("indexed_at", dateFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = chunkMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// AddDocument chunks and indexes a document, returning the chunk IDs.
// Re-adding a document name appends new chunks; call RemoveDocument
// first to replace it.
func (x *Index) AddDocument(name, text string) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	batch := x.index.NewBatch()
	var ids []string
	now := time.Now()

	for _, section := range splitSections(text) {
		for _, content := range chunkText(section.body, x.chunkSize) {
			id := uuid.NewString()
			doc := chunkDocument{
				Document:  name,
				Section:   section.title,
				Content:   content,
				IndexedAt: now,
			}
			if err := batch.Index(id, doc); err != nil {
				return nil, fmt.Errorf("index chunk: %w", err)
			}
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		return nil, nil
	}
	if err := x.index.Batch(batch); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return ids, nil
}

// RemoveDocument deletes all chunks of a named document.
func (x *Index) RemoveDocument(name string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	termQuery := bleve.NewTermQuery(name)
	termQuery.SetField("document")
	searchReq := bleve.NewSearchRequest(termQuery)
	searchReq.Size = 100000

	result, err := x.index.Search(searchReq)
	if err != nil {
		return fmt.Errorf("find chunks of %s: %w", name, err)
	}

	batch := x.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	return x.index.Batch(batch)
}

// Search returns the best matching chunks for a query.
func (x *Index) Search(queryText string, limit int) ([]Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}

	matchQuery := bleve.NewMatchQuery(queryText)
	searchReq := bleve.NewSearchRequest(matchQuery)
	searchReq.Size = limit
	searchReq.Fields = []string{"document", "section", "content"}

	result, err := x.index.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var hits []Hit
	for _, h := range result.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields["document"].(string); ok {
			hit.Document = v
		}
		if v, ok := h.Fields["section"].(string); ok {
			hit.Section = v
		}
		if v, ok := h.Fields["content"].(string); ok {
			hit.Content = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// SearchDocument restricts Search to one document name.
func (x *Index) SearchDocument(queryText, document string, limit int) ([]Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}

	matchQuery := bleve.NewMatchQuery(queryText)
	docQuery := bleve.NewTermQuery(document)
	docQuery.SetField("document")

	boolQuery := bleve.NewBooleanQuery()
	boolQuery.AddMust(matchQuery)
	boolQuery.AddMust(docQuery)

	searchReq := bleve.NewSearchRequest(boolQuery)
	searchReq.Size = limit
	searchReq.Fields = []string{"document", "section", "content"}

	result, err := x.index.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var hits []Hit
	for _, h := range result.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields["document"].(string); ok {
			hit.Document = v
		}
		if v, ok := h.Fields["section"].(string); ok {
			hit.Section = v
		}
		if v, ok := h.Fields["content"].(string); ok {
			hit.Content = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DocCount returns the number of indexed chunks.
func (x *Index) DocCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.DocCount()
}

// Close closes the underlying index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Close()
}
