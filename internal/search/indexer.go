package search

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-preselect/internal/catalog"
)

// Indexer is a BM25 keyword index over catalog records.
// Documents are keyed by group/name, so re-indexing a tool replaces it.
type Indexer struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewIndexer creates a new indexer with in-memory Bleve index.
func NewIndexer() (*Indexer, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &Indexer{
		bleveIndex: index,
		logger:     zap.NewNop(),
	}, nil
}

// SetLogger replaces the indexer's logger.
func (i *Indexer) SetLogger(logger *zap.Logger) {
	if logger != nil {
		i.logger = logger.Named("keyword")
	}
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	toolMapping := bleve.NewDocumentMapping()

	// Name and description: analyzed text
	toolMapping.AddFieldMappingsAt("name", bleve.NewTextFieldMapping())
	toolMapping.AddFieldMappingsAt("description", bleve.NewTextFieldMapping())

	// Group: exact term for filtering
	groupFieldMapping := bleve.NewTextFieldMapping()
	groupFieldMapping.Analyzer = keyword.Name
	groupFieldMapping.IncludeInAll = false
	toolMapping.AddFieldMappingsAt("group", groupFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", toolMapping)

	return indexMapping
}

// IndexRecords indexes the given records in one batch.
func (i *Indexer) IndexRecords(records []catalog.ToolRecord) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()

	for _, record := range records {
		doc := map[string]interface{}{
			"name":        record.Name,
			"description": record.Description,
			"group":       record.Group,
		}

		if err := batch.Index(record.Key(), doc); err != nil {
			i.logger.Warn("failed to index tool", zap.String("tool", record.Key()), zap.Error(err))
		}
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index tools: %w", err)
	}

	return nil
}

// Count returns the total number of indexed tools.
func (i *Indexer) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docCount, err := i.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}

	return docCount, nil
}

// Close closes the index and releases resources.
func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}

	return nil
}

// buildMatchQuery creates a match query over name and description.
func (i *Indexer) buildMatchQuery(searchText string) query.Query {
	return bleve.NewMatchQuery(searchText)
}
