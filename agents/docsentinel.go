package agents

import (
	"context"
	"fmt"
	"os"

	"github.com/meshworks/taskmesh/knowledge"
	"github.com/meshworks/taskmesh/logging"
)

// DocSentinel maintains the project's documentation index. It ingests
// markdown documents into the knowledge index, answers search queries
// against it, and evicts documents that are gone.
type DocSentinel struct {
	id    string
	index *knowledge.Index
	log   *logging.Logger
}

// DocSentinelConfig wires the documentation index. Index is required.
type DocSentinelConfig struct {
	ID     string
	Index  *knowledge.Index
	Logger *logging.Logger
}

func NewDocSentinel(cfg DocSentinelConfig) (*DocSentinel, error) {
	if cfg.Index == nil {
		return nil, fmt.Errorf("doc sentinel requires a knowledge index")
	}
	if cfg.ID == "" {
		cfg.ID = "doc_sentinel"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default().WithComponent("doc_sentinel")
	}
	return &DocSentinel{id: cfg.ID, index: cfg.Index, log: cfg.Logger}, nil
}

func (a *DocSentinel) ID() string { return a.id }

func (a *DocSentinel) Capabilities() []string {
	return []string{"documentation_indexing", "documentation_search"}
}

func (a *DocSentinel) Process(ctx context.Context, taskID string, params map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	taskType := stringParam(params, "task_type", "search_documentation")

	switch taskType {
	case "index_document":
		return a.indexDocument(params)
	case "index_file":
		return a.indexFile(params)
	case "search_documentation":
		return a.search(params)
	case "remove_document":
		return a.removeDocument(params)
	default:
		return failure(fmt.Sprintf("unsupported task type %q", taskType)), nil
	}
}

func (a *DocSentinel) indexDocument(params map[string]any) (map[string]any, error) {
	name := stringParam(params, "document", "")
	content := stringParam(params, "content", "")
	if name == "" || content == "" {
		return failure("document and content are required for indexing"), nil
	}

	ids, err := a.index.AddDocument(name, content)
	if err != nil {
		return nil, fmt.Errorf("index document %s: %w", name, err)
	}
	a.log.Debug("document indexed", map[string]interface{}{
		"document": name, "chunks": len(ids),
	})
	return success(map[string]any{
		"document":       name,
		"chunks_indexed": len(ids),
	}), nil
}

// indexFile ingests a markdown file from disk under its path name.
func (a *DocSentinel) indexFile(params map[string]any) (map[string]any, error) {
	path := stringParam(params, "path", "")
	if path == "" {
		return failure("path is required for file indexing"), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return failure(fmt.Sprintf("document file %s does not exist", path)), nil
		}
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}

	ids, err := a.index.AddDocument(path, string(content))
	if err != nil {
		return nil, fmt.Errorf("index document %s: %w", path, err)
	}
	return success(map[string]any{
		"document":       path,
		"chunks_indexed": len(ids),
	}), nil
}

func (a *DocSentinel) search(params map[string]any) (map[string]any, error) {
	query := stringParam(params, "query", "")
	if query == "" {
		return failure("query is required for documentation search"), nil
	}
	limit := intParam(params, "limit", 5)

	var (
		hits []knowledge.Hit
		err  error
	)
	if document := stringParam(params, "document", ""); document != "" {
		hits, err = a.index.SearchDocument(query, document, limit)
	} else {
		hits, err = a.index.Search(query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search documentation: %w", err)
	}

	results := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		results = append(results, map[string]any{
			"document": h.Document,
			"section":  h.Section,
			"content":  h.Content,
			"score":    h.Score,
		})
	}
	return success(map[string]any{
		"query":   query,
		"results": results,
	}), nil
}

func (a *DocSentinel) removeDocument(params map[string]any) (map[string]any, error) {
	name := stringParam(params, "document", "")
	if name == "" {
		return failure("document is required for removal"), nil
	}
	if err := a.index.RemoveDocument(name); err != nil {
		return nil, fmt.Errorf("remove document %s: %w", name, err)
	}
	return success(map[string]any{"document": name, "removed": true}), nil
}
