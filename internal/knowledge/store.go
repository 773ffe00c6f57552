// internal/knowledge/store.go
package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/config"
)

type document struct {
	content  string
	metadata map[string]string
	vector   []float64
}

// Store is an in-memory vector store over chunked page summaries. Writes
// happen once after a crawl; reads are concurrent during planning.
type Store struct {
	mu       sync.RWMutex
	docs     []document
	embedder *Embedder

	chunkSize    int
	chunkOverlap int
	logger       *zap.Logger
}

func NewStore(cfg config.KnowledgeConfig, logger *zap.Logger) *Store {
	return &Store{
		embedder:     NewEmbedder(cfg.Dimensions),
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		logger:       logger.Named("knowledge"),
	}
}

// AddDocument chunks the content and indexes each chunk under the given
// metadata.
func (s *Store) AddDocument(content string, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunkText(content, s.chunkSize, s.chunkOverlap) {
		s.docs = append(s.docs, document{
			content:  chunk,
			metadata: metadata,
			vector:   s.embedder.Embed(chunk),
		})
	}
}

// AddPages summarizes each successfully crawled page into a searchable
// document. Pages that errored during the crawl are skipped.
func (s *Store) AddPages(pages map[string]*schemas.Page) {
	indexed := 0
	for _, page := range pages {
		if page == nil || page.Status != schemas.PageStatusSuccess {
			continue
		}
		s.AddDocument(summarizePage(page), map[string]string{
			"source_url": page.URL,
			"title":      page.Title,
		})
		indexed++
	}
	s.logger.Info("Indexed crawled pages", zap.Int("pages", indexed), zap.Int("chunks", s.Len()))
}

// Search returns up to limit chunks ordered by ascending cosine distance to
// the query.
func (s *Store) Search(_ context.Context, query string, limit int) ([]schemas.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.docs) == 0 {
		return nil, nil
	}

	queryVec := s.embedder.Embed(query)
	results := make([]schemas.SearchResult, 0, len(s.docs))
	for _, doc := range s.docs {
		results = append(results, schemas.SearchResult{
			Content:  doc.content,
			Metadata: doc.metadata,
			Distance: CosineDistance(queryVec, doc.vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// summarizePage flattens the structured page into the text that gets
// embedded: URL, title, form structure, input names, and the leading links
// and headings.
func summarizePage(page *schemas.Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\nTITLE: %s\n", page.URL, page.Title)

	for _, form := range page.Forms {
		fmt.Fprintf(&b, "FORM action=%s method=%s fields=", form.Action, form.Method)
		names := make([]string, 0, len(form.Fields))
		for _, f := range form.Fields {
			names = append(names, f.Name)
		}
		b.WriteString(strings.Join(names, ","))
		b.WriteString("\n")
	}

	if len(page.Inputs) > 0 {
		fmt.Fprintf(&b, "INPUTS: %s\n", strings.Join(page.Inputs, ", "))
	}
	if len(page.Headings) > 0 {
		fmt.Fprintf(&b, "HEADINGS: %s\n", strings.Join(head(page.Headings, 3), " | "))
	}
	if len(page.Links) > 0 {
		fmt.Fprintf(&b, "LINKS: %s\n", strings.Join(head(page.Links, 5), " "))
	}
	return b.String()
}

func head(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

// chunkText splits text into overlapping windows so selector names split
// across a boundary still land intact in at least one chunk.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 || len(text) <= size {
		return []string{text}
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}

	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}
