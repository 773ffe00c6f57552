// api/schemas/knowledge.go
package schemas

// SearchResult is one scored hit from the knowledge base. Distance is
// cosine distance: lower means more similar.
type SearchResult struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Distance float64           `json:"distance"`
}
