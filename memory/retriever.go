package memory

import (
	"context"
	"strings"
)

// Retrieve implements node.Retriever: joins the top-scoring entries for
// query into a single context block, most relevant first.
func (s *VectorStore) Retrieve(ctx context.Context, query string, limit int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	results := s.Search(query, limit)
	if len(results) == 0 {
		return "", nil
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.Content)
	}
	return b.String(), nil
}
