// internal/retrieval/gateway.go
package retrieval

import (
	"context"

	"rag-engine/internal/models"
)

// Gateway retrieves ranked passages for a query. Implementations pass
// client/mode-derived filters through to the backend; they never re-rank.
type Gateway interface {
	Search(ctx context.Context, query string, filters map[string]string, maxResults int) ([]models.Passage, error)
}
