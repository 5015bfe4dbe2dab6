// internal/retrieval/elastic.go
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"rag-engine/internal/common/logger"
	"rag-engine/internal/models"
)

const (
	defaultMaxResults = 5
	maxResultsCap     = 50
)

// ElasticGateway searches a passage index. Documents carry the passage text
// in content plus flat attribution fields.
type ElasticGateway struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticGateway(client *elasticsearch.Client, index string, log logger.Logger) *ElasticGateway {
	return &ElasticGateway{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "retrieval"}),
	}
}

type passageDocument struct {
	Content  string `json:"content"`
	ClientID string `json:"client_id,omitempty"`
	Industry string `json:"industry,omitempty"`
	Document string `json:"document,omitempty"`
	Year     string `json:"year,omitempty"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64         `json:"_score"`
			Source passageDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs the bool query and maps the hits onto passages in rank order.
func (g *ElasticGateway) Search(ctx context.Context, query string, filters map[string]string, maxResults int) ([]models.Passage, error) {
	req, err := BuildSearchRequest(g.index, query, filters, maxResults)
	if err != nil {
		return nil, err
	}

	res, err := req.Do(ctx, g.client)
	if err != nil {
		return nil, fmt.Errorf("passage search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("passage search failed: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	passages := make([]models.Passage, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		passages = append(passages, toPassage(hit.Source, hit.Score))
	}

	g.logger.Debug("passages retrieved", map[string]interface{}{
		"count": len(passages),
		"index": g.index,
	})
	return passages, nil
}

// BuildSearchRequest assembles the search: a multi_match over content and
// document title, with term filters applied in sorted key order so the
// request body is deterministic for identical inputs.
func BuildSearchRequest(index, query string, filters map[string]string, maxResults int) (*esapi.SearchRequest, error) {
	if index == "" {
		return nil, fmt.Errorf("passage index is required")
	}

	size := maxResults
	if size <= 0 {
		size = defaultMaxResults
	}
	if size > maxResultsCap {
		size = maxResultsCap
	}

	mustClauses := []interface{}{}
	if strings.TrimSpace(query) != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"content^2", "document"},
				"type":   "best_fields",
			},
		})
	} else {
		mustClauses = append(mustClauses, map[string]interface{}{
			"match_all": map[string]interface{}{},
		})
	}

	filterClauses := []interface{}{}
	for _, field := range sortedKeys(filters) {
		if filters[field] == "" {
			continue
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{field: filters[field]},
		})
	}

	boolQuery := map[string]interface{}{"must": mustClauses}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	return &esapi.SearchRequest{
		Index: []string{index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}, nil
}

func toPassage(doc passageDocument, score float64) models.Passage {
	metadata := make(map[string]string, 4)
	if doc.ClientID != "" {
		metadata["client_id"] = doc.ClientID
	}
	if doc.Industry != "" {
		metadata["industry"] = doc.Industry
	}
	if doc.Document != "" {
		metadata["document"] = doc.Document
	}
	if doc.Year != "" {
		metadata["year"] = doc.Year
	}
	return models.Passage{Content: doc.Content, Score: score, Metadata: metadata}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
