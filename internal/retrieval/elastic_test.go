// internal/retrieval/elastic_test.go
package retrieval

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-engine/internal/common/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func fakeESClient(t *testing.T, status int, body string) *elasticsearch.Client {
	t.Helper()

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://fake-es:9200"},
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header: http.Header{
					"Content-Type":      []string{"application/json"},
					"X-Elastic-Product": []string{"Elasticsearch"},
				},
			}, nil
		}),
	})
	require.NoError(t, err)
	return client
}

func decodeBody(t *testing.T, r io.Reader) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body
}

// ==========================
// 1. Request Building
// ==========================

func TestBuildSearchRequest_BoolQuery(t *testing.T) {
	req, err := BuildSearchRequest("passages", "market share of yogurt",
		map[string]string{"industry": "dairy_foods", "client_id": "alqueria"}, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"passages"}, req.Index)
	require.NotNil(t, req.Size)
	assert.Equal(t, 5, *req.Size)

	body := decodeBody(t, req.Body)
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})

	must := boolQuery["must"].([]interface{})
	require.Len(t, must, 1)
	multiMatch := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "market share of yogurt", multiMatch["query"])

	// Filters come out in sorted key order.
	filters := boolQuery["filter"].([]interface{})
	require.Len(t, filters, 2)
	first := filters[0].(map[string]interface{})["term"].(map[string]interface{})
	second := filters[1].(map[string]interface{})["term"].(map[string]interface{})
	assert.Equal(t, "alqueria", first["client_id"])
	assert.Equal(t, "dairy_foods", second["industry"])
}

func TestBuildSearchRequest_EmptyQueryMatchesAll(t *testing.T) {
	req, err := BuildSearchRequest("passages", "   ", nil, 5)
	require.NoError(t, err)

	body := decodeBody(t, req.Body)
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	require.Len(t, must, 1)
	assert.Contains(t, must[0].(map[string]interface{}), "match_all")
	assert.NotContains(t, boolQuery, "filter")
}

func TestBuildSearchRequest_SizeBounds(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero takes default", 0, defaultMaxResults},
		{"negative takes default", -3, defaultMaxResults},
		{"in range passes through", 7, 7},
		{"above cap clamps", 500, maxResultsCap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := BuildSearchRequest("passages", "q", nil, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *req.Size)
		})
	}
}

func TestBuildSearchRequest_SkipsEmptyFilterValues(t *testing.T) {
	req, err := BuildSearchRequest("passages", "q", map[string]string{"client_id": "", "industry": "telco"}, 5)
	require.NoError(t, err)

	body := decodeBody(t, req.Body)
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	filters := boolQuery["filter"].([]interface{})
	require.Len(t, filters, 1)
	term := filters[0].(map[string]interface{})["term"].(map[string]interface{})
	assert.Equal(t, "telco", term["industry"])
}

func TestBuildSearchRequest_MissingIndex(t *testing.T) {
	_, err := BuildSearchRequest("", "q", nil, 5)
	assert.Error(t, err)
}

// ==========================
// 2. Search Execution
// ==========================

func TestSearch_ParsesHitsInRankOrder(t *testing.T) {
	responseBody := `{
		"took": 3,
		"hits": {
			"total": {"value": 2, "relation": "eq"},
			"max_score": 1.2,
			"hits": [
				{"_score": 1.2, "_source": {
					"content": "Alpina held 34% of the Colombian yogurt market in 2024.",
					"client_id": "alqueria",
					"industry": "dairy_foods",
					"document": "Dairy Market Review",
					"year": "2024"
				}},
				{"_score": 0.8, "_source": {
					"content": "Colanta grew its refrigerated lines by 8% year over year.",
					"document": "Retail Panel Summary"
				}}
			]
		}
	}`

	gateway := NewElasticGateway(fakeESClient(t, http.StatusOK, responseBody), "passages", logger.NewTestLogger(t))
	passages, err := gateway.Search(context.Background(), "market share of yogurt",
		map[string]string{"client_id": "alqueria"}, 5)
	require.NoError(t, err)
	require.Len(t, passages, 2)

	assert.Contains(t, passages[0].Content, "Alpina held 34%")
	assert.InDelta(t, 1.2, passages[0].Score, 0.0001)
	assert.Equal(t, "Dairy Market Review", passages[0].SourceTitle())
	assert.Equal(t, "2024", passages[0].Metadata["year"])
	assert.Equal(t, "alqueria", passages[0].Metadata["client_id"])

	assert.Contains(t, passages[1].Content, "Colanta grew")
	assert.Equal(t, "Retail Panel Summary", passages[1].SourceTitle())
	assert.NotContains(t, passages[1].Metadata, "year")
}

func TestSearch_EmptyHitSet(t *testing.T) {
	responseBody := `{"took": 1, "hits": {"total": {"value": 0, "relation": "eq"}, "hits": []}}`

	gateway := NewElasticGateway(fakeESClient(t, http.StatusOK, responseBody), "passages", logger.NewTestLogger(t))
	passages, err := gateway.Search(context.Background(), "unheard of topic", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestSearch_ServerError(t *testing.T) {
	gateway := NewElasticGateway(
		fakeESClient(t, http.StatusInternalServerError, `{"error": {"type": "search_phase_execution_exception"}}`),
		"passages", logger.NewTestLogger(t))

	_, err := gateway.Search(context.Background(), "q", nil, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passage search failed")
}

func TestSearch_MalformedResponse(t *testing.T) {
	gateway := NewElasticGateway(fakeESClient(t, http.StatusOK, `{not json`), "passages", logger.NewTestLogger(t))

	_, err := gateway.Search(context.Background(), "q", nil, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode search response")
}
