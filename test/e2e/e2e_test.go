// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "rag-engine/internal/common/errors"
	"rag-engine/internal/common/logger"
	"rag-engine/internal/completion"
	"rag-engine/internal/engine"
	"rag-engine/internal/engine/blend"
	"rag-engine/internal/engine/clients"
	"rag-engine/internal/engine/compose"
	"rag-engine/internal/engine/configstore"
	"rag-engine/internal/engine/interpolate"
	"rag-engine/internal/engine/modes"
	"rag-engine/internal/models"
	"rag-engine/internal/retrieval"
)

// The e2e suite wires the whole pipeline in-process: client records and a
// template set loaded from disk, a canned retrieval gateway, and a real
// HTTP completion client against an httptest backend.

const alqueriaRecord = `{
	"client_id": "alqueria",
	"display_name": "Alqueria",
	"industry": "dairy_foods",
	"market": "colombia",
	"attributes": {
		"main_competitors": ["Alpina", "Colanta"],
		"brand_positioning": "family nutrition"
	}
}`

const tigoRecord = `{
	"client_id": "tigo",
	"display_name": "Tigo",
	"industry": "telecommunications",
	"market": "honduras",
	"attributes": {
		"main_competitors": ["Claro", "Hondutel"]
	}
}`

const templateSet = `{
	"version": 1,
	"templates": {
		"pure": "Market brief for {display_name} ({industry}, {market}). Competitors: {main_competitors}.\nQuestion: {query}\nEvidence:\n{retrieved_passages}"
	}
}`

type cannedGateway struct {
	mu       sync.Mutex
	byClient map[string][]models.Passage
}

func (g *cannedGateway) Search(_ context.Context, _ string, filters map[string]string, _ int) ([]models.Passage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.byClient[filters["client_id"]], nil
}

func writeConfigTree(t *testing.T) (templatesPath, clientsDir string) {
	t.Helper()

	root := t.TempDir()
	templatesPath = filepath.Join(root, "templates.json")
	require.NoError(t, os.WriteFile(templatesPath, []byte(templateSet), 0o644))

	clientsDir = filepath.Join(root, "clients")
	require.NoError(t, os.Mkdir(clientsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(clientsDir, "alqueria.json"), []byte(alqueriaRecord), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(clientsDir, "tigo.json"), []byte(tigoRecord), 0o644))
	return templatesPath, clientsDir
}

// completionBackend echoes a canned answer and records received prompts.
type completionBackend struct {
	mu      sync.Mutex
	answer  string
	prompts []string
}

func (b *completionBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		b.prompts = append(b.prompts, req.Prompt)
		b.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]string{"text": b.answer})
	}
}

func (b *completionBackend) receivedPrompts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.prompts))
	copy(out, b.prompts)
	return out
}

func buildPipeline(t *testing.T, gateway retrieval.Gateway, completionURL string) *engine.Engine {
	t.Helper()

	log := logger.NewTestLogger(t)
	catalog, err := modes.NewCatalog(modes.PresetBalanced)
	require.NoError(t, err)

	ids := make([]string, 0)
	for _, spec := range catalog.List() {
		ids = append(ids, spec.ModeID)
	}

	templatesPath, clientsDir := writeConfigTree(t)
	store := configstore.New(configstore.NewFileSource(templatesPath, clientsDir), ids, log)

	ctx := context.Background()
	loaded, err := store.LoadAllClients(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	registry := clients.NewRegistry()
	require.NoError(t, registry.ReplaceAll(loaded))

	templates, err := store.LoadBaseTemplates(ctx)
	require.NoError(t, err)

	interp := interpolate.New(interpolate.PolicyStrict, ", ", log)
	completer := completion.NewHTTPCompleter(completion.Options{
		BaseURL:   completionURL,
		Model:     "test-model",
		MaxTokens: 512,
		Timeout:   5 * time.Second,
	}, log)

	return engine.New(registry, catalog, compose.New(templates, interp),
		gateway, completer, blend.New(0.5),
		engine.Options{BackoffInitial: time.Millisecond}, log, nil)
}

// ==========================
// 1. Full Pipeline
// ==========================

func TestE2E_AnswerFlow(t *testing.T) {
	gateway := &cannedGateway{byClient: map[string][]models.Passage{
		"alqueria": {
			{
				Content: "Alpina held 34% of the Colombian yogurt market in 2024.",
				Score:   0.92,
				Metadata: map[string]string{
					"document": "Dairy Market Review",
					"year":     "2024",
				},
			},
		},
	}}

	backend := &completionBackend{answer: "Alpina held 34% of the Colombian yogurt market in 2024."}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	eng := buildPipeline(t, gateway, server.URL)

	result, err := eng.Answer(context.Background(), engine.AnswerRequest{
		ClientID: "alqueria",
		ModeID:   "pure",
		Query:    "market share of yogurt",
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.GroundingScore)
	assert.Empty(t, result.Flags)
	require.Len(t, result.SourcesUsed, 1)
	assert.Equal(t, "Dairy Market Review", result.SourcesUsed[0].Title)

	prompts := backend.receivedPrompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "dairy_foods")
	assert.Contains(t, prompts[0], "colombia")
	assert.Contains(t, prompts[0], "Alpina, Colanta")
	assert.Contains(t, prompts[0], "[Source 1: Dairy Market Review (2024)]")
	assert.Contains(t, prompts[0], "exclusively from the retrieved passages")
}

func TestE2E_SwitchingClientSwitchesEverything(t *testing.T) {
	gateway := &cannedGateway{byClient: map[string][]models.Passage{}}
	backend := &completionBackend{answer: "Prepaid demand keeps growing."}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	eng := buildPipeline(t, gateway, server.URL)

	_, err := eng.Answer(context.Background(), engine.AnswerRequest{
		ClientID: "tigo",
		ModeID:   "pure",
		Query:    "market share of yogurt",
	})
	require.NoError(t, err)

	prompts := backend.receivedPrompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "telecommunications")
	assert.Contains(t, prompts[0], "honduras")
	assert.NotContains(t, prompts[0], "dairy_foods")
	assert.NotContains(t, prompts[0], "Alpina")
}

func TestE2E_UngroundedPureAnswerDegrades(t *testing.T) {
	gateway := &cannedGateway{byClient: map[string][]models.Passage{
		"alqueria": {
			{Content: "Alpina held 34% of the Colombian yogurt market in 2024.", Score: 0.9,
				Metadata: map[string]string{"document": "Dairy Market Review"}},
		},
	}}
	backend := &completionBackend{answer: "Martian colonies prefer oat-based desserts."}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	eng := buildPipeline(t, gateway, server.URL)

	result, err := eng.Answer(context.Background(), engine.AnswerRequest{
		ClientID: "alqueria",
		ModeID:   "pure",
		Query:    "market share of yogurt",
	})
	require.NoError(t, err)

	assert.True(t, result.HasFlag(models.FlagUngroundedClaims))
	assert.True(t, result.HasFlag(models.FlagDegraded))
	assert.Equal(t, 0.0, result.GroundingScore)
}

func TestE2E_HybridOverride(t *testing.T) {
	backend := &completionBackend{answer: "Blended category view."}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	eng := buildPipeline(t, &cannedGateway{byClient: map[string][]models.Passage{}}, server.URL)

	ratio := 30
	_, err := eng.Answer(context.Background(), engine.AnswerRequest{
		ClientID:  "alqueria",
		ModeID:    "hybrid",
		Query:     "category outlook",
		Overrides: &models.ModeOverrides{GroundingRatio: &ratio},
	})
	require.NoError(t, err)

	prompts := backend.receivedPrompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "30% grounded in evidence, 70% reasoned extension")
	assert.Contains(t, prompts[0], "open generation is permitted")
}

func TestE2E_UnknownClientSurfaces(t *testing.T) {
	backend := &completionBackend{answer: "irrelevant"}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	eng := buildPipeline(t, &cannedGateway{}, server.URL)

	_, err := eng.Answer(context.Background(), engine.AnswerRequest{
		ClientID: "nestle",
		ModeID:   "pure",
		Query:    "anything",
	})
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeClientNotFound, stderrors.Normalize(err).Code)
}

func TestE2E_CompletionOutageIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream quota", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	eng := buildPipeline(t, &cannedGateway{}, server.URL)

	_, err := eng.Answer(context.Background(), engine.AnswerRequest{
		ClientID: "alqueria",
		ModeID:   "pure",
		Query:    "market share of yogurt",
	})
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeCompletionUnavailable, stderrors.Normalize(err).Code)
}
