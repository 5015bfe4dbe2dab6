// internal/engine/engine.go
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"

	"rag-engine/internal/common/errors"
	"rag-engine/internal/common/logger"
	"rag-engine/internal/common/metrics"
	"rag-engine/internal/common/observability"
	"rag-engine/internal/completion"
	"rag-engine/internal/engine/blend"
	"rag-engine/internal/engine/clients"
	"rag-engine/internal/engine/compose"
	"rag-engine/internal/engine/modes"
	"rag-engine/internal/models"
	"rag-engine/internal/retrieval"
)

// AnswerRequest is the single upward operation's input. Every request names
// its client and mode explicitly; the engine holds no current-client state.
type AnswerRequest struct {
	ClientID  string                `json:"client_id"`
	ModeID    string                `json:"mode_id"`
	Query     string                `json:"query"`
	Overrides *models.ModeOverrides `json:"mode_overrides,omitempty"`
}

// Options bounds the external calls. Zero fields fall back to the defaults
// below; production values come from configuration.
type Options struct {
	MaxPassages        int
	RetrievalAttempts  int
	CompletionAttempts int
	BackoffInitial     time.Duration
	RetrievalTimeout   time.Duration
	CompletionTimeout  time.Duration
}

func (o *Options) applyDefaults() {
	if o.MaxPassages <= 0 {
		o.MaxPassages = 5
	}
	if o.RetrievalAttempts <= 0 {
		o.RetrievalAttempts = 3
	}
	if o.CompletionAttempts <= 0 {
		o.CompletionAttempts = 2
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 100 * time.Millisecond
	}
	if o.RetrievalTimeout <= 0 {
		o.RetrievalTimeout = 3 * time.Second
	}
	if o.CompletionTimeout <= 0 {
		o.CompletionTimeout = 20 * time.Second
	}
}

// Engine wires the core components to the external boundaries and exposes
// Answer. It is safe for concurrent use: every call allocates its own
// RequestContext and no step mutates shared state.
type Engine struct {
	registry  *clients.Registry
	catalog   *modes.Catalog
	composer  *compose.Composer
	gateway   retrieval.Gateway
	completer completion.Completer
	blender   *blend.Blender
	opts      Options
	logger    logger.Logger
	obs       *observability.Observability
}

func New(
	registry *clients.Registry,
	catalog *modes.Catalog,
	composer *compose.Composer,
	gateway retrieval.Gateway,
	completer completion.Completer,
	blender *blend.Blender,
	opts Options,
	log logger.Logger,
	obs *observability.Observability,
) *Engine {
	opts.applyDefaults()
	return &Engine{
		registry:  registry,
		catalog:   catalog,
		composer:  composer,
		gateway:   gateway,
		completer: completer,
		blender:   blender,
		opts:      opts,
		logger:    log.WithFields(map[string]interface{}{"component": "engine"}),
		obs:       obs,
	}
}

// Answer runs the full pipeline for one request: resolve client and mode,
// retrieve passages, compose the prompt, call completion, and blend the
// draft into the finalized result. Retrieval exhaustion degrades to
// ungrounded generation; completion exhaustion fails the request.
func (e *Engine) Answer(ctx context.Context, req AnswerRequest) (*models.AnswerResult, error) {
	start := time.Now()
	ctx, span := e.startSpan(ctx, "engine.answer")
	defer span.End()

	reqCtx := &models.RequestContext{
		RequestID: uuid.NewString(),
		ClientID:  req.ClientID,
		ModeID:    req.ModeID,
		Query:     strings.TrimSpace(req.Query),
	}
	log := e.logger.WithFields(map[string]interface{}{
		"requestId": reqCtx.RequestID,
		"clientId":  reqCtx.ClientID,
		"modeId":    reqCtx.ModeID,
	})

	result, err := e.answer(ctx, reqCtx, req.Overrides, log)
	if err != nil {
		stdErr := errors.Normalize(err)
		metrics.AnswerFailures.WithLabelValues(reqCtx.ClientID, reqCtx.ModeID, string(stdErr.Code)).Inc()
		e.recordProcessed(ctx, reqCtx.ModeID, "failed", time.Since(start))
		log.WithError(stdErr).Error("answer request failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
		})
		return nil, stdErr
	}

	duration := time.Since(start)
	metrics.AnswerRequests.WithLabelValues(reqCtx.ClientID, reqCtx.ModeID).Inc()
	metrics.AnswerDuration.WithLabelValues(reqCtx.ModeID).Observe(duration.Seconds())
	metrics.GroundingScore.WithLabelValues(reqCtx.ModeID).Observe(result.GroundingScore)
	e.recordProcessed(ctx, reqCtx.ModeID, "completed", duration)

	log.Info("answer request completed", map[string]interface{}{
		"groundingScore": result.GroundingScore,
		"flags":          result.Flags,
		"sources":        len(result.SourcesUsed),
		"durationMs":     duration.Milliseconds(),
	})
	return result, nil
}

func (e *Engine) answer(ctx context.Context, reqCtx *models.RequestContext, overrides *models.ModeOverrides, log logger.Logger) (*models.AnswerResult, error) {
	if reqCtx.Query == "" {
		return nil, errors.NewEmptyQueryError()
	}

	client, err := e.registry.Get(reqCtx.ClientID)
	if err != nil {
		return nil, err
	}

	spec, err := e.catalog.Resolve(reqCtx.ModeID, overrides)
	if err != nil {
		return nil, err
	}

	retrievalFailed := false
	reqCtx.Passages, err = e.retrieve(ctx, reqCtx.Query, client)
	if err != nil {
		// Degrade: continue without evidence rather than failing the request.
		retrievalFailed = true
		reqCtx.Passages = nil
		log.WithError(err).Warn("retrieval exhausted, continuing ungrounded", nil)
	}

	prompt, err := e.composer.Compose(client, spec, reqCtx.Query, reqCtx.Passages)
	if err != nil {
		return nil, err
	}

	draft, err := e.complete(ctx, prompt, spec)
	if err != nil {
		return nil, err
	}

	result := e.blender.Finalize(draft, reqCtx.Passages, spec)
	result.SourcesUsed = sourcesUsed(reqCtx.Passages)

	if retrievalFailed {
		result.AddFlag(models.FlagRetrievalFailed)
		result.AddFlag(models.FlagDegraded)
		metrics.DegradedResponses.WithLabelValues(spec.ModeID, "retrieval_failed").Inc()
	} else if result.HasFlag(models.FlagDegraded) {
		metrics.DegradedResponses.WithLabelValues(spec.ModeID, "ungrounded_claims").Inc()
	}

	return result, nil
}

func (e *Engine) retrieve(ctx context.Context, query string, client *models.ClientContext) ([]models.Passage, error) {
	ctx, span := e.startSpan(ctx, "engine.retrieve")
	defer span.End()

	filters := map[string]string{
		"client_id": client.ClientID,
		"industry":  client.Industry,
	}

	var passages []models.Passage
	err := e.withRetry(ctx, "retrieval", e.opts.RetrievalAttempts, e.opts.RetrievalTimeout,
		func(attemptCtx context.Context) error {
			var searchErr error
			passages, searchErr = e.gateway.Search(attemptCtx, query, filters, e.opts.MaxPassages)
			return searchErr
		})
	if err != nil {
		return nil, errors.NewRetrievalUnavailableError(err)
	}
	return passages, nil
}

func (e *Engine) complete(ctx context.Context, prompt string, spec models.ModeSpec) (string, error) {
	ctx, span := e.startSpan(ctx, "engine.complete")
	defer span.End()

	params := completion.SamplingParams{Temperature: spec.Creativity.Temperature()}

	var draft string
	err := e.withRetry(ctx, "completion", e.opts.CompletionAttempts, e.opts.CompletionTimeout,
		func(attemptCtx context.Context) error {
			var completeErr error
			draft, completeErr = e.completer.Complete(attemptCtx, prompt, params)
			return completeErr
		})
	if err != nil {
		return "", errors.NewCompletionUnavailableError(err)
	}
	return draft, nil
}

// withRetry runs op up to attempts times with a per-attempt timeout and
// exponential backoff between attempts. Backoff waits respect cancellation
// of the request context.
func (e *Engine) withRetry(ctx context.Context, backend string, attempts int, timeout time.Duration, op func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			metrics.ExternalRetries.WithLabelValues(backend).Inc()
			backoff := e.opts.BackoffInitial * time.Duration(1<<(attempt-2))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = op(attemptCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

// sourcesUsed deduplicates the passage attributions by title, keeping rank
// order and each title's best score.
func sourcesUsed(passages []models.Passage) []models.SourceRef {
	seen := make(map[string]bool, len(passages))
	refs := make([]models.SourceRef, 0, len(passages))
	for _, p := range passages {
		title := p.SourceTitle()
		if seen[title] {
			continue
		}
		seen[title] = true
		refs = append(refs, models.SourceRef{
			Title:    title,
			Score:    p.Score,
			Metadata: p.Metadata,
		})
	}
	return refs
}

func (e *Engine) startSpan(ctx context.Context, name string) (context.Context, spanEnder) {
	if e.obs == nil {
		return ctx, noopSpan{}
	}
	c, span := e.obs.StartSpan(ctx, name)
	return c, span
}

func (e *Engine) recordProcessed(ctx context.Context, modeID, status string, duration time.Duration) {
	if e.obs == nil {
		return
	}
	e.obs.RecordAnswerProcessed(ctx, modeID, status)
	e.obs.RecordAnswerDuration(ctx, duration, modeID)
}

// spanEnder is the slice of the OTel span the engine touches; it lets tests
// run without a tracer provider.
type spanEnder interface {
	End(options ...oteltrace.SpanEndOption)
}

type noopSpan struct{}

func (noopSpan) End(...oteltrace.SpanEndOption) {}
