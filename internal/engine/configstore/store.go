// internal/engine/configstore/store.go
package configstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"rag-engine/internal/common/errors"
	"rag-engine/internal/common/logger"
	"rag-engine/internal/engine/interpolate"
	"rag-engine/internal/models"
	"rag-engine/pkg/configschema"
)

// loadConcurrency bounds the fan-out when loading all client records.
const loadConcurrency = 8

// Store loads and validates administrative configuration from a Source and
// returns immutable value objects. It holds no cache; the client registry
// owns the live set.
type Store struct {
	source  Source
	modeIDs []string
	log     logger.Logger
}

func New(source Source, modeIDs []string, log logger.Logger) *Store {
	return &Store{source: source, modeIDs: modeIDs, log: log}
}

// LoadBaseTemplates returns the parsed template for every known mode.
// Loaded documents override the built-in defaults mode by mode.
func (s *Store) LoadBaseTemplates(ctx context.Context) (map[string]*models.Template, error) {
	raw, err := s.source.BaseTemplates(ctx)
	if err != nil {
		return nil, errors.NewConfigLoadError("base templates", err)
	}

	texts := Defaults()
	if raw == nil {
		s.log.Info("no template set provided, using built-in templates", map[string]interface{}{
			"modes": len(texts),
		})
	} else {
		set, err := configschema.DecodeTemplateSet(raw, s.modeIDs)
		if err != nil {
			return nil, errors.NewConfigLoadError("base templates", err)
		}
		for modeID, text := range set.Templates {
			texts[modeID] = text
		}
	}

	parsed := make(map[string]*models.Template, len(s.modeIDs))
	for _, modeID := range s.modeIDs {
		text, ok := texts[modeID]
		if !ok {
			return nil, errors.NewConfigLoadError("base templates",
				fmt.Errorf("no template for mode %s", modeID))
		}
		if err := interpolate.VerifyGrammar(text); err != nil {
			return nil, errors.NewConfigLoadError("base templates",
				fmt.Errorf("mode %s: %w", modeID, err))
		}
		parsed[modeID] = interpolate.Parse(modeID, text)
	}

	s.log.Info("base templates loaded", map[string]interface{}{"modes": len(parsed)})
	return parsed, nil
}

// LoadClientContext loads, validates, and converts one client record.
func (s *Store) LoadClientContext(ctx context.Context, clientID string) (*models.ClientContext, error) {
	raw, err := s.source.ClientRecord(ctx, clientID)
	if err != nil {
		if stderrors.Is(err, ErrRecordMissing) {
			return nil, errors.NewClientNotFoundError(clientID)
		}
		return nil, errors.NewConfigLoadError("client "+clientID, err)
	}

	record, err := configschema.DecodeClientRecord(raw)
	if err != nil {
		return nil, errors.NewConfigLoadError("client "+clientID, err)
	}
	if record.ClientID != clientID {
		return nil, errors.NewConfigLoadError("client "+clientID,
			fmt.Errorf("record declares client_id %q", record.ClientID))
	}

	return buildClientContext(record)
}

// LoadAllClients loads every known client record concurrently and returns
// them sorted by client id.
func (s *Store) LoadAllClients(ctx context.Context) ([]*models.ClientContext, error) {
	ids, err := s.source.ClientIDs(ctx)
	if err != nil {
		return nil, errors.NewConfigLoadError("client records", err)
	}

	clients := make([]*models.ClientContext, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			client, err := s.LoadClientContext(gctx, id)
			if err != nil {
				return err
			}
			clients[i] = client
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(clients, func(a, b int) bool { return clients[a].ClientID < clients[b].ClientID })
	s.log.Info("client records loaded", map[string]interface{}{"count": len(clients)})
	return clients, nil
}

func buildClientContext(record *configschema.ClientRecordDoc) (*models.ClientContext, error) {
	attrs := make(map[string]models.AttrValue, len(record.Attributes))
	for key, raw := range record.Attributes {
		if isReservedToken(key) {
			return nil, errors.NewConfigLoadError("client "+record.ClientID,
				fmt.Errorf("attribute %q shadows a reserved token", key))
		}
		val, err := models.ParseAttrValue(raw)
		if err != nil {
			return nil, errors.NewConfigLoadError("client "+record.ClientID,
				fmt.Errorf("attribute %q: %w", key, err))
		}
		attrs[key] = val
	}

	return &models.ClientContext{
		ClientID:    record.ClientID,
		DisplayName: record.DisplayName,
		Industry:    record.Industry,
		Market:      record.Market,
		Attributes:  attrs,
	}, nil
}

func isReservedToken(key string) bool {
	for _, reserved := range models.ReservedTokens() {
		if key == reserved {
			return true
		}
	}
	return false
}
