// internal/engine/configstore/postgres.go
package configstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"rag-engine/internal/common/database"
	"rag-engine/pkg/configschema"
)

// PostgresSource reads administrative documents from the relational store:
// base_templates holds one row per mode, client_configs one JSON record per
// client.
type PostgresSource struct {
	db *database.PostgresClient
}

func NewPostgresSource(db *database.PostgresClient) *PostgresSource {
	return &PostgresSource{db: db}
}

// BaseTemplates assembles the template rows into the shared wire shape so
// the store validates file and database input through the same path.
func (s *PostgresSource) BaseTemplates(ctx context.Context) ([]byte, error) {
	rows, err := s.db.Query(ctx, "SELECT mode_id, template FROM base_templates")
	if err != nil {
		return nil, fmt.Errorf("query base_templates: %w", err)
	}
	defer rows.Close()

	templates := make(map[string]string)
	for rows.Next() {
		var modeID, template string
		if err := rows.Scan(&modeID, &template); err != nil {
			return nil, fmt.Errorf("scan base_templates row: %w", err)
		}
		templates[modeID] = template
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate base_templates: %w", err)
	}

	if len(templates) == 0 {
		return nil, nil
	}

	doc, err := json.Marshal(configschema.TemplateSetDoc{Templates: templates})
	if err != nil {
		return nil, fmt.Errorf("assemble template set: %w", err)
	}
	return doc, nil
}

func (s *PostgresSource) ClientRecord(ctx context.Context, clientID string) ([]byte, error) {
	var record []byte
	err := s.db.QueryRow(ctx,
		"SELECT record FROM client_configs WHERE client_id = $1", clientID).Scan(&record)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client %s: %w", clientID, ErrRecordMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("query client_configs: %w", err)
	}
	return record, nil
}

func (s *PostgresSource) ClientIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, "SELECT client_id FROM client_configs ORDER BY client_id")
	if err != nil {
		return nil, fmt.Errorf("query client_configs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan client_configs row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client_configs: %w", err)
	}
	return ids, nil
}
