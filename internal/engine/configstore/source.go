// internal/engine/configstore/source.go
package configstore

import (
	"context"
	stderrors "errors"
)

// ErrRecordMissing reports that a source holds no record for the requested
// client id. The store maps it onto the not-found taxonomy.
var ErrRecordMissing = stderrors.New("client record missing")

// Source fetches raw administrative documents. Every implementation returns
// the same wire shapes, so validation and decoding live in one place.
// BaseTemplates returns nil when the backend carries no template set; the
// built-in defaults cover that case.
type Source interface {
	BaseTemplates(ctx context.Context) ([]byte, error)
	ClientRecord(ctx context.Context, clientID string) ([]byte, error)
	ClientIDs(ctx context.Context) ([]string, error)
}
