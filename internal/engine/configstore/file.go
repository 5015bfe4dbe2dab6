// internal/engine/configstore/file.go
package configstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSource reads administrative documents from disk: one JSON document for
// the template set, one <client_id>.json per client under a directory.
type FileSource struct {
	templatesPath string
	clientsDir    string
}

func NewFileSource(templatesPath, clientsDir string) *FileSource {
	return &FileSource{templatesPath: templatesPath, clientsDir: clientsDir}
}

// BaseTemplates returns the raw template-set document. An unconfigured or
// absent file is not an error; the engine runs on built-ins.
func (s *FileSource) BaseTemplates(_ context.Context) ([]byte, error) {
	if s.templatesPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(s.templatesPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read template set %s: %w", s.templatesPath, err)
	}
	return data, nil
}

func (s *FileSource) ClientRecord(_ context.Context, clientID string) ([]byte, error) {
	if clientID == "" || clientID != filepath.Base(clientID) {
		return nil, fmt.Errorf("%q: %w", clientID, ErrRecordMissing)
	}

	path := filepath.Join(s.clientsDir, clientID+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, ErrRecordMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("read client record %s: %w", path, err)
	}
	return data, nil
}

func (s *FileSource) ClientIDs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.clientsDir)
	if err != nil {
		return nil, fmt.Errorf("read clients dir %s: %w", s.clientsDir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
