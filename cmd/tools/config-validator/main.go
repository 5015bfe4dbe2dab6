// cmd/tools/config-validator/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rag-engine/internal/engine/interpolate"
	"rag-engine/internal/engine/modes"
	"rag-engine/internal/models"
	"rag-engine/pkg/configschema"
)

// config-validator checks administrative documents before a deploy: the
// template set against the mode catalog and the token grammar, and each
// client record against the schema and the typed attribute rules.

func main() {
	templatesCmd := flag.NewFlagSet("templates", flag.ExitOnError)
	templatesPath := templatesCmd.String("path", "configs/templates.json", "Path to the template-set document")

	clientsCmd := flag.NewFlagSet("clients", flag.ExitOnError)
	clientsDir := clientsCmd.String("dir", "configs/clients", "Directory of client record documents")

	allCmd := flag.NewFlagSet("all", flag.ExitOnError)
	allTemplatesPath := allCmd.String("path", "configs/templates.json", "Path to the template-set document")
	allClientsDir := allCmd.String("dir", "configs/clients", "Directory of client record documents")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	failures := 0
	switch os.Args[1] {
	case "templates":
		templatesCmd.Parse(os.Args[2:])
		failures = validateTemplates(*templatesPath)

	case "clients":
		clientsCmd.Parse(os.Args[2:])
		failures = validateClients(*clientsDir)

	case "all":
		allCmd.Parse(os.Args[2:])
		failures = validateTemplates(*allTemplatesPath)
		failures += validateClients(*allClientsDir)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		help()
		os.Exit(1)
	}

	if failures > 0 {
		fmt.Printf("\n%d document(s) failed validation\n", failures)
		os.Exit(1)
	}
	fmt.Println("\nAll documents valid")
}

func validateTemplates(path string) int {
	doc, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Printf("SKIP  %s (absent, engine will use built-in templates)\n", path)
		return 0
	}
	if err != nil {
		fmt.Printf("FAIL  %s: %v\n", path, err)
		return 1
	}

	set, err := configschema.DecodeTemplateSet(doc, catalogModeIDs())
	if err != nil {
		fmt.Printf("FAIL  %s: %v\n", path, err)
		return 1
	}

	failures := 0
	ids := make([]string, 0, len(set.Templates))
	for id := range set.Templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := interpolate.VerifyGrammar(set.Templates[id]); err != nil {
			fmt.Printf("FAIL  %s [%s]: %v\n", path, id, err)
			failures++
		}
	}

	if failures == 0 {
		fmt.Printf("OK    %s (%d template(s))\n", path, len(set.Templates))
	}
	return failures
}

func validateClients(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Printf("FAIL  %s: %v\n", dir, err)
		return 1
	}

	failures := 0
	checked := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		checked++
		path := filepath.Join(dir, entry.Name())
		if err := validateClientFile(path); err != nil {
			fmt.Printf("FAIL  %s: %v\n", path, err)
			failures++
		} else {
			fmt.Printf("OK    %s\n", path)
		}
	}

	if checked == 0 {
		fmt.Printf("FAIL  %s: no client records found\n", dir)
		return 1
	}
	return failures
}

func validateClientFile(path string) error {
	doc, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	record, err := configschema.DecodeClientRecord(doc)
	if err != nil {
		return err
	}

	expectedID := strings.TrimSuffix(filepath.Base(path), ".json")
	if record.ClientID != expectedID {
		return fmt.Errorf("record declares client_id %q, file name implies %q", record.ClientID, expectedID)
	}

	reserved := make(map[string]bool)
	for _, token := range models.ReservedTokens() {
		reserved[token] = true
	}
	for key, raw := range record.Attributes {
		if reserved[key] {
			return fmt.Errorf("attribute %q shadows a reserved token", key)
		}
		if _, err := models.ParseAttrValue(raw); err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
	}
	return nil
}

func catalogModeIDs() []string {
	catalog, err := modes.NewCatalog(modes.PresetBalanced)
	if err != nil {
		// The built-in catalog is static; this only trips on a programming error.
		fmt.Printf("FAIL  mode catalog: %v\n", err)
		os.Exit(1)
	}

	specs := catalog.List()
	ids := make([]string, 0, len(specs))
	for _, spec := range specs {
		ids = append(ids, spec.ModeID)
	}
	return ids
}

func help() {
	fmt.Println("Usage: config-validator <command> [flags]")
	fmt.Println("Commands:")
	fmt.Println("  templates  Validate the template-set document (-path)")
	fmt.Println("  clients    Validate every client record in a directory (-dir)")
	fmt.Println("  all        Validate templates and clients (-path, -dir)")
}
