// Package transfer moves lists in and out of the app as JSON or YAML files.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/helpmebuyapp/helpmebuy/internal/localstore"
	"github.com/helpmebuyapp/helpmebuy/internal/model"
)

// Format is a file encoding for exported lists.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
}

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Export writes entities to w. Items are kept for entities that carry them.
func Export(w io.Writer, entities []model.Entity, format Format) error {
	lists := make([]*localstore.GroceryList, 0, len(entities))
	for i, e := range entities {
		g, err := localstore.ToGroceryList(e)
		if err != nil {
			return fmt.Errorf("failed to export entry %d: %w", i+1, err)
		}
		if src, ok := e.(*localstore.GroceryList); ok {
			g.UpdatedAt = src.UpdatedAt
		}
		lists = append(lists, g)
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(lists); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(lists); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to flush yaml: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

// Import reads lists from r. Every list is validated and a blank category
// is defaulted. Ids are kept as read; the caller decides whether to honour
// them.
func Import(r io.Reader, format Format) ([]*localstore.GroceryList, error) {
	var lists []*localstore.GroceryList

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&lists); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("invalid json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&lists); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	out := make([]*localstore.GroceryList, 0, len(lists))
	for i, g := range lists {
		if g == nil {
			return nil, fmt.Errorf("entry %d: %w: empty entry", i+1, model.ErrUnsupportedEntity)
		}
		norm, err := localstore.ToGroceryList(g)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		out = append(out, norm)
	}
	return out, nil
}

// ExportFile writes entities to path atomically.
func ExportFile(path string, entities []model.Entity, format Format) error {
	var buf bytes.Buffer
	if err := Export(&buf, entities, format); err != nil {
		return err
	}
	return WriteFile(path, buf.Bytes())
}

// ImportFile reads lists from path.
func ImportFile(path string, format Format) ([]*localstore.GroceryList, error) {
	// #nosec G304 - controlled path from CLI
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Import(f, format)
}

// WriteFile writes data to path via a temp file in the same directory and
// a rename, so readers never see a partial file.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
