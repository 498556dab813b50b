package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/recalc/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Extensions lists the workbook file extensions in lookup order.
var Extensions = []string{".yaml", ".yml", ".json"}

// Loader implements ports.WorkbookLoader over a flat directory of YAML or
// JSON workbook files. The file name without extension is the workbook ID.
type Loader struct {
	Dir string
}

// NewLoader creates a Loader reading from dir.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// LoadWorkbook reads and decodes the workbook with the given ID.
func (l *Loader) LoadWorkbook(ctx context.Context, id string) (*domain.Workbook, error) {
	if id == "" || !filepath.IsLocal(id) || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %q", domain.ErrWorkbookNotFound, id)
	}

	for _, ext := range Extensions {
		path := filepath.Join(l.Dir, id+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read workbook %s: %w", id, err)
		}
		wb, err := Decode(data, ext)
		if err != nil {
			return nil, fmt.Errorf("failed to decode workbook %s: %w", path, err)
		}
		if wb.ID == "" {
			wb.ID = id
		}
		return wb, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrWorkbookNotFound, id)
}

// ListWorkbooks returns the IDs of every workbook file in lexical order.
// A workbook present under several extensions is listed once.
func (l *Loader) ListWorkbooks(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list workbooks: %w", err)
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !supported(ext) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Decode parses a workbook document. JSON is decoded strictly; anything else
// goes through YAML.
func Decode(data []byte, ext string) (*domain.Workbook, error) {
	var wb domain.Workbook
	if strings.EqualFold(ext, ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&wb); err != nil {
			return nil, err
		}
		return &wb, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&wb); err != nil {
		return nil, err
	}
	return &wb, nil
}

func supported(ext string) bool {
	for _, e := range Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
