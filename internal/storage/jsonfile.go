package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"jichul/internal/core"
)

// JSONFileName is the cached snapshot inside the data directory.
const JSONFileName = "data.json"

// JSONBackend keeps the full snapshot, ids and timestamps included, in one
// indented UTF-8 JSON document.
type JSONBackend struct {
	path string
}

func NewJSONBackend(path string) *JSONBackend {
	return &JSONBackend{path: path}
}

func (b *JSONBackend) Name() string { return "json" }

func (b *JSONBackend) Path() string { return b.path }

func (b *JSONBackend) Load(ctx context.Context) (*core.Snapshot, error) {
	s, err := b.read()
	if err != nil {
		return nil, unavailable(b.Name(), err)
	}
	return s, nil
}

// read returns the raw decoded file without the unavailable wrapping. The row
// backend uses it for id recovery.
func (b *JSONBackend) read() (*core.Snapshot, error) {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s does not exist", b.path)
		}
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	return DecodeSnapshot(raw)
}

func (b *JSONBackend) Save(ctx context.Context, s *core.Snapshot) error {
	if err := writeFileAtomic(b.path, func(w io.Writer) error {
		return EncodeSnapshot(w, s)
	}); err != nil {
		return fmt.Errorf("save %s: %w", b.path, err)
	}
	return nil
}

// DecodeSnapshot parses the JSON snapshot format. A leading BOM is tolerated.
func DecodeSnapshot(raw []byte) (*core.Snapshot, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("empty snapshot document")
	}
	var s core.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	s.Normalize()
	return &s, nil
}

// EncodeSnapshot writes s with two-space indentation and without escaping
// non-ASCII or HTML characters.
func EncodeSnapshot(w io.Writer, s *core.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}
