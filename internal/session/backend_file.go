package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

type fileDocument struct {
	Sessions []Record `json:"sessions"`
}

// FileBackend stores every session in one JSON document, replaced atomically
// through a temp file and rename.
type FileBackend struct {
	path string

	mu     sync.Mutex
	recs   map[string]Record
	loaded bool
}

func NewFileBackend(path string) (*FileBackend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("file backend: path is required")
	}
	return &FileBackend{path: path, recs: make(map[string]Record)}, nil
}

func (f *FileBackend) Load(context.Context) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readLocked(); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(f.recs))
	for _, r := range f.recs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (f *FileBackend) Save(_ context.Context, recs []Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		// A corrupt document must not block new writes; it is replaced.
		_ = f.readLocked()
		f.loaded = true
	}
	for _, r := range recs {
		f.recs[r.ID] = r
	}
	doc := fileDocument{Sessions: make([]Record, 0, len(f.recs))}
	for _, r := range f.recs {
		doc.Sessions = append(doc.Sessions, r)
	}
	sort.Slice(doc.Sessions, func(i, j int) bool { return doc.Sessions[i].Seq < doc.Sessions[j].Seq })

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".sessions-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }

func (f *FileBackend) readLocked() error {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", f.path, err)
	}
	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", f.path, err)
	}
	for _, r := range doc.Sessions {
		f.recs[r.ID] = r
	}
	f.loaded = true
	return nil
}
