package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedMessagesRender(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("frame.status.selected", map[string]any{"Square": "e2", "Count": 2})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "e2 selected · 2 targets" {
		t.Fatalf("unexpected text %q", got)
	}
	if _, err := c.Render("frame.status.selected", map[string]any{"Square": "e2"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if got := c.Text("no.such.key", nil, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("frame:\n  buttons:\n    refresh: \"Reload\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("frame.buttons.refresh", nil, ""); got != "Reload" {
		t.Fatalf("override not applied, got %q", got)
	}
	if got := c.Text("frame.buttons.resign", nil, ""); got != "Resign" {
		t.Fatalf("default lost, got %q", got)
	}
}

func TestDuplicateOverrideKeysRejected(t *testing.T) {
	dir := t.TempDir()
	body := []byte("frame:\n  title: \"X\"\n")
	_ = os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644)
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}
