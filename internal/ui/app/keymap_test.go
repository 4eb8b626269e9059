package app

import (
	"os"
	"path/filepath"
	"testing"
)

func writeKeymap(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keymap.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadKeymapDefaults(t *testing.T) {
	keys, err := loadKeymap("")
	if err != nil {
		t.Fatalf("loadKeymap: %v", err)
	}
	if got := keys.Finalize.Keys(); len(got) != 1 || got[0] != "f" {
		t.Fatalf("finalize keys = %v", got)
	}
}

func TestLoadKeymapMissingFileUsesDefaults(t *testing.T) {
	keys, err := loadKeymap(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("loadKeymap: %v", err)
	}
	if got := keys.Quit.Keys(); len(got) == 0 {
		t.Fatal("quit binding lost")
	}
}

func TestLoadKeymapOverrides(t *testing.T) {
	path := writeKeymap(t, "finalize: [\"F\", \"ctrl+f\"]\nnext: [\"n\"]\n")
	keys, err := loadKeymap(path)
	if err != nil {
		t.Fatalf("loadKeymap: %v", err)
	}
	got := keys.Finalize.Keys()
	if len(got) != 2 || got[0] != "F" || got[1] != "ctrl+f" {
		t.Fatalf("finalize keys = %v", got)
	}
	if got := keys.Next.Keys(); len(got) != 1 || got[0] != "n" {
		t.Fatalf("next keys = %v", got)
	}
	// Untouched bindings keep their defaults.
	if got := keys.Prev.Keys(); len(got) != 2 || got[0] != "k" {
		t.Fatalf("prev keys = %v", got)
	}
}

func TestLoadKeymapRejectsUnknownBinding(t *testing.T) {
	path := writeKeymap(t, "finalise: [\"F\"]\n")
	if _, err := loadKeymap(path); err == nil {
		t.Fatal("want error for unknown binding name")
	}
}

func TestLoadKeymapRejectsEmptyBinding(t *testing.T) {
	path := writeKeymap(t, "quit: []\n")
	if _, err := loadKeymap(path); err == nil {
		t.Fatal("want error for empty key list")
	}
}
