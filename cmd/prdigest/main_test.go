package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadDiff(t *testing.T) {
	got, err := readDiff(strings.NewReader("from stdin"), "-")
	if err != nil || got != "from stdin" {
		t.Fatalf("unexpected stdin read %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "change.diff")
	if err := os.WriteFile(path, []byte("from file"), 0o600); err != nil {
		t.Fatalf("write diff: %v", err)
	}
	got, err = readDiff(strings.NewReader("ignored"), path)
	if err != nil || got != "from file" {
		t.Fatalf("unexpected file read %q, %v", got, err)
	}

	if _, err := readDiff(nil, filepath.Join(t.TempDir(), "missing.diff")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
