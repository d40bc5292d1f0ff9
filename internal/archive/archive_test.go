package archive_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tonearm/internal/archive"
)

func TestBundleCreatesZipWithBasenames(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "001 - first.mp3")
	b := filepath.Join(dir, "002 - second.mp3")
	lrc := filepath.Join(dir, "001 - first.lrc")
	for _, path := range []string{a, b, lrc} {
		if err := os.WriteFile(path, []byte("data-"+filepath.Base(path)), 0o644); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	zipPath := filepath.Join(dir, archive.BundleName("Road Mix", "job-1"))
	if err := archive.Bundle(zipPath, []string{a, b, lrc, filepath.Join(dir, "missing.mp3")}); err != nil {
		t.Fatalf("Bundle: %v", err)
	}

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer reader.Close()

	names := make([]string, 0, len(reader.File))
	for _, file := range reader.File {
		names = append(names, file.Name)
	}
	want := []string{"001 - first.mp3", "002 - second.mp3", "001 - first.lrc"}
	if len(names) != len(want) {
		t.Fatalf("unexpected entries %v", names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("entry %d = %q, want %q", i, names[i], name)
		}
	}
}

func TestBundleNameSanitizesHint(t *testing.T) {
	name := archive.BundleName("My/Mix: Vol 1?", "abc-123")
	if strings.ContainsAny(name, "/:?") {
		t.Fatalf("unsanitized bundle name %q", name)
	}
	if !strings.HasSuffix(name, "_abc-123.zip") {
		t.Fatalf("unexpected bundle name %q", name)
	}

	if archive.BundleName("", "abc") != "bundle_abc.zip" {
		t.Fatal("empty hint should fall back to bundle")
	}
}

func TestBundleFailsWithNothingToWrite(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "empty.zip")

	if err := archive.Bundle(zipPath, nil); err == nil {
		t.Fatal("expected error for empty input")
	}
	if err := archive.Bundle(zipPath, []string{filepath.Join(dir, "gone.mp3")}); err == nil {
		t.Fatal("expected error when no inputs exist")
	}
	if _, err := os.Stat(zipPath); !os.IsNotExist(err) {
		t.Fatal("empty archive must be removed")
	}
}
