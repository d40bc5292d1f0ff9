package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.m4a")
	dst := filepath.Join(dir, "dst.m4a")
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := MoveFile(src, dst); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("source should no longer exist")
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "audio" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestUniquePathAddsSuffixOnCollision(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "Track.mp3")
	if err := os.WriteFile(first, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got := UniquePath(dir, "Track", ".mp3")
	want := filepath.Join(dir, "Track (1).mp3")
	if got != want {
		t.Fatalf("UniquePath = %q, want %q", got, want)
	}

	if err := os.WriteFile(got, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got = UniquePath(dir, "Track", ".mp3")
	want = filepath.Join(dir, "Track (2).mp3")
	if got != want {
		t.Fatalf("UniquePath = %q, want %q", got, want)
	}
}

func TestOrdinalFromName(t *testing.T) {
	if got := OrdinalFromName("003 - Song Title.m4a"); got != 3 {
		t.Errorf("OrdinalFromName = %d, want 3", got)
	}
	if got := OrdinalFromName("Song Title.m4a"); got != 0 {
		t.Errorf("OrdinalFromName = %d, want 0", got)
	}
}

func TestListMediaFilesOrdersByOrdinal(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002 - b.m4a", "010 - c.webm", "001 - a.opus", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ListMediaFiles(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}
	wantOrder := []string{"001 - a.opus", "002 - b.m4a", "010 - c.webm"}
	for i, want := range wantOrder {
		if filepath.Base(files[i]) != want {
			t.Errorf("files[%d] = %q, want %q", i, filepath.Base(files[i]), want)
		}
	}
}

func TestListMediaFilesMissingDir(t *testing.T) {
	files, err := ListMediaFiles(filepath.Join(t.TempDir(), "absent"), "")
	if err != nil {
		t.Fatal(err)
	}
	if files != nil {
		t.Fatalf("expected nil for missing dir, got %v", files)
	}
}

func TestFindExistingOutput(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "job42_1.mp3"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FindExistingOutput(dir, "job42_1", "mp3"); filepath.Base(got) != "job42_1.mp3" {
		t.Fatalf("FindExistingOutput = %q", got)
	}
	if got := FindExistingOutput(dir, "job42_2", "mp3"); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
	if got := FindExistingOutput(dir, "job42_1", "flac"); got != "" {
		t.Fatalf("format mismatch should miss, got %q", got)
	}
}
