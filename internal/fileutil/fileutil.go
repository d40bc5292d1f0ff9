package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// MoveFile renames src to dst, falling back to copy+remove across devices.
// The copy path verifies sizes before removing the source.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return err
	}
	if srcInfo.Size() != dstInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("move size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), dstInfo.Size())
	}
	return os.Remove(src)
}

// UniquePath returns filepath.Join(dir, base+ext), inserting a
// parenthetical numeric suffix before the extension until the name does
// not collide with an existing file.
func UniquePath(dir, base, ext string) string {
	candidate := filepath.Join(dir, base+ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
	}
}

var mediaExtPattern = regexp.MustCompile(`(?i)\.(mp4|webm|m4a|mp3|opus|mkv|mka|flac|wav|aac|ogg)$`)

// IsMediaFile reports whether name carries a known audio/video extension.
func IsMediaFile(name string) bool {
	return mediaExtPattern.MatchString(name)
}

var ordinalPrefixPattern = regexp.MustCompile(`^(\d+)\s*-\s*`)

// OrdinalFromName extracts the zero-padded ordinal prefix ("003 - foo.m4a")
// from a working-file basename. Returns 0 when no prefix is present.
func OrdinalFromName(name string) int {
	m := ordinalPrefixPattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// StripOrdinalPrefix removes a leading "NNN - " ordinal from a basename.
func StripOrdinalPrefix(name string) string {
	return ordinalPrefixPattern.ReplaceAllString(name, "")
}

// ListMediaFiles returns media files in dir whose basename starts with
// prefix, sorted by ordinal prefix then name so playlist ordering is
// independent of download completion order. An empty prefix matches all.
func ListMediaFiles(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !IsMediaFile(name) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Slice(files, func(i, j int) bool {
		oi, oj := OrdinalFromName(files[i]), OrdinalFromName(files[j])
		if oi != oj {
			return oi < oj
		}
		return files[i] < files[j]
	})
	return files, nil
}

// FindExistingOutput locates a previously produced output file whose name
// starts with "idPrefix." and carries one of the extensions legal for the
// format. Used for idempotent resume of conversion work.
func FindExistingOutput(dir, idPrefix, format string) string {
	exts, ok := outputExtensions[format]
	if !ok {
		exts = []string{format}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, idPrefix+".") {
			continue
		}
		lower := strings.ToLower(name)
		for _, ext := range exts {
			if strings.HasSuffix(lower, "."+ext) {
				return filepath.Join(dir, name)
			}
		}
	}
	return ""
}

var outputExtensions = map[string][]string{
	"mp3":  {"mp3"},
	"flac": {"flac"},
	"wav":  {"wav"},
	"ogg":  {"ogg", "oga"},
	"mp4":  {"mp4", "m4a"},
}
