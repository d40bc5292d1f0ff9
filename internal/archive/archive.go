// Package archive bundles a job's output files into a single zip.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tonearm/internal/textutil"
)

// BundleName derives the archive filename from a sanitized title hint and
// the job id.
func BundleName(titleHint, jobID string) string {
	hint := textutil.SanitizeFileName(titleHint)
	if hint == "" {
		hint = "bundle"
	}
	return fmt.Sprintf("%s_%s.zip", hint, jobID)
}

// Bundle writes the given files into a zip at zipPath. Entry names are the
// NFC-normalized basenames of the inputs; missing inputs are skipped. An
// empty input set is an error.
func Bundle(zipPath string, files []string) error {
	if len(files) == 0 {
		return errors.New("no files to bundle")
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	written := 0
	for _, file := range files {
		if err := addFile(writer, file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			writer.Close()
			return err
		}
		written++
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	if written == 0 {
		_ = os.Remove(zipPath)
		return errors.New("no bundleable files existed")
	}
	return nil
}

func addFile(writer *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("archive header for %q: %w", path, err)
	}
	header.Name = textutil.NFC(filepath.Base(path))
	header.Method = zip.Deflate

	entry, err := writer.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("archive entry for %q: %w", path, err)
	}
	if _, err := io.Copy(entry, in); err != nil {
		return fmt.Errorf("archive copy for %q: %w", path, err)
	}
	return nil
}
