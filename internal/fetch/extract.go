package fetch

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ExtractedFile is one file produced from a raw archive. Exactly one of Path
// (extracted to disk) or Data (kept in memory) is set.
type ExtractedFile struct {
	Name string
	Path string
	Data []byte
}

// Open returns a reader over the file content.
func (f ExtractedFile) Open() (io.ReadCloser, error) {
	if f.Path == "" {
		return io.NopCloser(bytes.NewReader(f.Data)), nil
	}
	return os.Open(f.Path)
}

// Bytes returns the whole file content.
func (f ExtractedFile) Bytes() ([]byte, error) {
	if f.Path == "" {
		return f.Data, nil
	}
	return os.ReadFile(f.Path)
}

// Extracted is the result of expanding an archive.
type Extracted struct {
	Selected ExtractedFile
	// Files maps entry names to extracted paths.
	Files map[string]string
}

var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}

// IsSpreadsheet reports whether a body is an XLSX or XLS workbook rather than
// a data archive. XLSX files are zip containers too, so the entries are checked.
func IsSpreadsheet(name string, data []byte) bool {
	ext := strings.ToLower(path.Ext(name))
	if ext == ".xlsx" || ext == ".xls" {
		return true
	}
	if bytes.HasPrefix(data, oleMagic) {
		return true
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return false
	}
	for _, f := range zr.File {
		if f.Name == "[Content_Types].xml" || strings.HasPrefix(f.Name, "xl/") {
			return true
		}
	}
	return false
}

// InMemory wraps a spreadsheet body without touching disk.
func InMemory(raw RawArchive) ExtractedFile {
	return ExtractedFile{Name: SourceName(raw.URL), Data: raw.Data}
}

// SourceName returns the last path element of a URL or URI.
func SourceName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}

// Extract writes every non-directory entry of a zip archive into dir and
// selects the entry matching hint (by base name, case-insensitive), or the
// first entry when hint is empty or absent.
func Extract(raw RawArchive, dir, hint string) (Extracted, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw.Data), int64(len(raw.Data)))
	// Insecure entry names are rejected per entry by safeJoin.
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return Extracted{}, fmt.Errorf("open archive %s: %w", raw.URL, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Extracted{}, fmt.Errorf("create extract dir %s: %w", dir, err)
	}

	out := Extracted{Files: make(map[string]string)}
	var first, match *ExtractedFile
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Base(f.Name)
		dst, err := safeJoin(dir, f.Name)
		if err != nil {
			return Extracted{}, err
		}
		if err := writeEntry(f, dst); err != nil {
			return Extracted{}, err
		}
		out.Files[f.Name] = dst
		ef := ExtractedFile{Name: name, Path: dst}
		if first == nil {
			first = &ef
		}
		if hint != "" && match == nil && strings.EqualFold(name, path.Base(hint)) {
			match = &ef
		}
	}
	switch {
	case match != nil:
		out.Selected = *match
	case first != nil:
		out.Selected = *first
	default:
		return Extracted{}, fmt.Errorf("archive %s has no files", raw.URL)
	}
	return out, nil
}

func writeEntry(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}

var errUnsafeEntry = errors.New("archive entry escapes extract dir")

// safeJoin rejects entries such as "../../etc/passwd".
func safeJoin(dir, name string) (string, error) {
	dst := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, dst)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errUnsafeEntry, name)
	}
	return dst, nil
}
