// Package pdf extracts per-page text from PDF files.
package pdf

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pagemill/pagemill/internal/domain"
)

// maxFileSize caps in-memory extraction to avoid OOM on pathological files.
const maxFileSize = 200 << 20

// Page holds the extracted text of a single PDF page.
type Page struct {
	Number int
	Text   string
}

// Result holds the extraction output for one file.
type Result struct {
	SourcePath string
	Filename   string
	SHA256     string
	Pages      []Page
}

// Extractor reads PDF text using github.com/ledongthuc/pdf.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractFile extracts per-page text from a single PDF file.
func (e *Extractor) ExtractFile(path string) (*Result, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return nil, domain.ErrNotAPDF
	}
	if stat.Size() > maxFileSize {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "pdf too large for extraction")
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "failed to open pdf", err)
	}
	defer f.Close()

	digest, err := fileSHA256(f)
	if err != nil {
		return nil, err
	}

	result := &Result{
		SourcePath: path,
		Filename:   filepath.Base(path),
		SHA256:     digest,
	}

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			// Some pages fail to decode; keep going with the rest.
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		result.Pages = append(result.Pages, Page{Number: i, Text: text})
	}

	if len(result.Pages) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	return result, nil
}

// ListDirectory returns the sorted paths of all PDF files directly inside dir.
func (e *Extractor) ListDirectory(dir string) ([]string, error) {
	stat, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrDirectoryNotFound
		}
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}
	if !stat.IsDir() {
		return nil, domain.ErrDirectoryNotFound
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) != ".pdf" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	if len(paths) == 0 {
		return nil, domain.ErrNoPDFsInDirectory
	}

	sort.Strings(paths)
	return paths, nil
}

func fileSHA256(f *os.File) (string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind file: %w", err)
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
