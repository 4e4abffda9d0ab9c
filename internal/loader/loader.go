// Package loader reads local files into ingestible text.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupported is returned for file types the loader cannot read
	ErrUnsupported = errors.New("unsupported file type")
	// ErrNoText is returned when a file yields no text
	ErrNoText = errors.New("no text extracted")
)

// Document is a loaded file
type Document struct {
	Title   string
	Content string
	Source  string
	Pages   int // PDF only
}

// Load reads path, dispatching on its extension
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return LoadBytes(filepath.Base(path), data)
}

// LoadBytes parses data as the file type implied by name
func LoadBytes(name string, data []byte) (*Document, error) {
	doc := &Document{Title: TitleFromName(name), Source: name}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text":
		doc.Content = decodeText(data)

	case ".md", ".markdown":
		doc.Content = decodeText(data)
		if h := firstHeading(doc.Content); h != "" {
			doc.Title = h
		}

	case ".pdf":
		text, pages, err := extractPDF(data)
		if err != nil {
			return nil, err
		}
		doc.Content = text
		doc.Pages = pages

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
	}

	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoText, name)
	}
	return doc, nil
}

// TitleFromName turns "medicaid_prior-auth.pdf" into "medicaid prior auth"
func TitleFromName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}

func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(data)
}

func firstHeading(md string) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
		if line != "" && !strings.HasPrefix(line, "#") {
			return ""
		}
	}
	return ""
}

func extractPDF(data []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var sb strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			slog.Warn("failed to extract pdf page", "page", i, "error", err)
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimSpace(text))
	}

	return sb.String(), pages, nil
}
