// Package document opens case artifacts and exposes their text layer
// page by page. Three artifact formats are supported: PDF registry
// scans, HTML exports from the registry portal, and plain-text dumps.
package document

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// Page is one page of an opened artifact. Text holds whatever the
// direct text layer yielded and may be empty for scanned pages.
type Page struct {
	Number int
	Text   string
}

// SourceDocument is an opened artifact: the per-page text layer plus
// the raw bytes kept for OCR submission.
type SourceDocument struct {
	Path        string
	ContentType string
	Pages       []Page

	raw []byte
}

// PageCount returns the number of pages.
func (d *SourceDocument) PageCount() int {
	return len(d.Pages)
}

// Text joins the text layer of all pages.
func (d *SourceDocument) Text() string {
	var buf strings.Builder
	for _, p := range d.Pages {
		if p.Text == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(p.Text)
	}
	return buf.String()
}

// CharCount returns the total rune count of the text layer.
func (d *SourceDocument) CharCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len([]rune(p.Text))
	}
	return n
}

// Payload returns the raw artifact bytes for OCR submission.
func (d *SourceDocument) Payload() []byte {
	return d.raw
}

// Open reads the artifact at path and extracts its direct text layer.
// It fails only when the file is unreadable or the format is unknown;
// a scanned PDF whose text layer is empty or unparsable opens fine
// with empty page text, which routes the case to OCR downstream.
func Open(path string) (*SourceDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return &SourceDocument{
			Path:        path,
			ContentType: "application/pdf",
			Pages:       pdfPages(raw),
			raw:         raw,
		}, nil
	case ".html", ".htm":
		return &SourceDocument{
			Path:        path,
			ContentType: "text/html",
			Pages:       []Page{{Number: 1, Text: htmlVisibleText(raw)}},
			raw:         raw,
		}, nil
	case ".txt":
		return &SourceDocument{
			Path:        path,
			ContentType: "text/plain",
			Pages:       []Page{{Number: 1, Text: string(raw)}},
			raw:         raw,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported artifact format: %s", filepath.Ext(path))
	}
}

// pdfPages extracts the text layer per page. An unparsable file yields
// a single empty page so downstream always sees at least one page.
func pdfPages(raw []byte) []Page {
	pages, err := readPDF(raw)
	if err != nil || len(pages) == 0 {
		return []Page{{Number: 1}}
	}
	return pages
}

func readPDF(raw []byte) (pages []Page, err error) {
	// The pdf library panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, err
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := Page{Number: i}
		p := reader.Page(i)
		if !p.V.IsNull() {
			if text, err := p.GetPlainText(nil); err == nil {
				page.Text = strings.TrimSpace(text)
			}
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// htmlVisibleText extracts text nodes, skipping script/style content.
func htmlVisibleText(raw []byte) string {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return buf.String()
}
