// Package pdfgen lays plain text out into a generated PDF: one title page
// followed by fixed-size character chunks, one chunk per page.
package pdfgen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/convertey/convertey-api/internal/textnorm"
)

// CharsPerPage is the character budget of one content page. Line wrapping
// inside the page is left to the PDF engine.
const CharsPerPage = 3000

const (
	fontFamily     = "Helvetica"
	titleFontSize  = 24
	bodyFontSize   = 11
	marginMM       = 20.0
	titleTopMM     = 30.0
	bodyTopMM      = 20.0
	titleLineMM    = 10.0
	bodyLineMM     = 5.0
	defaultCreator = "convertey"
)

// Output is a rendered document.
type Output struct {
	Data  []byte
	Pages int
}

// Paginator renders text into A4 portrait pages.
type Paginator struct {
	CharsPerPage int
	Creator      string
}

// New returns a Paginator with the default page budget.
func New() *Paginator {
	return &Paginator{CharsPerPage: CharsPerPage, Creator: defaultCreator}
}

// Render emits a title page and then one page per chunk of every body.
// Bodies are normalised to ASCII first; an empty body contributes no pages.
// Automatic page breaks are off, so text that wraps past the bottom edge of a
// page is clipped instead of spilling onto an extra page.
func (p *Paginator) Render(title string, bodies []string) (*Output, error) {
	budget := p.CharsPerPage
	if budget <= 0 {
		budget = CharsPerPage
	}

	title = strings.TrimSpace(textnorm.Normalize(title))
	if title == "" {
		title = "Untitled"
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetMargins(marginMM, marginMM, marginMM)
	doc.SetTitle(title, false)
	creator := p.Creator
	if creator == "" {
		creator = defaultCreator
	}
	doc.SetCreator(creator, false)

	pageWidth, _ := doc.GetPageSize()
	textWidth := pageWidth - 2*marginMM

	doc.AddPage()
	doc.SetFont(fontFamily, "B", titleFontSize)
	doc.SetXY(marginMM, titleTopMM)
	doc.MultiCell(textWidth, titleLineMM, title, "", "L", false)

	for _, body := range bodies {
		for _, chunk := range Chunk(textnorm.Normalize(body), budget) {
			doc.AddPage()
			doc.SetFont(fontFamily, "", bodyFontSize)
			doc.SetXY(marginMM, bodyTopMM)
			doc.MultiCell(textWidth, bodyLineMM, chunk, "", "L", false)
		}
	}

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return &Output{Data: buf.Bytes(), Pages: doc.PageCount()}, nil
}

// Chunk splits text into pieces of at most size runes. Surrounding
// whitespace is trimmed first, so blank text yields no chunks.
func Chunk(text string, size int) []string {
	text = strings.TrimSpace(text)
	if text == "" || size <= 0 {
		return nil
	}
	r := []rune(text)
	chunks := make([]string, 0, (len(r)+size-1)/size)
	for start := 0; start < len(r); start += size {
		end := min(start+size, len(r))
		chunks = append(chunks, string(r[start:end]))
	}
	return chunks
}

// PageCount predicts how many pages Render produces for the given bodies.
func PageCount(bodies []string, budget int) int {
	if budget <= 0 {
		budget = CharsPerPage
	}
	pages := 1
	for _, body := range bodies {
		pages += len(Chunk(textnorm.Normalize(body), budget))
	}
	return pages
}
