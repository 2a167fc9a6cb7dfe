package convert

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDirOnce sync.Once

// pdfcpuConfig returns a fresh configuration without touching the user's
// pdfcpu config directory.
func pdfcpuConfig() *model.Configuration {
	disableConfigDirOnce.Do(pdfapi.DisableConfigDir)
	return model.NewDefaultConfiguration()
}

func (s *Service) convertPDF(ctx context.Context, src source, target string) ([]byte, error) {
	if target == "pdf" {
		var buf bytes.Buffer
		if err := pdfapi.Optimize(bytes.NewReader(src.Data), &buf, pdfcpuConfig()); err != nil {
			return nil, fmt.Errorf("optimize pdf: %w", err)
		}
		return buf.Bytes(), nil
	}

	pages, err := extractPDFPages(src.Data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch target {
	case "txt":
		return []byte(strings.Join(trimPages(pages), "\n\n")), nil
	case "md":
		var b strings.Builder
		b.WriteString("# " + src.Title + "\n")
		for i, page := range pages {
			fmt.Fprintf(&b, "\n## Page %d\n\n%s\n", i+1, strings.TrimSpace(page))
		}
		return []byte(b.String()), nil
	case "html":
		sections := make([]htmlSection, len(pages))
		for i, page := range pages {
			sections[i] = htmlSection{Heading: fmt.Sprintf("Page %d", i+1), Text: page}
		}
		return []byte(renderHTML(src.Title, sections)), nil
	}
	return nil, fmt.Errorf("no pdf converter for %s", target)
}

// extractPDFPages returns the plain text of every page, in page order. The
// page count comes from pdfcpu, which also rejects unreadable files before the
// text extractor sees them.
func extractPDFPages(data []byte) (pages []string, err error) {
	count, err := pdfapi.PageCount(bytes.NewReader(data), pdfcpuConfig())
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	// The text extractor panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("extract pdf text: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := min(reader.NumPage(), count)
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func trimPages(pages []string) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type htmlSection struct {
	Heading string
	Text    string
}

// renderHTML builds a minimal standalone page: one h2 per section and one
// paragraph per blank-line separated block.
func renderHTML(title string, sections []htmlSection) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>\n</head>\n<body>\n<h1>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</h1>\n")
	for _, section := range sections {
		if section.Heading != "" {
			b.WriteString("<section>\n<h2>" + html.EscapeString(section.Heading) + "</h2>\n")
		}
		for _, para := range strings.Split(section.Text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			b.WriteString("<p>")
			b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
			b.WriteString("</p>\n")
		}
		if section.Heading != "" {
			b.WriteString("</section>\n")
		}
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}
