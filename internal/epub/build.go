package epub

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	goepub "github.com/go-shiori/go-epub"
)

// Section is one chapter of a generated book. Body is an XHTML fragment.
type Section struct {
	Title string
	Body  string
}

// BuildOptions carries the book metadata written into the package document.
type BuildOptions struct {
	Title    string
	Author   string
	Language string
}

// Build writes sections into a new EPUB and returns the archive bytes.
func Build(opts BuildOptions, sections []Section) ([]byte, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = defaultTitle
	}

	book, err := goepub.NewEpub(title)
	if err != nil {
		return nil, fmt.Errorf("create epub: %w", err)
	}
	if opts.Author != "" {
		book.SetAuthor(opts.Author)
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	book.SetLang(lang)

	if len(sections) == 0 {
		sections = []Section{{Title: title}}
	}
	for i, section := range sections {
		sectionTitle := section.Title
		if sectionTitle == "" {
			sectionTitle = fmt.Sprintf("%s (%d)", title, i+1)
		}
		body := section.Body
		if strings.TrimSpace(body) == "" {
			body = "<p></p>"
		}
		content := "<h1>" + html.EscapeString(sectionTitle) + "</h1>\n" + body
		if _, err := book.AddSection(content, sectionTitle, "", ""); err != nil {
			return nil, fmt.Errorf("add section %q: %w", sectionTitle, err)
		}
	}

	var buf bytes.Buffer
	if _, err := book.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write epub: %w", err)
	}
	return buf.Bytes(), nil
}

// TextSection wraps plain text paragraphs into an XHTML section body.
func TextSection(title, text string) Section {
	var b strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br/>"))
		b.WriteString("</p>\n")
	}
	return Section{Title: title, Body: b.String()}
}
