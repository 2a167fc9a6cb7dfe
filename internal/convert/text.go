package convert

import (
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/convertey/convertey-api/internal/epub"
	"github.com/convertey/convertey-api/internal/textnorm"
)

func (s *Service) convertText(ctx context.Context, src source, target string) ([]byte, error) {
	text := src.Text()
	switch target {
	case "txt":
		return src.Data, nil
	case "md":
		return []byte(textnorm.WrapMarkdown(src.Title, text)), nil
	case "html":
		return []byte(renderHTML(src.Title, []htmlSection{{Text: text}})), nil
	}
	return s.layoutText(src.Title, text, target)
}

func (s *Service) convertMarkdown(ctx context.Context, src source, target string) ([]byte, error) {
	if target == "md" {
		return src.Data, nil
	}
	plain := textnorm.StripMarkdown(src.Text())
	if target == "txt" {
		return []byte(plain), nil
	}
	return s.layoutText(src.Title, plain, target)
}

func (s *Service) convertHTML(ctx context.Context, src source, target string) ([]byte, error) {
	markup := src.Text()
	if target == "md" {
		converter := md.NewConverter("", true, nil)
		out, err := converter.ConvertString(markup)
		if err != nil {
			return nil, fmt.Errorf("html to markdown: %w", err)
		}
		return []byte(strings.TrimSpace(out) + "\n"), nil
	}

	title, text, err := readHTML(markup)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = src.Title
	}
	if target == "txt" {
		return []byte(text), nil
	}
	return s.layoutText(title, text, target)
}

// layoutText renders plain text into the paginated PDF or a one-section EPUB.
func (s *Service) layoutText(title, text, target string) ([]byte, error) {
	switch target {
	case "pdf":
		out, err := s.paginator.Render(title, []string{text})
		if err != nil {
			return nil, err
		}
		return out.Data, nil
	case "epub":
		return epub.Build(epub.BuildOptions{Title: title}, []epub.Section{epub.TextSection(title, text)})
	}
	return nil, fmt.Errorf("no text layout for %s", target)
}

// readHTML returns the document title and the visible body text. Script,
// style and head content never reach the text.
func readHTML(markup string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("head, script, style, noscript, template").Remove()
	body, err := doc.Find("body").First().Html()
	if err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	return title, textnorm.HTMLToText(body), nil
}
