package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/convertey/convertey-api/internal/textnorm"
)

const docxBodyPath = "word/document.xml"

// docParagraph is one paragraph of extracted text. Level is 1-6 for
// headings and 0 for body text.
type docParagraph struct {
	Text  string
	Level int
}

func (s *Service) convertWord(ctx context.Context, src source, target string) ([]byte, error) {
	if target == src.Extension {
		return src.Data, nil
	}
	if src.Extension != "docx" {
		return s.convertOfficeDocument(ctx, src, target)
	}

	switch target {
	case "odt", "rtf":
		return s.runExternal(ctx, s.office, src.Data, src.Extension, target)
	}

	paras, err := extractDocx(src.Data)
	if err != nil {
		return nil, err
	}
	return s.layoutParagraphs(src.Title, paras, target)
}

// convertOfficeDocument handles doc, odt and rtf, which are read by the
// office converter. Markdown goes through plain text.
func (s *Service) convertOfficeDocument(ctx context.Context, src source, target string) ([]byte, error) {
	if target != "md" {
		return s.runExternal(ctx, s.office, src.Data, src.Extension, target)
	}
	text, err := s.runExternal(ctx, s.office, src.Data, src.Extension, "txt")
	if err != nil {
		return nil, err
	}
	plain := source{Data: text}
	return []byte(textnorm.WrapMarkdown(src.Title, plain.Text())), nil
}

func (s *Service) layoutParagraphs(title string, paras []docParagraph, target string) ([]byte, error) {
	switch target {
	case "txt":
		lines := make([]string, len(paras))
		for i, p := range paras {
			lines[i] = p.Text
		}
		return []byte(strings.Join(lines, "\n")), nil
	case "md":
		blocks := make([]string, 0, len(paras))
		for _, p := range paras {
			if strings.TrimSpace(p.Text) == "" {
				continue
			}
			if p.Level > 0 {
				blocks = append(blocks, strings.Repeat("#", p.Level)+" "+p.Text)
				continue
			}
			blocks = append(blocks, p.Text)
		}
		return []byte(strings.Join(blocks, "\n\n") + "\n"), nil
	case "html":
		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
		b.WriteString(html.EscapeString(title))
		b.WriteString("</title>\n</head>\n<body>\n")
		for _, p := range paras {
			if strings.TrimSpace(p.Text) == "" {
				continue
			}
			tag := "p"
			if p.Level > 0 {
				tag = "h" + strconv.Itoa(p.Level)
			}
			text := strings.ReplaceAll(html.EscapeString(p.Text), "\n", "<br>")
			fmt.Fprintf(&b, "<%s>%s</%s>\n", tag, text, tag)
		}
		b.WriteString("</body>\n</html>\n")
		return []byte(b.String()), nil
	case "pdf":
		lines := make([]string, 0, len(paras))
		for _, p := range paras {
			lines = append(lines, p.Text)
		}
		out, err := s.paginator.Render(title, []string{strings.Join(lines, "\n")})
		if err != nil {
			return nil, err
		}
		return out.Data, nil
	}
	return nil, fmt.Errorf("no document layout for %s", target)
}

// extractDocx reads the paragraphs of word/document.xml. Only text survives;
// heading styles are kept as levels, everything else is dropped.
func extractDocx(data []byte) ([]docParagraph, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPath {
			body = f
			break
		}
	}
	if body == nil {
		return nil, fmt.Errorf("open docx: %s not found", docxBodyPath)
	}
	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("open docx body: %w", err)
	}
	defer rc.Close()

	return parseDocumentXML(rc)
}

// parseDocumentXML collects paragraphs in closing order. Paragraphs nested
// in text boxes are emitted on their own and leave the enclosing paragraph
// intact.
func parseDocumentXML(r io.Reader) ([]docParagraph, error) {
	type openParagraph struct {
		para docParagraph
		text strings.Builder
	}

	dec := xml.NewDecoder(r)
	var (
		paras   []docParagraph
		stack   []*openParagraph
		inText  bool
		inProps bool
	)
	top := func() *openParagraph {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse docx body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				stack = append(stack, &openParagraph{})
			case "pPr":
				inProps = true
			case "pStyle":
				if cur := top(); cur != nil {
					cur.para.Level = headingLevel(attr(t, "val"))
				}
			case "t":
				inText = true
			case "tab":
				if cur := top(); cur != nil && !inProps {
					cur.text.WriteByte('\t')
				}
			case "br", "cr":
				if cur := top(); cur != nil {
					cur.text.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "pPr":
				inProps = false
			case "p":
				if cur := top(); cur != nil {
					stack = stack[:len(stack)-1]
					cur.para.Text = cur.text.String()
					paras = append(paras, cur.para)
				}
			}
		case xml.CharData:
			if cur := top(); inText && cur != nil {
				cur.text.Write(t)
			}
		}
	}
	return paras, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// headingLevel maps Word style ids such as "Heading2" or "Title" to a
// heading level.
func headingLevel(style string) int {
	style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
	switch {
	case style == "title":
		return 1
	case strings.HasPrefix(style, "heading"):
		n, err := strconv.Atoi(strings.TrimPrefix(style, "heading"))
		if err != nil || n < 1 {
			return 0
		}
		return min(n, 6)
	}
	return 0
}
