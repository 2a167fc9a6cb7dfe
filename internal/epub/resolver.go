// Package epub reads the reading order out of EPUB archives and builds new
// EPUB files from plain sections.
package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

const (
	containerPath = "META-INF/container.xml"
	defaultTitle  = "Untitled"
)

// ErrInvalidArchive is returned when the bytes are not a usable EPUB
// container: not a ZIP, no container.xml, no rootfile, or a missing package
// document.
var ErrInvalidArchive = errors.New("invalid epub archive")

// Chapter is one spine entry with its raw markup.
type Chapter struct {
	ID        string
	Path      string
	RawMarkup string
}

// Document is an EPUB reduced to its title and chapters in reading order.
type Document struct {
	Title    string
	Chapters []Chapter

	// Skipped lists spine idrefs that had no manifest entry or whose file was
	// missing from the archive.
	Skipped []string
}

type container struct {
	XMLName   xml.Name `xml:"container"`
	RootFiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageDocument struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Titles []string `xml:"title"`
	} `xml:"metadata"`
	Manifest struct {
		Items []manifestItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type manifestItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

// Resolve opens data as an EPUB archive and returns its chapters in spine
// order. Spine entries that cannot be resolved are skipped and reported in
// Document.Skipped; they never fail the call.
func Resolve(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	containerFile, ok := entries[containerPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", ErrInvalidArchive, containerPath)
	}
	var c container
	if err := decodeXML(containerFile, &c); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidArchive, containerPath, err)
	}
	if len(c.RootFiles) == 0 || strings.TrimSpace(c.RootFiles[0].FullPath) == "" {
		return nil, fmt.Errorf("%w: container.xml declares no rootfile", ErrInvalidArchive)
	}

	opfPath := path.Clean(strings.TrimPrefix(strings.TrimSpace(c.RootFiles[0].FullPath), "/"))
	opfFile, ok := entries[opfPath]
	if !ok {
		return nil, fmt.Errorf("%w: package document %s not found", ErrInvalidArchive, opfPath)
	}
	var pkg packageDocument
	if err := decodeXML(opfFile, &pkg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidArchive, opfPath, err)
	}

	doc := &Document{Title: defaultTitle}
	for _, title := range pkg.Metadata.Titles {
		if t := strings.TrimSpace(title); t != "" {
			doc.Title = t
			break
		}
	}

	hrefs := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefs[item.ID] = item.Href
	}

	baseDir := path.Dir(opfPath)
	for _, ref := range pkg.Spine.ItemRefs {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			doc.Skipped = append(doc.Skipped, ref.IDRef)
			continue
		}
		chapterPath := resolveHref(baseDir, href)
		f, ok := entries[chapterPath]
		if !ok {
			doc.Skipped = append(doc.Skipped, ref.IDRef)
			continue
		}
		markup, err := readEntry(f)
		if err != nil {
			doc.Skipped = append(doc.Skipped, ref.IDRef)
			continue
		}
		doc.Chapters = append(doc.Chapters, Chapter{
			ID:        ref.IDRef,
			Path:      chapterPath,
			RawMarkup: markup,
		})
	}

	return doc, nil
}

func resolveHref(baseDir, href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	return strings.TrimPrefix(path.Join(baseDir, href), "/")
}

func decodeXML(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	dec.Strict = false
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return dec.Decode(v)
}

func readEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(bytes.ToValidUTF8(data, []byte("\uFFFD"))), nil
}
