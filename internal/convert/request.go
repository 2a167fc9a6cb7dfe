package convert

import (
	"bytes"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

const defaultFileName = "converted"

// Request is one conversion: the decoded upload plus what to turn it into.
type Request struct {
	Data         []byte
	MimeType     string
	TargetFormat string
	FileName     string

	// Families, when non-empty, restricts the source families the request
	// may use.
	Families []Family
}

// Result is a finished conversion. There is no partial result.
type Result struct {
	Data     []byte
	FileName string
	MimeType string
	Family   Family
}

// source is the resolved input handed to a conversion branch.
type source struct {
	Data      []byte
	MimeType  string
	Extension string
	FileName  string
	Title     string
}

// Text returns the input as UTF-8 text without a byte order mark.
func (s source) Text() string {
	data := bytes.TrimPrefix(s.Data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte("\uFFFD"))
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n")
}

// normalizeMime lowercases a MIME type and drops its parameters.
func normalizeMime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(value); err == nil {
		return strings.ToLower(mediaType)
	}
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = value[:i]
	}
	return strings.ToLower(strings.TrimSpace(value))
}

// normalizeTarget turns ".PDF" or " pdf " into "pdf".
func normalizeTarget(value string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), "."))
}

func isGenericMime(m string) bool {
	switch m {
	case "", "application/octet-stream", "binary/octet-stream", "application/zip", "application/x-zip-compressed":
		return true
	}
	return false
}

// detectMime picks the MIME type used for routing. A declared type the table
// knows wins; generic or unknown declarations fall back to the file
// extension and then to content sniffing.
func (t *FormatTable) detectMime(declared, fileName string, data []byte) string {
	declared = normalizeMime(declared)
	if _, ok := t.Source(declared); ok {
		return declared
	}

	if ext := filepath.Ext(fileName); ext != "" {
		if byExt, ok := t.MimeForExtension(ext); ok && (isGenericMime(declared) || sameTopLevel(declared, byExt)) {
			return byExt
		}
	}

	if !isGenericMime(declared) {
		return declared
	}

	for detected := mimetype.Detect(data); detected != nil; detected = detected.Parent() {
		m := normalizeMime(detected.String())
		if _, ok := t.Source(m); ok {
			return m
		}
	}
	return declared
}

func sameTopLevel(a, b string) bool {
	ai := strings.IndexByte(a, '/')
	bi := strings.IndexByte(b, '/')
	return ai > 0 && bi > 0 && a[:ai] == b[:bi]
}

// suggestedFileName swaps the extension of the uploaded name for the target
// extension.
func suggestedFileName(original, ext string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(original), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = defaultFileName
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = defaultFileName
	}
	return stem + "." + ext
}

// titleFromFileName is the document title derived from the uploaded name.
func titleFromFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	stem := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" || stem == "." || stem == "/" {
		return "Untitled"
	}
	return stem
}
