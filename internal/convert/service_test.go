package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/convertey/convertey-api/internal/epub"
	"github.com/convertey/convertey-api/internal/extconv"
	"github.com/convertey/convertey-api/internal/storage"
)

type stubConverter struct {
	calls  []string
	output []byte
	err    error
}

func (s *stubConverter) Convert(_ context.Context, inputPath, outputPath, targetFormat string) error {
	s.calls = append(s.calls, strings.TrimPrefix(filepath.Ext(inputPath), ".")+"->"+targetFormat)
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(outputPath, s.output, 0o600)
}

type testEnv struct {
	svc    *Service
	office *stubConverter
	media  *stubConverter
	store  *storage.Local
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	env := &testEnv{
		office: &stubConverter{output: []byte("office output")},
		media:  &stubConverter{output: []byte("media output")},
		store:  store,
	}
	env.svc = NewService(Dependencies{
		Storage: store,
		Office:  env.office,
		Media:   env.media,
	}, opts)
	return env
}

func (e *testEnv) assertNoExternalCalls(t *testing.T) {
	t.Helper()
	if len(e.office.calls) != 0 || len(e.media.calls) != 0 {
		t.Fatalf("expected no external converter calls, got office=%v media=%v", e.office.calls, e.media.calls)
	}
}

func (e *testEnv) assertWorkspacesRemoved(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.store.Root())
	if err != nil {
		t.Fatalf("read work root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty work root, found %d entries", len(entries))
	}
}

func requireError(t *testing.T, err error, kind Kind, code string) *Error {
	t.Helper()
	var convErr *Error
	if !errors.As(err, &convErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if convErr.Kind != kind || convErr.Code != code {
		t.Fatalf("expected %s/%s, got %s/%s (%v)", kind, code, convErr.Kind, convErr.Code, err)
	}
	return convErr
}

func TestConvertEPUBToDocxRejectedBeforeWork(t *testing.T) {
	env := newTestEnv(t, Options{})

	// Not a valid archive: rejection must happen before anything opens it.
	_, err := env.svc.Convert(context.Background(), Request{
		Data:         []byte("PK\x03\x04 never inspected"),
		MimeType:     "application/epub+zip",
		TargetFormat: "docx",
		FileName:     "book.epub",
	})
	convErr := requireError(t, err, KindValidation, CodeUnsupportedTarget)
	if !strings.Contains(convErr.Message, "txt, pdf") {
		t.Fatalf("expected supported targets in message, got %q", convErr.Message)
	}
	env.assertNoExternalCalls(t)
	env.assertWorkspacesRemoved(t)
}

func TestConvertOversizeInputRejected(t *testing.T) {
	env := newTestEnv(t, Options{MaxFileSize: 16})

	_, err := env.svc.Convert(context.Background(), Request{
		Data:         bytes.Repeat([]byte{0xff}, 17),
		MimeType:     "audio/mpeg",
		TargetFormat: "wav",
		FileName:     "song.mp3",
	})
	requireError(t, err, KindValidation, CodeLimitExceeded)
	env.assertNoExternalCalls(t)

	if _, err := env.svc.Convert(context.Background(), Request{
		Data:         bytes.Repeat([]byte{0xff}, 16),
		MimeType:     "audio/mpeg",
		TargetFormat: "wav",
		FileName:     "song.mp3",
	}); err != nil {
		t.Fatalf("input at the limit should be accepted: %v", err)
	}
}

func TestConvertRequiresFields(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	_, err := env.svc.Convert(ctx, Request{MimeType: "text/plain", TargetFormat: "md"})
	requireError(t, err, KindValidation, CodeInvalidInput)

	_, err = env.svc.Convert(ctx, Request{Data: []byte("x"), MimeType: "text/plain", TargetFormat: "  "})
	requireError(t, err, KindValidation, CodeInvalidInput)
}

func TestConvertUnknownSourceType(t *testing.T) {
	env := newTestEnv(t, Options{})
	_, err := env.svc.Convert(context.Background(), Request{
		Data:         []byte{0x00, 0x01, 0x02},
		MimeType:     "application/x-unknown",
		TargetFormat: "pdf",
	})
	convErr := requireError(t, err, KindValidation, CodeUnsupportedSource)
	if !strings.Contains(convErr.Message, "application/x-unknown") {
		t.Fatalf("expected MIME type in message, got %q", convErr.Message)
	}
}

func TestConvertRespectsFamilyRestriction(t *testing.T) {
	env := newTestEnv(t, Options{})
	_, err := env.svc.Convert(context.Background(), Request{
		Data:         []byte("plain"),
		MimeType:     "text/plain",
		TargetFormat: "md",
		Families:     []Family{FamilyImage, FamilyPDF},
	})
	requireError(t, err, KindValidation, CodeUnsupportedSource)
}

func TestConvertCanceledContext(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.svc.Convert(ctx, Request{
		Data:         []byte("plain"),
		MimeType:     "text/plain",
		TargetFormat: "md",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConvertTextToMarkdownAndBack(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	text := "First line of the notes.\n\nSecond paragraph."

	md, err := env.svc.Convert(ctx, Request{
		Data:         []byte(text),
		MimeType:     "text/plain",
		TargetFormat: "md",
		FileName:     "notes.txt",
	})
	if err != nil {
		t.Fatalf("txt -> md: %v", err)
	}
	if !strings.HasPrefix(string(md.Data), "# notes\n\n") {
		t.Fatalf("expected injected heading, got %q", md.Data)
	}
	if md.FileName != "notes.md" || md.MimeType != "text/markdown" || md.Family != FamilyText {
		t.Fatalf("unexpected result metadata: %+v", md)
	}

	back, err := env.svc.Convert(ctx, Request{
		Data:         md.Data,
		MimeType:     "text/markdown",
		TargetFormat: "txt",
		FileName:     md.FileName,
	})
	if err != nil {
		t.Fatalf("md -> txt: %v", err)
	}
	got := string(back.Data)
	if !strings.HasPrefix(got, "notes") {
		t.Fatalf("expected heading text to survive, got %q", got)
	}
	if !strings.Contains(got, text) {
		t.Fatalf("original text lost: %q", got)
	}
	if back.FileName != "notes.txt" {
		t.Fatalf("unexpected file name %q", back.FileName)
	}
}

func TestConvertTextToPDFAndEPUB(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	text := "Café — first paragraph.\n\nSecond paragraph."

	pdf, err := env.svc.Convert(ctx, Request{Data: []byte(text), MimeType: "text/plain", TargetFormat: "pdf", FileName: "notes.txt"})
	if err != nil {
		t.Fatalf("txt -> pdf: %v", err)
	}
	if !bytes.HasPrefix(pdf.Data, []byte("%PDF-")) {
		t.Fatalf("expected pdf output")
	}

	book, err := env.svc.Convert(ctx, Request{Data: []byte(text), MimeType: "text/plain", TargetFormat: "epub", FileName: "notes.txt"})
	if err != nil {
		t.Fatalf("txt -> epub: %v", err)
	}
	doc, err := epub.Resolve(book.Data)
	if err != nil {
		t.Fatalf("resolve generated epub: %v", err)
	}
	if doc.Title != "notes" {
		t.Fatalf("unexpected title %q", doc.Title)
	}
	found := false
	for _, ch := range doc.Chapters {
		if strings.Contains(ch.RawMarkup, "Second paragraph.") {
			found = true
		}
	}
	if !found {
		t.Fatalf("text missing from generated epub chapters")
	}
}

func TestConvertHTML(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	markup := `<html><head><title>Release</title><style>p { color: red }</style></head>
<body><h1>Notes</h1><p>One &amp; two</p><script>track()</script></body></html>`

	txt, err := env.svc.Convert(ctx, Request{Data: []byte(markup), MimeType: "text/html", TargetFormat: "txt"})
	if err != nil {
		t.Fatalf("html -> txt: %v", err)
	}
	got := string(txt.Data)
	if !strings.Contains(got, "Notes") || !strings.Contains(got, "One & two") {
		t.Fatalf("visible text missing: %q", got)
	}
	if strings.Contains(got, "track()") || strings.Contains(got, "color") || strings.Contains(got, "Release") {
		t.Fatalf("hidden content leaked: %q", got)
	}

	md, err := env.svc.Convert(ctx, Request{Data: []byte(markup), MimeType: "text/html", TargetFormat: "md"})
	if err != nil {
		t.Fatalf("html -> md: %v", err)
	}
	if !strings.Contains(string(md.Data), "# Notes") {
		t.Fatalf("expected markdown heading, got %q", md.Data)
	}
}

const testEPUBContainer = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`

const testEPUBPackage = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Two Chapters</dc:title></metadata>
  <manifest>
    <item id="first" href="first.xhtml" media-type="application/xhtml+xml"/>
    <item id="second" href="second.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="second"/>
    <itemref idref="missing"/>
    <itemref idref="first"/>
  </spine>
</package>`

func buildTestZip(t *testing.T, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestConvertEPUBFollowsSpine(t *testing.T) {
	env := newTestEnv(t, Options{})
	files := map[string]string{
		"META-INF/container.xml": testEPUBContainer,
		"content.opf":            testEPUBPackage,
		"first.xhtml":            "<html><head><style>h1{}</style></head><body><p>first body</p></body></html>",
		"second.xhtml":           "<html><body><p>second body</p></body></html>",
	}
	data := buildTestZip(t, files, []string{"first.xhtml", "META-INF/container.xml", "second.xhtml", "content.opf"})

	txt, err := env.svc.Convert(context.Background(), Request{
		Data:         data,
		MimeType:     "application/epub+zip",
		TargetFormat: "txt",
		FileName:     "book.epub",
	})
	if err != nil {
		t.Fatalf("epub -> txt: %v", err)
	}
	if got := string(txt.Data); got != "second body\n\nfirst body" {
		t.Fatalf("unexpected chapter order: %q", got)
	}

	pdf, err := env.svc.Convert(context.Background(), Request{
		Data:         data,
		MimeType:     "application/epub+zip",
		TargetFormat: "pdf",
		FileName:     "book.epub",
	})
	if err != nil {
		t.Fatalf("epub -> pdf: %v", err)
	}
	if !bytes.HasPrefix(pdf.Data, []byte("%PDF-")) || pdf.FileName != "book.pdf" {
		t.Fatalf("unexpected pdf result: %s", pdf.FileName)
	}
}

func TestConvertEPUBMissingContainerIsArchiveError(t *testing.T) {
	env := newTestEnv(t, Options{})
	data := buildTestZip(t, map[string]string{"content.opf": testEPUBPackage}, []string{"content.opf"})

	_, err := env.svc.Convert(context.Background(), Request{
		Data:         data,
		MimeType:     "application/epub+zip",
		TargetFormat: "txt",
	})
	convErr := requireError(t, err, KindArchive, CodeInvalidArchive)
	if !errors.Is(convErr, epub.ErrInvalidArchive) {
		t.Fatalf("expected wrapped ErrInvalidArchive, got %v", convErr)
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for x := 0; x < 4; x++ {
		img.Set(x, 1, color.NRGBA{R: 200, A: 128})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestConvertImage(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	src := testPNG(t)

	for _, target := range []string{"jpg", "gif", "bmp", "tiff"} {
		res, err := env.svc.Convert(ctx, Request{Data: src, MimeType: "image/png", TargetFormat: target, FileName: "pixel.png"})
		if err != nil {
			t.Fatalf("png -> %s: %v", target, err)
		}
		cfg, format, err := image.DecodeConfig(bytes.NewReader(res.Data))
		if err != nil {
			t.Fatalf("decode %s output: %v", target, err)
		}
		if cfg.Width != 4 || cfg.Height != 3 {
			t.Fatalf("%s output has size %dx%d", target, cfg.Width, cfg.Height)
		}
		want := target
		if target == "jpg" {
			want = "jpeg"
		}
		if format != want {
			t.Fatalf("expected %s output, decoded as %s", want, format)
		}
	}

	// Sniffed from content when the declared type is generic.
	res, err := env.svc.Convert(ctx, Request{Data: src, MimeType: "application/octet-stream", TargetFormat: "pdf"})
	if err != nil {
		t.Fatalf("png -> pdf: %v", err)
	}
	if !bytes.HasPrefix(res.Data, []byte("%PDF-")) || res.FileName != "converted.pdf" {
		t.Fatalf("unexpected pdf result %q", res.FileName)
	}
}

func TestConvertSpreadsheet(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	csvData := []byte("name,qty\nbolt,3\nnut,12\n")

	res, err := env.svc.Convert(ctx, Request{Data: csvData, MimeType: "text/csv", TargetFormat: "json", FileName: "parts.csv"})
	if err != nil {
		t.Fatalf("csv -> json: %v", err)
	}
	var sheets map[string][]map[string]string
	if err := json.Unmarshal(res.Data, &sheets); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	rows := sheets["parts"]
	if len(rows) != 2 || rows[0]["name"] != "bolt" || rows[1]["qty"] != "12" {
		t.Fatalf("unexpected json rows: %v", sheets)
	}

	xlsx, err := env.svc.Convert(ctx, Request{Data: csvData, MimeType: "text/csv", TargetFormat: "xlsx", FileName: "parts.csv"})
	if err != nil {
		t.Fatalf("csv -> xlsx: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(xlsx.Data))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	if got := f.GetSheetList(); len(got) != 1 || got[0] != "parts" {
		t.Fatalf("unexpected sheets %v", got)
	}
	cell, err := f.GetCellValue("parts", "A2")
	if err != nil || cell != "bolt" {
		t.Fatalf("unexpected A2 %q (%v)", cell, err)
	}

	back, err := env.svc.Convert(ctx, Request{Data: xlsx.Data, MimeType: mimeXlsx, TargetFormat: "csv", FileName: xlsx.FileName})
	if err != nil {
		t.Fatalf("xlsx -> csv: %v", err)
	}
	if string(back.Data) != string(csvData) {
		t.Fatalf("csv round trip mismatch: %q", back.Data)
	}
	env.assertNoExternalCalls(t)
}

func TestHeaderNamesFillsBlanksAndDuplicates(t *testing.T) {
	cases := []struct {
		row  []string
		want []string
	}{
		{[]string{"id", "", "id", " name "}, []string{"id", "column_2", "id_2", "name"}},
		{[]string{"a", "a_2", "a"}, []string{"a", "a_2", "a_3"}},
		{[]string{"a", "a", "a_2"}, []string{"a", "a_2", "a_2_2"}},
		{[]string{"", "column_1"}, []string{"column_1", "column_1_2"}},
	}
	for _, tc := range cases {
		got := headerNames(tc.row)
		if !slices.Equal(got, tc.want) {
			t.Fatalf("headerNames(%q) = %v, want %v", tc.row, got, tc.want)
		}
	}
}

func TestConvertSpreadsheetKeepsCollidingHeaders(t *testing.T) {
	env := newTestEnv(t, Options{})
	res, err := env.svc.Convert(context.Background(), Request{
		Data:         []byte("a,a_2,a\n1,2,3\n"),
		MimeType:     "text/csv",
		TargetFormat: "json",
		FileName:     "cols.csv",
	})
	if err != nil {
		t.Fatalf("csv -> json: %v", err)
	}
	var sheets map[string][]map[string]string
	if err := json.Unmarshal(res.Data, &sheets); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	rows := sheets["cols"]
	if len(rows) != 1 || len(rows[0]) != 3 {
		t.Fatalf("expected one record with three cells: %v", sheets)
	}
	if rows[0]["a"] != "1" || rows[0]["a_2"] != "2" || rows[0]["a_3"] != "3" {
		t.Fatalf("unexpected record %v", rows[0])
	}
}

func TestSheetNameSanitises(t *testing.T) {
	if got := sheetName("Q1/Q2: [draft]", 0); got != "Q1_Q2_ _draft_" {
		t.Fatalf("unexpected sanitised name %q", got)
	}
	if got := sheetName(strings.Repeat("x", 40), 0); len(got) != maxSheetNameLen {
		t.Fatalf("expected truncation to %d, got %d", maxSheetNameLen, len(got))
	}
	if got := sheetName("  ", 2); got != "Sheet3" {
		t.Fatalf("unexpected fallback %q", got)
	}
}

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Report</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Hello </w:t></w:r><w:r><w:t>world</w:t><w:tab/><w:t>again</w:t></w:r></w:p>
    <w:p/>
    <w:p><w:r><w:t>Line one</w:t><w:br/><w:t>Line two</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestConvertDocx(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	docx := buildTestZip(t, map[string]string{"word/document.xml": testDocumentXML}, []string{"word/document.xml"})

	md, err := env.svc.Convert(ctx, Request{Data: docx, MimeType: mimeDocx, TargetFormat: "md", FileName: "report.docx"})
	if err != nil {
		t.Fatalf("docx -> md: %v", err)
	}
	want := "# Report\n\nHello world\tagain\n\nLine one\nLine two\n"
	if string(md.Data) != want {
		t.Fatalf("docx -> md = %q, want %q", md.Data, want)
	}

	html, err := env.svc.Convert(ctx, Request{Data: docx, MimeType: mimeDocx, TargetFormat: "html", FileName: "report.docx"})
	if err != nil {
		t.Fatalf("docx -> html: %v", err)
	}
	if !strings.Contains(string(html.Data), "<h1>Report</h1>") || !strings.Contains(string(html.Data), "Line one<br>Line two") {
		t.Fatalf("unexpected html: %s", html.Data)
	}
	env.assertNoExternalCalls(t)

	odt, err := env.svc.Convert(ctx, Request{Data: docx, MimeType: mimeDocx, TargetFormat: "odt", FileName: "report.docx"})
	if err != nil {
		t.Fatalf("docx -> odt: %v", err)
	}
	if string(odt.Data) != "office output" || odt.FileName != "report.odt" {
		t.Fatalf("unexpected odt result %q %q", odt.Data, odt.FileName)
	}
	if len(env.office.calls) != 1 || env.office.calls[0] != "docx->odt" {
		t.Fatalf("unexpected office calls %v", env.office.calls)
	}
	env.assertWorkspacesRemoved(t)
}

func TestParseDocumentXMLKeepsTextAroundTextBox(t *testing.T) {
	const doc = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t xml:space="preserve">Outer before </w:t></w:r><w:r><w:pict><w:txbxContent><w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Inside box</w:t></w:r></w:p></w:txbxContent></w:pict></w:r><w:r><w:t>outer after</w:t></w:r></w:p>
<w:p><w:r><w:t>Next</w:t></w:r></w:p>
</w:body></w:document>`

	paras, err := parseDocumentXML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []docParagraph{
		{Text: "Inside box", Level: 2},
		{Text: "Outer before outer after"},
		{Text: "Next"},
	}
	if !slices.Equal(paras, want) {
		t.Fatalf("parseDocumentXML() = %+v, want %+v", paras, want)
	}
}

func TestConvertLegacyWordThroughOfficeText(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.office.output = []byte("\xef\xbb\xbfMinutes\r\nitem one\r\n")

	res, err := env.svc.Convert(context.Background(), Request{
		Data:         []byte{0xd0, 0xcf, 0x11, 0xe0},
		MimeType:     "application/msword",
		TargetFormat: "md",
		FileName:     "minutes.doc",
	})
	if err != nil {
		t.Fatalf("doc -> md: %v", err)
	}
	if string(res.Data) != "# minutes\n\nMinutes\nitem one\n" {
		t.Fatalf("unexpected markdown %q", res.Data)
	}
	if len(env.office.calls) != 1 || env.office.calls[0] != "doc->txt" {
		t.Fatalf("unexpected office calls %v", env.office.calls)
	}
}

func TestConvertMediaUsesExternalConverter(t *testing.T) {
	env := newTestEnv(t, Options{})

	res, err := env.svc.Convert(context.Background(), Request{
		Data:         []byte("ID3 fake audio"),
		MimeType:     "audio/mpeg",
		TargetFormat: "wav",
		FileName:     "song.mp3",
	})
	if err != nil {
		t.Fatalf("mp3 -> wav: %v", err)
	}
	if string(res.Data) != "media output" || res.FileName != "song.wav" || res.MimeType != "audio/wav" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(env.media.calls) != 1 || env.media.calls[0] != "mp3->wav" {
		t.Fatalf("unexpected media calls %v", env.media.calls)
	}
	env.assertWorkspacesRemoved(t)
}

func TestConvertPresentationUsesOffice(t *testing.T) {
	env := newTestEnv(t, Options{})

	res, err := env.svc.Convert(context.Background(), Request{
		Data:         []byte("PK fake pptx"),
		MimeType:     mimePptx,
		TargetFormat: "pdf",
		FileName:     "deck.pptx",
	})
	if err != nil {
		t.Fatalf("pptx -> pdf: %v", err)
	}
	if res.FileName != "deck.pdf" || len(env.office.calls) != 1 || env.office.calls[0] != "pptx->pdf" {
		t.Fatalf("unexpected result %q calls %v", res.FileName, env.office.calls)
	}
	env.assertWorkspacesRemoved(t)
}

func TestConvertExternalFailures(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		message string
	}{
		{"failed", fmt.Errorf("%w: exit status 1: bad codec", extconv.ErrConversionFailed), "Conversion failed"},
		{"timeout", fmt.Errorf("%w after 1s", extconv.ErrTimeout), "Conversion timed out"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			env.media.err = tc.err

			_, err := env.svc.Convert(context.Background(), Request{
				Data:         []byte("ID3 fake audio"),
				MimeType:     "audio/mpeg",
				TargetFormat: "ogg",
			})
			convErr := requireError(t, err, KindConversion, CodeConversionFailed)
			if convErr.Message != tc.message {
				t.Fatalf("unexpected message %q", convErr.Message)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected cause to be preserved, got %v", err)
			}
			env.assertWorkspacesRemoved(t)
		})
	}
}

func TestConvertWithoutExternalConverter(t *testing.T) {
	svc := NewService(Dependencies{}, Options{})
	_, err := svc.Convert(context.Background(), Request{
		Data:         []byte("ID3 fake audio"),
		MimeType:     "audio/mpeg",
		TargetFormat: "ogg",
	})
	requireError(t, err, KindConversion, CodeConversionFailed)
}
