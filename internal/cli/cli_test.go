package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/convertey/convertey-api/internal/convert"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("WORK_DIR", t.TempDir())
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := convert.NewService(convert.Dependencies{}, convert.Options{})
	r := gin.New()
	r.POST("/api/convert/file", convert.FileHandler(svc, convert.HandlerOptions{}))
	r.GET("/api/formats", convert.FormatsHandler(svc.Table()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestConvertLocal(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(input, []byte("hello there"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	out, err := execute(t, "convert", "--input", input, "--to", "md")
	if err != nil {
		t.Fatalf("convert: %v (%s)", err, out)
	}
	got, err := os.ReadFile(filepath.Join(dir, "notes.md"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "# notes\n\nhello there\n" {
		t.Fatalf("unexpected output %q", got)
	}
	if !strings.Contains(out, "notes.md") {
		t.Fatalf("expected output path in message, got %q", out)
	}
}

func TestConvertRemote(t *testing.T) {
	srv := newTestServer(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "readme.md")
	if err := os.WriteFile(input, []byte("# Title\n\nSome **bold** text."), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	output := filepath.Join(dir, "plain.txt")

	if out, err := execute(t, "--remote", srv.URL, "convert", "-i", input, "-t", "txt", "-o", output); err != nil {
		t.Fatalf("convert: %v (%s)", err, out)
	}
	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "Title\n\nSome bold text." {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestConvertRemoteReportsServerError(t *testing.T) {
	srv := newTestServer(t)
	input := filepath.Join(t.TempDir(), "book.epub")
	if err := os.WriteFile(input, []byte("PK"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	_, err := execute(t, "--remote", srv.URL, "convert", "-i", input, "-t", "docx")
	if err == nil || !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "Cannot convert epub") {
		t.Fatalf("expected 400 error from server, got %v", err)
	}
}

func TestConvertRequiresFlags(t *testing.T) {
	if _, err := execute(t, "convert", "--to", "pdf"); err == nil {
		t.Fatalf("expected error without --input")
	}
	if _, err := execute(t, "convert", "--input", "x.txt"); err == nil {
		t.Fatalf("expected error without --to")
	}
}

func TestFormatsLocalAndRemote(t *testing.T) {
	out, err := execute(t, "formats")
	if err != nil {
		t.Fatalf("formats: %v", err)
	}
	if !strings.Contains(out, "FAMILY") || !strings.Contains(out, "epub") {
		t.Fatalf("unexpected table %q", out)
	}

	srv := newTestServer(t)
	out, err = execute(t, "--remote", srv.URL, "formats", "--json")
	if err != nil {
		t.Fatalf("remote formats: %v", err)
	}
	if !strings.Contains(out, `"family": "spreadsheet"`) {
		t.Fatalf("unexpected json %q", out)
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	cases := []struct{ input, output, want string }{
		{"/data/in/report.docx", "", "/data/in/report.pdf"},
		{"/data/in/report.docx", "/tmp/x.pdf", "/tmp/x.pdf"},
		{"/data/in/report.docx", dir, filepath.Join(dir, "report.pdf")},
		{"/data/in/report.docx", "/out/", "/out/report.pdf"},
	}
	for _, tc := range cases {
		if got := outputPath(tc.input, tc.output, "report.pdf"); got != tc.want {
			t.Fatalf("outputPath(%q, %q) = %q, want %q", tc.input, tc.output, got, tc.want)
		}
	}
}

func TestRemoteErrorWithoutBody(t *testing.T) {
	err := remoteError(http.StatusBadGateway, errorResponse{})
	if err.Error() != "server returned 502: Bad Gateway" {
		t.Fatalf("unexpected error %q", err)
	}
}
