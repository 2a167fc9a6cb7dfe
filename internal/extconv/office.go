package extconv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Office converts documents with a headless LibreOffice (soffice).
type Office struct {
	BinaryPath string
	Timeout    time.Duration
}

// NewOffice returns an Office converter. An empty path means "soffice" on PATH.
func NewOffice(binaryPath string, timeout time.Duration) *Office {
	if binaryPath == "" {
		binaryPath = "soffice"
	}
	return &Office{BinaryPath: binaryPath, Timeout: timeout}
}

// officeFilters pins the export filter where the bare extension is ambiguous.
var officeFilters = map[string]string{
	"txt":  "txt:Text (encoded):UTF8",
	"csv":  "csv:Text - txt - csv (StarCalc):44,34,76,1",
	"html": "html:XHTML Writer File:UTF8",
}

// Convert implements Converter. LibreOffice names its output after the input
// file, so the result is written next to outputPath and then renamed.
func (o *Office) Convert(ctx context.Context, inputPath, outputPath, targetFormat string) error {
	target := strings.ToLower(targetFormat)
	filter, ok := officeFilters[target]
	if !ok {
		filter = target
	}

	outDir := filepath.Dir(outputPath)
	profileDir := filepath.Join(outDir, ".lo-profile")
	defer os.RemoveAll(profileDir)

	env := []string{
		"HOME=" + profileDir,
		"UserInstallation=file://" + profileDir,
	}
	args := []string{
		"--headless",
		"--norestore",
		"-env:UserInstallation=file://" + profileDir,
		"--convert-to", filter,
		"--outdir", outDir,
		inputPath,
	}
	if err := run(ctx, o.Timeout, env, o.BinaryPath, args...); err != nil {
		return err
	}

	base := filepath.Base(inputPath)
	produced := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+"."+target)
	if err := requireOutput(produced); err != nil {
		return err
	}
	if produced == outputPath {
		return nil
	}
	if err := os.Rename(produced, outputPath); err != nil {
		return fmt.Errorf("move office output: %w", err)
	}
	return nil
}
