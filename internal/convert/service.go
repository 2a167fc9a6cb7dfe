// Package convert turns one uploaded file into another format. The dispatcher
// routes on the source MIME family through an injected FormatTable; every
// branch is a single synchronous attempt.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/convertey/convertey-api/internal/epub"
	"github.com/convertey/convertey-api/internal/extconv"
	"github.com/convertey/convertey-api/internal/logging"
	"github.com/convertey/convertey-api/internal/pdfgen"
	"github.com/convertey/convertey-api/internal/storage"
)

// DefaultMaxFileSize is the largest accepted decoded upload (100 MiB).
const DefaultMaxFileSize int64 = 100 << 20

// DefaultTimeout bounds one conversion, external processes included.
const DefaultTimeout = 300 * time.Second

// Options configures a Service.
type Options struct {
	MaxFileSize int64
	Timeout     time.Duration
}

// Dependencies are the collaborators a Service delegates to. Office and Media
// may be nil, in which case the branches that need them fail.
type Dependencies struct {
	Table     *FormatTable
	Storage   *storage.Local
	Office    extconv.Converter
	Media     extconv.Converter
	Paginator *pdfgen.Paginator
}

type branchFunc func(ctx context.Context, src source, target string) ([]byte, error)

// Service is the format dispatcher.
type Service struct {
	table     *FormatTable
	storage   *storage.Local
	office    extconv.Converter
	media     extconv.Converter
	paginator *pdfgen.Paginator
	opts      Options
	branches  map[Family]branchFunc
}

// NewService wires a dispatcher. A nil table means DefaultFormatTable.
func NewService(deps Dependencies, opts Options) *Service {
	if deps.Table == nil {
		deps.Table = DefaultFormatTable()
	}
	if deps.Paginator == nil {
		deps.Paginator = pdfgen.New()
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	s := &Service{
		table:     deps.Table,
		storage:   deps.Storage,
		office:    deps.Office,
		media:     deps.Media,
		paginator: deps.Paginator,
		opts:      opts,
	}
	s.branches = map[Family]branchFunc{
		FamilyImage:        s.convertImage,
		FamilyPDF:          s.convertPDF,
		FamilyWord:         s.convertWord,
		FamilySpreadsheet:  s.convertSpreadsheet,
		FamilyPresentation: s.convertPresentation,
		FamilyAudio:        s.convertMedia,
		FamilyVideo:        s.convertMedia,
		FamilyText:         s.convertText,
		FamilyMarkdown:     s.convertMarkdown,
		FamilyHTML:         s.convertHTML,
		FamilyEPUB:         s.convertEPUB,
	}
	return s
}

// Table returns the routing table in use.
func (s *Service) Table() *FormatTable {
	return s.table
}

// MaxFileSize returns the decoded size limit.
func (s *Service) MaxFileSize() int64 {
	return s.opts.MaxFileSize
}

// Convert validates req, routes it to its family branch and returns the
// converted file. Validation happens before any conversion work.
func (s *Service) Convert(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(req.Data) == 0 {
		return nil, validationError(CodeInvalidInput, "fileData is required")
	}
	target := normalizeTarget(req.TargetFormat)
	if target == "" {
		return nil, validationError(CodeInvalidInput, "format is required")
	}
	if int64(len(req.Data)) > s.opts.MaxFileSize {
		return nil, validationError(CodeLimitExceeded,
			fmt.Sprintf("File exceeds the maximum size of %d bytes", s.opts.MaxFileSize))
	}

	mimeType := s.table.detectMime(req.MimeType, req.FileName, req.Data)
	src, ok := s.table.Source(mimeType)
	if !ok || (len(req.Families) > 0 && !slices.Contains(req.Families, src.Family)) {
		label := mimeType
		if label == "" {
			label = "unknown"
		}
		return nil, validationError(CodeUnsupportedSource,
			fmt.Sprintf("Unsupported file type: %s", label))
	}
	if !s.table.Supports(src.Family, target) {
		return nil, validationError(CodeUnsupportedTarget,
			fmt.Sprintf("Cannot convert %s files to %s (supported: %s)",
				src.Family, target, strings.Join(s.table.TargetsFor(src.Family), ", ")))
	}
	targetFormat, ok := s.table.Target(target)
	if !ok {
		return nil, validationError(CodeUnsupportedTarget,
			fmt.Sprintf("Unsupported target format: %s", target))
	}
	branch, ok := s.branches[src.Family]
	if !ok {
		return nil, validationError(CodeUnsupportedSource,
			fmt.Sprintf("No converter for %s files", src.Family))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	input := source{
		Data:      req.Data,
		MimeType:  mimeType,
		Extension: src.Extension,
		FileName:  req.FileName,
		Title:     titleFromFileName(req.FileName),
	}

	logger := logging.FromContext(ctx)
	start := time.Now()
	out, err := branch(ctx, input, target)
	if err != nil {
		return nil, classify(err)
	}
	logger.Info("conversion_done",
		"family", src.Family,
		"source_mime", mimeType,
		"target", target,
		"input_bytes", len(req.Data),
		"output_bytes", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		Data:     out,
		FileName: suggestedFileName(req.FileName, targetFormat.Extension),
		MimeType: targetFormat.MimeType,
		Family:   src.Family,
	}, nil
}

// classify turns a branch error into an *Error.
func classify(err error) error {
	var convErr *Error
	switch {
	case errors.As(err, &convErr):
		return convErr
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, epub.ErrInvalidArchive):
		return archiveError(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, extconv.ErrTimeout):
		return conversionError("Conversion timed out", err)
	default:
		return conversionError("Conversion failed", err)
	}
}

// runExternal materialises the input in a scoped workspace, runs conv and
// reads the output back. The workspace is removed on every return path.
func (s *Service) runExternal(ctx context.Context, conv extconv.Converter, data []byte, inExt, target string) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("no external converter configured for %s", target)
	}
	if s.storage == nil {
		return nil, errors.New("no work directory configured")
	}

	ws, err := s.storage.Acquire()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			slog.Warn("workspace_cleanup_failed", "dir", ws.Dir, "error", cerr)
		}
	}()

	inputPath, err := ws.WriteInput(inExt, data)
	if err != nil {
		return nil, err
	}
	outputPath := ws.OutputPath(target)
	if err := conv.Convert(ctx, inputPath, outputPath, target); err != nil {
		return nil, err
	}
	return ws.ReadOutput(outputPath)
}
