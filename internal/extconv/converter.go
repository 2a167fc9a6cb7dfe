// Package extconv runs external conversion programs (ffmpeg, LibreOffice)
// behind a path based interface.
package extconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrTimeout is returned when the process outlives its time limit.
	ErrTimeout = errors.New("conversion timed out")

	// ErrNoOutput is returned when the process exits cleanly without writing
	// the expected file.
	ErrNoOutput = errors.New("conversion produced no output")

	// ErrConversionFailed is returned when the process exits with an error.
	ErrConversionFailed = errors.New("conversion failed")
)

// Converter turns the file at inputPath into targetFormat at outputPath.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputPath, targetFormat string) error
}

const (
	defaultTimeout = 300 * time.Second
	maxStderrBytes = 2048
	waitDelay      = 2 * time.Second
)

// run executes the command and maps failures onto the package errors.
// stderr is captured and attached to ErrConversionFailed.
func run(ctx context.Context, timeout time.Duration, env []string, name string, args ...string) error {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	slog.Debug("external_converter",
		"binary", name,
		"duration_ms", time.Since(start).Milliseconds(),
		"ok", err == nil,
	)
	if err == nil {
		return nil
	}

	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case errors.Is(ctxErr, context.Canceled):
		return ctxErr
	}
	return fmt.Errorf("%w: %v: %s", ErrConversionFailed, err, tail(stderr.String()))
}

func requireOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return ErrNoOutput
	}
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrBytes {
		s = s[len(s)-maxStderrBytes:]
	}
	return s
}
