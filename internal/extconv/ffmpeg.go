package extconv

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FFmpeg transcodes audio and video files.
type FFmpeg struct {
	BinaryPath string
	Timeout    time.Duration
}

// NewFFmpeg returns an FFmpeg converter. An empty path means "ffmpeg" on PATH.
func NewFFmpeg(binaryPath string, timeout time.Duration) *FFmpeg {
	if binaryPath == "" {
		binaryPath = "ffmpeg"
	}
	return &FFmpeg{BinaryPath: binaryPath, Timeout: timeout}
}

var ffmpegCodecArgs = map[string][]string{
	"mp3":  {"-vn", "-codec:a", "libmp3lame", "-q:a", "2"},
	"wav":  {"-vn", "-codec:a", "pcm_s16le"},
	"ogg":  {"-vn", "-codec:a", "libvorbis", "-q:a", "5"},
	"flac": {"-vn", "-codec:a", "flac"},
	"aac":  {"-vn", "-codec:a", "aac", "-b:a", "192k"},
	"m4a":  {"-vn", "-codec:a", "aac", "-b:a", "192k"},
	"mp4":  {"-codec:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p", "-codec:a", "aac", "-movflags", "+faststart"},
	"mov":  {"-codec:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p", "-codec:a", "aac"},
	"mkv":  {"-codec:v", "libx264", "-preset", "veryfast", "-codec:a", "aac"},
	"webm": {"-codec:v", "libvpx-vp9", "-b:v", "0", "-crf", "32", "-codec:a", "libopus"},
	"avi":  {"-codec:v", "mpeg4", "-q:v", "5", "-codec:a", "libmp3lame"},
	"gif":  {"-an", "-vf", "fps=10,scale=480:-1:flags=lanczos", "-loop", "0"},
}

// Args returns the ffmpeg argument list for a conversion.
func (f *FFmpeg) Args(inputPath, outputPath, targetFormat string) ([]string, error) {
	codec, ok := ffmpegCodecArgs[strings.ToLower(targetFormat)]
	if !ok {
		return nil, fmt.Errorf("%w: ffmpeg has no preset for %q", ErrConversionFailed, targetFormat)
	}
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", inputPath}
	args = append(args, codec...)
	return append(args, outputPath), nil
}

// Convert implements Converter.
func (f *FFmpeg) Convert(ctx context.Context, inputPath, outputPath, targetFormat string) error {
	args, err := f.Args(inputPath, outputPath, targetFormat)
	if err != nil {
		return err
	}
	if err := run(ctx, f.Timeout, nil, f.BinaryPath, args...); err != nil {
		return err
	}
	return requireOutput(outputPath)
}
