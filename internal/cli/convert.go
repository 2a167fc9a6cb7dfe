package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/convertey/convertey-api/internal/convert"
)

type convertArgs struct {
	input    string
	output   string
	to       string
	fileType string
	timeout  time.Duration
}

// converter is satisfied by *convert.Service and by the remote client.
type converter interface {
	Convert(ctx context.Context, req convert.Request) (*convert.Result, error)
}

type remoteConverter struct {
	c *client
}

func (r remoteConverter) Convert(ctx context.Context, req convert.Request) (*convert.Result, error) {
	return r.c.convert(ctx, req)
}

func newConvertCmd(root *rootOptions) *cobra.Command {
	args := &convertArgs{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert one file",
		Long:  "Convert one file to the format given by --to. The output is written next to the input unless --output is set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvert(cmd, root, args)
		},
	}
	cmd.Flags().StringVarP(&args.input, "input", "i", "", "file to convert")
	cmd.Flags().StringVarP(&args.to, "to", "t", "", "target format, e.g. pdf, md, csv")
	cmd.Flags().StringVarP(&args.output, "output", "o", "", "output file or directory")
	cmd.Flags().StringVar(&args.fileType, "type", "", "MIME type of the input; detected when empty")
	cmd.Flags().DurationVar(&args.timeout, "timeout", 5*time.Minute, "overall time limit")
	return cmd
}

func runConvert(cmd *cobra.Command, root *rootOptions, args *convertArgs) error {
	if args.input == "" {
		return fmt.Errorf("input file is required")
	}
	if args.to == "" {
		return fmt.Errorf("target format is required")
	}

	data, err := os.ReadFile(args.input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var conv converter
	if root.remote != "" {
		conv = remoteConverter{c: newClient(root.remote, args.timeout)}
	} else {
		svc, err := newLocalService()
		if err != nil {
			return fmt.Errorf("failed to init converter: %w", err)
		}
		conv = svc
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), args.timeout)
	defer cancel()
	result, err := conv.Convert(ctx, convert.Request{
		Data:         data,
		MimeType:     args.fileType,
		TargetFormat: args.to,
		FileName:     filepath.Base(args.input),
	})
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w", args.input, err)
	}

	outPath := outputPath(args.input, args.output, result.FileName)
	if err := os.WriteFile(outPath, result.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	cmd.Printf("%s -> %s (%d bytes)\n", args.input, outPath, len(result.Data))
	return nil
}

// outputPath resolves where the result goes: an explicit file, a file inside
// an explicit directory, or the suggested name next to the input.
func outputPath(input, output, suggested string) string {
	if output == "" {
		return filepath.Join(filepath.Dir(input), suggested)
	}
	if strings.HasSuffix(output, string(os.PathSeparator)) {
		return filepath.Join(output, suggested)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, suggested)
	}
	return output
}
