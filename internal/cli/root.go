// Package cli implements convertctl, which converts files either in process
// or through a running API server.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/convertey/convertey-api/internal/config"
	"github.com/convertey/convertey-api/internal/convert"
	"github.com/convertey/convertey-api/internal/extconv"
	"github.com/convertey/convertey-api/internal/logging"
	"github.com/convertey/convertey-api/internal/pdfgen"
	"github.com/convertey/convertey-api/internal/storage"
)

// Version is reported by the version command.
var Version = "0.1.0"

type rootOptions struct {
	remote   string
	logLevel string
}

// NewRootCmd builds the convertctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "convertctl",
		Short:         "Convert files between formats",
		Long:          "Convert files between formats, in process or through a convertey API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.InitTo(cmd.ErrOrStderr(), opts.logLevel)
		},
	}
	root.PersistentFlags().StringVarP(&opts.remote, "remote", "r", "", "base URL of an API server; converts in process when empty")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newConvertCmd(opts))
	root.AddCommand(newFormatsCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("convertctl " + Version)
		},
	}
}

// newLocalService builds an in-process dispatcher from the same environment
// the API server reads.
func newLocalService() (*convert.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewLocal(cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	table, err := loadTable(cfg)
	if err != nil {
		return nil, err
	}
	return convert.NewService(convert.Dependencies{
		Table:     table,
		Storage:   store,
		Office:    extconv.NewOffice(cfg.SofficePath, cfg.ConversionTimeout),
		Media:     extconv.NewFFmpeg(cfg.FFmpegPath, cfg.ConversionTimeout),
		Paginator: pdfgen.New(),
	}, convert.Options{
		MaxFileSize: cfg.MaxFileSize,
		Timeout:     cfg.ConversionTimeout,
	}), nil
}

func loadTable(cfg *config.Config) (*convert.FormatTable, error) {
	if cfg.FormatTablePath == "" {
		return convert.DefaultFormatTable(), nil
	}
	return convert.LoadFormatTable(cfg.FormatTablePath)
}
