package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/convertey/convertey-api/internal/config"
	"github.com/convertey/convertey-api/internal/convert"
)

const defaultFormatsTimeout = 30 * time.Second

func newFormatsCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List source families and their target formats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			families, err := loadFormats(cmd, root)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(families)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tTARGETS\tMIME TYPES")
			for _, f := range families {
				fmt.Fprintf(w, "%s\t%s\t%s\n", f.Family, strings.Join(f.Targets, ","), strings.Join(f.MimeTypes, ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func loadFormats(cmd *cobra.Command, root *rootOptions) ([]convert.FamilySummary, error) {
	if root.remote != "" {
		return newClient(root.remote, defaultFormatsTimeout).formats(cmd.Context())
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	table, err := loadTable(cfg)
	if err != nil {
		return nil, err
	}
	return table.Summary(), nil
}
