package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"compressum/internal/container"
)

func newFormatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the output containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			def, _ := container.Parse(cfg.Compression.Format)

			rows := make([][]string, 0, len(container.ExportFormats))
			for i, f := range container.ExportFormats {
				marker := ""
				if f == def {
					marker = "default"
				}
				rows = append(rows, []string{strconv.Itoa(i), f.Label(), "." + f.Extension(), marker})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Index", "Format", "Extension", ""},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
