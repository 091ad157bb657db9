package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"intakectl/internal/config"
	"intakectl/internal/suite"
)

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats [module ...]",
		Short: "List the intake formats and their fixtures",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if rootDir != "" {
				cfg.IntakesRoot = rootDir
			}

			formats, err := suite.DiscoverFormats(cfg)
			if err != nil {
				return err
			}
			formats = suite.FilterFormats(formats, args)
			if len(formats) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No formats found in %s\n", cfg.IntakesRoot)
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{
				text.FgHiCyan.Sprint("MODULE"),
				text.FgHiCyan.Sprint("FORMAT"),
				text.FgHiCyan.Sprint("FIXTURES"),
				text.FgHiCyan.Sprint("PARSER"),
				text.FgHiCyan.Sprint("FIELDS"),
			})
			for _, format := range formats {
				t.AppendRow(table.Row{
					format.Module,
					format.Name,
					len(format.Fixtures),
					presence(cfg.ParserPath(format.Module, format.Name)),
					presence(cfg.FieldsPath(format.Module, format.Name)),
				})
			}
			t.Render()
			return nil
		},
	}
}

func presence(path string) string {
	if _, err := os.Stat(path); err != nil {
		return text.FgRed.Sprint("missing")
	}
	return text.FgGreen.Sprint("yes")
}
