package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/qtc-mcp-server/internal/config"
	"github.com/qtc-mcp-server/internal/history"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var (
		dbPath     string
		limit      int
		offset     int
		exportPath string
		importPath string
		deleteID   string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect, export or import the evaluation history of qtc-mcp",
		Example: `  qtc history
  qtc history --export evaluations.json
  qtc history --db /srv/qtc/history.db --import evaluations.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				dbPath = config.LoadLiteConfig().HistoryDBPath()
			}
			store, err := history.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch {
			case exportPath != "":
				w := out
				if exportPath != "-" {
					f, err := os.Create(exportPath)
					if err != nil {
						return fmt.Errorf("failed to create export file: %w", err)
					}
					defer f.Close()
					w = f
				}
				if err := store.ExportJSON(ctx, w); err != nil {
					return err
				}
				if exportPath != "-" {
					fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", exportPath)
				}
				return nil

			case importPath != "":
				var r io.Reader = cmd.InOrStdin()
				if importPath != "-" {
					f, err := os.Open(importPath)
					if err != nil {
						return fmt.Errorf("failed to open import file: %w", err)
					}
					defer f.Close()
					r = f
				}
				imported, skipped, err := store.ImportJSON(ctx, r)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "imported %d evaluations, skipped %d already present\n", imported, skipped)
				return nil

			case deleteID != "":
				if err := store.Delete(ctx, deleteID); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted %s\n", deleteID)
				return nil
			}

			records, err := store.List(ctx, limit, offset)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(out, records)
			}
			total, err := store.Count(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWHEN\tFORMULA\tQTC\tCRITERION\tSEVERITY")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, humanize.Time(r.CreatedAt), r.Formula, formatValue(r.QTc, r.NonFinite, r.Units), r.Criterion, r.Severity)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d of %s evaluations\n", len(records), humanize.Comma(total))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "history database (default $QTC_DATA_DIR/history.db)")
	cmd.Flags().IntVar(&limit, "limit", 20, "evaluations to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "evaluations to skip")
	cmd.Flags().StringVar(&exportPath, "export", "", "write all evaluations as JSON to this file (- for stdout)")
	cmd.Flags().StringVar(&importPath, "import", "", "restore evaluations from a JSON export (- for stdin)")
	cmd.Flags().StringVar(&deleteID, "delete", "", "delete one evaluation")
	cmd.MarkFlagsMutuallyExclusive("export", "import", "delete")
	return cmd
}
