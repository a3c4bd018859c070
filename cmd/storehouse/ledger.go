package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sagarc03/storehouse"
	"github.com/sagarc03/storehouse/config"
	"github.com/sagarc03/storehouse/database"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the commit ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List recorded files",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLedgerList,
}

func init() {
	ledgerListCmd.Flags().Int("limit", 100, "maximum entries per page")
	ledgerListCmd.Flags().String("cursor", "", "pagination cursor from a previous page")
	ledgerListCmd.Flags().Bool("all", false, "follow cursors until the end")
	ledgerListCmd.Flags().Bool("json", false, "output as JSON")

	ledgerCmd.AddCommand(ledgerListCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	cursor, _ := cmd.Flags().GetString("cursor")
	all, _ := cmd.Flags().GetBool("all")
	asJSON, _ := cmd.Flags().GetBool("json")

	query := storehouse.ListQuery{Limit: limit, Cursor: cursor}
	if len(args) == 1 {
		query.PathPrefix = args[0]
	}

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	var result storehouse.ListResult
	for {
		page, err := repo.List(ctx, query)
		if err != nil {
			return fmt.Errorf("list ledger: %w", err)
		}
		result.Items = append(result.Items, page.Items...)
		result.NextCursor = page.NextCursor

		if !all || page.NextCursor == "" {
			break
		}
		query.Cursor = page.NextCursor
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PATH\tSOURCE\tSIZE\tCONTENT TYPE\tUPDATED")
	for _, e := range result.Items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Path, e.Source, humanize.IBytes(uint64(max(e.SizeBytes, 0))), e.ContentType, humanize.Time(e.UpdatedAt))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if result.NextCursor != "" {
		_, _ = fmt.Fprintf(out, "\nMore entries: --cursor %s\n", result.NextCursor)
	}
	return nil
}
