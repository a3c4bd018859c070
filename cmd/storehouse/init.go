package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storehouse"
	"github.com/sagarc03/storehouse/config"
	"github.com/sagarc03/storehouse/database"
	"github.com/sagarc03/storehouse/filesystem"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Populate the ledger from files already in storage",
	Long: `Scan the storage directory and record every file in the ledger
database. This is useful when:
  - Turning on the ledger for a directory that already holds files
  - Recovering the ledger after database loss`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	storagePath := cfg.Storage.Path
	if _, err := os.Stat(storagePath); os.IsNotExist(err) {
		return fmt.Errorf("storage directory does not exist: %s", storagePath)
	}

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	root, err := os.OpenRoot(storagePath)
	if err != nil {
		return fmt.Errorf("open storage root: %w", err)
	}
	defer func() { _ = root.Close() }()

	scanner, err := filesystem.NewScanner(root)
	if err != nil {
		return fmt.Errorf("create scanner: %w", err)
	}

	slog.Info("scanning storage directory", "path", storagePath)

	n, err := storehouse.Populate(ctx, repo, scanner)
	if err != nil {
		return fmt.Errorf("populate: %w", err)
	}

	slog.Info("initialization complete", "files_indexed", n)
	return nil
}
