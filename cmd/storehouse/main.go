package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storehouse/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "storehouse",
	Short:   "Signed file upload and fetch server",
	Long: `Storehouse accepts signed multipart uploads and signed fetch requests
and commits the resulting files under a local directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		files, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Env, cfg.Log.Level)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeatable (default: ./storehouse.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "ledger database type: sqlite, postgres (env: STOREHOUSE_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "ledger database connection string (env: STOREHOUSE_DATABASE_DSN)")
	rootCmd.PersistentFlags().StringP("directory", "d", "", "storage directory (env: STOREHOUSE_STORAGE_PATH)")
	rootCmd.PersistentFlags().StringP("secret", "s", "", "shared secret (default: read from .storehouse_key)")
	rootCmd.PersistentFlags().String("secret-file", "", "file holding the shared secret")
	rootCmd.PersistentFlags().String("algorithm", "", "signature hash: sha1, sha256")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
