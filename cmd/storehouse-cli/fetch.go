package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storehouse/clientcli"
)

var fetchFields []string

var fetchCmd = &cobra.Command{
	Use:   "fetch <url> <remote-path>",
	Short: "Have the server download a URL",
	Long: `Ask the server to download url and store it at remote-path.

Example:
  storehouse-cli fetch https://example.com/logo.png img/logo.png`,
	Args: cobra.ExactArgs(2),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringArrayVarP(&fetchFields, "field", "f", nil, "extra signed form field key=value, repeatable")
}

func runFetch(cmd *cobra.Command, args []string) error {
	fields, err := parseFields(fetchFields)
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	formatter := getFormatter()

	result, err := client.Fetch(cmd.Context(), clientcli.FetchOptions{
		URL:        args[0],
		RemotePath: args[1],
		Fields:     fields,
	})
	if err != nil {
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	return formatter.FormatFetch(os.Stdout, result)
}
