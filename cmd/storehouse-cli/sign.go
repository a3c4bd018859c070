package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storehouse"
)

var signCmd = &cobra.Command{
	Use:   "sign key=value...",
	Short: "Print the signature for a set of form fields",
	Long: `Print the signature for the given form fields using the configured
secret, for use with curl or an HTML form.

Example:
  storehouse-cli sign path=images/logo.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSign,
}

func runSign(_ *cobra.Command, args []string) error {
	fields, err := parseFields(args)
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	return getFormatter().FormatSignature(os.Stdout, client.Sign(storehouse.SignedRequest(fields)))
}
