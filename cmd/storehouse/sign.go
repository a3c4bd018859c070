package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storehouse"
	"github.com/sagarc03/storehouse/config"
	"github.com/sagarc03/storehouse/keybackend"
)

var signCmd = &cobra.Command{
	Use:   "sign key=value...",
	Short: "Print the signature for a set of form fields",
	Long: `Print the signature the server expects for the given form fields.

Example:
  storehouse sign path=images/logo.png
  storehouse sign url=https://example.com/a.txt path=a.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSign,
}

func init() {
	signCmd.Flags().Bool("show-canonical", false, "also print the signed string with the secret redacted")
	rootCmd.AddCommand(signCmd)
}

func runSign(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	fields, err := parseFieldArgs(args)
	if err != nil {
		return err
	}

	secret, err := keybackend.ResolveSecret(cfg.Auth.SecretConfig)
	if err != nil {
		return fmt.Errorf("resolve secret: %w", err)
	}

	out := cmd.OutOrStdout()
	if showCanonical, _ := cmd.Flags().GetBool("show-canonical"); showCanonical {
		_, _ = fmt.Fprintln(out, storehouse.CanonicalString(fields, []byte("[redacted]")))
	}

	_, err = fmt.Fprintln(out, storehouse.ComputeSignature(fields, secret, cfg.Auth.SignatureAlgorithm()))
	return err
}

// parseFieldArgs turns key=value arguments into a field set. Values may
// contain '='; only the first one separates.
func parseFieldArgs(args []string) (storehouse.SignedRequest, error) {
	fields := storehouse.SignedRequest{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", arg)
		}
		fields[name] = value
	}
	return fields, nil
}
