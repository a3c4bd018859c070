package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storehouse/keybackend"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a shared secret and write it to the key file",
	RunE:  runKeygen,
}

func init() {
	keygenCmd.Flags().IntP("bytes", "n", 32, "random bytes in the secret")
	keygenCmd.Flags().BoolP("force", "f", false, "replace an existing key file")
	keygenCmd.Flags().Bool("print", false, "print the secret instead of writing it")

	rootCmd.AddCommand(keygenCmd)
}

func runKeygen(cmd *cobra.Command, args []string) error {
	n, _ := cmd.Flags().GetInt("bytes")
	force, _ := cmd.Flags().GetBool("force")
	printOnly, _ := cmd.Flags().GetBool("print")

	secret, err := keybackend.GenerateSecret(n)
	if err != nil {
		return err
	}

	if printOnly {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), secret)
		return err
	}

	path, _ := cmd.Flags().GetString("secret-file")
	if path == "" {
		path = keybackend.DefaultKeyFile
	}

	if err := keybackend.WriteSecretFile(path, secret, force); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote new secret to %s\n", path)
	return err
}
