package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/storehouse/clientcli"
)

var (
	uploadRecursive   bool
	uploadContentType string
	uploadFields      []string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path> [remote-path]",
	Short: "Upload files to the server",
	Long: `Upload files to the server as signed multipart requests.

When remote-path is omitted the local path, cleaned, is used.

Examples:
  storehouse-cli upload ./file.txt path/file.txt
  storehouse-cli upload -r ./images/ media/images/
  storehouse-cli upload --content-type application/json ./data config.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", false, "upload directory recursively")
	uploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "override content-type")
	uploadCmd.Flags().StringArrayVarP(&uploadFields, "field", "f", nil, "extra signed form field key=value, repeatable")
}

func runUpload(cmd *cobra.Command, args []string) error {
	opts := clientcli.UploadOptions{
		LocalPath:   args[0],
		ContentType: uploadContentType,
		Recursive:   uploadRecursive,
	}
	if len(args) == 2 {
		opts.RemotePath = args[1]
	}

	fields, err := parseFields(uploadFields)
	if err != nil {
		return err
	}
	opts.Fields = fields

	client, err := getClient()
	if err != nil {
		return err
	}

	formatter := getFormatter()

	results, err := client.Upload(cmd.Context(), opts)
	if err != nil {
		_ = formatter.FormatError(os.Stderr, err)
		return err
	}

	if err := formatter.FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	for i := range results {
		if results[i].Err != nil {
			return results[i].Err
		}
	}

	return nil
}
