package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/ferry"
)

var getCmd = &cobra.Command{
	Use:   "get <url> <file>",
	Short: "Download a file",
	Long: `Download the resource at <url> into <file>.

The file is created or truncated; its parent directory must exist. A file
that was partially written before a failure is left in place.

Examples:
  ferry get https://example.com/data.bin ./data.bin
  ferry get oci://ghcr.io/acme/artifacts:v1 ./artifact.bin`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeGetArgs,
	RunE:              runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	url, dest := args[0], args[1]

	ctx, cancel := signalContext()
	defer cancel()

	ferry.Init()
	defer ferry.Cleanup()

	client, err := newClient()
	if err != nil {
		return err
	}

	view := newTransferProgress("Downloading")
	var failure error
	transfer, err := client.Download(url, dest, ferry.DownloadCallbacks{
		OnProgress: func(_, _ string, total, downloaded int64, _ any) {
			view.update(total, downloaded)
		},
		OnCompleted: func(string, string, any) { view.finish() },
		OnFailed: func(_, _ string, err error, _ any) {
			view.finish()
			failure = err
		},
	}, nil)
	if err != nil {
		return err
	}

	await(ctx, client, transfer)
	if failure != nil {
		return fmt.Errorf("download %s: %w", url, failure)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s to %s (%s)\n", url, dest, view.size())
	return nil
}
