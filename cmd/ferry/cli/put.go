package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/ferry"
)

var putCmd = &cobra.Command{
	Use:   "put <file> <url>",
	Short: "Upload a file",
	Long: `Upload <file> to <url>.

HTTP(S) destinations receive a PUT request with the file as body. OCI
destinations receive the file as the single layer of an artifact manifest
tagged with the reference's tag.

Credentials are given as user:password with --credentials or the
FERRY_CREDENTIALS environment variable. Without them, OCI uploads fall back
to the Docker credential store.

Examples:
  ferry put ./data.bin https://example.com/upload/data.bin
  ferry put ./data.bin oci://localhost:5000/acme/data:v1 --insecure`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completePutArgs,
	RunE:              runPut,
}

// credentialsEnv is read when --credentials is not given. It is not bound
// into viper, so config set never persists it.
const credentialsEnv = "FERRY_CREDENTIALS"

var putCredentials string

func init() {
	putCmd.Flags().StringVarP(&putCredentials, "credentials", "u", "", "Credentials as user:password")
	rootCmd.AddCommand(putCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
	src, url := args[0], args[1]

	ctx, cancel := signalContext()
	defer cancel()

	ferry.Init()
	defer ferry.Cleanup()

	client, err := newClient()
	if err != nil {
		return err
	}

	creds := putCredentials
	if creds == "" {
		creds = os.Getenv(credentialsEnv)
	}

	view := newTransferProgress("Uploading")
	var failure error
	transfer, err := client.Upload(url, src, creds, ferry.UploadCallbacks{
		OnProgress: func(_, _ string, total, uploaded int64, _ any) {
			view.update(total, uploaded)
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
		return fmt.Errorf("upload %s: %w", src, failure)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s (%s)\n", src, url, view.size())
	return nil
}
