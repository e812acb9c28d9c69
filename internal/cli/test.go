package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/manifestgen/manifestgen/internal/config"
	"github.com/manifestgen/manifestgen/internal/dispatch"
	"github.com/manifestgen/manifestgen/internal/manifest"
	"github.com/manifestgen/manifestgen/internal/scaffold"
	"github.com/manifestgen/manifestgen/internal/server"
	"github.com/spf13/cobra"
)

type testOptions struct {
	romManifest  string
	romBranch    string
	file         string
	manifestFile string
	json         bool
}

var testOpts testOptions

func init() {
	testCmd.Flags().StringVar(&testOpts.romManifest, "rom-manifest", "", "URL of the ROM's base manifest repository (required)")
	testCmd.Flags().StringVar(&testOpts.romBranch, "rom-branch", "", "Branch of the base manifest (required)")
	testCmd.Flags().StringVarP(&testOpts.file, "file", "f", scaffold.DocumentFile, "Document description to build and test")
	testCmd.Flags().StringVar(&testOpts.manifestFile, "manifest-file", "", "Test this manifest XML as is instead of building --file")
	testCmd.Flags().BoolVar(&testOpts.json, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(testCmd)
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the manifest on GitHub Actions",
	Long: `Dispatch the manifest test workflow against a base ROM manifest and print
the run it started.

The run is found by listing the workflow's most recent run shortly after the
dispatch; if several tests are started at once the run shown may not be
yours. When no run is listed yet, the workflow's page is printed instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDispatcher(config.Current())
		if err != nil {
			return err
		}
		return runTest(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), d, testOpts)
	},
}

func runTest(ctx context.Context, stdout, stderr io.Writer, d server.Dispatcher, opts testOptions) error {
	text, err := manifestText(stderr, opts)
	if err != nil {
		return err
	}

	handle, err := d.Dispatch(ctx, dispatch.Request{
		ManifestURL:    opts.romManifest,
		ManifestBranch: opts.romBranch,
		ManifestText:   text,
	})
	if err != nil {
		var upstream *dispatch.UpstreamError
		if errors.As(err, &upstream) {
			return fmt.Errorf("failed to trigger test: GitHub returned status %d: %s", upstream.StatusCode, upstream.Body)
		}
		return fmt.Errorf("failed to trigger test: %w", err)
	}

	if opts.json {
		out, err := json.MarshalIndent(struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
			*dispatch.RunHandle
		}{true, "Test triggered successfully", handle}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		fmt.Fprintln(stdout, string(out))
		return nil
	}

	fmt.Fprintln(stdout, "Test triggered successfully")
	if handle.Resolved() {
		fmt.Fprintf(stdout, "Run:      #%d (%s)\n", handle.RunID, handle.Status)
		fmt.Fprintf(stdout, "URL:      %s\n", handle.RunURL)
		return nil
	}
	fmt.Fprintln(stdout, "The run is not listed yet; follow it on the workflow page:")
	fmt.Fprintf(stdout, "Workflow: %s\n", handle.WorkflowURL)
	return nil
}

// manifestText returns the raw manifest file when one is given, otherwise the
// built document description.
func manifestText(stderr io.Writer, opts testOptions) (string, error) {
	if opts.manifestFile != "" {
		data, err := os.ReadFile(opts.manifestFile)
		if err != nil {
			return "", fmt.Errorf("reading manifest: %w", err)
		}
		return string(data), nil
	}

	text, result, err := manifest.BuildFile(opts.file)
	if result != nil {
		printWarnings(stderr, result.Warnings)
	}
	return text, err
}
