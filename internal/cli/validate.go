package cli

import (
	"fmt"
	"io"

	"github.com/manifestgen/manifestgen/internal/manifest"
	"github.com/manifestgen/manifestgen/internal/scaffold"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a document description against the schema",
	Long: `Check a document description against the schema and report entries that
will be skipped or that reference undeclared remotes.

Defaults to ` + scaffold.DocumentFile + ` in the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := scaffold.DocumentFile
		if len(args) == 1 {
			file = args[0]
		}
		return runValidate(cmd.OutOrStdout(), file)
	},
}

func runValidate(w io.Writer, file string) error {
	result, err := manifest.ValidateFile(file)
	if err != nil {
		return err
	}
	if !result.Valid {
		fmt.Fprintf(w, "%s is invalid:\n", file)
		for _, issue := range result.Issues {
			fmt.Fprintf(w, "  - %s\n", issue)
		}
		return fmt.Errorf("%s: %d schema issue(s)", file, len(result.Issues))
	}

	fmt.Fprintf(w, "%s is valid\n", file)
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, issue := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", issue)
		}
	}
	return nil
}
