package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/manifestgen/manifestgen/internal/manifest"
	"github.com/manifestgen/manifestgen/internal/scaffold"
	"github.com/manifestgen/manifestgen/internal/watch"
	"github.com/spf13/cobra"
)

type buildOptions struct {
	file   string
	output string
	watch  bool
}

var buildOpts buildOptions

func init() {
	buildCmd.Flags().StringVarP(&buildOpts.file, "file", "f", scaffold.DocumentFile, "Document description to build")
	buildCmd.Flags().StringVarP(&buildOpts.output, "output", "o", "", "Write the manifest to this file instead of stdout")
	buildCmd.Flags().BoolVarP(&buildOpts.watch, "watch", "w", false, "Rebuild whenever the document changes (needs --output)")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the local manifest XML",
	Long: `Validate a document description and render it as a local manifest.

Entries missing a required field are skipped and reported as warnings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), buildOpts)
	},
}

func runBuild(ctx context.Context, stdout, stderr io.Writer, opts buildOptions) error {
	if opts.watch {
		if opts.output == "" {
			return errors.New("--watch needs --output")
		}
		r := watch.New(opts.file, opts.output,
			watch.WithLogger(logger),
			watch.WithNotify(func(res watch.Result) { printRebuild(stderr, opts.output, res) }),
		)
		fmt.Fprintf(stderr, "Watching %s (Ctrl-C to stop)\n", opts.file)
		return r.Run(ctx)
	}

	if opts.output != "" {
		res := watch.New(opts.file, opts.output).Rebuild()
		printWarnings(stderr, res.Warnings)
		if res.Err != nil {
			return res.Err
		}
		if res.Written {
			fmt.Fprintf(stdout, "Wrote %s\n", opts.output)
		} else {
			fmt.Fprintf(stdout, "%s is up to date\n", opts.output)
		}
		return nil
	}

	text, result, err := manifest.BuildFile(opts.file)
	if result != nil {
		printWarnings(stderr, result.Warnings)
	}
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, text)
	return nil
}

func printRebuild(w io.Writer, output string, res watch.Result) {
	printWarnings(w, res.Warnings)
	switch {
	case res.Err != nil:
		fmt.Fprintf(w, "Build failed: %v\n", res.Err)
	case res.Written:
		fmt.Fprintf(w, "Wrote %s\n", output)
	}
}

func printWarnings(w io.Writer, warnings []manifest.ValidationIssue) {
	for _, issue := range warnings {
		fmt.Fprintf(w, "Warning: %s\n", issue)
	}
}
