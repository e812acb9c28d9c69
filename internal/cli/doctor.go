package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifestgen/manifestgen/internal/branding"
	"github.com/manifestgen/manifestgen/internal/config"
	"github.com/manifestgen/manifestgen/internal/manifest"
	"github.com/manifestgen/manifestgen/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	checkDocument string
	checkGitHub   bool
)

func init() {
	doctorCmd.Flags().StringVar(&checkDocument, "check-document", scaffold.DocumentFile, "Validate the document description at the given path")
	doctorCmd.Flags().BoolVar(&checkGitHub, "check-github", false, "Fetch the test workflow from GitHub with the configured token")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and credentials",
	Long:  `Run diagnostic checks on the ` + branding.DisplayName() + ` configuration and environment.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := config.Current()
		w := cmd.OutOrStdout()

		failures := runConfigCheck(w, s)
		failures += runDocumentCheck(w, checkDocument)
		if checkGitHub {
			failures += runGitHubCheck(cmd.Context(), w, s)
		}
		if failures > 0 {
			return fmt.Errorf("%d check(s) failed", failures)
		}
		return nil
	},
}

// runConfigCheck reports the config file and credentials. Returns the number
// of failed checks.
func runConfigCheck(w io.Writer, s config.Settings) int {
	fmt.Fprintln(w, "Config check:")
	failures := 0

	if _, err := os.Stat(config.FilePath()); err == nil {
		fmt.Fprintf(w, "  [ OK ] config file %s\n", config.FilePath())
	} else {
		fmt.Fprintf(w, "  [INFO] no config file at %s (using defaults and environment)\n", config.FilePath())
	}

	switch owner, repo, ok := strings.Cut(s.GitHubRepo, "/"); {
	case s.GitHubRepo == "":
		fmt.Fprintln(w, "  [MISS] github_repo not set (GITHUB_REPO)")
		failures++
	case !ok || owner == "" || repo == "" || strings.Contains(repo, "/"):
		fmt.Fprintf(w, "  [FAIL] github_repo %q is not owner/name\n", s.GitHubRepo)
		failures++
	default:
		fmt.Fprintf(w, "  [ OK ] github_repo %s\n", s.GitHubRepo)
	}

	if s.GitHubToken == "" {
		fmt.Fprintln(w, "  [MISS] github_token not set (GITHUB_TOKEN)")
		failures++
	} else {
		fmt.Fprintf(w, "  [ OK ] github_token %s\n", config.RedactValue(config.KeyGitHubToken, s.GitHubToken))
	}

	fmt.Fprintf(w, "  [INFO] workflow %s on %s, grace period %s, timeout %s\n", s.WorkflowFile, s.WorkflowRef, s.GracePeriod, s.Timeout)
	return failures
}

func runDocumentCheck(w io.Writer, path string) int {
	fmt.Fprintln(w, "Document check:")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(w, "  [INFO] %s not found; run '%s init' to create one\n", path, branding.CLIName())
		return 0
	}

	result, err := manifest.ValidateFile(path)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return 1
	}
	if !result.Valid {
		fmt.Fprintf(w, "  [FAIL] %s is invalid\n", path)
		for _, issue := range result.Issues {
			fmt.Fprintf(w, "         %s\n", issue)
		}
		return 1
	}
	fmt.Fprintf(w, "  [ OK ] %s is valid\n", path)
	for _, issue := range result.Warnings {
		fmt.Fprintf(w, "  [WARN] %s\n", issue)
	}
	return 0
}

func runGitHubCheck(ctx context.Context, w io.Writer, s config.Settings) int {
	fmt.Fprintln(w, "GitHub check:")
	d, err := newDispatcher(s)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return 1
	}
	name, state, err := d.Workflow(ctx)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return 1
	}
	if state != "active" {
		fmt.Fprintf(w, "  [WARN] workflow %q is %s\n", name, state)
		return 0
	}
	fmt.Fprintf(w, "  [ OK ] workflow %q is active\n", name)
	return 0
}
