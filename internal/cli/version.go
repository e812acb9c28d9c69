package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/manifestgen/manifestgen/internal/branding"
	"github.com/spf13/cobra"
)

var (
	versionShort bool
	versionJSON  bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print version number only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version info as JSON")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion(cmd.OutOrStdout(), currentVersion(), versionShort, versionJSON)
	},
}

// versionInfo includes the workflow and User-Agent the binary dispatches with.
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
	UserAgent string `json:"userAgent"`
	Workflow  string `json:"workflow"`
}

func currentVersion() versionInfo {
	return versionInfo{
		Version:   buildVersion,
		Commit:    buildCommit,
		Date:      buildDate,
		GoVersion: runtime.Version(),
		UserAgent: branding.UserAgent(),
		Workflow:  branding.WorkflowFile(),
	}
}

func runVersion(w io.Writer, info versionInfo, short, asJSON bool) error {
	switch {
	case short:
		fmt.Fprintln(w, info.Version)
	case asJSON:
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling version info: %w", err)
		}
		fmt.Fprintln(w, string(out))
	default:
		fmt.Fprintf(w, "%s version %s (commit: %s, built: %s, %s)\n",
			branding.CLIName(), info.Version, info.Commit, info.Date, info.GoVersion)
	}
	return nil
}
