package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/manifestgen/manifestgen/internal/branding"
	"github.com/manifestgen/manifestgen/internal/scaffold"
	"github.com/spf13/cobra"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

type initOptions struct {
	template string
	device   string
	vendor   string
	platform string
	org      string
	branch   string
	force    bool
}

var initOpts initOptions

func init() {
	initCmd.Flags().StringVar(&initOpts.template, "template", scaffold.SetDevice, "Template set: "+strings.Join(scaffold.Sets(), " or "))
	initCmd.Flags().StringVar(&initOpts.device, "device", "", "Device codename, e.g. sweet")
	initCmd.Flags().StringVar(&initOpts.vendor, "vendor", "", "Device vendor, e.g. xiaomi")
	initCmd.Flags().StringVar(&initOpts.platform, "platform", "", "Kernel platform (default: the device codename)")
	initCmd.Flags().StringVar(&initOpts.org, "org", "", "GitHub account hosting the trees")
	initCmd.Flags().StringVar(&initOpts.branch, "branch", "", "Branch for every tree")
	initCmd.Flags().BoolVar(&initOpts.force, "force", false, "Overwrite an existing "+scaffold.DocumentFile)
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a starter document description",
	Long: `Create ` + scaffold.DocumentFile + ` in dir (default: the current directory).

The device template lays out device tree, vendor tree and kernel sections:
  ` + branding.CLIName() + ` init --device sweet --vendor xiaomi --platform sm6150 --org LineageOS --branch lineage-21
The minimal template starts from an empty project list:
  ` + branding.CLIName() + ` init --template minimal`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		return runInit(cmd.OutOrStdout(), dir, initOpts)
	},
}

func runInit(w io.Writer, dir string, opts initOptions) error {
	if opts.template == scaffold.SetDevice {
		if opts.device == "" || opts.vendor == "" {
			return fmt.Errorf("--device and --vendor are required for the %s template", scaffold.SetDevice)
		}
		for flag, value := range map[string]string{"device": opts.device, "vendor": opts.vendor, "platform": opts.platform} {
			if err := validateName(flag, value); err != nil {
				return err
			}
		}
	}

	data := scaffold.NewScaffoldData(opts.device, opts.vendor, opts.platform, opts.org, opts.branch)
	result, err := scaffold.Generate(opts.template, data, dir, opts.force)
	if err != nil {
		return err
	}

	for _, f := range result.Files {
		fmt.Fprintf(w, "Created %s\n", filepath.Join(result.OutputDir, f))
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}

	docPath := filepath.Join(result.OutputDir, scaffold.DocumentFile)
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintf(w, "  1. Edit %s\n", docPath)
	fmt.Fprintf(w, "  2. Run '%s build -f %s'\n", branding.CLIName(), docPath)
	return nil
}

func validateName(flag, value string) error {
	if value != "" && !namePattern.MatchString(value) {
		return fmt.Errorf("invalid --%s %q: must match pattern [A-Za-z0-9][A-Za-z0-9_.-]*", flag, value)
	}
	return nil
}
