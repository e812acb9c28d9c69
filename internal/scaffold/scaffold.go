package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/manifestgen/manifestgen/internal/manifest"
)

// Template set names.
const (
	SetDevice  = "device"
	SetMinimal = "minimal"
)

// DocumentFile is the name of the generated document description.
const DocumentFile = "local_manifest.yaml"

const (
	defaultRemote = "github"
	defaultFetch  = "https://github.com/"
)

// ScaffoldData holds all template variables available to scaffold templates.
type ScaffoldData struct {
	Device   string // Device codename, e.g. "sweet"
	Vendor   string // OEM, e.g. "xiaomi"
	Platform string // SoC family used for the kernel tree; defaults to Device
	Org      string // Account hosting the trees, e.g. "LineageOS" (may be empty)
	Remote   string // Remote name, e.g. "github"
	Fetch    string // Remote fetch URL
	Branch   string // Revision for every tree

	DeviceTreePath string // Derived: device/<vendor>/<device>
	DeviceTreeName string // Derived: [<org>/]android_device_<vendor>_<device>
	VendorTreePath string // Derived: vendor/<vendor>/<device>
	VendorTreeName string // Derived: [<org>/]proprietary_vendor_<vendor>_<device>
	KernelPath     string // Derived: kernel/<vendor>/<platform>
	KernelName     string // Derived: [<org>/]android_kernel_<vendor>_<platform>
	Year           int    // Current year
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string
	Files     []string
	Warnings  []string
}

// NewScaffoldData creates a ScaffoldData with derived fields populated.
func NewScaffoldData(device, vendor, platform, org, branch string) *ScaffoldData {
	if platform == "" {
		platform = device
	}
	d := &ScaffoldData{
		Device:   device,
		Vendor:   vendor,
		Platform: platform,
		Org:      org,
		Remote:   defaultRemote,
		Fetch:    defaultFetch,
		Branch:   branch,
		Year:     time.Now().Year(),
	}

	d.DeviceTreePath = fmt.Sprintf("device/%s/%s", vendor, device)
	d.VendorTreePath = fmt.Sprintf("vendor/%s/%s", vendor, device)
	d.KernelPath = fmt.Sprintf("kernel/%s/%s", vendor, platform)

	d.DeviceTreeName = repoName(org, fmt.Sprintf("android_device_%s_%s", vendor, device))
	d.VendorTreeName = repoName(org, fmt.Sprintf("proprietary_vendor_%s_%s", vendor, device))
	d.KernelName = repoName(org, fmt.Sprintf("android_kernel_%s_%s", vendor, platform))

	return d
}

func repoName(org, name string) string {
	if org == "" {
		return name
	}
	return org + "/" + name
}

// Sets returns the available template set names.
func Sets() []string {
	entries, err := fs.ReadDir(scaffoldFS, "scaffolds")
	if err != nil {
		return nil
	}
	var sets []string
	for _, e := range entries {
		if e.IsDir() {
			sets = append(sets, e.Name())
		}
	}
	sort.Strings(sets)
	return sets
}

// Generate renders template set setName into outputDir. Existing files are
// never overwritten unless force is set.
func Generate(setName string, data *ScaffoldData, outputDir string, force bool) (*Result, error) {
	if setName == SetDevice && (data.Device == "" || data.Vendor == "") {
		return nil, errors.New("the device template needs a device codename and a vendor")
	}

	templatesDir := path.Join("scaffolds", setName)

	// Verify template set exists in embedded FS.
	entries, err := fs.ReadDir(scaffoldFS, templatesDir)
	if err != nil {
		return nil, fmt.Errorf("template set %q not found: %w", setName, err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	// Check every target before writing anything.
	if !force {
		for _, entry := range entries {
			outPath := filepath.Join(outputDir, strings.TrimSuffix(entry.Name(), ".tmpl"))
			if _, err := os.Stat(outPath); err == nil {
				return nil, fmt.Errorf("%s already exists; use --force to overwrite", outPath)
			}
		}
	}

	result := &Result{
		OutputDir: outputDir,
	}

	funcs := template.FuncMap{"quote": strconv.Quote}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		tmplBytes, err := fs.ReadFile(scaffoldFS, path.Join(templatesDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", entry.Name(), err)
		}

		tmpl, err := template.New(entry.Name()).Funcs(funcs).Parse(string(tmplBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", entry.Name(), err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("executing template %s: %w", entry.Name(), err)
		}

		outName := strings.TrimSuffix(entry.Name(), ".tmpl")
		outPath := filepath.Join(outputDir, outName)
		if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", outPath, err)
		}

		result.Files = append(result.Files, outName)
	}

	// Validate the generated document against the schema.
	docFile := filepath.Join(outputDir, DocumentFile)
	if _, err := os.Stat(docFile); err == nil {
		valResult, valErr := manifest.ValidateFile(docFile)
		if valErr != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Could not validate document: %v", valErr))
		} else {
			for _, issue := range valResult.Issues {
				result.Warnings = append(result.Warnings, issue.String())
			}
		}
	}

	return result, nil
}
