package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/document.schema.json
var schemaBytes []byte

const schemaURL = "document.schema.json"

var printer = message.NewPrinter(language.English)

// documentSchema compiles the embedded schema on first use.
var documentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return nil, fmt.Errorf("decoding embedded schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("registering %s: %w", schemaURL, err)
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", schemaURL, err)
	}
	return schema, nil
})

// ValidationResult contains the outcome of validating a document description.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
	// Warnings flag entries that are legal but will not be emitted as written.
	Warnings []ValidationIssue
}

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Path    string // Instance location (e.g., "/projects/0/path")
	Message string // Human-readable message
	Keyword string // Schema keyword that failed, or "lint"
}

func (i ValidationIssue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Validate validates raw YAML bytes against the document schema and, when the
// schema accepts them, lints the decoded document.
// The error return is for YAML syntax or schema compilation failures.
func Validate(data []byte) (*ValidationResult, error) {
	schema, err := documentSchema()
	if err != nil {
		return nil, err
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	// An empty file is an empty document.
	if raw == nil {
		raw = map[string]any{}
	}

	// Round-trip through JSON so numbers reach the validator as json.Number.
	encoded, err := json.Marshal(jsonValue(raw))
	if err != nil {
		return nil, fmt.Errorf("encoding document as JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding document JSON: %w", err)
	}

	if err := schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("validating document: %w", err)
		}
		return &ValidationResult{Valid: false, Issues: schemaIssues(ve)}, nil
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return &ValidationResult{Valid: true, Warnings: Lint(*doc)}, nil
}

// ValidateFile reads a file and validates it.
func ValidateFile(path string) (*ValidationResult, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Validate(data)
}

// Lint reports entries Build will skip and projects that reference a remote
// the document does not declare. Undeclared remotes are only warnings: a
// local manifest may use remotes from the base manifest.
func Lint(doc Document) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: printer.Sprintf(format, args...), Keyword: "lint"})
	}

	declared := make(map[string]bool)
	for i, r := range doc.Remotes {
		if !r.Emittable() {
			add(fmt.Sprintf("/remotes/%d", i), "remote needs both name and fetch; it will be skipped")
			continue
		}
		declared[r.Name] = true
	}
	for i, r := range doc.Removals {
		if !r.Emittable() {
			add(fmt.Sprintf("/remove/%d", i), "empty removal target; it will be skipped")
		}
	}
	for i, p := range doc.Projects {
		path := fmt.Sprintf("/projects/%d", i)
		if !p.Emittable() {
			add(path, "project needs both path and name; it will be skipped")
			continue
		}
		if p.Remote != "" && !declared[p.Remote] {
			add(path, "remote %q is not declared in this document", p.Remote)
		}
	}
	return issues
}

// container keywords only group their causes; the causes carry the detail.
var container = map[string]bool{"": true, "$ref": true, "allOf": true, "oneOf": true}

// schemaIssues flattens the error tree into its leaf findings, in tree order
// and without duplicates. A tree with no usable leaf yields its own message.
func schemaIssues(root *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	seen := make(map[ValidationIssue]bool)

	var walk func(ve *jsonschema.ValidationError)
	walk = func(ve *jsonschema.ValidationError) {
		for _, cause := range ve.Causes {
			walk(cause)
		}
		if len(ve.Causes) > 0 || ve.ErrorKind == nil {
			return
		}
		var keyword string
		if kw := ve.ErrorKind.KeywordPath(); len(kw) > 0 {
			keyword = kw[len(kw)-1]
		}
		if container[keyword] {
			return
		}
		issue := ValidationIssue{
			Path:    instancePath(ve.InstanceLocation),
			Message: ve.ErrorKind.LocalizedString(printer),
			Keyword: keyword,
		}
		if !seen[issue] {
			seen[issue] = true
			issues = append(issues, issue)
		}
	}
	walk(root)

	if len(issues) == 0 {
		return []ValidationIssue{{Message: root.Error()}}
	}
	return issues
}

// instancePath renders a location as a JSON pointer, e.g. "/projects/0/path".
func instancePath(loc []string) string {
	if len(loc) == 0 {
		return ""
	}
	return "/" + strings.Join(loc, "/")
}

// jsonValue converts decoded YAML into values json.Marshal accepts.
// Mappings with non-string keys (e.g. `1: x`) get their keys stringified.
func jsonValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = jsonValue(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = jsonValue(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = jsonValue(item)
		}
		return val
	default:
		return v
	}
}
