package manifest

import (
	"fmt"
	"strings"
)

// InvalidError reports a document description the schema rejected.
type InvalidError struct {
	Path   string
	Issues []ValidationIssue
}

func (e *InvalidError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.String()
	}
	return fmt.Sprintf("%s is not a valid document description:\n  %s", e.Path, strings.Join(msgs, "\n  "))
}

// BuildFile validates the document description at path and builds it. The
// returned result carries lint warnings; it is also returned, with the
// schema issues, alongside an *InvalidError.
func BuildFile(path string) (string, *ValidationResult, error) {
	data, err := readFile(path)
	if err != nil {
		return "", nil, err
	}
	result, err := Validate(data)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	if !result.Valid {
		return "", result, &InvalidError{Path: path, Issues: result.Issues}
	}
	doc, err := Parse(data)
	if err != nil {
		return "", result, fmt.Errorf("%s: %w", path, err)
	}
	return Build(*doc), result, nil
}
