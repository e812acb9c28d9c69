package manifest

import (
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

// RemoveBy selects the attribute that identifies a removed project.
type RemoveBy string

const (
	// RemoveByName emits <remove-project name="..."/>.
	RemoveByName RemoveBy = "name"
	// RemoveByPath emits <remove-project path="..."/>.
	RemoveByPath RemoveBy = "path"
)

// DefaultSection is the heading used for projects without a Section label.
const DefaultSection = "Projects"

// Document is the ordered aggregate a manifest is built from.
// Order within each slice is significant and preserved verbatim.
type Document struct {
	RemoveBy RemoveBy  `yaml:"remove_by,omitempty" json:"remove_by,omitempty"`
	Remotes  []Remote  `yaml:"remotes,omitempty" json:"remotes,omitempty"`
	Removals []Removal `yaml:"remove,omitempty" json:"remove,omitempty"`
	Projects []Project `yaml:"projects,omitempty" json:"projects,omitempty"`
}

// Remote is a named base URL that project names are resolved against.
type Remote struct {
	Name  string `yaml:"name" json:"name"`
	Fetch string `yaml:"fetch" json:"fetch"`
}

// Project adds a repository to the checkout.
type Project struct {
	Path   string `yaml:"path" json:"path"`
	Name   string `yaml:"name" json:"name"`
	Remote string `yaml:"remote,omitempty" json:"remote,omitempty"`
	// Branch is emitted as the revision attribute.
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`
	// Commented keeps the entry in the output as an XML comment.
	Commented bool `yaml:"commented,omitempty" json:"commented,omitempty"`
	Shallow   bool `yaml:"shallow,omitempty" json:"shallow,omitempty"`
	// Section groups consecutive projects under a heading comment.
	Section string `yaml:"section,omitempty" json:"section,omitempty"`
}

// Removal drops a project of the base manifest, by name or path.
type Removal struct {
	Target string `yaml:"target" json:"target"`
}

// UnmarshalYAML accepts both `- some/project` and `- target: some/project`.
func (r *Removal) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		r.Target = value.Value
		return nil
	}
	var raw struct {
		Target string `yaml:"target"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r.Target = raw.Target
	return nil
}

// Emittable reports whether the remote produces an element.
func (r Remote) Emittable() bool {
	return r.Name != "" && r.Fetch != ""
}

// Emittable reports whether the project produces an element, commented or not.
func (p Project) Emittable() bool {
	return p.Path != "" && p.Name != ""
}

// Emittable reports whether the removal produces an element.
func (r Removal) Emittable() bool {
	return r.Target != ""
}

// SectionLabel returns the heading the project is grouped under.
func (p Project) SectionLabel() string {
	if s := strings.TrimSpace(p.Section); s != "" {
		return s
	}
	return DefaultSection
}

// ParseRemoveBy converts a string to a RemoveBy. The empty string maps to RemoveByName.
func ParseRemoveBy(s string) (RemoveBy, error) {
	switch RemoveBy(s) {
	case "", RemoveByName:
		return RemoveByName, nil
	case RemoveByPath:
		return RemoveByPath, nil
	default:
		return "", fmt.Errorf("unknown remove_by %q (want %q or %q)", s, RemoveByName, RemoveByPath)
	}
}

// attr returns the attribute name used for removal elements.
func (rb RemoveBy) attr() string {
	if rb == RemoveByPath {
		return "path"
	}
	return "name"
}
