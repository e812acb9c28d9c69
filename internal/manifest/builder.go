package manifest

import (
	"encoding/xml"
	"strings"
)

const (
	xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`
	indent         = "  "

	headingRemotes  = "Remotes"
	headingRemovals = "Remove Projects"
)

type attr struct {
	name, value string
}

// element is a self-closing XML element. Multiline elements put every
// attribute after the first on its own line, aligned under the first.
type element struct {
	name      string
	attrs     []attr
	multiline bool
	commented bool
}

type section struct {
	heading  string
	elements []element
}

// Build renders doc as manifest text. Entries missing a required field are
// skipped; everything else is emitted in document order. Build is a pure
// function: equal documents produce identical text.
func Build(doc Document) string {
	var b strings.Builder
	b.WriteString(xmlDeclaration)
	b.WriteString("\n<manifest>\n")

	sections := collectSections(doc)
	for _, s := range sections {
		b.WriteString("\n")
		b.WriteString(indent)
		b.WriteString("<!-- ")
		b.WriteString(sanitizeComment(s.heading))
		b.WriteString(" -->\n")
		for _, el := range s.elements {
			for _, line := range el.render(indent) {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}
	if len(sections) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("</manifest>\n")
	return b.String()
}

// collectSections returns the non-empty sections in emission order:
// remotes, removals, then one section per run of same-labelled projects.
func collectSections(doc Document) []section {
	var sections []section

	var remotes []element
	for _, r := range doc.Remotes {
		if !r.Emittable() {
			continue
		}
		remotes = append(remotes, element{
			name:      "remote",
			attrs:     []attr{{"name", r.Name}, {"fetch", r.Fetch}},
			multiline: true,
		})
	}
	if len(remotes) > 0 {
		sections = append(sections, section{heading: headingRemotes, elements: remotes})
	}

	key := doc.RemoveBy.attr()
	var removals []element
	for _, r := range doc.Removals {
		if !r.Emittable() {
			continue
		}
		removals = append(removals, element{
			name:  "remove-project",
			attrs: []attr{{key, r.Target}},
		})
	}
	if len(removals) > 0 {
		sections = append(sections, section{heading: headingRemovals, elements: removals})
	}

	for _, p := range doc.Projects {
		if !p.Emittable() {
			continue
		}
		el := projectElement(p)
		label := p.SectionLabel()
		last := len(sections) - 1
		if last >= 0 && sections[last].heading == label && sections[last].isProjects() {
			sections[last].elements = append(sections[last].elements, el)
			continue
		}
		sections = append(sections, section{heading: label, elements: []element{el}})
	}

	return sections
}

func (s section) isProjects() bool {
	return len(s.elements) > 0 && s.elements[0].name == "project"
}

func projectElement(p Project) element {
	attrs := []attr{{"path", p.Path}, {"name", p.Name}}
	if p.Remote != "" {
		attrs = append(attrs, attr{"remote", p.Remote})
	}
	if p.Branch != "" {
		attrs = append(attrs, attr{"revision", p.Branch})
	}
	if p.Shallow {
		attrs = append(attrs, attr{"clone-depth", "1"})
	}
	return element{name: "project", attrs: attrs, commented: p.Commented}
}

// render returns the element's output lines. The first line starts with lead;
// continuation lines are aligned under the first attribute.
func (el element) render(lead string) []string {
	opener := ""
	if el.commented {
		opener = "<!-- "
	}
	open := "<" + el.name
	pad := strings.Repeat(" ", len(lead)+len(opener)+len(open)+1)

	var lines []string
	line := open
	for i, a := range el.attrs {
		text := a.name + `="` + escapeAttr(a.value) + `"`
		if el.multiline && i > 0 {
			lines = append(lines, line)
			line = text
			continue
		}
		line += " " + text
	}
	lines = append(lines, line+" />")

	for i := range lines {
		if el.commented {
			lines[i] = sanitizeComment(lines[i])
		}
		if i == 0 {
			lines[i] = lead + opener + lines[i]
		} else {
			lines[i] = pad + lines[i]
		}
	}
	if el.commented {
		lines[len(lines)-1] += " -->"
	}
	return lines
}

func escapeAttr(s string) string {
	var b strings.Builder
	// strings.Builder never returns a write error.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// sanitizeComment breaks up "--", which may not appear inside an XML comment.
func sanitizeComment(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	return s
}
