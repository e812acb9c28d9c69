package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
)

var elementPattern = regexp.MustCompile(`<(project|remove-project)[\s/>]`)

// HasTestableContent reports whether text contains at least one project or
// remove-project element. Elements wrapped in a comment count: Build emits a
// commented entry as the element itself inside <!-- -->.
//
// Text that is not well-formed XML is still scanned, so a malformed manifest
// can reach remote validation and be reported there.
func HasTestableContent(text string) bool {
	dec := xml.NewDecoder(bytes.NewReader([]byte(text)))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return false
		}
		if err != nil {
			return elementPattern.MatchString(text)
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			if isTestable(tok.Name.Local) {
				return true
			}
		case xml.Comment:
			if elementPattern.Match(tok) {
				return true
			}
		}
	}
}

func isTestable(name string) bool {
	return name == "project" || name == "remove-project"
}
