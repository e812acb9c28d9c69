// Package manifest models a repo-tool local manifest and renders it to XML.
//
// A Document is the structured description of remotes, removed projects and
// added projects. Build turns it into manifest text deterministically. Document
// descriptions are authored as YAML files, read with ParseFile and checked
// against an embedded JSON Schema with ValidateFile.
package manifest
