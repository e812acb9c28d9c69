// Package platform provides cross-platform file operations: permission changes
// that are skipped on Windows, and atomic file replacement for generated
// output and settings that may hold credentials.
package platform
