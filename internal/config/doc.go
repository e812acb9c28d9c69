// Package config manages user-level settings stored at ~/.manifestgen/config.yaml.
// Values can be overridden by MANIFESTGEN_* environment variables; the GitHub
// repository and token also honor the bare GITHUB_REPO and GITHUB_TOKEN names.
package config
