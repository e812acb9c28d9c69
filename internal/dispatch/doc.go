// Package dispatch triggers the manifest test workflow on GitHub Actions and
// resolves the run it started.
//
// The workflow_dispatch API answers 204 with no body, so the run is found by
// waiting a short grace period and reading the most recent run of the
// workflow. That is a best-effort correlation: when several dispatches race,
// the run returned may belong to someone else, and when the run is not listed
// yet only the workflow's listing URL is returned.
package dispatch
