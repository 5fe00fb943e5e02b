// Package version parses user-supplied version requests ("2", "2.0.0",
// "latest") into matchable specs and selects concrete versions from a set of
// candidates using component-wise numeric ordering.
package version
