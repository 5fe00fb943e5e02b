// Package toolset merges configuration layers into the effective set of tool
// requests and resolves each request against installed versions.
package toolset
