// Package platform provides cross-platform filesystem operations: atomic file
// replacement, permission management, and the symlinks used for install
// aliases. On Windows, where symlinks may be unavailable, links degrade to a
// plain .target sidecar that records the target.
package platform
