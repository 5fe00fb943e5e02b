// Package layer reads and writes configuration layer files.
//
// A layer is one TOML file that may carry a [tools] table mapping tool names
// to a version request or an ordered list of them. Reading never modifies the
// file. Writing replaces only the [tools] section and leaves every other byte
// of the file as it was, committing through a same-directory temp file and a
// rename.
package layer
