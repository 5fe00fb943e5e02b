// Package install manages the directory of installed tool versions.
//
// Registry is the capability the rest of the program depends on: list what is
// installed and make sure a requested version is present. Local implements it
// on disk under <data_dir>/installs, fetching versions through a Backend
// chosen by the tool's name.
package install
