package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kattouf/mise/internal/config"
	"github.com/kattouf/mise/internal/engine"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var (
	currentJSON bool
	currentYAML bool
)

func init() {
	currentCmd.Flags().BoolVar(&currentJSON, "json", false, "Output in JSON format")
	currentCmd.Flags().BoolVar(&currentYAML, "yaml", false, "Output in YAML format")
	currentCmd.MarkFlagsMutuallyExclusive("json", "yaml")
	rootCmd.AddCommand(currentCmd)
}

var currentCmd = &cobra.Command{
	Use:   "current [tool]...",
	Short: "Show the version each tool resolves to in this directory",
	Long: `Merge every config layer that applies to the current directory and print
the installed version each configured tool resolves to. With tool arguments,
only those tools are shown.`,
	RunE: runCurrent,
}

// currentEntry is the serialized form of one resolved tool.
type currentEntry struct {
	Tool      string   `json:"tool" yaml:"tool"`
	Requested []string `json:"requested,omitempty" yaml:"requested,omitempty"`
	Version   string   `json:"version,omitempty" yaml:"version,omitempty"`
	Installed bool     `json:"installed" yaml:"installed"`
	Source    string   `json:"source,omitempty" yaml:"source,omitempty"`
	Scope     string   `json:"scope,omitempty" yaml:"scope,omitempty"`
}

func toCurrentEntry(r engine.CurrentResult) currentEntry {
	e := currentEntry{Tool: r.Tool, Version: r.Version, Installed: r.Resolved}
	for _, s := range r.Requested {
		e.Requested = append(e.Requested, s.String())
	}
	if r.Source != nil {
		e.Source = r.Source.Path
		e.Scope = r.Source.Scope.String()
	}
	return e
}

func runCurrent(cmd *cobra.Command, args []string) error {
	dir, err := workingDir()
	if err != nil {
		return err
	}
	results, err := newEngine(cmd).Current(cmd.Context(), engine.CurrentRequest{
		Dir:   dir,
		Env:   activeEnv(config.Current()),
		Tools: args,
	})
	if err != nil {
		return err
	}

	entries := make([]currentEntry, len(results))
	for i, r := range results {
		entries[i] = toCurrentEntry(r)
	}

	out := cmd.OutOrStdout()
	switch {
	case currentJSON:
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	case currentYAML:
		data, err := yaml.Marshal(entries)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		fmt.Fprint(out, string(data))
		return nil
	}

	if len(results) == 0 {
		PrintEmptyState(out, "No tools configured.")
		return nil
	}

	errOut := cmd.ErrOrStderr()
	for _, r := range results {
		switch {
		case !r.Configured:
			PrintWarning(errOut, fmt.Sprintf("%s is not configured", r.Tool))
		case !r.Resolved:
			specs := make([]string, len(r.Requested))
			for i, s := range r.Requested {
				specs[i] = s.String()
			}
			PrintWarning(errOut, fmt.Sprintf("%s@%s is specified in %s but not installed",
				r.Tool, strings.Join(specs, ","), r.Source.Path))
		default:
			fmt.Fprintf(out, "%s %s\n", r.Tool, r.Version)
		}
	}
	return nil
}
