package cli

import (
	"fmt"
	"strings"

	"github.com/kattouf/mise/internal/config"
	"github.com/spf13/cobra"
)

var configNoHeader bool

func init() {
	configLsCmd.Flags().BoolVar(&configNoHeader, "no-header", false, "Do not print the table header")
	configCmd.AddCommand(configLsCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect config layers",
}

var configLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List the config layers that apply to the current directory",
	Long: `List config layers from lowest to highest precedence. Later layers override
earlier ones for the tools they name.`,
	Args: cobra.NoArgs,
	RunE: runConfigLs,
}

func runConfigLs(cmd *cobra.Command, args []string) error {
	dir, err := workingDir()
	if err != nil {
		return err
	}
	layers, err := newEngine(cmd).Layers(cmd.Context(), dir, activeEnv(config.Current()))
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(layers))
	for _, l := range layers {
		tools := strings.Join(l.Tools.Names(), ", ")
		if !l.Exists() {
			tools = "(missing)"
		}
		rows = append(rows, []string{l.Scope.String(), l.Path, tools})
	}

	out := cmd.OutOrStdout()
	if configNoHeader {
		for _, r := range rows {
			fmt.Fprintln(out, strings.Join(r, "\t"))
		}
		return nil
	}
	PrintTable(out, []string{"Scope", "Path", "Tools"}, rows)
	return nil
}
