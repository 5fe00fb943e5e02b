package cli

import (
	"encoding/json"
	"fmt"

	"github.com/kattouf/mise/internal/branding"
	"github.com/kattouf/mise/internal/config"
	"github.com/spf13/cobra"
)

var (
	versionShort bool
	versionJSON  bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print version number only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version info and paths as JSON")
	rootCmd.AddCommand(versionCmd)
}

// versionInfo is the build plus the paths this binary reads and writes.
type versionInfo struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	Date        string `json:"date"`
	ProjectFile string `json:"project_file"`
	LocalFile   string `json:"local_file"`
	GlobalFile  string `json:"global_config_file"`
	DataDir     string `json:"data_dir"`
	CacheDir    string `json:"cache_dir"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information and the files and directories in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, buildVersion)
			return nil
		}

		s := config.Current()
		info := versionInfo{
			Version:     buildVersion,
			Commit:      buildCommit,
			Date:        buildDate,
			ProjectFile: branding.ProjectFile(),
			LocalFile:   branding.LocalFile(),
			GlobalFile:  s.GlobalConfigFile,
			DataDir:     s.DataDir,
			CacheDir:    s.CacheDir,
		}

		if versionJSON {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling version info: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "%s %s (commit: %s, built: %s)\n", branding.CLIName(), info.Version, info.Commit, info.Date)
		PrintLabelValue(out, "project file", info.ProjectFile)
		PrintLabelValue(out, "local file", info.LocalFile)
		PrintLabelValue(out, "global config", info.GlobalFile)
		PrintLabelValue(out, "data dir", info.DataDir)
		PrintLabelValue(out, "cache dir", info.CacheDir)
		return nil
	},
}
