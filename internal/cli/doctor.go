package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/kattouf/mise/internal/config"
	"github.com/kattouf/mise/internal/discover"
	"github.com/kattouf/mise/internal/engine"
	"github.com/kattouf/mise/internal/layer"
	"github.com/spf13/cobra"
)

var (
	checkLayers   bool
	checkTools    bool
	checkRuntime  bool
	checkSettings bool
)

// errDoctor reports that at least one check failed.
var errDoctor = errors.New("doctor found problems")

func init() {
	doctorCmd.Flags().BoolVar(&checkLayers, "check-layers", false, "Verify every config layer parses")
	doctorCmd.Flags().BoolVar(&checkTools, "check-tools", false, "Verify configured tools are installed")
	doctorCmd.Flags().BoolVar(&checkRuntime, "check-runtime", false, "Verify git and swift are available")
	doctorCmd.Flags().BoolVar(&checkSettings, "check-settings", false, "Show the settings file and data directories")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the installation and the config layers for problems",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all := !checkLayers && !checkTools && !checkRuntime && !checkSettings
		out := cmd.OutOrStdout()
		s := config.Current()
		ok := true

		if all || checkSettings {
			runSettingsCheck(out, s)
		}
		if all || checkRuntime {
			runRuntimeCheck(out)
		}
		if all || checkLayers {
			ok = runLayersCheck(out, s) && ok
		}
		if all || checkTools {
			ok = runToolsCheck(cmd, out) && ok
		}

		if !ok {
			return errDoctor
		}
		return nil
	},
}

func runSettingsCheck(out io.Writer, s config.Settings) {
	PrintSection(out, "Settings")
	settingsFile := config.FilePath()
	if _, err := os.Stat(settingsFile); err != nil {
		fmt.Fprintf(out, "  [INFO] %s not found, using defaults\n", settingsFile)
	} else {
		fmt.Fprintf(out, "  [ OK ] %s\n", settingsFile)
	}
	PrintLabelValue(out, "data_dir", s.DataDir)
	PrintLabelValue(out, "cache_dir", s.CacheDir)
	PrintLabelValue(out, "global_config_file", s.GlobalConfigFile)
	if env := activeEnv(s); env != "" {
		PrintLabelValue(out, "env", env)
	}
}

func runRuntimeCheck(out io.Writer) {
	PrintSection(out, "Runtime")
	checkBinary(out, "git")
	checkBinary(out, "swift")
}

func checkBinary(out io.Writer, name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Fprintf(out, "  [MISS] %s not found\n", name)
		return
	}
	fmt.Fprintf(out, "  [ OK ] %s found at %s\n", name, path)
}

// runLayersCheck reads each layer on its own so one broken file does not
// hide problems in the others.
func runLayersCheck(out io.Writer, s config.Settings) bool {
	PrintSection(out, "Config layers")
	dir, err := workingDir()
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return false
	}
	refs, err := discover.Layers(discover.Context{
		Dir:              dir,
		Env:              activeEnv(s),
		GlobalConfigFile: s.GlobalConfigFile,
		Ceilings:         s.CeilingPaths,
		StopAtVCS:        s.StopAtVCS,
	})
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return false
	}

	ok := true
	for _, ref := range refs {
		l, err := layer.Read(ref.Path, ref.Scope)
		switch {
		case err != nil:
			fmt.Fprintf(out, "  [FAIL] %s: %v\n", ref.Scope, err)
			ok = false
		case !l.Exists():
			fmt.Fprintf(out, "  [INFO] %s: %s not present\n", ref.Scope, ref.Path)
		default:
			fmt.Fprintf(out, "  [ OK ] %s: %s (%s)\n", ref.Scope, ref.Path, Count(l.Tools.Len(), "tool", "tools"))
		}
	}
	return ok
}

func runToolsCheck(cmd *cobra.Command, out io.Writer) bool {
	PrintSection(out, "Tools")
	dir, err := workingDir()
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return false
	}
	results, err := newEngine(cmd).Current(cmd.Context(), engine.CurrentRequest{
		Dir: dir,
		Env: activeEnv(config.Current()),
	})
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return false
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "  [INFO] No tools configured")
		return true
	}

	ok := true
	for _, r := range results {
		if r.Resolved {
			fmt.Fprintf(out, "  [ OK ] %s %s\n", r.Tool, r.Version)
			continue
		}
		fmt.Fprintf(out, "  [MISS] %s is not installed (run `%s use %s`)\n", r.Tool, rootCmd.Name(), r.Tool)
		ok = false
	}
	return ok
}
