package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kattouf/mise/internal/config"
	"github.com/kattouf/mise/internal/engine"
	"github.com/kattouf/mise/internal/layer"
	"github.com/spf13/cobra"
)

var (
	useGlobal bool
	useLocal  bool
	useRemove bool
)

func init() {
	useCmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Write to the global config file")
	useCmd.Flags().BoolVarP(&useLocal, "local", "l", false, "Write to the local override file in the current directory")
	useCmd.Flags().BoolVar(&useRemove, "rm", false, "Remove the named tools instead of adding them")
	useCmd.MarkFlagsMutuallyExclusive("global", "local")
	rootCmd.AddCommand(useCmd)
}

var useCmd = &cobra.Command{
	Use:   "use <tool>[@<version>]...",
	Short: "Install tools and pin them in a config file",
	Long: `Install each tool at the requested version and record the installed version
in a config file. Versions may be exact (20.1.0), a prefix (20, 20.1) or latest.
A tool without a version means latest.

The file written is chosen from the flags:
  --global   the global config file
  --local    the local override file in the current directory
  otherwise  the active environment's file when --env is set,
             or the project file in the current directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUse,
}

func useTarget() engine.Target {
	switch {
	case useGlobal:
		return engine.TargetGlobal
	case useLocal:
		return engine.TargetLocal
	default:
		return engine.TargetDefault
	}
}

func runUse(cmd *cobra.Command, args []string) error {
	dir, err := workingDir()
	if err != nil {
		return err
	}
	env := activeEnv(config.Current())
	eng := newEngine(cmd)
	out := cmd.OutOrStdout()

	reqs := make([]engine.ToolRequest, 0, len(args))
	for _, arg := range args {
		r, err := engine.ParseToolRequest(arg)
		if err != nil {
			return err
		}
		reqs = append(reqs, r)
	}

	if useRemove {
		tools := make([]string, len(reqs))
		for i, r := range reqs {
			tools[i] = r.Tool
		}
		res, err := eng.Remove(cmd.Context(), engine.RemoveRequest{
			Dir:    dir,
			Env:    env,
			Target: useTarget(),
			Tools:  tools,
		})
		if err != nil {
			return err
		}
		printRemove(cmd, res)
		return nil
	}

	res, err := eng.Use(cmd.Context(), engine.UseRequest{
		Dir:    dir,
		Env:    env,
		Target: useTarget(),
		Tools:  reqs,
	})
	if err != nil {
		if errors.Is(err, layer.ErrUnsupportedLayout) {
			return fmt.Errorf("%w (rewrite the tools table with a [tools] header)", err)
		}
		return err
	}

	pinned := make([]string, len(res.Installed))
	for i, it := range res.Installed {
		pinned[i] = it.Tool + "@" + it.Version
	}
	switch res.Outcome {
	case layer.Unchanged:
		PrintSuccess(out, fmt.Sprintf("%s already pins %s", res.Path, strings.Join(pinned, " ")))
	default:
		PrintSuccess(out, fmt.Sprintf("%s tools: %s", res.Path, strings.Join(pinned, " ")))
	}
	return nil
}

func printRemove(cmd *cobra.Command, res *engine.RemoveResult) {
	out := cmd.OutOrStdout()
	if len(res.Removed) == 0 {
		PrintWarning(out, fmt.Sprintf("%s: nothing to remove", res.Path))
		return
	}
	msg := fmt.Sprintf("%s: removed %s", res.Path, strings.Join(res.Removed, " "))
	if res.Outcome == layer.Deleted {
		msg += " (file deleted)"
	}
	PrintSuccess(out, msg)
}
