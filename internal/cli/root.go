package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/kattouf/mise/internal/branding"
	"github.com/kattouf/mise/internal/config"
	"github.com/kattouf/mise/internal/engine"
	"github.com/kattouf/mise/internal/install"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	envFlag     string
	verboseFlag bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "E", "", "Active environment (overrides "+branding.EnvVar("ENV")+")")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Log discovery and install steps to stderr")
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` pins tool versions per project. Versions are read from layered
` + branding.ProjectFile() + ` files (global, project, environment and local) and the
most specific layer wins.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil {
		PrintError(rootCmd.ErrOrStderr(), err.Error())
	}
	return err
}

// activeEnv returns the environment named by --env, falling back to the
// env setting.
func activeEnv(s config.Settings) string {
	if envFlag != "" {
		return envFlag
	}
	return s.Env
}

// newLogger returns a logger writing to w when verbose output is on.
func newLogger(w io.Writer, s config.Settings) *log.Logger {
	if !verboseFlag && !s.Verbose {
		w = io.Discard
	}
	return log.New(w, branding.CLIName()+": ", log.LstdFlags|log.Lmicroseconds)
}

// newEngine wires an engine to the on-disk install registry described by
// the current settings.
func newEngine(cmd *cobra.Command) *engine.Engine {
	s := config.Current()
	logger := newLogger(cmd.ErrOrStderr(), s)
	reg := install.NewLocal(s.DataDir, s.CacheDir, s.RemoteCacheTTL, logger)
	reg.Experimental = s.Experimental
	return engine.New(reg, engine.Options{
		GlobalConfigFile: s.GlobalConfigFile,
		Ceilings:         s.CeilingPaths,
		StopAtVCS:        s.StopAtVCS,
		KeepEmptyConfig:  s.KeepEmptyConfig,
	}, logger)
}

// workingDir returns the directory commands operate on.
func workingDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return dir, nil
}
