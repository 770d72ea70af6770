package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/odvcencio/ghostdriver/pkg/config"
)

// Version information - set via ldflags during build
var (
	version   = "1.0.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeForError(err))
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &serveOptions{}
	root := &cobra.Command{
		Use:   "ghostdriver",
		Short: "WebDriver server for headless browser automation",
		Long: `ghostdriver speaks the WebDriver JSON wire protocol and drives a
browser backend (Chrome over DevTools, or an in-memory page model).

Running it without a subcommand is the same as "ghostdriver serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a config file (default: ~/.ghostdriver/config.yaml and ./.ghostdriver/config.yaml)")
	bindServeFlags(root, opts)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the WebDriver server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	bindServeFlags(serveCmd, opts)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ghostdriver %s\n", version)
			fmt.Fprintf(w, "  Commit: %s\n", commit)
			fmt.Fprintf(w, "  Built: %s\n", buildDate)
			fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return withExitCode(err, exitConfig)
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	root.AddCommand(serveCmd, versionCmd, configCmd)
	return root
}

// loadConfigFn allows tests to stub config discovery.
var loadConfigFn = config.Load

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return loadConfigFn()
}
