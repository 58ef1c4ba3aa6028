// Command cheevo-demo runs a tiny built-in ARM64 program inside the
// console emulator and drives it frame-by-frame through the
// achievement runtime, rendering the counter, a progress bar, and recent
// runtime events in a terminal UI. It talks to a canned, in-process fake of the
// achievements server rather than a real one, so it can run anywhere
// without credentials.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/northbridge-labs/cheevos/internal/config"
	"github.com/northbridge-labs/cheevos/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:   "cheevo-demo",
		Short: "Run a demo achievement set against a tiny emulated program",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML runtime config")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newRunCmd(&configPath, &debug))
	return root
}

func newRunCmd(configPath *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Launch the interactive demo session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log.Init(*debug)

			model, err := newDemoModel(cfg)
			if err != nil {
				return err
			}

			_, err = tea.NewProgram(model).Run()
			return err
		},
	}
}
