package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/omdev04/NodePilot-sub002/pkg/config"
)

func main() {
	cfg := config.Load()

	root := &cobra.Command{
		Use:           "nodepilotd",
		Short:         "NodePilot deployment core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(cfg))
	root.AddCommand(newAppsCmd(cfg))
	root.AddCommand(newSweepCmd(cfg))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nodepilotd: %v\n", err)
		os.Exit(1)
	}
}
