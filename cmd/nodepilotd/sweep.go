package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omdev04/NodePilot-sub002/pkg/config"
)

func newSweepCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a single sweep pass over the apps directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCore(cfg)
			if err != nil {
				return err
			}
			result := c.svc.SweepOnce(cmd.Context())
			fmt.Printf("cleaned: %d\n", len(result.Cleaned))
			for _, path := range result.StillLocked {
				fmt.Printf("still locked: %s\n", path)
			}
			return nil
		},
	}
}
