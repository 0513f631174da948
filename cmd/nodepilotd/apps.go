package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/omdev04/NodePilot-sub002/pkg/config"
)

func newAppsCmd(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "Inspect and manage deployed apps",
	}
	cmd.AddCommand(newAppsListCmd(cfg))
	cmd.AddCommand(newAppsDeleteCmd(cfg))
	return cmd
}

func newAppsListCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List apps with live supervisor status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCore(cfg)
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Name", "Display Name", "Port", "Catalog", "Live"})
			for _, entry := range c.svc.ListApps(cmd.Context()) {
				table.Append([]string{
					entry.App.Name,
					entry.App.DisplayName,
					strconv.Itoa(entry.App.Port),
					entry.App.Status,
					entry.LiveStatus,
				})
			}
			table.Render()
			return nil
		},
	}
}

func newAppsDeleteCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an app, deferring directory removal when locked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCore(cfg)
			if err != nil {
				return err
			}
			app, err := c.store.GetAppByName(args[0])
			if err != nil {
				return err
			}
			result, err := c.svc.DeleteApp(cmd.Context(), app.ID)
			if err != nil {
				return err
			}
			if result.DeferredPath != "" {
				fmt.Printf("deleted %s; directory deferred to sweep: %s\n", args[0], result.DeferredPath)
				return nil
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}
