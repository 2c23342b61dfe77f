package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redns-dev/redns/internal/ddns/services/admin"
)

var zoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Configure the served zone",
}

var zoneSetCmd = &cobra.Command{
	Use:   "set <zone> <nameserver>...",
	Short: "Persist the served zone and its nameserver set",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(func(ctx context.Context, a *admin.Admin) error {
			if err := a.SetZone(ctx, args[0], args[1:]); err != nil {
				return err
			}
			fmt.Printf("zone %s configured with %d nameserver(s)\n", args[0], len(args)-1)
			return nil
		})
	},
}

func init() {
	zoneCmd.AddCommand(zoneSetCmd)
	rootCmd.AddCommand(zoneCmd)
}
