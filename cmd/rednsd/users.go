package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redns-dev/redns/internal/ddns/common/log"
	"github.com/redns-dev/redns/internal/ddns/services/admin"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users and their domain grants",
}

var usersAddCmd = &cobra.Command{
	Use:   "add <username> <password> <domain>",
	Short: "Add a user (or grant an existing user another domain)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(func(ctx context.Context, a *admin.Admin) error {
			if err := a.AddUser(ctx, args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Printf("user %s granted %s\n", args[0], args[2])
			return nil
		})
	},
}

var usersDelCmd = &cobra.Command{
	Use:   "del <username>",
	Short: "Delete a user, their domain grants, and all their nodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(func(ctx context.Context, a *admin.Admin) error {
			if err := a.DeleteUser(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("user %s deleted\n", args[0])
			return nil
		})
	},
}

func init() {
	usersCmd.AddCommand(usersAddCmd)
	usersCmd.AddCommand(usersDelCmd)
	rootCmd.AddCommand(usersCmd)
}

// withAdmin loads config, opens the store, and runs fn with a bounded
// context.
func withAdmin(fn func(ctx context.Context, a *admin.Admin) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(ctx, admin.New(st, log.GetLogger()))
}
