package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openendpoint/openendpoint/internal/config"
	"github.com/openendpoint/openendpoint/internal/iam"
)

var userStorage string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage principals (username, access key, secret key)",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a user and its access key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, path, err := openIAM(cmd)
		if err != nil {
			return err
		}
		username := args[0]
		if _, err := mgr.CreateUser(username); err != nil {
			return err
		}
		key, err := mgr.CreateAccessKey(username)
		if err != nil {
			return err
		}
		if err := mgr.Save(path); err != nil {
			return fmt.Errorf("save iam state: %w", err)
		}
		fmt.Printf("created user %q\n  access-key: %s\n  secret-key: %s\n", username, key.AccessKey, key.SecretKey)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := openIAM(cmd)
		if err != nil {
			return err
		}
		users := mgr.ListUsers()
		if len(users) == 0 {
			fmt.Println("no users")
			return nil
		}
		for _, u := range users {
			fmt.Printf("%s\tcreated %s\n", u.Name, u.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a user and its access keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, path, err := openIAM(cmd)
		if err != nil {
			return err
		}
		if err := mgr.DeleteUser(args[0]); err != nil {
			return err
		}
		if err := mgr.Save(path); err != nil {
			return fmt.Errorf("save iam state: %w", err)
		}
		fmt.Printf("deleted user %q\n", args[0])
		return nil
	},
}

func init() {
	userCmd.PersistentFlags().StringVar(&userStorage, "storage", "./data", "storage root directory (must match the running server's --storage)")
	userCmd.AddCommand(userCreateCmd, userListCmd, userDeleteCmd)
}

// openIAM loads the iam snapshot from the same storage root a `run`
// invocation would use, so `user` subcommands and the running server
// observe the same principal registry.
func openIAM(cmd *cobra.Command) (*iam.Manager, string, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("storage") {
		cfg.Storage.DataDir = userStorage
	}
	cfg.SetDefaults()
	cfg.Normalize()

	path := filepath.Join(cfg.GetDataDir(), "iam.json")
	mgr, err := iam.LoadManager(path)
	if err != nil {
		return nil, "", fmt.Errorf("load iam state: %w", err)
	}
	return mgr, path, nil
}
