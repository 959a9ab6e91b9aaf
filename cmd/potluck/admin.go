package main

import (
	"fmt"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/auth"
	"github.com/dekarrin/potluck/dao"
	"github.com/dekarrin/potluck/db"
	"github.com/spf13/cobra"
)

var (
	flagUsername string
	flagPassword string
	flagName     string
	flagAdmin    bool

	flagKeyDescription string
)

var addUserCmd = &cobra.Command{
	Use:   "adduser",
	Short: "Create a user",
	Long: `Create a user directly in the database, without going through the
server. This is how the first admin user is made when registration is off.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagUsername == "" || flagPassword == "" {
			return fmt.Errorf("--username and --password are required")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		return withStore(cmd.Context(), cfg, func(store *dao.Store, q db.Querier) error {
			name := flagName
			if name == "" {
				name = flagUsername
			}

			user, err := auth.UserService{Store: store}.CreateUser(cmd.Context(), q, auth.NewUser{
				Name:     name,
				Username: flagUsername,
				Password: flagPassword,
				Admin:    flagAdmin,
			})
			if err != nil {
				return err
			}

			logger.Infof("Created user %q with ID %d", user.Username, user.ID)
			return nil
		})
	},
}

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key and print it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		return withStore(cmd.Context(), cfg, func(store *dao.Store, q db.Querier) error {
			key, err := auth.KeyService{Store: store}.CreateKey(cmd.Context(), q, flagKeyDescription)
			if err != nil {
				return err
			}

			logger.Infof("Created API key %d", key.ID)
			fmt.Fprintln(cmd.OutOrStdout(), key.Key)
			return nil
		})
	},
}

var apiKeyRevokeCmd = &cobra.Command{
	Use:   "revoke ID",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := potluck.ParseID(args[0])
		if err != nil {
			return fmt.Errorf("%q: %w", args[0], err)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		return withStore(cmd.Context(), cfg, func(store *dao.Store, q db.Querier) error {
			if _, err := (auth.KeyService{Store: store}).RevokeKey(cmd.Context(), q, id); err != nil {
				return err
			}

			logger.Infof("Revoked API key %d", id)
			return nil
		})
	},
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the routes of the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// the log would go to stderr anyways, but there is nothing to see
		cfg.Log.Enabled = false

		srv, err := env.NewServer(cmd.Context(), &cfg)
		if err != nil {
			return err
		}
		defer srv.Shutdown(cmd.Context())

		fmt.Fprintln(cmd.OutOrStdout(), srv.RoutesIndex())
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the config with defaults filled in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		cmd.OutOrStdout().Write(env.DumpConfig(cfg))
		return nil
	},
}

func init() {
	addUserCmd.Flags().StringVarP(&flagUsername, "username", "u", "", "Username of the new user")
	addUserCmd.Flags().StringVarP(&flagPassword, "password", "p", "", "Password of the new user")
	addUserCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name of the new user (defaults to the username)")
	addUserCmd.Flags().BoolVar(&flagAdmin, "admin", false, "Make the new user an admin")

	apiKeyCreateCmd.Flags().StringVarP(&flagKeyDescription, "description", "d", "", "What the key is for")

	apiKeyCmd.AddCommand(apiKeyCreateCmd)
	apiKeyCmd.AddCommand(apiKeyRevokeCmd)
}
