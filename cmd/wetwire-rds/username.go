package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/topology"
)

func newUsernameCmd(opts *globalOptions) *cobra.Command {
	var stackID string

	cmd := &cobra.Command{
		Use:   "username",
		Short: "Show the database master username",
		Long: `Username prints the master username the credential secret will carry.

With the default hash strategy it is derived from the account, region and
stack name of the configuration. With --stack-id it is evaluated from a
deployed stack ID the way the stack-id strategy does at deploy time.

Examples:
    wetwire-rds username
    wetwire-rds username --stack-id arn:aws:cloudformation:us-east-1:076913533062:stack/Db/4b2e1f80-8c1a-11ee-a5f3-0a1b2c3d4e5f`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stackID != "" {
				return runUsernameFromStackID(cmd.OutOrStdout(), stackID)
			}
			cfg, _, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runUsername(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().StringVar(&stackID, "stack-id", "", "Derive the username from a deployed stack ID")

	return cmd
}

func runUsername(w io.Writer, cfg *config.Config) error {
	if cfg.Secret.UsernameStrategy == config.UsernameStackID {
		return fmt.Errorf("username strategy %q is resolved at deploy time; pass --stack-id", cfg.Secret.UsernameStrategy)
	}
	_, err := fmt.Fprintln(w, topology.HashUsername(cfg.Account, cfg.Region, cfg.StackName))
	return err
}

func runUsernameFromStackID(w io.Writer, stackID string) error {
	username, err := topology.DeriveUsername(stackID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, username)
	return err
}
