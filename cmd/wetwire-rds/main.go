// Command wetwire-rds synthesizes the CloudFormation template of the RDS
// network topology and audits it.
//
// Usage:
//
//	wetwire-rds synth                 Generate CloudFormation template
//	wetwire-rds lint                  Audit the synthesized template
//	wetwire-rds drift                 Compare declared and live state
//	wetwire-rds version               Show version
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitError carries a process exit code for findings that are not failures
// of the command itself.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "wetwire-rds",
		Short: "Generate the RDS topology CloudFormation template from Go",
		Long: `wetwire-rds declares a MySQL instance and its network as typed Go resources
and synthesizes a CloudFormation template for them:

    VPC (10.0.0.0/16, public and private subnets, NAT) -> network ACLs
    -> key pair -> security group -> credential secret -> DB instance

Configuration is read from an optional YAML file layered over built-in
defaults and WETWIRE_RDS_* environment variables:

    wetwire-rds synth --config rds.yaml -f yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonLogs, "json-logs", false, "Write logs as JSON instead of console text")

	rootCmd.AddCommand(
		newSynthCmd(opts),
		newListCmd(opts),
		newGraphCmd(opts),
		newLintCmd(opts),
		newValidateCmd(opts),
		newDiffCmd(opts),
		newDriftCmd(opts),
		newWatchCmd(opts),
		newUsernameCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.msg != "" {
				fmt.Fprintln(os.Stderr, exit.msg)
			}
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wetwire-rds %s\n", getVersion())
		},
	}
}
