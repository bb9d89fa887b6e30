package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-rds-go/internal/config"
	"github.com/lex00/wetwire-rds-go/internal/drift"
	"github.com/lex00/wetwire-rds-go/internal/livestate"
	"github.com/lex00/wetwire-rds-go/internal/topology"
)

// stateReader reads the live state of a deployed stack.
type stateReader interface {
	Read(ctx context.Context, stackName, account string) (*livestate.State, error)
}

func newDriftCmd(opts *globalOptions) *cobra.Command {
	var (
		outputFormat string
		attributes   []string
		stackName    string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Compare the declared topology with the deployed resources",
		Long: `Drift reads the resources of the deployed stack through the EC2, RDS and
STS APIs and compares them with the topology declared by the configuration.

Credentials come from the default AWS credential chain. When the
configuration names an account, the credentials must belong to it.

Exit codes:
    0: no drift
    1: error
    2: drift detected

Examples:
    wetwire-rds drift
    wetwire-rds drift --attributes engine_version,multi_az -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if stackName != "" {
				cfg.StackName = stackName
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			client, err := livestate.NewClient(ctx, cfg.Region, logger)
			if err != nil {
				return err
			}
			return runDrift(ctx, cmd.OutOrStdout(), cfg, logger, client, driftOptions{
				format:     outputFormat,
				attributes: attributes,
			})
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "Output format: table or json")
	cmd.Flags().StringSliceVar(&attributes, "attributes", nil, "Attributes to check (default: all)")
	cmd.Flags().StringVar(&stackName, "stack", "", "Deployed stack name (default: from configuration)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Time limit for reading live state")

	return cmd
}

type driftOptions struct {
	format     string
	attributes []string
}

func runDrift(ctx context.Context, w io.Writer, cfg *config.Config, logger zerolog.Logger, reader stateReader, opts driftOptions) error {
	format := drift.Format(opts.format)
	if format != drift.FormatTable && format != drift.FormatJSON {
		return fmt.Errorf("unknown format: %s (use 'table' or 'json')", opts.format)
	}

	top, err := topology.Build(cfg, logger)
	if err != nil {
		return fmt.Errorf("declaring topology: %w", err)
	}

	live, err := reader.Read(ctx, cfg.StackName, cfg.Account)
	if err != nil {
		return fmt.Errorf("reading live state: %w", err)
	}

	result, err := drift.Detect(drift.FromTopology(top, cfg), live, opts.attributes)
	if err != nil {
		return err
	}
	logger.Info().Int("checked", len(result.Checked)).Int("drifts", len(result.Drifts)).Msg("drift check complete")

	report := drift.Report{Stack: cfg.StackName, Account: live.Account, Result: *result}
	if err := report.Write(w, format); err != nil {
		return err
	}

	if result.HasDrift {
		return &exitError{code: 2}
	}
	return nil
}
