package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-rds-go/internal/linter"
)

// newWatchCmd creates the "watch" subcommand for re-synthesizing when the
// configuration file changes.
func newWatchCmd(opts *globalOptions) *cobra.Command {
	var (
		lintOnly     bool
		debounce     time.Duration
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-synthesize on configuration changes",
		Long: `Watch monitors the configuration file and re-synthesizes on every change.

The watch command:
- Reloads and validates the configuration
- Runs lint on the synthesized template
- Writes the template if lint passes (unless --lint-only)
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    wetwire-rds watch --config rds.yaml -o template.json
    wetwire-rds watch --config rds.yaml --lint-only
    wetwire-rds watch --config rds.yaml --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, watchOptions{
				lintOnly:     lintOnly,
				debounce:     debounce,
				outputFormat: outputFormat,
				outputFile:   outputFile,
			})
		},
	}

	cmd.Flags().BoolVar(&lintOnly, "lint-only", false, "Only run lint, skip writing the template")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format for the template: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for the template (default: stdout)")

	return cmd
}

type watchOptions struct {
	lintOnly     bool
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// runWatch watches the configuration file and rebuilds on changes.
func runWatch(stdout, stderr io.Writer, global *globalOptions, opts watchOptions) error {
	if global.configPath == "" {
		return errors.New("watch requires --config")
	}
	path, err := filepath.Abs(global.configPath)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Editors often replace the file on save, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	fmt.Fprintf(stderr, "Watching: %s\n", path)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	fmt.Fprintln(stderr, "Running initial lint/synth...")
	rebuild(stdout, stderr, global, opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(stderr, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConfigChange(event, path) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(stderr, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			rebuild(stdout, stderr, global, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(stderr, "Watch error: %v\n", err)

		case <-sigChan:
			fmt.Fprintln(stderr, "\nStopping watch...")
			return nil
		}
	}
}

// isConfigChange reports whether event wrote or recreated the file at path.
func isConfigChange(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// rebuild reloads the configuration, lints the synthesized template and
// writes it. Failures are reported and the watch continues.
func rebuild(stdout, stderr io.Writer, global *globalOptions, opts watchOptions) bool {
	cfg, logger, err := global.load(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Config error: %v\n", err)
		return false
	}

	tmpl, err := synthesize(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Synth error: %v\n", err)
		return false
	}

	result := linter.Lint(tmpl, linter.Options{})
	for _, issue := range result.Issues {
		fmt.Fprintf(stderr, "%s: %s: %s [%s]\n", issue.Resource, issue.Severity, issue.Message, issue.Rule)
	}
	if !result.Success {
		fmt.Fprintln(stderr, "Lint failed, skipping synth")
		return false
	}
	fmt.Fprintln(stderr, "Lint passed")

	if opts.lintOnly {
		return true
	}

	data, err := encodeTemplate(tmpl, opts.outputFormat)
	if err != nil {
		fmt.Fprintf(stderr, "Output error: %v\n", err)
		return false
	}
	if err := writeOutput(stdout, opts.outputFile, data); err != nil {
		fmt.Fprintf(stderr, "Failed to write output: %v\n", err)
		return false
	}
	if opts.outputFile != "" {
		fmt.Fprintf(stderr, "Synth successful, wrote %s\n", opts.outputFile)
	}
	return true
}
