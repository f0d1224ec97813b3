package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/config"
	"github.com/lex00/ou-network-go/internal/logging"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-synthesize when the env file or the TLS certificate changes",
		Long: `Watch synthesizes every stack, then watches the env file and the
GitHub Enterprise TLS certificate and synthesizes again after each change.

Values of the env file take precedence over the process environment while
watching, so edits to the file apply without restarting.

Examples:
    ou-network watch
    ou-network watch -o out --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), root, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "cdk.out", "Output directory")
	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "json", "Template format: json or yaml")

	return cmd
}

type watchOptions struct {
	debounce     time.Duration
	outputDir    string
	outputFormat string
}

// overlayEnv reads the env file on every call to layer its values over the
// process environment.
func overlayEnv(path string, getenv config.Getenv) (config.Getenv, error) {
	values := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		if values, err = config.ReadEnvFile(path); err != nil {
			return nil, err
		}
	}
	return func(key string) string {
		if v, ok := values[key]; ok {
			return v
		}
		return getenv(key)
	}, nil
}

// watchedFiles returns the absolute paths of the files whose changes trigger a synth.
func watchedFiles(envFile string, getenv config.Getenv) []string {
	var files []string
	for _, f := range []string{envFile, getenv(config.EnvGitHubTLSCertFile)} {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		files = append(files, abs)
	}
	return files
}

// isRelevant reports whether event touches one of files. Editors that save by
// renaming produce Create and Rename events rather than Write.
func isRelevant(event fsnotify.Event, files []string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	for _, f := range files {
		if f == name {
			return true
		}
	}
	return false
}

func runWatch(ctx context.Context, root *rootOptions, opts watchOptions, w io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	getenv, err := overlayEnv(root.envFile, os.Getenv)
	if err != nil {
		return err
	}
	files := watchedFiles(root.envFile, getenv)
	dirs := map[string]bool{}
	for _, f := range files {
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
		fmt.Fprintf(w, "Watching: %s\n", dir)
	}

	synth := func() {
		if err := synthOnce(ctx, root, opts, w); err != nil {
			logging.Error("synth failed", zap.Error(err))
		}
	}
	synth()

	var debounceTimer *time.Timer
	rebuild := make(chan struct{}, 1)

	fmt.Fprintln(w, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRelevant(event, files) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})

		case <-rebuild:
			fmt.Fprintf(w, "\n[%s] Change detected, synthesizing...\n", time.Now().Format("15:04:05"))
			synth()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watch error", zap.Error(err))
		}
	}
}

func synthOnce(ctx context.Context, root *rootOptions, opts watchOptions, w io.Writer) error {
	getenv, err := overlayEnv(root.envFile, os.Getenv)
	if err != nil {
		return err
	}
	cfg, err := config.LoadNetwork(getenv)
	if err != nil {
		return err
	}
	a, err := root.buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	result, err := a.Synth(opts.outputDir, opts.outputFormat)
	if err != nil {
		return err
	}
	return app.WriteResult(w, result, opts.outputDir, false)
}
