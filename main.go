package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"audtag/internal/audible"
	"audtag/internal/config"
	"audtag/internal/grouping"
	"audtag/internal/orchestrator"
	"audtag/internal/resolve"
	"audtag/internal/shared"
	"audtag/internal/tagio"
	"audtag/internal/task"
)

const toolVersion = "1.0.0"

var (
	configPath string
	debug      bool
	workers    int
	autoSelect bool
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:     "audtag",
	Version: toolVersion,
	Short:   "Tag and organize audiobooks with Audible metadata.",
	Long: fmt.Sprintf(`audtag (v%s)

Tags audiobook files with metadata from the Audible catalog and
optionally reorganizes them on disk.

It groups loose audio files into logical books, resolves each book
interactively against catalog search results, writes a consistent
audiobook tag schema to every file, downloads cover art, and can run
configured move/copy/rename tasks afterwards.`, toolVersion),
}

var tagCmd = &cobra.Command{
	Use:   "tag [files or directories...]",
	Short: "Group files into books, fetch metadata, and write tags.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if workers > 0 {
			cfg.Settings.Workers = workers
		}

		files, err := grouping.ScanPaths(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			shared.ColorWarning.Println("No audio files found.")
			return nil
		}

		groups := grouping.Group(files)
		shared.ColorInfo.Printf("📚 Found %d file(s) in %d group(s)\n", len(files), len(groups))

		source := audible.NewClient(cfg.Settings.SearchURL, nil,
			audible.WithMaxRetries(cfg.Settings.MaxRetryAttempts),
			audible.WithRatingFallback(cfg.Settings.RatingFallback),
			audible.WithDebug(debug),
		)
		var decider resolve.Decider = resolve.TerminalDecider{}
		if autoSelect {
			decider = resolve.AutoDecider{}
		}
		controller := resolve.NewController(source, decider)
		warnings := shared.NewWarningCollector()

		orch := orchestrator.New(controller, source, warnings, cfg.Settings.Workers, debug)
		stats := orch.Run(context.Background(), groups)

		stats.PrintReport()
		warnings.PrintSummary()
		if stats.FailedCount > 0 {
			return fmt.Errorf("%d group(s) failed", stats.FailedCount)
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info [files or directories...]",
	Short: "Show current tags, grouped by shared book metadata.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := grouping.ScanPaths(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			shared.ColorWarning.Println("No audio files found.")
			return nil
		}
		printInfo(files)
		return nil
	},
}

var taskCmd = &cobra.Command{
	Use:   "task [task-name] [files or directories...]",
	Short: "Run a configured move/copy/rename task on tagged files.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		t, err := cfg.FindTask(args[0])
		if err != nil {
			return err
		}

		files, err := grouping.ScanPaths(args[1:])
		if err != nil {
			return err
		}
		if len(files) == 0 {
			shared.ColorWarning.Println("No audio files found.")
			return nil
		}
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.Path
		}

		warnings := shared.NewWarningCollector()
		engine := task.NewEngine(warnings, debug)
		engine.ConfirmOverwrite = confirmOverwrite()

		result, err := engine.Execute(context.Background(), t, paths, dryRun)
		if err != nil {
			return err
		}

		shared.ColorSuccess.Printf("\n✅ Processed: %d", result.Processed)
		if result.Skipped > 0 {
			shared.ColorWarning.Printf("  ⏭️ Skipped: %d", result.Skipped)
		}
		if result.Failed > 0 {
			shared.ColorError.Printf("  ❌ Failed: %d", result.Failed)
		}
		fmt.Println()
		for _, opErr := range result.Errors {
			shared.ColorError.Printf("  - %v\n", opErr)
		}
		warnings.PrintSummary()
		if result.Failed > 0 {
			return fmt.Errorf("%d file(s) failed", result.Failed)
		}
		return nil
	},
}

// confirmOverwrite returns the interactive overwrite prompt, remembering
// an "all" or "quit" answer for the rest of the run.
func confirmOverwrite() func(src, dst string) bool {
	allowAll := false
	denyAll := false
	return func(src, dst string) bool {
		if allowAll {
			return true
		}
		if denyAll || !shared.IsTTY() {
			return false
		}
		for {
			input := shared.GetUserInput(
				fmt.Sprintf("Overwrite %s? (y)es/(n)o/(a)ll/(q)uit", filepath.Base(dst)), "n")
			switch strings.ToLower(input) {
			case "y", "yes":
				return true
			case "n", "no":
				return false
			case "a", "all":
				allowAll = true
				return true
			case "q", "quit":
				denyAll = true
				return false
			default:
				shared.ColorError.Println("❌ Invalid input. Please enter y, n, a or q.")
			}
		}
	}
}

// printInfo displays tag snapshots, collapsing files that share the same
// album and artist into one block.
func printInfo(files []shared.AudioFile) {
	type bookKey struct{ album, artist string }
	byBook := make(map[bookKey][]shared.AudioFile)
	var order []bookKey
	for _, f := range files {
		key := bookKey{album: f.Tags.Album, artist: f.Tags.AlbumArtist}
		if key.artist == "" {
			key.artist = f.Tags.Artist
		}
		if _, ok := byBook[key]; !ok {
			order = append(order, key)
		}
		byBook[key] = append(byBook[key], f)
	}

	for _, key := range order {
		group := byBook[key]
		title := key.album
		if title == "" {
			title = "(untagged)"
		}
		shared.ColorInfo.Printf("\n📖 %s", title)
		if key.artist != "" {
			fmt.Printf(" by %s", key.artist)
		}
		fmt.Printf("  [%d file(s)]\n", len(group))

		sort.Slice(group, func(i, j int) bool {
			if group[i].Tags.TrackNumber != group[j].Tags.TrackNumber {
				return group[i].Tags.TrackNumber < group[j].Tags.TrackNumber
			}
			return group[i].Path < group[j].Path
		})
		for _, f := range group {
			props, err := tagio.ReadProperties(f.Path)
			line := filepath.Base(f.Path)
			if f.Tags.TrackNumber > 0 {
				line = fmt.Sprintf("%2d. %s", f.Tags.TrackNumber, line)
			}
			fmt.Printf("  %s\n", line)
			if err == nil {
				for _, k := range []string{"TITLE", "COMPOSER", "SERIES", "SERIES-PART", "DATE", "GENRE"} {
					if v := props[k]; v != "" {
						fmt.Printf("      %-12s %s\n", strings.ToLower(k)+":", shared.TruncateString(v, 80))
					}
				}
			}
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to audtag.yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	tagCmd.Flags().IntVar(&workers, "workers", 0, "Number of parallel workers (default: CPU count)")
	tagCmd.Flags().BoolVar(&autoSelect, "auto", false, "Always take the first search result without prompting")

	taskCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview operations without touching the filesystem")

	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(taskCmd)
}

func main() {
	shared.InitializeColors()
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		shared.ColorError.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}
