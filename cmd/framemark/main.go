package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/cmd/framemark/commands"
	"github.com/teranos/framemark/logger"
)

var rootCmd = &cobra.Command{
	Use:   "framemark",
	Short: "framemark - frame-by-frame person annotation",
	Long: `framemark - frame-by-frame person annotation for multi-camera video.

Annotators draw a bounding box and a floor location for every person in every
frame. Locations are resolved to room coordinates by the external CameraTool
and saved in the annotation JSON format.

Available commands:
  am          - Show and validate configuration ("I am")
  init        - Extract a video into a workspace directory
  serve       - Start the annotation server
  interpolate - Fill boxes between keyframes from the command line
  locate      - Resolve one image point to room coordinates
  lint        - Check annotation files
  iou         - Compare two annotation files box by box
  history     - List and restore saved revisions

Examples:
  framemark init ./frames --video 3-hallway-002-1.avi
  framemark serve
  framemark lint ./annotations
  framemark iou truth.json candidate.json`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 'am show' output is often piped; keep it free of log lines
		if cmd.Name() == "show" {
			return nil
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs := am.GetBool("log.json")
		if cmd.Flags().Changed("log-json") {
			jsonLogs, _ = cmd.Flags().GetBool("log-json")
		}
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.InitCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.InterpolateCmd)
	rootCmd.AddCommand(commands.LocateCmd)
	rootCmd.AddCommand(commands.LintCmd)
	rootCmd.AddCommand(commands.IoUCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
