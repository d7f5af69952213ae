package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/workspace"
)

// InitCmd extracts a video into a workspace directory.
var InitCmd = &cobra.Command{
	Use:   "init <dir>",
	Short: "Extract a video's frames into a workspace directory",
	Long: `Extract every frame of a video into <dir> with CameraTool and write
workspace.json from the video's file name (<number>-<name>-<increment>-<camera>.<ext>).

An existing workspace.json keeps its calibration.

Examples:
  framemark init ./frames --video 3-hallway-002-1.avi
  framemark init ./frames --video 3-hallway-002-1.avi --annotation hallway.json`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

var (
	initVideo      string
	initAnnotation string
)

func init() {
	InitCmd.Flags().StringVar(&initVideo, "video", "", "Video file to extract (required)")
	InitCmd.Flags().StringVar(&initAnnotation, "annotation", "", "Annotation file to check against the video")
	_ = InitCmd.MarkFlagRequired("video")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	cfg.Workspace.WatchImages = false
	cfg.Workspace.Autosave = false

	svc, err := newService(cfg, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	spinner, _ := pterm.DefaultSpinner.Start("Extracting frames from " + initVideo)
	err = svc.Init(context.Background(), workspace.Config{
		Dir:        args[0],
		Video:      initVideo,
		Annotation: initAnnotation,
	})
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success(pterm.Sprintf("%d frames in %s", svc.Store().ImagesCount(), args[0]))

	if !svc.Calibration().Calibrated() {
		pterm.Warning.Printf("Not calibrated: set lens and perspective files and the image origin in %s\n",
			workspace.VarsFileName)
	}
	return nil
}
