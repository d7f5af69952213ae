package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/workspace"
)

// InterpolateCmd fills boxes between two keyframes of one person.
var InterpolateCmd = &cobra.Command{
	Use:   "interpolate <dir>",
	Short: "Fill a person's boxes back to their previous keyframe",
	Long: `Open the workspace in <dir> with an annotation file, select a frame and a
person, and linearly interpolate that person's box across every frame since
their previous keyframe. The selected person is marked as a keyframe.

Frames are numbered from 1; people from 0 in the order they appear in the frame.

Examples:
  framemark interpolate ./frames --annotation hallway.json --frame 40 --person 0
  framemark interpolate ./frames --annotation hallway.json --frame 40 --out filled.json`,
	Args: cobra.ExactArgs(1),
	RunE: runInterpolate,
}

var (
	interpAnnotation string
	interpFrame      int
	interpPerson     int
	interpOut        string
)

func init() {
	InterpolateCmd.Flags().StringVar(&interpAnnotation, "annotation", "", "Annotation file (required)")
	InterpolateCmd.Flags().IntVar(&interpFrame, "frame", 0, "Frame holding the closing keyframe, from 1 (required)")
	InterpolateCmd.Flags().IntVar(&interpPerson, "person", 0, "Person index within the frame")
	InterpolateCmd.Flags().StringVar(&interpOut, "out", "", "Write here instead of over the annotation file")
	_ = InterpolateCmd.MarkFlagRequired("annotation")
	_ = InterpolateCmd.MarkFlagRequired("frame")
}

func runInterpolate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	cfg.Workspace.WatchImages = false
	cfg.Workspace.Autosave = false

	hist, closeHistory, err := openHistory(cfg, "")
	if err != nil {
		return err
	}
	defer closeHistory()

	svc, err := newService(cfg, hist)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := context.Background()
	if err := svc.Init(ctx, workspace.Config{Dir: args[0], Annotation: interpAnnotation}); err != nil {
		return err
	}

	store := svc.Store()
	store.SetCurrentFrame(interpFrame)
	if store.CurrentFrame() != interpFrame {
		return errors.NewInvalidRequestError("frame %d is outside 1..%d", interpFrame, store.ImagesCount())
	}
	store.SetCurrentPerson(interpPerson)
	if p, ok := store.CurrentPerson(); !ok || p != interpPerson {
		return errors.NewNotFoundError("frame %d has no person %d", interpFrame, interpPerson)
	}

	written, err := svc.InterpolateToCurrent()
	if err != nil {
		return err
	}
	if err := svc.Save(ctx, interpOut); err != nil {
		return err
	}
	pterm.Success.Printf("Interpolated %d box(es) up to frame %d\n", written, interpFrame)
	return nil
}
