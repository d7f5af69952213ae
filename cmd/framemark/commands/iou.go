package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/framemark/annotation"
)

// IoUCmd compares two annotation files box by box.
var IoUCmd = &cobra.Command{
	Use:   "iou <reference> <candidate>",
	Short: "Score a candidate annotation's boxes against a reference",
	Long: `Pair the frames of two annotation files by position and report the
intersection over union of the first person's box in each frame, plus the
average, minimum and maximum. Frames without a box on both sides are skipped.`,
	Args: cobra.ExactArgs(2),
	RunE: runIoU,
}

var iouJSON bool

func init() {
	IoUCmd.Flags().BoolVarP(&iouJSON, "json", "j", false, "Output the report as JSON")
}

func runIoU(cmd *cobra.Command, args []string) error {
	reference, err := annotation.ReadFile(args[0], nil)
	if err != nil {
		return err
	}
	candidate, err := annotation.ReadFile(args[1], nil)
	if err != nil {
		return err
	}

	report, err := annotation.CompareIoU(reference, candidate)
	if err != nil {
		return err
	}

	if iouJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	rows := pterm.TableData{{"Frame", "IoU"}}
	for _, s := range report.Scores {
		rows = append(rows, []string{fmt.Sprint(s.Frame), fmt.Sprintf("%.3f", s.IoU)})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}
	pterm.Info.Printf("%d frames: average %.3f, min %.3f, max %.3f\n",
		len(report.Scores), report.Average, report.Min, report.Max)
	return nil
}
