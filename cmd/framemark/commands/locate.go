package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
	"github.com/teranos/framemark/workspace"
)

// LocateCmd resolves one image point with a workspace's calibration.
var LocateCmd = &cobra.Command{
	Use:   "locate <dir> <x> <y>",
	Short: "Resolve an image point to room coordinates and a zone",
	Long: `Run CameraTool once for the image point (x, y) using the calibration in
<dir>/workspace.json and print the room position, rounded half up, and its zone.
Nothing is written.`,
	Args: cobra.ExactArgs(3),
	RunE: runLocate,
}

var locateJSON bool

func init() {
	LocateCmd.Flags().BoolVarP(&locateJSON, "json", "j", false, "Output the result as JSON")
}

func runLocate(cmd *cobra.Command, args []string) error {
	x, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return errors.NewInvalidRequestError("x must be a number, got %q", args[1])
	}
	y, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return errors.NewInvalidRequestError("y must be a number, got %q", args[2])
	}

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

	ctx := context.Background()
	if err := svc.Init(ctx, workspace.Config{Dir: args[0]}); err != nil {
		return err
	}

	res, err := svc.Locate(ctx, geom.Pt(x, y))
	if err != nil {
		return err
	}

	if locateJSON {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}
	rx, ry := res.Real.XY()
	pterm.Info.Printf("(%g, %g) -> room (%g, %g), zone %s\n", x, y, rx, ry, res.Zone)
	return nil
}
