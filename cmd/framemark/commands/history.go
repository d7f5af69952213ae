package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/history"
)

// HistoryCmd groups the revision history commands.
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List, restore and prune saved annotation revisions",
	Long: `Every save records a revision of the annotation file in the database when
history.enabled is set. Identical consecutive saves are stored once.

Examples:
  framemark history list hallway.json
  framemark history restore 42 --out hallway-before.json
  framemark history prune hallway.json --keep 10`,
}

var historyListCmd = &cobra.Command{
	Use:   "list <file>",
	Short: "List revisions of an annotation file, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryList,
}

var historyRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Write a revision back to disk",
	Long:  "Write revision <id> to --out, or over the file it was saved from.",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryRestore,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune <file>",
	Short: "Delete all but the newest revisions of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryPrune,
}

var (
	historyLimit  int
	historyOut    string
	historyKeep   int
	historyDBPath string
)

func init() {
	HistoryCmd.PersistentFlags().StringVar(&historyDBPath, "db-path", "", "Custom database path (overrides database.path)")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of revisions to show (0 = all)")
	historyRestoreCmd.Flags().StringVar(&historyOut, "out", "", "Write here instead of the original file")
	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", 10, "Number of revisions to keep")

	HistoryCmd.AddCommand(historyListCmd)
	HistoryCmd.AddCommand(historyRestoreCmd)
	HistoryCmd.AddCommand(historyPruneCmd)
}

// historyStore opens the revision store regardless of history.enabled, so
// revisions recorded earlier stay reachable.
func historyStore() (*history.Store, func(), error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load config")
	}
	database, err := openDatabase(cfg, historyDBPath)
	if err != nil {
		return nil, nil, err
	}
	return history.NewStore(database, cfg.History.MaxRevisions), func() { database.Close() }, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, done, err := historyStore()
	if err != nil {
		return err
	}
	defer done()

	revs, err := store.List(context.Background(), args[0], historyLimit)
	if err != nil {
		return err
	}
	if len(revs) == 0 {
		pterm.Info.Printf("No revisions of %s\n", args[0])
		return nil
	}

	rows := pterm.TableData{{"ID", "Saved", "Video", "Frames", "People", "Checksum"}}
	for _, r := range revs {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d-%s-%s-%d", r.Context.Number, r.Context.Name, r.Context.Increment, r.Context.Camera),
			strconv.Itoa(r.Frames),
			strconv.Itoa(r.People),
			shortChecksum(r.Checksum),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runHistoryRestore(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.NewInvalidRequestError("revision id must be a number, got %q", args[0])
	}

	store, done, err := historyStore()
	if err != nil {
		return err
	}
	defer done()

	rev, video, err := store.Load(context.Background(), id)
	if err != nil {
		return err
	}
	out := historyOut
	if out == "" {
		out = rev.FilePath
	}
	if err := annotation.WriteFile(out, video); err != nil {
		return err
	}
	pterm.Success.Printf("Revision %d written to %s\n", rev.ID, out)
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, done, err := historyStore()
	if err != nil {
		return err
	}
	defer done()

	n, err := store.Prune(context.Background(), args[0], historyKeep)
	if err != nil {
		return err
	}
	pterm.Success.Printf("Pruned %d revision(s) of %s\n", n, args[0])
	return nil
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
