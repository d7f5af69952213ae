package commands

import (
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/errors"
)

// LintCmd checks annotation files.
var LintCmd = &cobra.Command{
	Use:   "lint <file|dir>",
	Short: "Check annotation files for format problems",
	Long: `Check one annotation file, or every .json file in a directory, against the
annotation format: required fields, frame numbering, box corners and
location/zone consistency.

Exits non-zero when any issue is found.`,
	Args: cobra.ExactArgs(1),
	RunE: runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	results, err := annotation.NewLinter().LintPath(args[0])
	if err != nil {
		return err
	}

	files := make([]string, 0, len(results))
	for f := range results {
		files = append(files, f)
	}
	sort.Strings(files)

	total := 0
	rows := pterm.TableData{{"File", "Path", "Issue"}}
	for _, f := range files {
		for _, issue := range results[f] {
			rows = append(rows, []string{f, issue.Path, issue.Message})
			total++
		}
	}

	if total == 0 {
		pterm.Success.Printf("%d file(s) clean\n", len(files))
		return nil
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}
	return errors.Newf("%d issue(s) in %d file(s)", total, len(files))
}
