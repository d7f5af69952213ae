package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/framemark/am"
	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/geom"
	"github.com/teranos/framemark/history"
)

// isolateConfig points the config cascade at an empty home directory.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	am.Reset()
	t.Cleanup(am.Reset)
}

func boxedFile(t *testing.T, path string, boxes ...geom.BoundingBox) *annotation.Video {
	t.Helper()
	v := annotation.NewVideo(1, "walk", "001", 1)
	v.FillFrames(len(boxes))
	for i, b := range boxes {
		p := annotation.NewPerson()
		p.Box = b
		v.Frames[i].AddPerson(p)
	}
	require.NoError(t, annotation.WriteFile(path, v))
	return v
}

func TestIoUCommandJSON(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref.json")
	cand := filepath.Join(dir, "cand.json")
	boxedFile(t, ref, geom.Box(0, 10, 0, 10), geom.Box(0, 10, 0, 10))
	boxedFile(t, cand, geom.Box(0, 10, 0, 10), geom.Box(5, 15, 0, 10))

	var out bytes.Buffer
	IoUCmd.SetOut(&out)
	IoUCmd.SetArgs([]string{ref, cand, "--json"})
	require.NoError(t, IoUCmd.Execute())

	var report annotation.IoUReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report), out.String())
	require.Len(t, report.Scores, 2)
	assert.InDelta(t, (1.0+1.0/3.0)/2, report.Average, 1e-9)
}

func TestLintCommandFailsOnIssues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))

	LintCmd.SetArgs([]string{dir})
	err := LintCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 issue(s) in 1 file(s)")
}

func TestLocateRejectsBadCoordinates(t *testing.T) {
	LocateCmd.SetArgs([]string{t.TempDir(), "left", "3"})
	err := LocateCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x must be a number")
}

func TestHistoryRestore(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	file := filepath.Join(dir, "walk.json")
	saved := boxedFile(t, file, geom.Box(1, 2, 3, 4))

	cfg, err := am.Load()
	require.NoError(t, err)
	database, err := openDatabase(cfg, dbPath)
	require.NoError(t, err)
	rev, created, err := history.NewStore(database, 0).Save(context.Background(), file, saved)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, database.Close())

	out := filepath.Join(dir, "restored.json")
	HistoryCmd.SetArgs([]string{"restore", strconv.FormatInt(rev.ID, 10), "--out", out, "--db-path", dbPath})
	require.NoError(t, HistoryCmd.Execute())

	restored, err := annotation.ReadFile(out, nil)
	require.NoError(t, err)
	require.Len(t, restored.Frames, 1)
	assert.True(t, restored.Frame(0).Person(0).Box.Equal(geom.Box(1, 2, 3, 4)))

	HistoryCmd.SetArgs([]string{"restore", "999", "--db-path", dbPath})
	assert.Error(t, HistoryCmd.Execute())
}
