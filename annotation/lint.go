package annotation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/teranos/framemark/errors"
)

// Issue is one problem found in an annotation file.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Linter checks annotation files against the on-disk contract.
type Linter struct {
	validate *validator.Validate
}

// NewLinter returns a Linter with its own validator instance.
func NewLinter() *Linter {
	return &Linter{validate: validator.New()}
}

// LintPath lints a single .json file or every .json file in a directory.
// Results are keyed by file path; files without issues map to an empty slice.
func (l *Linter) LintPath(path string) (map[string][]Issue, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read directory %s", path)
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	} else if filepath.Ext(path) == ".json" {
		files = append(files, path)
	}

	if len(files) == 0 {
		return nil, errors.NewNotFoundError("no JSON annotation file found at %s", path)
	}
	sort.Strings(files)

	results := make(map[string][]Issue, len(files))
	for _, f := range files {
		issues, err := l.LintFile(f)
		if err != nil {
			return nil, err
		}
		results[f] = issues
	}
	return results, nil
}

// LintFile lints one annotation file. Malformed JSON is reported as an issue,
// not an error; only I/O failures return an error.
func (l *Linter) LintFile(path string) ([]Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var doc VideoDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return []Issue{{Path: "$", Message: fmt.Sprintf("invalid JSON: %v", err)}}, nil
	}
	return l.LintDocument(&doc), nil
}

// LintDocument runs field validation and the structural checks on doc.
func (l *Linter) LintDocument(doc *VideoDoc) []Issue {
	issues := l.fieldIssues("$", doc)

	for i, f := range doc.Frames {
		fp := fmt.Sprintf("$.frames[%d]", i)
		if f == nil {
			issues = append(issues, Issue{Path: fp, Message: "frame is null"})
			continue
		}
		issues = append(issues, l.fieldIssues(fp, f)...)

		if f.FrameNumber != i+1 {
			issues = append(issues, Issue{Path: fp + ".frameNumber", Message: fmt.Sprintf("expected %d, got %d", i+1, f.FrameNumber)})
		}
		if f.NumberOfPeople != len(f.People) {
			issues = append(issues, Issue{Path: fp + ".numberOfPeople", Message: fmt.Sprintf("says %d but frame has %d people", f.NumberOfPeople, len(f.People))})
		}

		seen := make(map[int]bool)
		for j, p := range f.People {
			pp := fmt.Sprintf("%s.people[%d]", fp, j)
			if p == nil {
				issues = append(issues, Issue{Path: pp, Message: "person is null"})
				continue
			}
			if p.ID != nil {
				if seen[*p.ID] {
					issues = append(issues, Issue{Path: pp + ".id", Message: fmt.Sprintf("id %d appears more than once in frame", *p.ID)})
				}
				seen[*p.ID] = true
			}
			issues = append(issues, personIssues(pp, p)...)
		}
	}
	return issues
}

func (l *Linter) fieldIssues(prefix string, s interface{}) []Issue {
	err := l.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Path: prefix, Message: err.Error()}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{
			Path:    prefix + "." + lowerFirst(fe.Field()),
			Message: fmt.Sprintf("failed %q constraint (value %v)", fe.Tag(), fe.Value()),
		})
	}
	return issues
}

func personIssues(path string, p *PersonDoc) []Issue {
	var issues []Issue
	b := p.Box

	if !b.TopLeft.IsEmpty() || !b.BottomRight.IsEmpty() {
		consistent := eqCoord(b.TopRight.X, b.BottomRight.X) && eqCoord(b.TopRight.Y, b.TopLeft.Y) &&
			eqCoord(b.BottomLeft.X, b.TopLeft.X) && eqCoord(b.BottomLeft.Y, b.BottomRight.Y)
		if !consistent {
			issues = append(issues, Issue{Path: path + ".box", Message: "corners do not describe a rectangle"})
		}
		if b.TopLeft.IsValid() && b.BottomRight.IsValid() {
			l, t := b.TopLeft.XY()
			r, bt := b.BottomRight.XY()
			if l < 0 || t < 0 || r < 0 || bt < 0 {
				issues = append(issues, Issue{Path: path + ".box", Message: "negative coordinate"})
			} else if l >= r || t >= bt {
				issues = append(issues, Issue{Path: path + ".box", Message: "box is inverted or empty"})
			}
		}
	}

	if z := p.Location.Zone; z != nil && !IsZoneLabel(*z) {
		issues = append(issues, Issue{Path: path + ".location.zone", Message: fmt.Sprintf("zone %q is not one of A-D or null", *z)})
	}
	if p.Location.Real.IsValid() && !p.Location.Virtual.IsValid() {
		issues = append(issues, Issue{Path: path + ".location.real", Message: "real location set without a virtual location"})
	}
	return issues
}

func eqCoord(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
