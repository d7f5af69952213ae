package annotation

import (
	"os"
	"path/filepath"

	"github.com/teranos/framemark/errors"
)

// ReadFile loads an annotation document from path.
//
// When match is non-nil the document must belong to that sequence and video;
// otherwise ErrMismatch is returned and the caller keeps whatever it had.
func ReadFile(path string, match *Match) (*Video, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read annotation file %s", path)
	}

	v, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "annotation file %s", path)
	}

	if match != nil && !v.Matches(*match) {
		got := v.Context()
		return nil, errors.WithDetailf(
			errors.Wrapf(errors.ErrMismatch, "annotation file %s", path),
			"file has sequence %d %q video %q camera %d, workspace has sequence %d %q video %q camera %d",
			got.Number, got.Name, got.Increment, got.Camera,
			match.Number, match.Name, match.Increment, match.Camera,
		)
	}

	return v, nil
}

// WriteFile saves v to path. The body goes to a temp file in the same
// directory first and is renamed into place.
func WriteFile(path string, v *Video) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to move annotation file into %s", path)
	}
	return nil
}
