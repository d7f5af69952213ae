package cameratool

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/teranos/framemark/errors"
)

var frameImage = regexp.MustCompile(`^\d+\.jpg$`)

// IsFrameImage reports whether path names an extracted frame (N.jpg).
func IsFrameImage(path string) bool {
	return frameImage.MatchString(filepath.Base(path))
}

// ReadImageDir lists the extracted frames in dir as full paths, ordered by
// frame number (2.jpg before 10.jpg). Other files are ignored. An empty
// result is ErrNoImages.
func ReadImageDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read image directory %s", dir)
	}

	type frame struct {
		n    int
		name string
	}
	var frames []frame
	for _, e := range entries {
		if e.IsDir() || !frameImage.MatchString(e.Name()) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(e.Name(), ".jpg"))
		if err != nil {
			// too many digits for an int
			continue
		}
		frames = append(frames, frame{n: n, name: e.Name()})
	}

	if len(frames) == 0 {
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrNoImages, "directory %s", dir),
			"extract frames with `framemark init --video <file>` first",
		)
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].n < frames[j].n })

	paths := make([]string, len(frames))
	for i, f := range frames {
		paths[i] = filepath.Join(dir, f.name)
	}
	return paths, nil
}
