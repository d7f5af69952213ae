// Package history keeps saved revisions of annotation files in SQLite so an
// earlier state of a file can be listed and restored.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/logger"
)

// Revision is one saved document. Document is only filled by Load.
type Revision struct {
	ID        int64            `json:"id"`
	FilePath  string           `json:"file_path"`
	Context   annotation.Match `json:"context"`
	Frames    int              `json:"frames"`
	People    int              `json:"people"`
	Checksum  string           `json:"checksum"`
	CreatedAt time.Time        `json:"created_at"`
	Document  []byte           `json:"-"`
}

// Store reads and writes annotation_revisions.
type Store struct {
	db           *sql.DB
	maxRevisions int
	logger       *zap.SugaredLogger
}

// NewStore creates a revision store. maxRevisions <= 0 keeps every revision.
func NewStore(db *sql.DB, maxRevisions int) *Store {
	return &Store{
		db:           db,
		maxRevisions: maxRevisions,
		logger:       logger.ComponentLogger("history"),
	}
}

// Save records v as the newest revision of path. A document identical to the
// newest stored revision is not stored again; created reports whether a row
// was written.
func (s *Store) Save(ctx context.Context, path string, v *annotation.Video) (rev *Revision, created bool, err error) {
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, false, errors.Wrapf(err, "resolve %s", path)
	}
	doc, err := annotation.Marshal(v)
	if err != nil {
		return nil, false, err
	}
	sum := sha256.Sum256(doc)
	checksum := hex.EncodeToString(sum[:])

	latest, err := s.latest(ctx, path)
	if err != nil {
		return nil, false, err
	}
	if latest != nil && latest.Checksum == checksum {
		return latest, false, nil
	}

	ctxMatch := v.Context()
	rev = &Revision{
		FilePath:  path,
		Context:   ctxMatch,
		Frames:    len(v.Frames),
		People:    countPeople(v),
		Checksum:  checksum,
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO annotation_revisions (
			file_path, video_number, video_name, increment, camera,
			frames, people, checksum, document, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rev.FilePath, ctxMatch.Number, ctxMatch.Name, ctxMatch.Increment, ctxMatch.Camera,
		rev.Frames, rev.People, rev.Checksum, doc, rev.CreatedAt,
	)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to save revision of %s", path)
	}
	if rev.ID, err = res.LastInsertId(); err != nil {
		return nil, false, errors.Wrap(err, "failed to read revision id")
	}

	s.logger.Debugw("Revision saved",
		logger.FieldFile, path,
		"revision", rev.ID,
		logger.FieldCount, rev.People,
	)

	if s.maxRevisions > 0 {
		if _, err := s.Prune(ctx, path, s.maxRevisions); err != nil {
			return rev, true, err
		}
	}
	return rev, true, nil
}

func (s *Store) latest(ctx context.Context, path string) (*Revision, error) {
	revs, err := s.List(ctx, path, 1)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, nil
	}
	return &revs[0], nil
}

// List returns revisions of path, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, path string, limit int) ([]Revision, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_path, video_number, video_name, increment, camera,
			frames, people, checksum, created_at
		FROM annotation_revisions
		WHERE file_path = ?
		ORDER BY id DESC
		LIMIT ?`, path, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list revisions of %s", path)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.FilePath,
			&r.Context.Number, &r.Context.Name, &r.Context.Increment, &r.Context.Camera,
			&r.Frames, &r.People, &r.Checksum, &r.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan revision")
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate revisions")
	}
	return revs, nil
}

// Load fetches one revision and parses its document.
func (s *Store) Load(ctx context.Context, id int64) (*Revision, *annotation.Video, error) {
	var r Revision
	err := s.db.QueryRowContext(ctx, `
		SELECT id, file_path, video_number, video_name, increment, camera,
			frames, people, checksum, created_at, document
		FROM annotation_revisions
		WHERE id = ?`, id).Scan(&r.ID, &r.FilePath,
		&r.Context.Number, &r.Context.Name, &r.Context.Increment, &r.Context.Camera,
		&r.Frames, &r.People, &r.Checksum, &r.CreatedAt, &r.Document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, errors.NewNotFoundError("revision %d", id)
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to load revision %d", id)
	}

	v, err := annotation.Parse(r.Document)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "revision %d is corrupt", id)
	}
	return &r, v, nil
}

// Prune deletes all but the newest keep revisions of path.
func (s *Store) Prune(ctx context.Context, path string, keep int) (int64, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return 0, errors.Wrapf(err, "resolve %s", path)
	}
	if keep < 0 {
		return 0, errors.NewInvalidRequestError("keep must be >= 0, got %d", keep)
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM annotation_revisions
		WHERE file_path = ? AND id NOT IN (
			SELECT id FROM annotation_revisions
			WHERE file_path = ?
			ORDER BY id DESC
			LIMIT ?
		)`, path, path, keep)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to prune revisions of %s", path)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count pruned revisions")
	}
	if n > 0 {
		s.logger.Debugw("Revisions pruned", logger.FieldFile, path, logger.FieldCount, n)
	}
	return n, nil
}

func countPeople(v *annotation.Video) int {
	n := 0
	for _, f := range v.Frames {
		if f != nil {
			n += len(f.People)
		}
	}
	return n
}
