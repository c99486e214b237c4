// Package media stores uploaded documents and images on local disk and
// records them in the uploads table.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/zulandar/folio/internal/config"
	"github.com/zulandar/folio/internal/logging"
	"github.com/zulandar/folio/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTooLarge    = errors.New("media: file too large")
	ErrType        = errors.New("media: file type not supported")
	ErrCategory    = errors.New("media: unknown category")
	ErrInvalidPath = errors.New("media: invalid path")
	ErrNotFound    = errors.New("media: file not found")
)

// Categories group uploads into top-level directories.
var Categories = []string{"cv", "resume", "project", "experience"}

// DefaultCategory is used when an upload names none.
const DefaultCategory = "cv"

const lockName = ".folio-media.lock"

// Upload is a file about to be stored.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Category    string
	Body        io.Reader
}

// Store writes uploads under a root directory.
type Store struct {
	db       *gorm.DB
	root     string
	baseURL  string
	maxBytes int64
	log      *zap.Logger
	now      func() time.Time
}

// NewStore creates a media store from cfg.
func NewStore(db *gorm.DB, cfg config.MediaConfig, log *zap.Logger) *Store {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Store{
		db:       db,
		root:     cfg.Root,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		maxBytes: maxBytes,
		log:      logging.OrNop(log),
		now:      time.Now,
	}
}

// MaxBytes is the largest accepted upload.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save validates u, writes it to <root>/<category>/<unixmillis>_<name> and
// records it.
func (s *Store) Save(ctx context.Context, u Upload) (*models.Upload, error) {
	if u.Category == "" {
		u.Category = DefaultCategory
	}
	if !validCategory(u.Category) {
		return nil, fmt.Errorf("%w: %q", ErrCategory, u.Category)
	}
	if u.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, u.Size, s.maxBytes)
	}
	ct, _, err := mime.ParseMediaType(u.ContentType)
	if err != nil || !allowedType(ct) {
		return nil, fmt.Errorf("%w: %q", ErrType, u.ContentType)
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	dir := filepath.Join(s.root, u.Category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create %s: %w", dir, err)
	}
	rel, f, err := s.create(u.Category, sanitize(u.Name))
	if err != nil {
		return nil, err
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	n, err := io.Copy(f, io.LimitReader(u.Body, s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxBytes {
		err = fmt.Errorf("%w: limit %d", ErrTooLarge, s.maxBytes)
	}
	if err != nil {
		os.Remove(full)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("media: write %s: %w", rel, err)
	}

	rec := &models.Upload{
		Category:     u.Category,
		Path:         rel,
		URL:          s.URL(rel),
		ContentType:  ct,
		Size:         n,
		OriginalName: u.Name,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		os.Remove(full)
		return nil, fmt.Errorf("media: record %s: %w", rel, err)
	}
	s.log.Info("upload stored", zap.String("path", rel), zap.Int64("size", n))
	return rec, nil
}

// create opens a new file for name, moving the timestamp forward when two
// uploads of the same name land in the same millisecond.
func (s *Store) create(category, name string) (string, *os.File, error) {
	ms := s.now().UnixMilli()
	for i := 0; i < 100; i++ {
		rel := path.Join(category, strconv.FormatInt(ms+int64(i), 10)+"_"+name)
		f, err := os.OpenFile(filepath.Join(s.root, filepath.FromSlash(rel)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return rel, f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", nil, fmt.Errorf("media: create %s: %w", rel, err)
		}
	}
	return "", nil, fmt.Errorf("media: create %s/%s: too many collisions", category, name)
}

// Open opens a stored file by its relative path for reading. Paths that
// would escape the root are rejected.
func (s *Store) Open(rel string) (*os.File, error) {
	rel, err := clean(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenInRoot(s.root, filepath.FromSlash(rel))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	if err != nil {
		return nil, fmt.Errorf("media: open %s: %w", rel, err)
	}
	return f, nil
}

// Delete removes a stored file and its record.
func (s *Store) Delete(ctx context.Context, rel string) error {
	rel, err := clean(rel)
	if err != nil {
		return err
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	res := s.db.WithContext(ctx).Where("path = ?", rel).Delete(&models.Upload{})
	if res.Error != nil {
		return fmt.Errorf("media: delete record %s: %w", rel, res.Error)
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	switch {
	case errors.Is(err, os.ErrNotExist) && res.RowsAffected == 0:
		return fmt.Errorf("%w: %s", ErrNotFound, rel)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("media: delete %s: %w", rel, err)
	}
	return nil
}

// List returns recorded uploads, newest first, optionally for one category.
func (s *Store) List(ctx context.Context, category string) ([]models.Upload, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var out []models.Upload
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("media: list: %w", err)
	}
	return out, nil
}

// URL is the public address of a stored file.
func (s *Store) URL(rel string) string { return s.baseURL + "/" + rel }

// lock takes the cross-process directory lock so concurrent writers cannot
// interleave file creation with record bookkeeping.
func (s *Store) lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("media: create root: %w", err)
	}
	fl := flock.New(filepath.Join(s.root, lockName))
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("media: acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("media: could not acquire lock")
	}
	return func() { _ = fl.Unlock() }, nil
}

func allowedType(ct string) bool {
	switch ct {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}

func validCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// sanitize keeps letters, digits, dots and dashes; everything else becomes
// an underscore.
func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, name)
}

func clean(rel string) (string, error) {
	rel = path.Clean("/" + strings.TrimSpace(rel))[1:]
	if rel == "" || strings.HasPrefix(path.Base(rel), ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return rel, nil
}
