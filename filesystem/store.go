// Package filesystem implements the storehouse filesystem interfaces on the
// local disk. Moves fall back to copy, sync and rename when the spool
// directory and the target live on different devices, and content types
// are sniffed from file bytes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sagarc03/storehouse"
)

// Store performs filesystem operations on absolute paths.
type Store struct {
	logger *slog.Logger
	rename func(oldpath, newpath string) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for cleanup warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a Store.
func NewStore(opts ...Option) *Store {
	s := &Store{logger: slog.Default(), rename: os.Rename}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ storehouse.FileSystem       = (*Store)(nil)
	_ storehouse.UploadFileSystem = (*Store)(nil)
	_ storehouse.FetchFileSystem  = (*Store)(nil)
)

// Exists reports whether anything is present at path. Symlinks are not
// followed, so a dangling link counts as present.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("exists: %w", err)
}

func (s *Store) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return nil
}

func (s *Store) Chmod(ctx context.Context, path string, mode os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	return nil
}

// Remove deletes path. A path that is already gone is not an error.
func (s *Store) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func (s *Store) Stat(ctx context.Context, path string) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	return info, nil
}

// Move renames src onto dst. If the two are on different devices the file
// is copied to a hidden sibling of dst, synced, renamed onto dst and only
// then is src removed. A failed move leaves nothing at dst.
func (s *Store) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("move: %w", err)
	}

	s.logger.DebugContext(ctx, "cross-device move, copying", "src", src, "dst", dst)

	if err := s.copyThenRename(ctx, src, dst); err != nil {
		return fmt.Errorf("move: %w", err)
	}

	if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.WarnContext(ctx, "failed to remove moved source", "src", src, "err", err)
	}

	return nil
}

func (s *Store) copyThenRename(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	tmpPath := filepath.Join(filepath.Dir(dst), tmpFileName())
	t, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, storehouse.FileMode)
	if err != nil {
		return fmt.Errorf("could not open temp file: %w", err)
	}

	success := false
	defer func() {
		if success {
			return
		}
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			s.logger.Warn("failed to close tmp file", "err", closeErr)
		}
		if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			s.logger.Warn("failed to remove tmp file", "path", tmpPath, "err", rmErr)
		}
	}()

	if _, err := io.Copy(t, &ctxReader{ctx: ctx, r: in}); err != nil {
		return fmt.Errorf("could not copy file contents: %w", err)
	}
	if err := t.Sync(); err != nil {
		return fmt.Errorf("could not sync written file: %w", err)
	}
	if err := t.Close(); err != nil {
		return fmt.Errorf("could not close written file: %w", err)
	}
	if err := s.rename(tmpPath, dst); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	success = true
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// WriteFile creates or truncates path and streams r into it. The partial
// file is left behind on error; removing it is the caller's decision.
func (s *Store) WriteFile(ctx context.Context, path string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, storehouse.FileMode)
	if err != nil {
		return 0, fmt.Errorf("write file: %w", err)
	}

	n, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	closeErr := f.Close()

	if copyErr != nil {
		return n, fmt.Errorf("write file: %w", copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("write file: %w", closeErr)
	}

	return n, nil
}

// DetectContentType sniffs the MIME type from the head of the file.
func (s *Store) DetectContentType(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	return mt.String(), nil
}

// Spool copies r into a new uuid-named file in dir and returns its path.
// An empty dir means os.TempDir(). The file is removed if the copy fails.
func Spool(ctx context.Context, dir string, r io.Reader) (string, int64, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	path := filepath.Join(dir, "storehouse-"+uuid.New().String())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("spool: %w", err)
	}

	n, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(path)
		return "", n, fmt.Errorf("spool: %w", copyErr)
	}

	return path, n, nil
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
