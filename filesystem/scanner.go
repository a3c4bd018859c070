package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sagarc03/storehouse"
)

// Scanner lists the files already under a storage root. It is the
// storehouse.FileLister used to seed the ledger.
type Scanner struct {
	root     *os.Root
	location string
}

// NewScanner creates a Scanner confined to root.
func NewScanner(root *os.Root) (*Scanner, error) {
	location, err := filepath.Abs(root.Name())
	if err != nil {
		return nil, fmt.Errorf("new scanner: %w", err)
	}
	return &Scanner{root: root, location: location}, nil
}

var _ storehouse.FileLister = (*Scanner)(nil)

// List recursively walks the root and returns a record for every regular
// file. Hidden temp files left by interrupted moves are skipped.
func (s *Scanner) List(ctx context.Context) ([]storehouse.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := []storehouse.LedgerRecord{}

	if err := s.walkDir(ctx, ".", &entries); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return entries, nil
}

func (s *Scanner) walkDir(ctx context.Context, path string, entries *[]storehouse.LedgerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), path)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}

		entryPath := filepath.Join(path, entry.Name())

		if entry.IsDir() {
			if err := s.walkDir(ctx, entryPath, entries); err != nil {
				return err
			}
			continue
		}

		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".t") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		contentType, err := s.detect(entryPath)
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		*entries = append(*entries, storehouse.LedgerRecord{
			Path:        filepath.ToSlash(entryPath),
			Location:    filepath.Join(s.location, entryPath),
			Source:      storehouse.SourceScan,
			ContentType: contentType,
			SizeBytes:   info.Size(),
		})
	}

	return nil
}

func (s *Scanner) detect(path string) (string, error) {
	f, err := s.root.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "path", path, "err", closeErr)
		}
	}()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	return mt.String(), nil
}
