package storehouse

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// SignedRequest holds the declared form fields of a request, keyed by name.
// It never includes the signature itself or the file payload.
type SignedRequest map[string]string

// Field names with fixed meaning.
const (
	FieldPath      = "path"
	FieldURL       = "url"
	FieldSignature = "signature"
	FieldFile      = "file"
)

// Commit is the successful side of a staging outcome.
type Commit struct {
	// Path is the client-supplied relative path.
	Path string `json:"path"`
	// Location is the absolute path of the committed file.
	Location    string `json:"location"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
}

// EventKind names a lifecycle event.
type EventKind string

const (
	EventUploadRequested EventKind = "upload-requested"
	EventUploaded        EventKind = "uploaded"
	EventFetchRequested  EventKind = "fetch-requested"
	EventFetched         EventKind = "fetched"
)

// Completed reports whether the event marks a committed file.
func (k EventKind) Completed() bool {
	return k == EventUploaded || k == EventFetched
}

// Event is the payload handed to a Notifier. Size, ContentType and Encoding
// are only meaningful where the event kind carries them.
type Event struct {
	Kind        EventKind `json:"kind"`
	Path        string    `json:"path"`
	Directory   string    `json:"directory"`
	Location    string    `json:"location"`
	URL         string    `json:"url,omitempty"`
	Size        int64     `json:"size,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Encoding    string    `json:"encoding,omitempty"`
	Time        time.Time `json:"time"`
}

// Source records how a ledger entry's file got onto disk.
type Source string

const (
	SourceUpload Source = "upload"
	SourceFetch  Source = "fetch"
	SourceScan   Source = "scan"
)

// LedgerEntry is the persisted record of the latest commit to a path.
type LedgerEntry struct {
	ID          uuid.UUID `json:"id"`
	Path        string    `json:"path"`
	Location    string    `json:"location"`
	Source      Source    `json:"source"`
	URL         string    `json:"url,omitempty"`
	ContentType string    `json:"content_type"`
	Encoding    string    `json:"encoding,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LedgerRecord is the input to LedgerRepo.Record.
type LedgerRecord struct {
	Path        string
	Location    string
	Source      Source
	URL         string
	ContentType string
	Encoding    string
	SizeBytes   int64
}

type ListQuery struct {
	PathPrefix string
	Limit      int
	Cursor     string
}

type ListResult struct {
	Items      []LedgerEntry `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// Tables holds configurable table names for ledger storage.
type Tables struct {
	Ledger string `mapstructure:"ledger"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Ledger == "" {
		return errors.New("validate tables: ledger table name cannot be empty")
	}

	if !IsValidTableName(t.Ledger) {
		return fmt.Errorf("validate tables: invalid ledger table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Ledger)
	}

	return nil
}
