package storehouse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"
)

// CommitterConfig is the part of the server configuration the committers
// consume.
type CommitterConfig struct {
	// Root is the directory client paths are resolved against.
	Root string
	// Overwrite allows replacing whatever is already at a target.
	Overwrite bool
	Logger    *slog.Logger
}

func (c CommitterConfig) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// UploadRequest is a parsed upload whose file part has already been spooled
// to TempFile.
type UploadRequest struct {
	Fields       SignedRequest
	Signature    string
	TempFile     string
	DeclaredType string
	Encoding     string
}

// FetchRequest is a parsed fetch. The remote URL is the signed "url" field.
type FetchRequest struct {
	Fields    SignedRequest
	Signature string
}

// UploadFileSystem moves a spooled upload into place.
type UploadFileSystem interface {
	// Move renames src onto dst. On failure nothing is left at dst.
	Move(ctx context.Context, src, dst string) error
}

// FetchFileSystem streams a download into place and inspects the result.
type FetchFileSystem interface {
	// WriteFile creates or truncates path and copies r into it.
	WriteFile(ctx context.Context, path string, r io.Reader) (int64, error)
	// DetectContentType sniffs the MIME type from the file's bytes.
	DetectContentType(ctx context.Context, path string) (string, error)
}

// Downloader opens a remote resource for reading.
type Downloader interface {
	Open(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

type UploadCommitter struct {
	cfg      CommitterConfig
	auth     *Authenticator
	pipeline *Pipeline
	fs       UploadFileSystem
	notifier Notifier
}

func NewUploadCommitter(cfg CommitterConfig, auth *Authenticator, pipeline *Pipeline, fs UploadFileSystem, notifier Notifier) *UploadCommitter {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &UploadCommitter{cfg: cfg, auth: auth, pipeline: pipeline, fs: fs, notifier: notifier}
}

// Accept validates and authenticates req, then moves its temp file onto the
// target. Nothing on disk is touched until the signature has been verified.
func (u *UploadCommitter) Accept(ctx context.Context, req UploadRequest) (Commit, error) {
	if req.TempFile == "" {
		return Commit{}, Errorf(KindValidation, CodeFileMissing, nil, "No file specified in upload request.")
	}
	path := req.Fields[FieldPath]
	if path == "" {
		return Commit{}, Errorf(KindValidation, CodePathMissing, nil, "No path specified in upload request.")
	}
	if req.Signature == "" {
		return Commit{}, Errorf(KindValidation, CodeSignatureMissing, nil, "No signature specified in upload request.")
	}
	if !u.auth.Verify(req.Fields, req.Signature) {
		return Commit{}, Errorf(KindAuth, CodeInvalidSignature, nil, "Signature for this upload request is invalid.")
	}

	target, err := ResolveTarget(u.cfg.Root, path)
	if err != nil {
		return Commit{}, err
	}
	if !IsWithin(u.cfg.Root, target) {
		u.cfg.logger().WarnContext(ctx, "upload target outside storage root", "path", path, "location", target)
	}

	encoding := req.Encoding
	if encoding == "" {
		encoding = "7bit"
	}

	u.notifier.Notify(ctx, Event{
		Kind:        EventUploadRequested,
		Path:        path,
		Directory:   filepath.Dir(target),
		Location:    target,
		ContentType: req.DeclaredType,
		Encoding:    encoding,
		Time:        time.Now().UTC(),
	})

	commit, err := u.pipeline.Run(ctx, target, u.cfg.Overwrite, Materializer{
		Apply: func(ctx context.Context, target string) error {
			if err := u.fs.Move(ctx, req.TempFile, target); err != nil {
				return Errorf(KindIO, CodeMoveFile, err, "move upload to %s: %v", target, err)
			}
			return nil
		},
		Rollback: RollbackNone,
	})
	if err != nil {
		return Commit{}, err
	}

	commit.Path = path
	commit.ContentType = req.DeclaredType
	commit.Encoding = encoding

	u.notifier.Notify(ctx, Event{
		Kind:        EventUploaded,
		Path:        path,
		Directory:   filepath.Dir(target),
		Location:    target,
		Size:        commit.Size,
		ContentType: commit.ContentType,
		Encoding:    encoding,
		Time:        time.Now().UTC(),
	})

	return commit, nil
}

type FetchCommitter struct {
	cfg        CommitterConfig
	auth       *Authenticator
	pipeline   *Pipeline
	fs         FetchFileSystem
	downloader Downloader
	notifier   Notifier
}

func NewFetchCommitter(cfg CommitterConfig, auth *Authenticator, pipeline *Pipeline, fs FetchFileSystem, downloader Downloader, notifier Notifier) *FetchCommitter {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &FetchCommitter{cfg: cfg, auth: auth, pipeline: pipeline, fs: fs, downloader: downloader, notifier: notifier}
}

// Accept validates and authenticates req, then streams the remote resource
// onto the target. No connection is opened until the signature has been
// verified. A stream that fails after the target was opened removes the
// partial file.
func (f *FetchCommitter) Accept(ctx context.Context, req FetchRequest) (Commit, error) {
	rawURL := req.Fields[FieldURL]
	if rawURL == "" {
		return Commit{}, Errorf(KindValidation, CodeURLMissing, nil, "No url to fetch specified in request.")
	}
	path := req.Fields[FieldPath]
	if path == "" {
		return Commit{}, Errorf(KindValidation, CodePathMissing, nil, "No path specified in request.")
	}
	if req.Signature == "" {
		return Commit{}, Errorf(KindValidation, CodeSignatureMissing, nil, "No signature specified in request.")
	}
	if !f.auth.Verify(req.Fields, req.Signature) {
		return Commit{}, Errorf(KindAuth, CodeInvalidSignature, nil, "Signature for this fetch request is invalid.")
	}

	target, err := ResolveTarget(f.cfg.Root, path)
	if err != nil {
		return Commit{}, err
	}
	if !IsWithin(f.cfg.Root, target) {
		f.cfg.logger().WarnContext(ctx, "fetch target outside storage root", "path", path, "location", target)
	}

	f.notifier.Notify(ctx, Event{
		Kind:      EventFetchRequested,
		Path:      path,
		Directory: filepath.Dir(target),
		Location:  target,
		URL:       rawURL,
		Time:      time.Now().UTC(),
	})

	commit, err := f.pipeline.Run(ctx, target, f.cfg.Overwrite, Materializer{
		Apply: func(ctx context.Context, target string) error {
			return f.stream(ctx, rawURL, target)
		},
		Rollback: RollbackRemovePartial,
	})
	if err != nil {
		return Commit{}, err
	}

	commit.Path = path
	contentType, sniffErr := f.fs.DetectContentType(ctx, target)
	if sniffErr != nil {
		f.cfg.logger().WarnContext(ctx, "detect content type", "location", target, "error", sniffErr)
	}
	commit.ContentType = contentType

	f.notifier.Notify(ctx, Event{
		Kind:        EventFetched,
		Path:        path,
		Directory:   filepath.Dir(target),
		Location:    target,
		URL:         rawURL,
		Size:        commit.Size,
		ContentType: contentType,
		Time:        time.Now().UTC(),
	})

	return commit, nil
}

// stream copies the remote body onto target. Open failures leave the target
// untouched and skip rollback; failures after WriteFile starts are rolled back.
func (f *FetchCommitter) stream(ctx context.Context, rawURL, target string) error {
	body, err := f.downloader.Open(ctx, rawURL)
	if err != nil {
		return Untouched(asError(err, KindNetwork, CodeFetchFailed))
	}
	defer body.Close()

	src := &readErrorRecorder{r: body}
	if _, err := f.fs.WriteFile(ctx, target, src); err != nil {
		if src.err != nil {
			return Errorf(KindNetwork, CodeFetchFailed, src.err, "fetch %s: %v", rawURL, src.err)
		}
		return Errorf(KindIO, CodeWriteFile, err, "write %s: %v", target, err)
	}

	return nil
}

// readErrorRecorder remembers the first non-EOF read error so a failed copy
// can be attributed to the remote side or the local disk.
type readErrorRecorder struct {
	r   io.Reader
	err error
}

func (rr *readErrorRecorder) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	if err != nil && err != io.EOF && rr.err == nil {
		rr.err = err
	}
	return n, err
}

// HTTPDownloader opens remote resources with an http.Client. Timeouts are
// the client's.
type HTTPDownloader struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPDownloader returns a downloader whose client gives up after timeout.
// A zero timeout means no limit.
func NewHTTPDownloader(timeout time.Duration, userAgent string) *HTTPDownloader {
	return &HTTPDownloader{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
	}
}

// Open issues a GET for rawURL. Any status outside 2xx is a network failure
// and the body is discarded.
func (d *HTTPDownloader) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, Errorf(KindNetwork, CodeFetchFailed, err, "build request for %s: %v", rawURL, err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, Errorf(KindNetwork, CodeFetchFailed, err, "fetch %s: %v", rawURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, Errorf(KindNetwork, CodeFetchFailed, nil, "fetch %s: %s", rawURL, statusText(resp.StatusCode))
	}

	return resp.Body, nil
}

func statusText(code int) string {
	return fmt.Sprintf("remote returned %d %s", code, http.StatusText(code))
}
