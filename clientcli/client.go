package clientcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/sagarc03/storehouse"
)

// DefaultTimeout is the default HTTP client timeout. Fetches wait for the
// server to finish downloading, so it is generous.
const DefaultTimeout = 10 * time.Minute

// Client performs signed requests against a storehouse server.
type Client struct {
	config     *Config
	httpClient *http.Client
	auth       *storehouse.Authenticator
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	alg, err := storehouse.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	auth, err := storehouse.NewAuthenticator([]byte(cfg.Secret), alg)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}

	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		auth:       auth,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Sign returns the signature the server expects for fields.
func (c *Client) Sign(fields storehouse.SignedRequest) string {
	return c.auth.ComputeSignature(fields)
}

func (c *Client) signedFields(extra map[string]string, fixed map[string]string) storehouse.SignedRequest {
	fields := storehouse.SignedRequest{}
	for k, v := range extra {
		fields[k] = v
	}
	for k, v := range fixed {
		fields[k] = v
	}
	return fields
}

// Upload uploads file(s) to the server. A recursive upload walks the
// directory and preserves relative paths under RemotePath.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}
	if opts.Recursive {
		return c.uploadRecursive(ctx, opts)
	}

	remotePath := opts.RemotePath
	if remotePath == "" {
		remotePath = NormalizeLocalToRemotePath(opts.LocalPath)
	}

	result, err := c.uploadSingle(ctx, opts.LocalPath, remotePath, opts.ContentType, opts.Fields)
	if err != nil {
		return nil, err
	}
	return []UploadResult{result}, nil
}

func (c *Client) uploadRecursive(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	info, err := os.Stat(opts.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("stat local path: %w", err)
	}

	if !info.IsDir() {
		result, uploadErr := c.uploadSingle(ctx, opts.LocalPath, opts.RemotePath, opts.ContentType, opts.Fields)
		if uploadErr != nil {
			return nil, uploadErr
		}
		return []UploadResult{result}, nil
	}

	var results []UploadResult
	baseDir := opts.LocalPath
	remotePrefix := strings.Trim(opts.RemotePath, "/")

	walkErr := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, fileErr error) error {
		if fileErr != nil {
			return fileErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		relPath, relErr := filepath.Rel(baseDir, path)
		if relErr != nil {
			results = append(results, UploadResult{
				LocalPath: path,
				Err:       fmt.Errorf("calculate relative path: %w", relErr),
			})
			return nil
		}

		remotePath := filepath.ToSlash(relPath)
		if remotePrefix != "" {
			remotePath = remotePrefix + "/" + remotePath
		}

		result, uploadErr := c.uploadSingle(ctx, path, remotePath, "", opts.Fields)
		if uploadErr != nil {
			result = UploadResult{
				LocalPath:  path,
				RemotePath: remotePath,
				Err:        uploadErr,
			}
		}
		results = append(results, result)
		return nil
	})

	if walkErr != nil {
		return results, fmt.Errorf("walk directory: %w", walkErr)
	}

	return results, nil
}

// uploadSingle streams one file as a multipart form. The file part is
// written last so the server sees every signed field first.
func (c *Client) uploadSingle(ctx context.Context, localPath, remotePath, contentType string, extra map[string]string) (UploadResult, error) {
	if remotePath == "" {
		return UploadResult{}, fmt.Errorf("upload: %w", ErrEmptyPath)
	}

	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return UploadResult{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat file: %w", err)
	}

	if contentType == "" {
		contentType = detectContentType(localPath)
	}

	fields := c.signedFields(extra, map[string]string{storehouse.FieldPath: remotePath})
	signature := c.Sign(fields)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, fields, signature, filepath.Base(localPath), contentType, file))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+c.config.UploadPath, pr)
	if err != nil {
		_ = pr.Close()
		return UploadResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	commit, err := c.do(req)
	if err != nil {
		return UploadResult{}, err
	}

	return UploadResult{
		LocalPath:   localPath,
		RemotePath:  commit.Path,
		ContentType: contentType,
		Size:        info.Size(),
	}, nil
}

func writeUploadForm(mw *multipart.Writer, fields storehouse.SignedRequest, signature, filename, contentType string, content io.Reader) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := mw.WriteField(storehouse.FieldSignature, signature); err != nil {
		return err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, storehouse.FieldFile, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}

	return mw.Close()
}

// Fetch asks the server to download opts.URL into opts.RemotePath.
func (c *Client) Fetch(ctx context.Context, opts FetchOptions) (*FetchResult, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("fetch: %w", ErrEmptyURL)
	}
	if opts.RemotePath == "" {
		return nil, fmt.Errorf("fetch: %w", ErrEmptyPath)
	}

	fields := c.signedFields(opts.Fields, map[string]string{
		storehouse.FieldURL:  opts.URL,
		storehouse.FieldPath: opts.RemotePath,
	})

	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	form.Set(storehouse.FieldSignature, c.Sign(fields))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+c.config.FetchPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	commit, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return &FetchResult{URL: opts.URL, RemotePath: commit.Path}, nil
}

func (c *Client) do(req *http.Request) (commitResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return commitResponse{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return commitResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return commitResponse{}, parseServerError(resp.StatusCode, body)
	}

	var commit commitResponse
	if err := json.Unmarshal(body, &commit); err != nil {
		return commitResponse{}, fmt.Errorf("parse response: %w", err)
	}
	return commit, nil
}

// HasUploadErrors returns true if any upload failed.
func HasUploadErrors(results []UploadResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// NormalizeLocalToRemotePath converts a local path to a clean remote path.
// It handles:
//   - Leading "./" is stripped (./foo/bar.txt -> foo/bar.txt)
//   - Leading "/" is stripped (/abs/path/file.txt -> abs/path/file.txt)
//   - Parent traversal is resolved (../sibling/file.txt -> sibling/file.txt)
//   - Backslashes are converted to forward slashes (Windows)
func NormalizeLocalToRemotePath(localPath string) string {
	path := filepath.ToSlash(filepath.Clean(filepath.ToSlash(localPath)))

	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")

	for strings.HasPrefix(path, "../") {
		path = strings.TrimPrefix(path, "../")
	}

	if path == ".." || path == "." {
		return ""
	}

	return path
}

// detectContentType tries the file extension first and falls back to
// sniffing the content.
func detectContentType(path string) string {
	if ext := filepath.Ext(path); ext != "" {
		if mimeType := mime.TypeByExtension(ext); mimeType != "" {
			return mimeType
		}
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}

func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{
		StatusCode: statusCode,
		Body:       string(body),
	}

	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Code = parsed.Error
		apiErr.Kind = parsed.Kind
		apiErr.Message = parsed.Message
	}

	return apiErr
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Kind       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		msg := "server error: " + strconv.Itoa(e.StatusCode) + " " + e.Code
		if e.Message != "" {
			msg += ": " + e.Message
		}
		return msg
	}
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
}

// Is reports whether target matches this error. Sentinels match on
// StatusCode, and on Code when the sentinel sets one.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrInvalidSignature is returned when the server rejects the signature.
	ErrInvalidSignature = &APIError{StatusCode: http.StatusBadRequest, Code: storehouse.CodeInvalidSignature}

	// ErrFileExists is returned when the target exists and the server does
	// not overwrite.
	ErrFileExists = &APIError{StatusCode: http.StatusBadRequest, Code: storehouse.CodeFileExists}

	// ErrTooLarge is returned when the request exceeds the server's limit (413).
	ErrTooLarge = &APIError{StatusCode: http.StatusRequestEntityTooLarge}

	// ErrRateLimited is returned when the server is throttling this client (429).
	ErrRateLimited = &APIError{StatusCode: http.StatusTooManyRequests}
)
