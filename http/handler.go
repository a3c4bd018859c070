package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sagarc03/storehouse"
	"github.com/sagarc03/storehouse/filesystem"
)

// maxFieldBytes bounds a single non-file form field.
const maxFieldBytes = 1 << 20

// maxFormMemory is passed to ParseMultipartForm on the fetch route, which
// carries no file.
const maxFormMemory = 1 << 20

type UploadAccepter interface {
	Accept(ctx context.Context, req storehouse.UploadRequest) (storehouse.Commit, error)
}

type FetchAccepter interface {
	Accept(ctx context.Context, req storehouse.FetchRequest) (storehouse.Commit, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" validate:"gte=0"`
}

type DownloadConfig struct {
	Enabled bool
	Prefix  string
	Root    string
}

type HandlerConfig struct {
	UploadPath string
	FetchPath  string
	// MaxUploadSize caps the request body in bytes. Zero means no limit.
	MaxUploadSize int64
	// TempDir receives spooled upload parts. Empty means os.TempDir().
	TempDir  string
	Download DownloadConfig
	CORS     CORSConfig
	Logger   *slog.Logger
	// Middlewares wrap every route. WriteMiddlewares wrap only the upload
	// and fetch routes.
	Middlewares      []func(http.Handler) http.Handler
	WriteMiddlewares []func(http.Handler) http.Handler
}

// Handler provides HTTP handlers for the upload and fetch committers.
type Handler struct {
	config  HandlerConfig
	logger  *slog.Logger
	uploads UploadAccepter
	fetches FetchAccepter
}

// NewHandler creates a new Handler with the given configuration and committers.
func NewHandler(config *HandlerConfig, uploads UploadAccepter, fetches FetchAccepter) *Handler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:  *config,
		logger:  logger,
		uploads: uploads,
		fetches: fetches,
	}
}

// Router returns an http.Handler with the write routes and, when enabled,
// the download route.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	for _, mw := range h.config.Middlewares {
		r.Use(mw)
	}

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Group(func(r chi.Router) {
		for _, mw := range h.config.WriteMiddlewares {
			r.Use(mw)
		}
		r.Post(h.config.UploadPath, h.handleUpload)
		r.Post(h.config.FetchPath, h.handleFetch)
	})

	if h.config.Download.Enabled {
		prefix := downloadPrefix(h.config.Download.Prefix)
		download := http.StripPrefix(prefix, newDownloadHandler(h.config.Download.Root))
		r.Method(http.MethodGet, prefix+"*", download)
		r.Method(http.MethodHead, prefix+"*", download)
	}

	return r
}

func (h *Handler) limitBody(w http.ResponseWriter, r *http.Request) {
	if h.config.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)

	req, err := h.readUpload(r)
	if req.TempFile != "" {
		defer h.removeTemp(req.TempFile)
	}
	if err != nil {
		h.writeRequestError(w, err)
		return
	}

	commit, err := h.uploads.Accept(r.Context(), req)
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, CommitResponse{Path: commit.Path})
}

// readUpload streams the multipart body. Text fields are collected and the
// first file part is spooled to TempDir. A request that is not multipart
// falls back to its urlencoded form and carries no file.
func (h *Handler) readUpload(r *http.Request) (storehouse.UploadRequest, error) {
	var req storehouse.UploadRequest

	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req.Fields = storehouse.FieldsFromForm(r.PostForm)
		req.Signature = r.PostForm.Get(storehouse.FieldSignature)
		return req, nil
	}
	if err != nil {
		return req, err
	}

	form := url.Values{}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return req, err
		}

		name := part.FormName()
		switch {
		case name == "":
		case name == storehouse.FieldFile && part.FileName() != "":
			if req.TempFile != "" {
				break
			}
			if err := h.spool(r.Context(), part, &req); err != nil {
				_ = part.Close()
				return req, err
			}
		default:
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				_ = part.Close()
				return req, err
			}
			form.Add(name, string(value))
		}
		_ = part.Close()
	}

	req.Fields = storehouse.FieldsFromForm(form)
	req.Signature = form.Get(storehouse.FieldSignature)
	return req, nil
}

func (h *Handler) spool(ctx context.Context, part *multipart.Part, req *storehouse.UploadRequest) error {
	path, _, err := filesystem.Spool(ctx, h.config.TempDir, part)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return storehouse.Errorf(storehouse.KindIO, storehouse.CodeWriteFile, err, "spool upload: %v", err)
		}
		return err
	}

	req.TempFile = path
	req.DeclaredType = part.Header.Get("Content-Type")
	if req.DeclaredType == "" {
		req.DeclaredType = "application/octet-stream"
	}
	req.Encoding = strings.ToLower(part.Header.Get("Content-Transfer-Encoding"))
	return nil
}

func (h *Handler) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		h.logger.Warn("remove spooled upload", "path", path, "error", err)
	}
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)

	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.writeRequestError(w, err)
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	commit, err := h.fetches.Accept(r.Context(), storehouse.FetchRequest{
		Fields:    storehouse.FieldsFromForm(r.PostForm),
		Signature: r.PostForm.Get(storehouse.FieldSignature),
	})
	if err != nil {
		HandleError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, CommitResponse{Path: commit.Path})
}

// writeRequestError answers a body that could not be read.
func (h *Handler) writeRequestError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.logger.Warn("request too large", "limit", tooLarge.Limit)
		WriteError(w, http.StatusRequestEntityTooLarge, codeRequestTooLarge, string(storehouse.KindValidation), "Request body is too large.")
		return
	}

	var se *storehouse.Error
	if errors.As(err, &se) {
		HandleError(w, h.logger, err)
		return
	}

	h.logger.Warn("malformed request", "error", err)
	WriteError(w, http.StatusBadRequest, codeMalformed, string(storehouse.KindValidation), "Request body could not be parsed.")
}
