// Package http exposes the upload and fetch committers over HTTP.
//
// Two write endpoints are mounted on a chi router:
//
//   - POST {UploadPath}: multipart form with path, signature and file fields
//   - POST {FetchPath}: form with url, path and signature fields
//
// A committed file answers 200 with {"path": "..."}. Every failure answers
// with a JSON body naming the error code and kind:
//
//	{"error": "invalid signature", "kind": "auth", "message": "..."}
//
// Validation, auth and conflict failures are 400; io and network failures
// are 500.
//
// When download is enabled the storage root is also served read-only
// under Download.Prefix.
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{
//	    UploadPath: "/upload",
//	    FetchPath:  "/fetch",
//	    TempDir:    os.TempDir(),
//	}, uploads, fetches)
//	srv := &stdhttp.Server{Addr: ":8888", Handler: handler.Router()}
package http
