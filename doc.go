// Package storehouse provides signed file writes into a local directory tree.
//
// Clients prove they are allowed to write by signing the request's form fields
// with a shared secret. Two kinds of write are supported: a multipart upload
// that has already been spooled to a temporary file, and a server-side fetch
// that streams a remote URL into place.
//
// # Key Components
//
//   - Authenticator: canonical field signing and constant-time verification
//   - Pipeline: the staged commit (exists check, mkdir, materialize, chmod)
//   - UploadCommitter: binds the pipeline to a move of a temp file
//   - FetchCommitter: binds the pipeline to a streamed download
//   - Notifier: sink for lifecycle events (upload-requested, uploaded, ...)
//
// # Signing
//
// The canonical string is built from every form field except "signature" and
// "file", sorted by name and joined as name=value pairs with '&', followed by
// "&secret=<secret>". The digest is SHA-1 by default for compatibility with
// existing signers; SHA-256 can be selected instead.
//
//	auth, err := storehouse.NewAuthenticator([]byte("s3cr3t"), storehouse.AlgorithmSHA1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sig := auth.ComputeSignature(storehouse.SignedRequest{"path": "a/b.txt"})
//
// The file payload is not part of the signed string, so a valid signature does
// not vouch for the uploaded bytes.
//
// # Committing
//
//	pipeline := storehouse.NewPipeline(fsys, slog.Default())
//	uploads := storehouse.NewUploadCommitter(cfg, auth, pipeline, fsys, notifier)
//	commit, err := uploads.Accept(ctx, storehouse.UploadRequest{...})
//
// See the http package for the REST endpoints and the filesystem package for
// the on-disk implementation.
package storehouse
