package clientcli

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath   string
	RemotePath  string
	ContentType string // optional, detected if empty
	Recursive   bool
	// Fields are extra form fields sent and signed alongside path.
	Fields map[string]string
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath   string `json:"local_path"`
	RemotePath  string `json:"remote_path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size_bytes"`
	Err         error  `json:"-"` // nil on success
}

// FetchOptions configures a server-side fetch.
type FetchOptions struct {
	URL        string
	RemotePath string
	Fields     map[string]string
}

// FetchResult represents the result of a server-side fetch.
type FetchResult struct {
	URL        string `json:"url"`
	RemotePath string `json:"remote_path"`
}

// commitResponse mirrors the JSON body of a successful upload or fetch.
type commitResponse struct {
	Path string `json:"path"`
}

// errorResponse mirrors the JSON body of a failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
