package http

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

const defaultNotFoundHTML = `<html>
<head><title>404 Not Found</title></head>
<body>
<center><h1>404 Not Found</h1></center>
<hr><center>storehouse</center>
</body>
</html>`

func writeDefaultNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, defaultNotFoundHTML)
}

// downloadPrefix returns prefix with exactly one leading and trailing slash.
func downloadPrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return "/"
	}
	return "/" + prefix + "/"
}

// downloadHandler serves regular files under root. Directories and any
// path with a dot-prefixed segment are reported as not found, which also
// hides in-flight move temps.
type downloadHandler struct {
	root http.Dir
}

func newDownloadHandler(root string) http.Handler {
	return &downloadHandler{root: http.Dir(root)}
}

func (d *downloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if name == "/" || hasHiddenSegment(name) {
		writeDefaultNotFound(w)
		return
	}

	f, err := d.root.Open(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission) {
			WriteError(w, http.StatusInternalServerError, codeInternal, "io", "Internal server error")
			return
		}
		writeDefaultNotFound(w)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeDefaultNotFound(w)
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func hasHiddenSegment(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

