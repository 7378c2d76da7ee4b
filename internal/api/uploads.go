package api

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tasknote/internal/storage"
	"github.com/starford/tasknote/internal/wire"
)

const (
	defaultMaxUpload = 10 << 20 // 10 MB
	multipartMemory  = 8 << 20
)

// UploadHandler accepts and serves note images.
type UploadHandler struct {
	store    storage.Provider
	maxBytes int64
}

// NewUploadHandler creates a handler over store. maxBytes <= 0 selects the default.
func NewUploadHandler(store storage.Provider, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUpload
	}
	return &UploadHandler{store: store, maxBytes: maxBytes}
}

// Upload handles POST /api/upload (multipart/form-data, field "file").
// Only images are accepted; the stored name is random.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Room for the multipart envelope on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("file too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		writeJSON(w, http.StatusBadRequest, errorBody("only images can be uploaded"))
		return
	}

	obj, err := h.store.Save(imageExt(header.Filename, contentType), io.MultiReader(bytes.NewReader(head), file), h.maxBytes)
	if err != nil {
		writeError(w, "upload", err)
		return
	}

	writeJSON(w, http.StatusCreated, wire.UploadResponse{
		URL:      "/uploads/" + obj.Name,
		Filename: header.Filename,
		Size:     obj.Size,
	})
}

// imageExt keeps the client's extension when it looks sane and falls back
// to one derived from the sniffed type.
func imageExt(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 1 && len(ext) <= 6 && strings.IndexFunc(ext[1:], notAlnum) < 0 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// ServeFile handles GET /uploads/{name}.
func (h *UploadHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f, err := h.store.Open(name)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidName):
			http.Error(w, "invalid name", http.StatusBadRequest)
		case errors.Is(err, fs.ErrNotExist):
			http.NotFound(w, r)
		default:
			writeError(w, "serve upload", err)
		}
		return
	}
	defer f.Close()
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, name, time.Time{}, f)
}

func notAlnum(r rune) bool {
	return (r < 'a' || r > 'z') && (r < '0' || r > '9')
}
