package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/agentgate/internal/store"
)

// handleUpload parks a file on disk and hands back the file_id a later
// chat turn can reference.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	filename := sanitizeFilename(header.Filename)
	contentType := header.Header.Get("Content-Type")

	id := s.uploads.NewID()
	path := filepath.Join(s.cfg.UploadDir, id+uploadSuffix(filename, contentType))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.Error("failed to store upload", "path", path, "error", err)
		jsonError(w, "failed to store file", http.StatusInternalServerError)
		return
	}

	s.uploads.Put(store.Upload{
		ID:          id,
		Filename:    filename,
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  time.Now().UTC(),
	})
	s.log.Info("file uploaded", "file_id", id, "filename", filename, "bytes", len(data))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"file_id":  id,
		"filename": filename,
		"size":     len(data),
		"status":   "uploaded",
	})
}

// uploadSuffix picks the on-disk extension: trusted content types
// first, then whatever extension the client sent.
func uploadSuffix(filename, contentType string) string {
	switch {
	case contentType == "application/pdf":
		return ".pdf"
	case strings.Contains(contentType, "openxmlformats-officedocument"):
		return ".docx"
	case strings.HasPrefix(contentType, "image/"):
		return ".jpg"
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	return ".tmp"
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
