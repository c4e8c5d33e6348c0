package httpserver

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxUpload = 5 << 20

func (h *Handlers) upload(w http.ResponseWriter, r *http.Request) {
	if h.Uploads == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "no object store configured")
		return
	}

	// multipart framing gets 1 MiB on top of the file itself
	const maxBody = maxUpload + (1 << 20)
	if r.ContentLength > maxBody {
		writeProblem(w, http.StatusRequestEntityTooLarge, "Too large", "file must be at most 5 MiB")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeProblem(w, http.StatusRequestEntityTooLarge, "Too large", "file must be at most 5 MiB")
			return
		}
		writeProblem(w, http.StatusBadRequest, "Invalid upload", "expected multipart/form-data")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid upload", "no file uploaded")
		return
	}
	defer file.Close()

	if hdr.Size > maxUpload {
		writeProblem(w, http.StatusRequestEntityTooLarge, "Too large", "file must be at most 5 MiB")
		return
	}

	// trust the bytes, not the client header
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	contentType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(contentType, "image/") {
		writeProblem(w, http.StatusBadRequest, "Invalid upload", "file must be an image")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeError(w, r, err)
		return
	}

	key := "uploads/" + uuid.NewString() + strings.ToLower(filepath.Ext(hdr.Filename))
	url, err := h.Uploads.Put(r.Context(), key, contentType, file, hdr.Size)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("upload failed")
		writeProblem(w, http.StatusBadGateway, "Upload failed", "object store rejected the file")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
