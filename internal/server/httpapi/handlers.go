package httpapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/server/services"
)

// maxUploadMemory bounds how much of a multipart body is buffered in memory
// before spilling to temp files.
const maxUploadMemory = 32 << 20

// fileField is the repeatable multipart field carrying the payloads.
const fileField = "file"

type uploadResponse struct {
	Success   bool      `json:"success"`
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	ShareURL  string    `json:"shareUrl"`
	Size      int64     `json:"size"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type downloadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Size    int64  `json:"size"`
}

type deleteResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	parts, err := readUploadParts(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.transfer.Upload(r.Context(), parts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, uploadResponse{
		Success:   true,
		ID:        res.FileID,
		URL:       res.URL,
		ShareURL:  res.ShareURL,
		Size:      res.Size,
		ExpiresAt: res.ExpiresAt,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	res, err := s.transfer.Download(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, downloadResponse{Success: true, URL: res.URL, Size: res.Size})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.transfer.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, deleteResponse{Success: true})
}

// readUploadParts collects every "file" part of the multipart form. An
// empty or absent selection maps to common.ErrorNoFile before any side
// effect happens.
func readUploadParts(r *http.Request) ([]services.UploadPart, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, fmt.Errorf("%v: %w", err, common.ErrorNoFile)
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File[fileField]) == 0 {
		return nil, common.ErrorNoFile
	}

	headers := r.MultipartForm.File[fileField]
	parts := make([]services.UploadPart, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		parts = append(parts, services.UploadPart{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	return parts, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening multipart file %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading multipart file %q: %w", fh.Filename, err)
	}
	return data, nil
}
