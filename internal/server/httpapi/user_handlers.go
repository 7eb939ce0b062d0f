package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/server/auth"
)

type fileListItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
	URL         string    `json:"url"`
}

type fileListResponse struct {
	Success bool           `json:"success"`
	Files   []fileListItem `json:"files"`
}

type presignRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type presignResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	URL     string `json:"url"`
}

// authenticate resolves the request's principal from a bearer header or the
// "token" cookie. It is an ordinary function called at the top of each
// owner-scoped handler: authenticate, then execute.
func (s *Server) authenticate(r *http.Request) (string, error) {
	token := ""

	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	} else if c, err := r.Cookie("token"); err == nil {
		token = c.Value
	}

	if token == "" {
		return "", common.ErrInvalidToken
	}

	return auth.GetUserIDFromToken(token, s.jwtSecret)
}

func (s *Server) handleUserUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	parts, err := readUploadParts(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.userFiles.Upload(r.Context(), userID, parts)
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

func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views, err := s.userFiles.List(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items := make([]fileListItem, 0, len(views))
	for _, v := range views {
		items = append(items, fileListItem{
			ID:          v.ID,
			Name:        v.DisplayName,
			ContentType: v.ContentType,
			Size:        v.Size,
			UploadedAt:  v.CreatedAt,
			URL:         v.URL,
		})
	}

	s.writeJSON(w, http.StatusOK, fileListResponse{Success: true, Files: items})
}

func (s *Server) handleUserDownload(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.userFiles.Download(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, downloadResponse{Success: true, URL: res.URL, Size: res.Size})
}

func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.userFiles.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, deleteResponse{Success: true})
}

func (s *Server) handleUserPresign(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, common.ErrorNoFile)
		return
	}

	target, err := s.userFiles.IssueUploadTarget(r.Context(), userID, req.Name, req.ContentType, req.Size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, presignResponse{Success: true, ID: target.FileID, URL: target.URL})
}
